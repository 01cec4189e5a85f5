package pow

import (
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/glyphchain/glyphchaind/chainparams"
)

// CheckProofOfWork reports whether hash satisfies the compact target bits
// under PoW rules: bits must decode to a non-negative, non-zero, non
// overflowing target no greater than the chain's PowLimit, and hash
// (compared as a 256-bit unsigned integer) must not exceed that target.
//
// hash is taken as raw block-hash bytes in chainhash.Hash's storage order,
// first byte least significant; hashToBig reverses them before comparing.
func CheckProofOfWork(hash chainhash.Hash, bits Bits, params *chainparams.Params) bool {
	target, negative, overflow := compactToBigChecked(uint32(bits))
	if negative || overflow || target.Sign() == 0 {
		return false
	}
	if target.Cmp(params.PowLimitBig()) > 0 {
		return false
	}

	h := hashToBig(hash)
	return h.Cmp(target) <= 0
}

// compactToBigChecked decodes a compact target and separately reports the
// negative/overflow conditions CompactToBig's native signature does not
// surface, mirroring arith_uint256::SetCompact's (negative, overflow) out
// parameters from the original.
func compactToBigChecked(compact uint32) (target *big.Int, negative, overflow bool) {
	size := compact >> 24
	word := compact & 0x007fffff

	negative = word != 0 && compact&0x00800000 != 0
	overflow = word != 0 && (size > 34 || (word > 0xff && size > 33) || (word > 0xffff && size > 32))

	target = blockchain.CompactToBig(compact)
	return target, negative, overflow
}

// hashToBig reads a hash's raw bytes as a little-endian unsigned integer
// (first byte least significant), the order chainhash.Hash stores them in,
// by reversing them into the big-endian form big.Int.SetBytes expects.
func hashToBig(h chainhash.Hash) *big.Int {
	rev := make([]byte, chainhash.HashSize)
	for i, b := range h {
		rev[chainhash.HashSize-1-i] = b
	}
	return new(big.Int).SetBytes(rev)
}
