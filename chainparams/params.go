// Package chainparams collects the consensus constants the original source
// keeps on Consensus::Params, passed explicitly by callers instead of read
// off a package-level global (Design Notes: "pass a context handle through
// every entry point").
package chainparams

import (
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Params is the subset of consensus parameters the retarget engine (C2),
// PoW checker (C3), and the token/governance fee schedule need.
type Params struct {
	// retarget/PoW
	PowLimit          chainhash.Hash // 256-bit target ceiling for PoW blocks, raw bytes little-endian
	PosLimit          chainhash.Hash // 256-bit target ceiling for PoS blocks, raw bytes little-endian
	TargetSpacing     int64          // seconds between blocks, target
	TargetTimespan    int64          // seconds, retarget window
	PowNoRetargeting  bool
	PosNoRetargeting  bool

	// token/governance fee schedule, used to seed the governance store
	RootTokenFee    int64 // amount, in smallest units
	SubTokenFee     int64
	UniqueTokenFee  int64
	ReissueTokenFee int64
	UsernameFee     int64

	// GenesisFeeScript is the script governance's fee-address table starts
	// with at height 0.
	GenesisFeeScript []byte

	// block-template coinbase subsidy schedule (C5)
	InitialSubsidy           int64 // amount, in smallest units, at height 0
	SubsidyReductionInterval int64 // blocks between each 10% reduction
}

// limitBig returns a target ceiling as a big.Int, treating the hash's raw
// bytes as a little-endian 256-bit unsigned integer (first byte least
// significant).
func limitBig(h chainhash.Hash) *big.Int {
	rev := make([]byte, chainhash.HashSize)
	for i, b := range h {
		rev[chainhash.HashSize-1-i] = b
	}
	return new(big.Int).SetBytes(rev)
}

// PowLimitBig returns PowLimit as a big.Int.
func (p *Params) PowLimitBig() *big.Int { return limitBig(p.PowLimit) }

// PosLimitBig returns PosLimit as a big.Int.
func (p *Params) PosLimitBig() *big.Int { return limitBig(p.PosLimit) }
