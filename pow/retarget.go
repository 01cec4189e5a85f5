// Package pow implements the retarget engine (C2) and the proof-of-work
// range/comparison check (C3). Both are grounded directly on the original
// chain's pow.cpp: an exponential moving average of block spacing (a
// negative spacing is replaced by targetSpacing and spacing is capped at
// 10*targetSpacing), separate PoW/PoS target ceilings, and a per-kind
// no-retargeting escape hatch.
package pow

import (
	"math/big"

	"github.com/btcsuite/btcd/blockchain"

	"github.com/glyphchain/glyphchaind/chainparams"
)

// Bits is a compact 4-byte exponent+mantissa encoding of a 256-bit target.
type Bits uint32

// BlockIndex is the small contract the retarget engine needs from the
// chain's block index: its own kind/time/bits, and a link to its
// predecessor so GetLastBlockIndex can walk back to the most recent block
// of a given kind.
type BlockIndex interface {
	IsProofOfStake() bool
	Time() int64
	Bits() Bits
	Prev() BlockIndex // nil at the genesis block
}

// getLastBlockIndex walks pindex's ancestry (including pindex itself) until
// it finds a block whose kind (PoW/PoS) matches fProofOfStake, or runs off
// the front of the chain.
func getLastBlockIndex(pindex BlockIndex, fProofOfStake bool) BlockIndex {
	for pindex != nil && pindex.IsProofOfStake() != fProofOfStake {
		pindex = pindex.Prev()
	}
	return pindex
}

// targetLimit returns the compact-encoded target ceiling for the requested
// block kind.
func targetLimit(fProofOfStake bool, params *chainparams.Params) Bits {
	if fProofOfStake {
		return Bits(blockchain.BigToCompact(params.PosLimitBig()))
	}
	return Bits(blockchain.BigToCompact(params.PowLimitBig()))
}

// NextTarget computes the nBits a new block of kind fProofOfStake must
// satisfy, given the current chain tip pindexLast (which may be of either
// kind; NextTarget itself walks back to the right kind).
func NextTarget(pindexLast BlockIndex, fProofOfStake bool, params *chainparams.Params) Bits {
	nTargetLimit := targetLimit(fProofOfStake, params)

	if pindexLast == nil {
		return nTargetLimit
	}

	pindexPrev := getLastBlockIndex(pindexLast, fProofOfStake)
	if pindexPrev == nil || pindexPrev.Prev() == nil {
		return nTargetLimit // first block of this kind
	}

	pindexPrevPrev := getLastBlockIndex(pindexPrev.Prev(), fProofOfStake)
	if pindexPrevPrev == nil || pindexPrevPrev.Prev() == nil {
		return nTargetLimit // second block of this kind
	}

	return CalculateNextTarget(pindexPrev, pindexPrevPrev.Time(), params)
}

// CalculateNextTarget implements the EMA-on-spacing retarget formula given
// the previous block of the requested kind and the block time two kinds
// back. It is split out from NextTarget so callers that already hold
// pindexPrev/pindexPrevPrev (e.g. reorg simulations in tests) can call it
// directly, exactly as the original exposes CalculateNextTargetRequired
// alongside GetNextTargetRequired.
func CalculateNextTarget(pindexLast BlockIndex, nFirstBlockTime int64, params *chainparams.Params) Bits {
	fProofOfStake := pindexLast.IsProofOfStake()

	if !fProofOfStake && params.PowNoRetargeting {
		return pindexLast.Bits()
	}
	if fProofOfStake && params.PosNoRetargeting {
		return pindexLast.Bits()
	}

	nActualSpacing := pindexLast.Time() - nFirstBlockTime
	nTargetSpacing := params.TargetSpacing

	if nActualSpacing < 0 {
		nActualSpacing = nTargetSpacing
	}
	if nActualSpacing > nTargetSpacing*10 {
		nActualSpacing = nTargetSpacing * 10
	}

	bnTargetLimit := limitBigForKind(fProofOfStake, params)

	bnNew := blockchain.CompactToBig(uint32(pindexLast.Bits()))
	nInterval := params.TargetTimespan / nTargetSpacing

	numerator := (nInterval-1)*nTargetSpacing + nActualSpacing + nActualSpacing
	denominator := (nInterval + 1) * nTargetSpacing

	bnNew.Mul(bnNew, big.NewInt(numerator))
	bnNew.Div(bnNew, big.NewInt(denominator))

	if bnNew.Sign() <= 0 || bnNew.Cmp(bnTargetLimit) > 0 {
		bnNew = bnTargetLimit
	}

	return Bits(blockchain.BigToCompact(bnNew))
}

func limitBigForKind(fProofOfStake bool, params *chainparams.Params) *big.Int {
	if fProofOfStake {
		return params.PosLimitBig()
	}
	return params.PowLimitBig()
}
