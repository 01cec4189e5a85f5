package blocktemplate

import (
	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/chainparams"
)

// reduce applies count successive 10% reductions to n, grounded on the
// teacher's own halving-schedule recursion in block.Reward (adapted here
// from an account-chain per-block reward to a UTXO coinbase subsidy).
func reduce(n int64, count int64) int64 {
	if count <= 0 {
		return n
	}
	return reduce(n*9/10, count-1)
}

// Subsidy returns the coinbase subsidy due at height, reduced by 10%
// every SubsidyReductionInterval blocks.
func Subsidy(height uint32, params *chainparams.Params) amount.Amount {
	if params.SubsidyReductionInterval <= 0 {
		return amount.Amount(params.InitialSubsidy)
	}
	reductions := int64(height) / params.SubsidyReductionInterval
	return amount.Amount(reduce(params.InitialSubsidy, reductions))
}
