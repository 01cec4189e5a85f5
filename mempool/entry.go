package mempool

import (
	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/transaction"
)

// Entry wraps a transaction accepted into the pool together with its own
// statistics and the running ancestor/descendant aggregates the pool
// maintains incrementally as parents and children come and go.
type Entry struct {
	Tx     *transaction.Tx
	Txid   transaction.TXID
	Fee    amount.Amount // ModifiedFee at insertion time; package selection calls it modFee
	Size   int64         // virtual size
	SigOps int64
	Time   int64 // unix seconds the entry entered the pool

	// Ancestor aggregates include the entry itself.
	AncestorCount  int64
	AncestorSize   int64
	AncestorFee    amount.Amount
	AncestorSigOps int64

	// Descendant aggregates include the entry itself.
	DescendantCount  int64
	DescendantSize   int64
	DescendantFee    amount.Amount
	DescendantSigOps int64
}

// resetAggregates sets every ancestor/descendant aggregate back to the
// entry's own statistics, the starting point before walking parents or
// children adjusts them.
func (e *Entry) resetAggregates() {
	e.AncestorCount, e.DescendantCount = 1, 1
	e.AncestorSize, e.DescendantSize = e.Size, e.Size
	e.AncestorFee, e.DescendantFee = e.Fee, e.Fee
	e.AncestorSigOps, e.DescendantSigOps = e.SigOps, e.SigOps
}

// feerateLess reports whether a has a strictly lower ancestor feerate than
// b, using cross-multiplication so no division (and its rounding) is
// needed: a.modFee/a.size < b.modFee/b.size  <=>  a.modFee*b.size <
// b.modFee*a.size.
func feerateLess(aFee amount.Amount, aSize int64, bFee amount.Amount, bSize int64) bool {
	return int64(aFee)*bSize < int64(bFee)*aSize
}
