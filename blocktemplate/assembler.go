// Package blocktemplate implements the block-template assembler (C5): it
// selects transactions out of the mempool's ancestor-score order into a
// coinbase-plus-body template under a weight and sigop-cost budget,
// grounded on the original's BlockAssembler::addPackageTxs state machine
// (the inBlock/modifiedSet/failedSet sets, walked without ever removing
// anything from the mempool itself).
package blocktemplate

import (
	"sort"

	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/mempool"
	"github.com/glyphchain/glyphchaind/script"
	"github.com/glyphchain/glyphchaind/transaction"
)

const (
	// WitnessScaleFactor converts a transaction's virtual size into block
	// weight units.
	WitnessScaleFactor = 4

	// MaxBlockWeight is the hard consensus ceiling on a block's weight.
	MaxBlockWeight = 4_000_000

	// MaxBlockSigOpsCost is the hard consensus ceiling on a block's
	// aggregate sigop cost.
	MaxBlockSigOpsCost = 80_000

	// maxConsecutiveFailures bounds how many budget-rejected candidates in
	// a row the assembler tolerates before giving up early on a
	// near-full block.
	maxConsecutiveFailures = 1000

	// coinbaseReserveWeight and coinbaseReserveSigOps are reserved out of
	// the block budget up front for the coinbase (and, for PoS, the
	// coinstake) transaction before any pool entries are considered.
	coinbaseReserveWeight = 4000
	coinbaseReserveSigOps = 400

	noLimit = int64(1) << 62
)

// FeeRate is a fee expressed per 1000 virtual bytes, matching the
// original's CFeeRate convention.
type FeeRate int64

// Fee returns the fee due for size virtual bytes at this rate.
func (r FeeRate) Fee(size int64) amount.Amount {
	return amount.Amount(int64(r) * size / 1000)
}

// Options configures an Assembler's resource budget.
type Options struct {
	// BlockMinFeeRate is the ancestor feerate floor: package selection
	// terminates once the best remaining candidate falls below it.
	BlockMinFeeRate FeeRate

	// MaxWeight bounds the block's weight, counting the 4000-weight
	// reserve held for the coinbase/coinstake; zero means MaxBlockWeight-4000, the original's default. It is
	// clamped to [4000, MaxBlockWeight-4000].
	MaxWeight int64
}

// Template is a completed block template: the coinbase (and, for PoS, the
// coinstake) transaction followed by the selected body, in the order a
// block requires (every ancestor precedes its descendants).
type Template struct {
	Transactions []*transaction.Tx
	Fees         []amount.Amount
	SigOps       []int64

	TotalFees  amount.Amount
	Weight     int64
	SigOpsCost int64
}

// modifiedEntry mirrors the original's CTxMemPoolModifiedEntry: a pool
// entry whose ancestor aggregate is stale because one or more of its
// ancestors have already been placed in the block, tracked separately so
// the pool's own (accurate, not-yet-included) aggregates are left alone.
type modifiedEntry struct {
	entry  *mempool.Entry
	size   int64
	fee    amount.Amount
	sigOps int64
}

// Assembler selects mempool entries into a Template against a fixed
// resource budget. It never mutates the mempool; the same pool can be
// asked for a new template at any time.
type Assembler struct {
	pool    *mempool.Pool
	options Options

	inBlock    map[transaction.TXID]struct{}
	weight     int64
	sigOpsCost int64
	fees       amount.Amount

	height         uint32
	lockTimeCutoff uint32
}

// NewAssembler returns an Assembler drawing candidates from pool.
func NewAssembler(pool *mempool.Pool, options Options) *Assembler {
	maxWeight := options.MaxWeight
	if maxWeight <= 0 {
		maxWeight = MaxBlockWeight - 4000
	}
	if maxWeight < 4000 {
		maxWeight = 4000
	}
	if maxWeight > MaxBlockWeight-4000 {
		maxWeight = MaxBlockWeight - 4000
	}
	options.MaxWeight = maxWeight
	return &Assembler{pool: pool, options: options}
}

func (a *Assembler) reset(height uint32, medianTime uint64) {
	a.inBlock = make(map[transaction.TXID]struct{})
	a.weight = coinbaseReserveWeight
	a.sigOpsCost = coinbaseReserveSigOps
	a.fees = 0
	a.height = height
	a.lockTimeCutoff = uint32(medianTime)
}

// CreateTemplate assembles a new template at height. subsidy is the
// coinbase reward due at that height (see Subsidy); coinbaseScript is
// where a PoW reward is paid. For a PoS block, proofOfStake is true and
// coinstakeScript names the coinstake transaction's reward destination;
// the coinbase output is then left empty.
func (a *Assembler) CreateTemplate(height uint32, medianTime uint64, subsidy amount.Amount, coinbaseScript script.Script, proofOfStake bool, coinstakeScript script.Script) *Template {
	a.reset(height, medianTime)

	tmpl := &Template{}
	a.selectPackages(tmpl)

	coinbase := BuildCoinbase(height, a.fees, subsidy, coinbaseScript, proofOfStake)

	if proofOfStake {
		coinstake := BuildCoinstakePlaceholder(coinstakeScript)
		tmpl.Transactions = append([]*transaction.Tx{coinbase, coinstake}, tmpl.Transactions...)
		tmpl.Fees = append([]amount.Amount{0, 0}, tmpl.Fees...)
		tmpl.SigOps = append([]int64{0, 0}, tmpl.SigOps...)
	} else {
		tmpl.Transactions = append([]*transaction.Tx{coinbase}, tmpl.Transactions...)
		tmpl.Fees = append([]amount.Amount{0}, tmpl.Fees...)
		tmpl.SigOps = append([]int64{0}, tmpl.SigOps...)
	}

	tmpl.TotalFees = a.fees
	tmpl.Weight = a.weight
	tmpl.SigOpsCost = a.sigOpsCost
	return tmpl
}

// selectPackages runs the main package-selection loop, appending every
// admitted entry's transaction (in dependency order) to tmpl.
func (a *Assembler) selectPackages(tmpl *Template) {
	projected := a.pool.Project()
	modified := make(map[transaction.TXID]*modifiedEntry)
	failed := make(map[transaction.TXID]struct{})

	mi := 0
	consecutiveFailed := 0

	for mi < len(projected) || len(modified) > 0 {
		for mi < len(projected) {
			txid := projected[mi].Txid
			_, inMod := modified[txid]
			_, inBlk := a.inBlock[txid]
			_, isFailed := failed[txid]
			if inMod || inBlk || isFailed {
				mi++
				continue
			}
			break
		}

		bestModTxid, bestMod := pickBestModified(modified)

		var candTxid transaction.TXID
		var candEntry *mempool.Entry
		var pkgSize int64
		var pkgFee amount.Amount
		var pkgSigOps int64
		usingModified := false

		switch {
		case mi >= len(projected):
			if bestMod == nil {
				return
			}
			candTxid, candEntry = bestModTxid, bestMod.entry
			pkgSize, pkgFee, pkgSigOps = bestMod.size, bestMod.fee, bestMod.sigOps
			usingModified = true
		case bestMod != nil && feerateGreater(bestMod.fee, bestMod.size, projected[mi].AncestorFee, projected[mi].AncestorSize):
			candTxid, candEntry = bestModTxid, bestMod.entry
			pkgSize, pkgFee, pkgSigOps = bestMod.size, bestMod.fee, bestMod.sigOps
			usingModified = true
		default:
			candTxid, candEntry = projected[mi].Txid, projected[mi]
			pkgSize, pkgFee, pkgSigOps = projected[mi].AncestorSize, projected[mi].AncestorFee, projected[mi].AncestorSigOps
			mi++
		}

		if int64(pkgFee) < int64(a.options.BlockMinFeeRate.Fee(pkgSize)) {
			// Everything else ranks no better; nothing left clears the floor.
			return
		}

		if !a.testPackage(pkgSize, pkgSigOps) {
			if usingModified {
				delete(modified, candTxid)
				failed[candTxid] = struct{}{}
			}
			consecutiveFailed++
			if consecutiveFailed > maxConsecutiveFailures && a.weight > a.options.MaxWeight-4000 {
				return
			}
			continue
		}

		pkg, err := a.packageAncestors(candEntry)
		if err != nil {
			if usingModified {
				delete(modified, candTxid)
			}
			failed[candTxid] = struct{}{}
			continue
		}

		if !testPackageTransactions(pkg, a.height, a.lockTimeCutoff) {
			if usingModified {
				delete(modified, candTxid)
				failed[candTxid] = struct{}{}
			}
			continue
		}

		added := sortByAncestorCount(pkg)
		for _, e := range added {
			a.addToBlock(tmpl, e)
			delete(modified, e.Txid)
		}
		a.updateModifiedForAdded(added, modified)

		consecutiveFailed = 0
	}
}

// testPackage reports whether size/sigOps more weight/sigop cost still
// fits the remaining budget.
func (a *Assembler) testPackage(size, sigOps int64) bool {
	if a.weight+WitnessScaleFactor*size >= a.options.MaxWeight {
		return false
	}
	if a.sigOpsCost+sigOps >= MaxBlockSigOpsCost {
		return false
	}
	return true
}

// packageAncestors returns entry together with every one of its
// still-unconfirmed, not-yet-included ancestors.
func (a *Assembler) packageAncestors(entry *mempool.Entry) (map[transaction.TXID]*mempool.Entry, error) {
	ancestorTxids, err := a.pool.CalculateMemPoolAncestors(entry.Tx, entry.Size, entry.Fee, entry.SigOps, mempool.Limits{
		MaxAncestors:      noLimit,
		MaxAncestorSize:   noLimit,
		MaxDescendants:    noLimit,
		MaxDescendantSize: noLimit,
	})
	if err != nil {
		return nil, err
	}

	pkg := make(map[transaction.TXID]*mempool.Entry, len(ancestorTxids)+1)
	for txid := range ancestorTxids {
		if _, in := a.inBlock[txid]; in {
			continue
		}
		if e := a.pool.Get(txid); e != nil {
			pkg[txid] = e
		}
	}
	pkg[entry.Txid] = entry
	return pkg, nil
}

// testPackageTransactions reports whether every transaction in pkg is
// final at height/lockTimeCutoff.
func testPackageTransactions(pkg map[transaction.TXID]*mempool.Entry, height uint32, lockTimeCutoff uint32) bool {
	for _, e := range pkg {
		if !isFinal(e.Tx, height, lockTimeCutoff) {
			return false
		}
	}
	return true
}

// sortByAncestorCount orders pkg so every entry's ancestors precede it: if
// A depends on B, A's ancestor count must exceed B's, so sorting by
// ancestor count alone is a valid topological order.
func sortByAncestorCount(pkg map[transaction.TXID]*mempool.Entry) []*mempool.Entry {
	out := make([]*mempool.Entry, 0, len(pkg))
	for _, e := range pkg {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AncestorCount < out[j].AncestorCount })
	return out
}

func (a *Assembler) addToBlock(tmpl *Template, e *mempool.Entry) {
	tmpl.Transactions = append(tmpl.Transactions, e.Tx)
	tmpl.Fees = append(tmpl.Fees, e.Fee)
	tmpl.SigOps = append(tmpl.SigOps, e.SigOps)
	a.weight += WitnessScaleFactor * e.Size
	a.sigOpsCost += e.SigOps
	a.fees += e.Fee
	a.inBlock[e.Txid] = struct{}{}
}

// updateModifiedForAdded folds each newly added entry's contribution out
// of its in-mempool, not-yet-included descendants' ancestor aggregates,
// seeding a descendant's modifiedEntry from the pool's own aggregate the
// first time it is touched.
func (a *Assembler) updateModifiedForAdded(added []*mempool.Entry, modified map[transaction.TXID]*modifiedEntry) {
	for _, e := range added {
		descendants := make(map[transaction.TXID]struct{})
		a.pool.CalculateDescendants(e.Txid, descendants)
		for dtxid := range descendants {
			if dtxid == e.Txid {
				continue
			}
			if _, in := a.inBlock[dtxid]; in {
				continue
			}
			me, ok := modified[dtxid]
			if !ok {
				de := a.pool.Get(dtxid)
				if de == nil {
					continue
				}
				me = &modifiedEntry{entry: de, size: de.AncestorSize, fee: de.AncestorFee, sigOps: de.AncestorSigOps}
				modified[dtxid] = me
			}
			me.size -= e.Size
			me.fee -= e.Fee
			me.sigOps -= e.SigOps
		}
	}
}

func pickBestModified(modified map[transaction.TXID]*modifiedEntry) (transaction.TXID, *modifiedEntry) {
	var bestTxid transaction.TXID
	var best *modifiedEntry
	for txid, me := range modified {
		if best == nil || feerateGreater(me.fee, me.size, best.fee, best.size) {
			best = me
			bestTxid = txid
		}
	}
	return bestTxid, best
}

// feerateGreater reports whether a's feerate strictly exceeds b's, using
// cross-multiplication so no division (and its rounding) is needed.
func feerateGreater(feeA amount.Amount, sizeA int64, feeB amount.Amount, sizeB int64) bool {
	return int64(feeA)*sizeB > int64(feeB)*sizeA
}
