// Package mempool implements the pool of not-yet-confirmed transactions
// (C4): ancestor/descendant statistics kept current as entries arrive and
// leave, and an ancestor-feerate ordered view the block template
// assembler (C5) consumes directly.
package mempool

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/transaction"
	"github.com/glyphchain/glyphchaind/util"
)

var (
	ErrDuplicate      = errors.New("mempool: transaction already in pool")
	ErrDependencyLimit = errors.New("mempool: ancestor package exceeds policy limits")
	ErrNotFound        = errors.New("mempool: transaction not in pool")
)

// Limits bounds the ancestor package a new entry may pull in. MaxAncestors
// and MaxAncestorSize are checked against the aggregate the candidate would
// have once accepted; MaxDescendants and MaxDescendantSize are not checked.
type Limits struct {
	MaxAncestors     int64
	MaxAncestorSize  int64
	MaxDescendants   int64
	MaxDescendantSize int64
}

// RemovalReason documents why an entry left the pool, for logging and for
// RPC-style "why was my transaction evicted" queries.
type RemovalReason int

const (
	RemovedUnknown RemovalReason = iota
	RemovedConflict
	RemovedExpiry
	RemovedBlock
	RemovedReplaced
)

// Pool is the mempool itself. All mutating operations take the exclusive
// lock; Project (the ancestor-score ordered view) takes the shared lock.
type Pool struct {
	mu util.RWMutex

	entries  map[transaction.TXID]*Entry
	parents  map[transaction.TXID]map[transaction.TXID]struct{}
	children map[transaction.TXID]map[transaction.TXID]struct{}
}

// New returns an empty mempool.
func New() *Pool {
	return &Pool{
		entries:  make(map[transaction.TXID]*Entry),
		parents:  make(map[transaction.TXID]map[transaction.TXID]struct{}),
		children: make(map[transaction.TXID]map[transaction.TXID]struct{}),
	}
}

// Size returns the number of entries currently in the pool.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Get returns the entry for txid, or nil if it is not in the pool.
func (p *Pool) Get(txid transaction.TXID) *Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entries[txid]
}

// findParents returns the txids among tx's inputs' previous outputs that
// are themselves in the pool.
func (p *Pool) findParents(tx *transaction.Tx) []transaction.TXID {
	seen := make(map[transaction.TXID]struct{})
	var out []transaction.TXID
	for _, in := range tx.Inputs {
		ptxid := transaction.TXID(in.PrevOut.Hash)
		if _, ok := p.entries[ptxid]; !ok {
			continue
		}
		if _, dup := seen[ptxid]; dup {
			continue
		}
		seen[ptxid] = struct{}{}
		out = append(out, ptxid)
	}
	return out
}

// CalculateMemPoolAncestors populates the ancestor closure of a candidate
// transaction's parents (already in the pool), honoring limits. The
// returned aggregate adds the candidate's own size/fee/sigops on top of
// what it finds, matching the original's semantics where an entry's
// ancestor aggregate includes itself.
func (p *Pool) CalculateMemPoolAncestors(tx *transaction.Tx, size int64, fee amount.Amount, sigops int64, limits Limits) (ancestors map[transaction.TXID]struct{}, err error) {
	ancestors = make(map[transaction.TXID]struct{})
	queue := p.findParents(tx)
	for _, ptxid := range queue {
		ancestors[ptxid] = struct{}{}
	}

	var totalSize, totalSigOps int64
	var totalFee amount.Amount
	for _, txid := range queue {
		e := p.entries[txid]
		totalSize += e.Size
		totalFee += e.Fee
		totalSigOps += e.SigOps
	}

	for i := 0; i < len(queue); i++ {
		txid := queue[i]
		for grand := range p.parents[txid] {
			if _, already := ancestors[grand]; already {
				continue
			}
			ancestors[grand] = struct{}{}
			e := p.entries[grand]
			totalSize += e.Size
			totalFee += e.Fee
			totalSigOps += e.SigOps
			queue = append(queue, grand)
		}
	}

	if int64(len(ancestors))+1 > limits.MaxAncestors || totalSize+size > limits.MaxAncestorSize {
		return nil, ErrDependencyLimit
	}

	return ancestors, nil
}

// Add inserts tx, already checked for standardness and input availability
// by the caller, computing its ancestor aggregates by walking parents
// already in the pool. It fails with ErrDuplicate if txid is present, or
// ErrDependencyLimit if the resulting ancestor package would exceed
// limits.
func (p *Pool) Add(tx *transaction.Tx, fee amount.Amount, sigops int64, now int64, limits Limits) (*Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	txid := tx.Txid()
	if _, dup := p.entries[txid]; dup {
		return nil, ErrDuplicate
	}

	size := tx.VSize()

	ancestors, err := p.CalculateMemPoolAncestors(tx, size, fee, sigops, limits)
	if err != nil {
		return nil, err
	}

	var ancestorSize, ancestorSigOps int64
	var ancestorFee amount.Amount
	for atxid := range ancestors {
		e := p.entries[atxid]
		ancestorSize += e.Size
		ancestorFee += e.Fee
		ancestorSigOps += e.SigOps
	}

	entry := &Entry{
		Tx:     tx,
		Txid:   txid,
		Fee:    fee,
		Size:   size,
		SigOps: sigops,
		Time:   now,

		AncestorCount:  int64(len(ancestors)) + 1,
		AncestorSize:   ancestorSize + size,
		AncestorFee:    ancestorFee + fee,
		AncestorSigOps: ancestorSigOps + sigops,

		DescendantCount:  1,
		DescendantSize:   size,
		DescendantFee:    fee,
		DescendantSigOps: sigops,
	}

	p.entries[txid] = entry
	p.parents[txid] = make(map[transaction.TXID]struct{}, len(ancestors))
	for atxid := range ancestors {
		p.parents[txid][atxid] = struct{}{}
	}
	if _, ok := p.children[txid]; !ok {
		p.children[txid] = make(map[transaction.TXID]struct{})
	}

	for atxid := range ancestors {
		if _, ok := p.children[atxid]; !ok {
			p.children[atxid] = make(map[transaction.TXID]struct{})
		}
		p.children[atxid][txid] = struct{}{}

		ae := p.entries[atxid]
		ae.DescendantCount++
		ae.DescendantSize += size
		ae.DescendantFee += fee
		ae.DescendantSigOps += sigops
	}

	return entry, nil
}

// CalculateDescendants populates out with txid's closure under the
// "children" relation, including txid itself.
func (p *Pool) CalculateDescendants(txid transaction.TXID, out map[transaction.TXID]struct{}) {
	if _, ok := out[txid]; ok {
		return
	}
	out[txid] = struct{}{}
	for child := range p.children[txid] {
		p.CalculateDescendants(child, out)
	}
}

// Remove removes a single entry and subtracts its statistics from every
// ancestor's descendant aggregate. It does not touch the removed entry's
// own descendants' ancestor aggregates, mirroring the original's
// removeUnchecked contract.
func (p *Pool) Remove(txid transaction.TXID, reason RemovalReason) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeLocked(txid)
}

func (p *Pool) removeLocked(txid transaction.TXID) error {
	entry, ok := p.entries[txid]
	if !ok {
		return ErrNotFound
	}

	for atxid := range p.parents[txid] {
		if ae, ok := p.entries[atxid]; ok {
			ae.DescendantCount--
			ae.DescendantSize -= entry.Size
			ae.DescendantFee -= entry.Fee
			ae.DescendantSigOps -= entry.SigOps
		}
		delete(p.children[atxid], txid)
	}
	for ctxid := range p.children[txid] {
		delete(p.parents[ctxid], txid)
	}

	delete(p.entries, txid)
	delete(p.parents, txid)
	delete(p.children, txid)

	return nil
}

// RemoveRecursive removes tx and every transaction in the pool descended
// from it.
func (p *Pool) RemoveRecursive(txid transaction.TXID, reason RemovalReason) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[txid]; !ok {
		return ErrNotFound
	}

	descendants := make(map[transaction.TXID]struct{})
	p.CalculateDescendants(txid, descendants)

	// Remove leaves-first so a parent's descendant aggregate bookkeeping in
	// removeLocked never subtracts a child that was already deleted.
	ordered := make([]transaction.TXID, 0, len(descendants))
	for d := range descendants {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return p.entries[ordered[i]].DescendantCount < p.entries[ordered[j]].DescendantCount
	})

	for _, d := range ordered {
		_ = p.removeLocked(d)
	}
	return nil
}

// Project returns every entry in the pool ordered by ancestor feerate,
// highest first, tiebroken by higher ancestor fee then lower ancestor
// size then lexicographically smaller txid, matching the original's
// ancestor_score MultiIndex view.
func (p *Pool) Project() []*Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*Entry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return ancestorScoreLess(out[j], out[i]) // out[i] before out[j] iff out[i] is better
	})
	return out
}

// ancestorScoreLess reports whether a ranks strictly worse than b under
// the ancestor-score ordering (used so Project's less func reads as
// "i before j iff i is better").
func ancestorScoreLess(a, b *Entry) bool {
	if a.AncestorFee != b.AncestorFee || a.AncestorSize != b.AncestorSize {
		if feerateLess(a.AncestorFee, a.AncestorSize, b.AncestorFee, b.AncestorSize) {
			return true
		}
		if feerateLess(b.AncestorFee, b.AncestorSize, a.AncestorFee, a.AncestorSize) {
			return false
		}
	}
	if a.AncestorFee != b.AncestorFee {
		return a.AncestorFee < b.AncestorFee
	}
	if a.AncestorSize != b.AncestorSize {
		return a.AncestorSize > b.AncestorSize
	}
	return string(a.Txid[:]) > string(b.Txid[:])
}
