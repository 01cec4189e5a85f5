package mempool_test

import (
	"testing"

	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/mempool"
	"github.com/glyphchain/glyphchaind/transaction"
)

var unlimited = mempool.Limits{
	MaxAncestors:      1000,
	MaxAncestorSize:    1 << 30,
	MaxDescendants:     1000,
	MaxDescendantSize: 1 << 30,
}

func coinTx(seed byte) *transaction.Tx {
	return &transaction.Tx{
		Version: 1,
		Inputs: []transaction.TxIn{
			{PrevOut: transaction.Outpoint{Hash: [32]byte{seed}, Index: 0}},
		},
		Outputs: []transaction.TxOut{
			{Amount: amount.COIN},
		},
	}
}

func childOf(parentTxid transaction.TXID, seed byte) *transaction.Tx {
	return &transaction.Tx{
		Version: 1,
		Inputs: []transaction.TxIn{
			{PrevOut: transaction.Outpoint{Hash: [32]byte(parentTxid), Index: 0}},
		},
		Outputs: []transaction.TxOut{
			{Amount: amount.COIN / 2, Script: []byte{seed}},
		},
	}
}

func TestAddAncestorAggregates(t *testing.T) {
	p := mempool.New()

	parent := coinTx(1)
	pe, err := p.Add(parent, 1000, 1, 100, unlimited)
	if err != nil {
		t.Fatal(err)
	}

	child := childOf(pe.Txid, 2)
	ce, err := p.Add(child, 2000, 1, 101, unlimited)
	if err != nil {
		t.Fatal(err)
	}

	if ce.AncestorCount != 2 {
		t.Fatalf("got ancestor count %d, want 2", ce.AncestorCount)
	}
	if ce.AncestorFee != 3000 {
		t.Fatalf("got ancestor fee %d, want 3000", ce.AncestorFee)
	}

	if pe.DescendantCount != 2 {
		t.Fatalf("got parent descendant count %d, want 2", pe.DescendantCount)
	}
	if pe.DescendantFee != 3000 {
		t.Fatalf("got parent descendant fee %d, want 3000", pe.DescendantFee)
	}
}

func TestAddDuplicateRejected(t *testing.T) {
	p := mempool.New()
	tx := coinTx(1)
	if _, err := p.Add(tx, 1000, 1, 100, unlimited); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add(tx, 1000, 1, 100, unlimited); err != mempool.ErrDuplicate {
		t.Fatalf("got %v, want ErrDuplicate", err)
	}
}

func TestDependencyLimitRejectsOversizedAncestorPackage(t *testing.T) {
	p := mempool.New()
	limits := mempool.Limits{MaxAncestors: 1, MaxAncestorSize: 1 << 30, MaxDescendants: 10, MaxDescendantSize: 1 << 30}

	parent := coinTx(1)
	pe, err := p.Add(parent, 1000, 1, 100, limits)
	if err != nil {
		t.Fatal(err)
	}

	child := childOf(pe.Txid, 2)
	if _, err := p.Add(child, 1000, 1, 100, limits); err != mempool.ErrDependencyLimit {
		t.Fatalf("got %v, want ErrDependencyLimit", err)
	}
}

func TestRemoveUpdatesParentDescendantAggregates(t *testing.T) {
	p := mempool.New()
	parent := coinTx(1)
	pe, _ := p.Add(parent, 1000, 1, 100, unlimited)
	child := childOf(pe.Txid, 2)
	ce, _ := p.Add(child, 2000, 1, 101, unlimited)

	if err := p.Remove(ce.Txid, mempool.RemovedBlock); err != nil {
		t.Fatal(err)
	}

	updated := p.Get(pe.Txid)
	if updated.DescendantCount != 1 {
		t.Fatalf("got descendant count %d, want 1", updated.DescendantCount)
	}
}

func TestRemoveRecursiveTakesDescendants(t *testing.T) {
	p := mempool.New()
	parent := coinTx(1)
	pe, _ := p.Add(parent, 1000, 1, 100, unlimited)
	child := childOf(pe.Txid, 2)
	ce, _ := p.Add(child, 2000, 1, 101, unlimited)

	if err := p.RemoveRecursive(pe.Txid, mempool.RemovedConflict); err != nil {
		t.Fatal(err)
	}

	if p.Get(pe.Txid) != nil || p.Get(ce.Txid) != nil {
		t.Fatal("expected both parent and child removed")
	}
	if p.Size() != 0 {
		t.Fatalf("got size %d, want 0", p.Size())
	}
}

func TestProjectOrdersByAncestorFeerate(t *testing.T) {
	p := mempool.New()

	low, _ := p.Add(coinTx(1), 100, 1, 100, unlimited)
	high, _ := p.Add(coinTx(2), 10000, 1, 100, unlimited)

	order := p.Project()
	if order[0].Txid != high.Txid {
		t.Fatal("expected the higher-feerate entry first")
	}
	if order[1].Txid != low.Txid {
		t.Fatal("expected the lower-feerate entry last")
	}
}
