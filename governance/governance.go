// Package governance implements the script freeze/unfreeze registry and
// the height-indexed issuance-cost / fee-address tables (C7), grounded on
// the original CGovernance: composed over the persistence façade rather
// than subclassing it, with one bucket per entry family instead of a
// single keyspace discriminated by a leading tag byte.
package governance

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/glyphchain/glyphchaind/adb"
	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/chainparams"
	"github.com/glyphchain/glyphchaind/logger"
	"github.com/glyphchain/glyphchaind/util"
)

// CostType enumerates the issuance operations the fee schedule prices.
// The numeric values and the Sub/Reissue swap below match the original's
// GOVERNANCE_COST_* constants and its Init() verbatim, not the intuitive
// mapping — see DESIGN.md.
type CostType uint8

const (
	CostRoot CostType = 1
	CostReissue CostType = 2
	CostUnique  CostType = 3
	CostSub     CostType = 4
	CostUsername CostType = 5
)

// ErrCorruptState is surfaced when a Revert* precondition fails: the
// store has no way to represent "undo a freeze that was never applied"
// except as a consistency failure.
var ErrCorruptState = errors.New("governance: corrupt state")

const (
	bucketFrozen = "governance.frozen"
	bucketCost   = "governance.cost"
	bucketFee    = "governance.fee"
	bucketMeta   = "governance.meta"
)

var metaFrozenCountKey = []byte("frozen-count")
var metaInitKey = []byte("init")

// Store is the governance façade. Init and every update/revert operation
// are serialized by mu; the read methods (FrozenCount, CanSend,
// ScriptExists, GetCost, GetFeeScript) do not take it.
type Store struct {
	mu  util.Mutex
	db  adb.DB
	log *logger.Log

	frozen, cost, fee, meta adb.Index
}

// New composes a Store over an already-open persistence façade.
func New(db adb.DB, log *logger.Log) *Store {
	if log == nil {
		log = logger.DiscardLog
	}
	return &Store{
		db:     db,
		log:    log,
		frozen: db.Index(bucketFrozen),
		cost:   db.Index(bucketCost),
		fee:    db.Index(bucketFee),
		meta:   db.Index(bucketMeta),
	}
}

// Init seeds the genesis cost/fee-address entries at height 0 if the
// store hasn't been initialized yet. Calling it again is a no-op.
func (g *Store) Init(params *chainparams.Params) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	already := false
	err := g.db.View(func(txn adb.Txn) error {
		already = txn.Exists(g.meta, metaInitKey)
		return nil
	})
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	g.log.Info("governance: creating new database")

	return g.db.Update(func(txn adb.Txn) error {
		if err := txn.Put(g.meta, metaFrozenCountKey, encodeUint32(0)); err != nil {
			return err
		}

		seed := []struct {
			t CostType
			a amount.Amount
		}{
			{CostRoot, amount.Amount(params.RootTokenFee)},
			{CostReissue, amount.Amount(params.SubTokenFee)},
			{CostUnique, amount.Amount(params.UniqueTokenFee)},
			{CostSub, amount.Amount(params.ReissueTokenFee)},
			{CostUsername, amount.Amount(params.UsernameFee)},
		}
		for _, s := range seed {
			if err := txn.Put(g.cost, costKey(s.t, 0), encodeAmount(s.a)); err != nil {
				return err
			}
		}

		if err := txn.Put(g.fee, feeKey(0), params.GenesisFeeScript); err != nil {
			return err
		}

		return txn.Put(g.meta, metaInitKey, []byte{1})
	})
}

// costKey orders lexicographically by type then height, ascending, so a
// descending prefix scan over a single type finds the highest height
// first.
func costKey(t CostType, height uint64) []byte {
	key := make([]byte, 1+8)
	key[0] = byte(t)
	binary.BigEndian.PutUint64(key[1:], height)
	return key
}

func feeKey(height uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, height)
	return key
}

func encodeAmount(a amount.Amount) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(a))
	return buf[:]
}

func decodeAmount(b []byte) amount.Amount {
	return amount.Amount(binary.BigEndian.Uint64(b))
}

func encodeUint32(n uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], n)
	return buf[:]
}

func decodeUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// FrozenCount returns the number of scripts currently frozen.
func (g *Store) FrozenCount() (uint32, error) {
	var n uint32
	err := g.db.View(func(txn adb.Txn) error {
		v := txn.Get(g.meta, metaFrozenCountKey)
		if v != nil {
			n = decodeUint32(v)
		}
		return nil
	})
	return n, err
}

func (g *Store) adjustFrozenCount(txn adb.Txn, delta int32) error {
	v := txn.Get(g.meta, metaFrozenCountKey)
	n := int32(0)
	if v != nil {
		n = int32(decodeUint32(v))
	}
	n += delta
	return txn.Put(g.meta, metaFrozenCountKey, encodeUint32(uint32(n)))
}

// FreezeScript marks script frozen. The frozen counter only increments on
// the true transition unknown->frozen or false->true.
func (g *Store) FreezeScript(script []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.db.Update(func(txn adb.Txn) error {
		v := txn.Get(g.frozen, script)
		if v == nil {
			if err := g.adjustFrozenCount(txn, 1); err != nil {
				return err
			}
		} else if v[0] == 0 {
			if err := g.adjustFrozenCount(txn, 1); err != nil {
				return err
			}
		}
		return txn.Put(g.frozen, script, []byte{1})
	})
}

// UnfreezeScript marks script not frozen. The counter only decrements on
// the true transition true->false.
func (g *Store) UnfreezeScript(script []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.db.Update(func(txn adb.Txn) error {
		v := txn.Get(g.frozen, script)
		if v != nil && v[0] == 1 {
			if err := g.adjustFrozenCount(txn, -1); err != nil {
				return err
			}
		}
		return txn.Put(g.frozen, script, []byte{0})
	})
}

// RevertFreeze undoes a FreezeScript call: it requires the last applied
// operation for script to have been a freeze (entry present and true),
// and unconditionally sets it false, decrementing the counter. Violating
// the precondition is reported as ErrCorruptState.
func (g *Store) RevertFreeze(script []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.db.Update(func(txn adb.Txn) error {
		v := txn.Get(g.frozen, script)
		if v == nil || v[0] != 1 {
			return ErrCorruptState
		}
		if err := g.adjustFrozenCount(txn, -1); err != nil {
			return err
		}
		return txn.Put(g.frozen, script, []byte{0})
	})
}

// RevertUnfreeze is RevertFreeze's dual: requires the entry present and
// false, sets it true, increments the counter.
func (g *Store) RevertUnfreeze(script []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.db.Update(func(txn adb.Txn) error {
		v := txn.Get(g.frozen, script)
		if v == nil || v[0] != 0 {
			return ErrCorruptState
		}
		if err := g.adjustFrozenCount(txn, 1); err != nil {
			return err
		}
		return txn.Put(g.frozen, script, []byte{1})
	})
}

// CanSend reports whether script may currently be spent: true if it is
// absent from the freeze table or its stored value is false.
func (g *Store) CanSend(script []byte) (bool, error) {
	result := true
	err := g.db.View(func(txn adb.Txn) error {
		v := txn.Get(g.frozen, script)
		if v != nil && v[0] == 1 {
			result = false
		}
		return nil
	})
	return result, err
}

// ScriptExists reports whether script has ever appeared in the freeze
// table (regardless of its current frozen value).
func (g *Store) ScriptExists(script []byte) (bool, error) {
	var exists bool
	err := g.db.View(func(txn adb.Txn) error {
		exists = txn.Exists(g.frozen, script)
		return nil
	})
	return exists, err
}

// GetCost returns the issuance cost of type t in effect, reading the
// highest-height entry written for it via a descending prefix scan.
func (g *Store) GetCost(t CostType) (amount.Amount, error) {
	var result amount.Amount
	prefix := []byte{byte(t)}
	err := g.db.View(func(txn adb.Txn) error {
		return txn.SeekReverse(g.cost, prefix, func(k, v []byte) (bool, error) {
			result = decodeAmount(v)
			return true, nil
		})
	})
	return result, err
}

// UpdateCost appends a new cost entry for (t, height). It is additive:
// existing entries are never overwritten, only shadowed by a later,
// higher-height one.
func (g *Store) UpdateCost(t CostType, height uint64, cost amount.Amount) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.db.Update(func(txn adb.Txn) error {
		return txn.Put(g.cost, costKey(t, height), encodeAmount(cost))
	})
}

// RevertUpdateCost deletes the entry written by a matching UpdateCost
// call. Deleting an entry that was never written is surfaced as
// ErrCorruptState, matching the original's Read-before-Erase contract.
func (g *Store) RevertUpdateCost(t CostType, height uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := costKey(t, height)
	return g.db.Update(func(txn adb.Txn) error {
		if !txn.Exists(g.cost, key) {
			return ErrCorruptState
		}
		return txn.Del(g.cost, key)
	})
}

// GetFeeScript returns the fee-address script in effect, via the same
// max-height-wins descending scan strategy as GetCost.
func (g *Store) GetFeeScript() ([]byte, error) {
	var result []byte
	err := g.db.View(func(txn adb.Txn) error {
		return txn.SeekReverse(g.fee, nil, func(k, v []byte) (bool, error) {
			result = append([]byte(nil), v...)
			return true, nil
		})
	})
	return result, err
}

// UpdateFeeScript appends a new fee-address entry at height.
func (g *Store) UpdateFeeScript(height uint64, script []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.db.Update(func(txn adb.Txn) error {
		return txn.Put(g.fee, feeKey(height), script)
	})
}

// RevertUpdateFeeScript deletes the entry written at height, or fails
// with ErrCorruptState if none exists.
func (g *Store) RevertUpdateFeeScript(height uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := feeKey(height)
	return g.db.Update(func(txn adb.Txn) error {
		if !txn.Exists(g.fee, key) {
			return ErrCorruptState
		}
		return txn.Del(g.fee, key)
	})
}
