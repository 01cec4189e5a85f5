// Package tokens implements the issuance/reissue/transfer/owner token
// engine (C6): name validation, wire records, script-level extraction, and
// a persistent balance cache with reorg-safe undo, grounded on the
// original CTokens/CTokensCache.
package tokens

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"

	"github.com/glyphchain/glyphchaind/adb"
	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/governance"
	"github.com/glyphchain/glyphchaind/logger"
	"github.com/glyphchain/glyphchaind/lrucache"
	"github.com/glyphchain/glyphchaind/script"
	"github.com/glyphchain/glyphchaind/transaction"
	"github.com/glyphchain/glyphchaind/util"
)

// ErrUnknownToken is returned when an operation names a token with no
// metadata entry.
var ErrUnknownToken = errors.New("tokens: unknown token")

// ErrDuplicateIssue is returned when a block tries to issue a name that
// already has metadata.
var ErrDuplicateIssue = errors.New("tokens: token already issued")

// ErrInsufficientBalance is returned when a transfer would take an
// address's running balance negative.
var ErrInsufficientBalance = errors.New("tokens: insufficient balance")

// ErrInvalidReissue is returned when a reissue violates the monotonic
// units/reissuable constraints or targets a non-reissuable token.
var ErrInvalidReissue = errors.New("tokens: invalid reissue")

// ErrFrozenScript is returned when an output pays a script the governance
// store has frozen.
var ErrFrozenScript = errors.New("tokens: script is frozen")

// ErrLockedOutput is returned when a transfer output's token-lock-time has
// not yet been reached.
var ErrLockedOutput = errors.New("tokens: output is time-locked")

// ErrMissingOwnerInput is returned when a UNIQUE issuance or a reissue does
// not consume the matching owner token as an input of the same transaction.
var ErrMissingOwnerInput = errors.New("tokens: issuance must consume the owner token as an input")

// ErrMissingBurn is returned when an issuance or reissue output is not
// paired with a matching fee-burn output at index 0 of the transaction.
var ErrMissingBurn = errors.New("tokens: missing or incorrect fee burn output")

const (
	bucketMeta    = "tokens.meta"
	bucketBalance = "tokens.balance"
	bucketUndo    = "tokens.undo"
)

// Meta is a token's current metadata plus the height/block it was last
// mutated at, mirroring GetTokenMetaDataIfExists's (token, height, hash)
// triple.
type Meta struct {
	NewToken
	Height    uint32
	BlockHash [32]byte
}

// SpentOutput is what the cache needs to know about an input being
// consumed: the script it paid, so a transfer/reissue spend can be
// attributed to the right (name, address) balance. Resolving outpoints to
// their previous output is a coins-view concern outside C1–C9's named
// scope; callers supply it.
type SpentOutput struct {
	Script script.Script
}

// unlocked reports whether a transfer output whose record carries
// lockTime may be spent given the block it is being spent in: the gate is
// satisfied by either basis, height or median-time, reaching the bound —
// whichever the output's lockTime happens to be expressed in.
func unlocked(lockTime uint32, height uint32, medianTime uint64) bool {
	if lockTime == 0 {
		return true
	}
	bound := uint64(height)
	if medianTime > bound {
		bound = medianTime
	}
	return uint64(lockTime) <= bound
}

// CoinView resolves a transaction input's previous output, the one piece
// of UTXO-set state the token cache depends on but does not itself own.
type CoinView interface {
	PrevOutput(op transaction.Outpoint) (SpentOutput, bool)
}

// balanceDelta records one (name, address) balance adjustment made while
// applying a block, signed so DisconnectBlock can subtract it back out.
type balanceDelta struct {
	name    string
	address string
	delta   amount.Amount
}

// metaSnapshot records the pre-mutation metadata for a reissue, or the
// absence of metadata for a fresh issue, so disconnecting a block can
// restore exactly what was there before.
type metaSnapshot struct {
	name    string
	existed bool
	prev    Meta
}

// UndoRecord is everything DisconnectBlock needs to exactly reverse one
// ApplyBlock call.
type UndoRecord struct {
	balances []balanceDelta
	metas    []metaSnapshot
}

// Cache is the token engine's persistent state: committed metadata and
// balances in C9, with an LRU in front of metadata reads and one in-memory
// dirty layer accumulated while a block is being applied.
type Cache struct {
	mu  util.Mutex
	db  adb.DB
	gov *governance.Store
	log *logger.Log

	meta, balance, undo adb.Index

	metaCache *lrucache.Cache[string, Meta]

	dirtyMeta     map[string]Meta
	dirtyBalances map[string]amount.Amount // key: name + "\x00" + address, absolute running value
	pending       UndoRecord
}

// New composes a token cache over an already-open persistence façade and
// governance store, with metaCacheSize entries of LRU headroom for
// metadata reads.
func New(db adb.DB, gov *governance.Store, log *logger.Log, metaCacheSize int) *Cache {
	if log == nil {
		log = logger.DiscardLog
	}
	return &Cache{
		db:        db,
		gov:       gov,
		log:       log,
		meta:      db.Index(bucketMeta),
		balance:   db.Index(bucketBalance),
		undo:      db.Index(bucketUndo),
		metaCache: lrucache.New[string, Meta](metaCacheSize),
	}
}

func balanceKey(name, address string) []byte {
	return append(append([]byte(name), 0), []byte(address)...)
}

func encodeMeta(m Meta) []byte {
	var buf []byte
	buf = append(buf, uint8(boolToByte(m.Reissuable)))
	buf = append(buf, uint8(m.Units))
	var amt [8]byte
	binary.BigEndian.PutUint64(amt[:], uint64(m.Amount))
	buf = append(buf, amt[:]...)
	var h [4]byte
	binary.BigEndian.PutUint32(h[:], m.Height)
	buf = append(buf, h[:]...)
	buf = append(buf, m.BlockHash[:]...)
	buf = append(buf, m.Name...)
	return buf
}

func decodeMeta(b []byte) (Meta, bool) {
	if len(b) < 1+1+8+4+32 {
		return Meta{}, false
	}
	var m Meta
	m.Reissuable = b[0] != 0
	m.Units = int8(b[1])
	m.Amount = amount.Amount(binary.BigEndian.Uint64(b[2:10]))
	m.Height = binary.BigEndian.Uint32(b[10:14])
	copy(m.BlockHash[:], b[14:46])
	m.Name = string(b[46:])
	return m, true
}

// GetTokenMetaDataIfExists returns name's current metadata, checking any
// uncommitted in-block dirty entry, then the LRU cache, then C9.
func (c *Cache) GetTokenMetaDataIfExists(name string) (Meta, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getMetaLocked(name)
}

func (c *Cache) getMetaLocked(name string) (Meta, bool, error) {
	if m, ok := c.dirtyMeta[name]; ok {
		return m, true, nil
	}
	if m, ok := c.metaCache.Get(name); ok {
		return m, true, nil
	}
	var m Meta
	var found bool
	err := c.db.View(func(txn adb.Txn) error {
		v := txn.Get(c.meta, []byte(name))
		if v == nil {
			return nil
		}
		decoded, ok := decodeMeta(v)
		if !ok {
			return errors.New("tokens: corrupt metadata entry")
		}
		m, found = decoded, true
		return nil
	})
	if err != nil {
		return Meta{}, false, err
	}
	if found {
		c.metaCache.Put(name, m)
	}
	return m, found, nil
}

func (c *Cache) getBalanceLocked(name, address string) (amount.Amount, error) {
	key := name + "\x00" + address
	if v, ok := c.dirtyBalances[key]; ok {
		return v, nil
	}
	var bal amount.Amount
	err := c.db.View(func(txn adb.Txn) error {
		v := txn.Get(c.balance, balanceKey(name, address))
		if v != nil {
			bal = amount.Amount(binary.BigEndian.Uint64(v))
		}
		return nil
	})
	return bal, err
}

func (c *Cache) adjustBalanceLocked(name, address string, delta amount.Amount) error {
	cur, err := c.getBalanceLocked(name, address)
	if err != nil {
		return err
	}
	// delta may be negative (a spend); amount.Add rejects negative
	// operands outright, so the range check is done directly here and the
	// wire form (always non-negative once committed) is written separately.
	next := cur + delta
	if !next.IsMoneyRange() {
		return ErrInsufficientBalance
	}
	key := name + "\x00" + address
	if c.dirtyBalances == nil {
		c.dirtyBalances = make(map[string]amount.Amount)
	}
	c.dirtyBalances[key] = next
	c.pending.balances = append(c.pending.balances, balanceDelta{name: name, address: address, delta: delta})
	return nil
}

// ApplyBlock classifies every output of every transaction in txs (a
// coinbase's inputs are not looked up in the coin view), validates and applies issue/reissue/transfer/owner operations
// against the running dirty layer, and on success commits balance and
// metadata changes to C9 in a single batch, returning the undo record
// needed to reverse it.
func (c *Cache) ApplyBlock(height uint32, medianTime uint64, blockHash [32]byte, txs []*transaction.Tx, view CoinView, addressOf func(script.Script) (string, bool)) (UndoRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dirtyMeta = make(map[string]Meta)
	c.dirtyBalances = make(map[string]amount.Amount)
	c.pending = UndoRecord{}

	for _, tx := range txs {
		consumedOwners := make(map[string]struct{})
		if err := c.spendInputsLocked(tx, height, medianTime, view, addressOf, consumedOwners); err != nil {
			return UndoRecord{}, err
		}
		for _, out := range tx.Outputs {
			if err := c.applyOutputLocked(tx, height, blockHash, out, addressOf, consumedOwners); err != nil {
				return UndoRecord{}, err
			}
		}
	}

	if err := c.commitLocked(blockHash); err != nil {
		return UndoRecord{}, err
	}
	return c.pending, nil
}

// spendInputsLocked decrements the sender's running balance for any input
// that consumed a transfer/issue/reissue/owner token output, via the coin
// view, rejecting a spend whose transfer-record lock time has not yet
// unlocked. Every owner-token input it spends is recorded in
// consumedOwners (keyed by the owner's full name, e.g. "ROOTCOIN!"), so a
// UNIQUE issuance or reissue applied later from the same transaction's
// outputs can verify the matching owner token was surrendered as an input.
func (c *Cache) spendInputsLocked(tx *transaction.Tx, height uint32, medianTime uint64, view CoinView, addressOf func(script.Script) (string, bool), consumedOwners map[string]struct{}) error {
	if tx.IsCoinBase() || view == nil {
		return nil
	}
	for _, in := range tx.Inputs {
		prev, ok := view.PrevOutput(in.PrevOut)
		if !ok {
			continue
		}
		kind, _, isOwner, ok := IsTokenScript(prev.Script)
		if !ok {
			continue
		}
		addr, ok := addressOf(prev.Script)
		if !ok {
			continue
		}
		var name string
		var amt amount.Amount
		switch {
		case kind == script.NEW_TOKEN && isOwner:
			t, _, _, err := OwnerTokenFromScript(prev.Script)
			if err != nil {
				return err
			}
			name, amt = t.Name+OwnerTag, OwnerAmount
			consumedOwners[t.Name+OwnerTag] = struct{}{}
		case kind == script.TRANSFER_TOKEN:
			t, _, _, err := TransferTokenFromScript(prev.Script)
			if err != nil {
				return err
			}
			if !unlocked(t.LockTime, height, medianTime) {
				return ErrLockedOutput
			}
			name, amt = t.Name, t.Amount
		case kind == script.NEW_TOKEN:
			t, _, _, err := TokenFromScript(prev.Script)
			if err != nil {
				return err
			}
			name, amt = t.Name, t.Amount
		case kind == script.REISSUE_TOKEN:
			t, _, _, err := ReissueTokenFromScript(prev.Script)
			if err != nil {
				return err
			}
			name, amt = t.Name, t.Amount
		default:
			continue
		}
		if err := c.adjustBalanceLocked(name, addr, -amt); err != nil {
			return ErrInsufficientBalance
		}
	}
	return nil
}

// costTypeFor returns the fee-schedule entry an issuance of typ must burn
// against, or false for token types (REISSUE goes through checkBurnLocked
// directly with CostReissue; OWNER mints alongside an issuance rather than
// being its own taxable operation) that carry no issuance cost of their own.
func costTypeFor(typ TokenType) (governance.CostType, bool) {
	switch typ {
	case Root:
		return governance.CostRoot, true
	case Sub:
		return governance.CostSub, true
	case Unique:
		return governance.CostUnique, true
	case Username:
		return governance.CostUsername, true
	default:
		return 0, false
	}
}

// checkBurnLocked verifies tx carries the fee-schedule's current burn for
// cost at output index 0, both in amount and in destination script, the
// same single-output check CheckIssueBurnTx/CheckReissueBurnTx make against
// vout[0] in the original.
func (c *Cache) checkBurnLocked(tx *transaction.Tx, cost governance.CostType) error {
	required, err := c.gov.GetCost(cost)
	if err != nil {
		return err
	}
	feeScript, err := c.gov.GetFeeScript()
	if err != nil {
		return err
	}
	if len(tx.Outputs) == 0 {
		return ErrMissingBurn
	}
	burn := tx.Outputs[0]
	if burn.Amount != required || !bytes.Equal(burn.Script, feeScript) {
		return ErrMissingBurn
	}
	return nil
}

func (c *Cache) applyOutputLocked(tx *transaction.Tx, height uint32, blockHash [32]byte, out transaction.TxOut, addressOf func(script.Script) (string, bool), consumedOwners map[string]struct{}) error {
	kind, _, isOwner, ok := IsTokenScript(out.Script)
	if !ok {
		return nil
	}

	if can, err := c.gov.CanSend(out.Script); err != nil {
		return err
	} else if !can {
		return ErrFrozenScript
	}

	addr, hasAddr := addressOf(out.Script)

	switch {
	case kind == script.NEW_TOKEN && isOwner:
		t, _, _, err := OwnerTokenFromScript(out.Script)
		if err != nil {
			return err
		}
		return c.applyOwnerLocked(height, blockHash, t, addr)
	case kind == script.NEW_TOKEN:
		t, _, _, err := TokenFromScript(out.Script)
		if err != nil {
			return err
		}
		if !hasAddr {
			return errBadPayload
		}
		return c.applyIssueLocked(tx, height, blockHash, t, addr, consumedOwners)
	case kind == script.REISSUE_TOKEN:
		t, _, _, err := ReissueTokenFromScript(out.Script)
		if err != nil {
			return err
		}
		if !hasAddr {
			return errBadPayload
		}
		return c.applyReissueLocked(tx, height, blockHash, t, addr, consumedOwners)
	case kind == script.TRANSFER_TOKEN:
		t, _, _, err := TransferTokenFromScript(out.Script)
		if err != nil {
			return err
		}
		if !hasAddr {
			return errBadPayload
		}
		return c.applyTransferLocked(t, addr)
	}
	return nil
}

// applyIssueLocked creates t's metadata and credits its issuer, after
// checking the name classifies to a known type, that a UNIQUE issuance
// consumed its parent's owner token as an input of the same transaction,
// and that the transaction burns the fee schedule's cost for t's type at
// output 0.
func (c *Cache) applyIssueLocked(tx *transaction.Tx, height uint32, blockHash [32]byte, t NewToken, address string, consumedOwners map[string]struct{}) error {
	if _, found, err := c.getMetaLocked(t.Name); err != nil {
		return err
	} else if found {
		return ErrDuplicateIssue
	}

	typ, ok := IsTokenNameValid(t.Name)
	if !ok {
		return errBadPayload
	}
	if typ == Unique {
		if _, consumed := consumedOwners[ParentName(t.Name)+OwnerTag]; !consumed {
			return ErrMissingOwnerInput
		}
	}
	if cost, ok := costTypeFor(typ); ok {
		if err := c.checkBurnLocked(tx, cost); err != nil {
			return err
		}
	}

	m := Meta{NewToken: t, Height: height, BlockHash: blockHash}
	c.dirtyMeta[t.Name] = m
	c.pending.metas = append(c.pending.metas, metaSnapshot{name: t.Name, existed: false})
	return c.adjustBalanceLocked(t.Name, address, t.Amount)
}

func (c *Cache) applyOwnerLocked(height uint32, blockHash [32]byte, t OwnerToken, address string) error {
	return c.adjustBalanceLocked(t.Name+OwnerTag, address, OwnerAmount)
}

// applyReissueLocked mutates t's existing metadata, after checking the
// reissue consumed t's owner token as an input of the same transaction and
// that the transaction burns the fee schedule's reissue cost at output 0.
func (c *Cache) applyReissueLocked(tx *transaction.Tx, height uint32, blockHash [32]byte, t ReissueToken, address string, consumedOwners map[string]struct{}) error {
	prev, found, err := c.getMetaLocked(t.Name)
	if err != nil {
		return err
	}
	if !found {
		return ErrUnknownToken
	}
	if !prev.Reissuable {
		return ErrInvalidReissue
	}
	if t.Units != -1 && (t.Units < prev.Units || t.Units > MaxUnit) {
		return ErrInvalidReissue
	}
	// reissuable only ever moves 1->0 from here; prev.Reissuable is already
	// known true, so any requested value (true or false) is monotonic.

	if _, consumed := consumedOwners[t.Name+OwnerTag]; !consumed {
		return ErrMissingOwnerInput
	}
	if err := c.checkBurnLocked(tx, governance.CostReissue); err != nil {
		return err
	}

	newAmount, err := amount.Add(prev.Amount, t.Amount)
	if err != nil || !newAmount.IsTokenMoneyRange() {
		return ErrInvalidReissue
	}

	c.pending.metas = append(c.pending.metas, metaSnapshot{name: t.Name, existed: true, prev: prev})

	next := prev
	next.Amount = newAmount
	if t.Units != -1 {
		next.Units = t.Units
	}
	next.Reissuable = t.Reissuable
	next.Height = height
	next.BlockHash = blockHash
	c.dirtyMeta[t.Name] = next

	return c.adjustBalanceLocked(t.Name, address, t.Amount)
}

func (c *Cache) applyTransferLocked(t TransferToken, address string) error {
	if _, found, err := c.getMetaLocked(t.Name); err != nil {
		return err
	} else if !found {
		return ErrUnknownToken
	}
	return c.adjustBalanceLocked(t.Name, address, t.Amount)
}

// commitLocked writes the dirty metadata and balance layers to C9 as a
// single batch, then clears them and refreshes the LRU with what changed.
func (c *Cache) commitLocked(blockHash [32]byte) error {
	err := c.db.Update(func(txn adb.Txn) error {
		for name, m := range c.dirtyMeta {
			if err := txn.Put(c.meta, []byte(name), encodeMeta(m)); err != nil {
				return err
			}
		}
		for key, bal := range c.dirtyBalances {
			name, address := splitBalanceKey(key)
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], uint64(bal))
			if err := txn.Put(c.balance, balanceKey(name, address), buf[:]); err != nil {
				return err
			}
		}
		return txn.Put(c.undo, blockHash[:], encodeUndo(c.pending))
	})
	if err != nil {
		return err
	}
	for name, m := range c.dirtyMeta {
		c.metaCache.Put(name, m)
	}
	c.dirtyMeta = nil
	c.dirtyBalances = nil
	return nil
}

func splitBalanceKey(key string) (string, string) {
	i := strings.IndexByte(key, 0)
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

// DisconnectBlock loads the undo record written by the ApplyBlock call for
// blockHash and reverses it: balances and metadata are restored to their
// pre-block state and the undo record is erased.
func (c *Cache) DisconnectBlock(blockHash [32]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var undoBytes []byte
	if err := c.db.View(func(txn adb.Txn) error {
		undoBytes = txn.Get(c.undo, blockHash[:])
		return nil
	}); err != nil {
		return err
	}
	if undoBytes == nil {
		return errors.New("tokens: no undo record for block")
	}
	undo, ok := decodeUndo(undoBytes)
	if !ok {
		return errors.New("tokens: corrupt undo record")
	}

	return c.db.Update(func(txn adb.Txn) error {
		for i := len(undo.balances) - 1; i >= 0; i-- {
			d := undo.balances[i]
			v := txn.Get(c.balance, balanceKey(d.name, d.address))
			var cur amount.Amount
			if v != nil {
				cur = amount.Amount(binary.BigEndian.Uint64(v))
			}
			next := cur - d.delta
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], uint64(next))
			if err := txn.Put(c.balance, balanceKey(d.name, d.address), buf[:]); err != nil {
				return err
			}
		}
		for i := len(undo.metas) - 1; i >= 0; i-- {
			s := undo.metas[i]
			if !s.existed {
				if err := txn.Del(c.meta, []byte(s.name)); err != nil {
					return err
				}
				c.metaCache.Erase(s.name)
				continue
			}
			if err := txn.Put(c.meta, []byte(s.name), encodeMeta(s.prev)); err != nil {
				return err
			}
			c.metaCache.Put(s.name, s.prev)
		}
		return txn.Del(c.undo, blockHash[:])
	})
}

func encodeUndo(u UndoRecord) []byte {
	var out []byte
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(u.balances)))
	out = append(out, n[:]...)
	for _, b := range u.balances {
		out = append(out, encodeLenPrefixed([]byte(b.name))...)
		out = append(out, encodeLenPrefixed([]byte(b.address))...)
		var amt [8]byte
		binary.BigEndian.PutUint64(amt[:], uint64(b.delta))
		out = append(out, amt[:]...)
	}
	binary.BigEndian.PutUint32(n[:], uint32(len(u.metas)))
	out = append(out, n[:]...)
	for _, m := range u.metas {
		out = append(out, encodeLenPrefixed([]byte(m.name))...)
		if m.existed {
			out = append(out, 1)
			out = append(out, encodeLenPrefixed(encodeMeta(m.prev))...)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

func encodeLenPrefixed(b []byte) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	return append(n[:], b...)
}

// readLenPrefixed reads one length-prefixed byte string from b, returning
// the value, the remaining bytes, and whether the read succeeded.
func readLenPrefixed(b []byte) ([]byte, []byte, bool) {
	if len(b) < 4 {
		return nil, nil, false
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint64(len(b)) < uint64(n) {
		return nil, nil, false
	}
	return b[:n], b[n:], true
}

func decodeUndo(b []byte) (UndoRecord, bool) {
	var u UndoRecord
	if len(b) < 4 {
		return UndoRecord{}, false
	}
	nBalances := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	for i := uint32(0); i < nBalances; i++ {
		name, rest, ok := readLenPrefixed(b)
		if !ok {
			return UndoRecord{}, false
		}
		b = rest
		address, rest, ok := readLenPrefixed(b)
		if !ok {
			return UndoRecord{}, false
		}
		b = rest
		if len(b) < 8 {
			return UndoRecord{}, false
		}
		delta := amount.Amount(binary.BigEndian.Uint64(b[:8]))
		b = b[8:]
		u.balances = append(u.balances, balanceDelta{name: string(name), address: string(address), delta: delta})
	}

	if len(b) < 4 {
		return UndoRecord{}, false
	}
	nMetas := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	for i := uint32(0); i < nMetas; i++ {
		name, rest, ok := readLenPrefixed(b)
		if !ok {
			return UndoRecord{}, false
		}
		b = rest
		if len(b) < 1 {
			return UndoRecord{}, false
		}
		existed := b[0] != 0
		b = b[1:]
		s := metaSnapshot{name: string(name), existed: existed}
		if existed {
			metaBytes, rest, ok := readLenPrefixed(b)
			if !ok {
				return UndoRecord{}, false
			}
			b = rest
			m, ok := decodeMeta(metaBytes)
			if !ok {
				return UndoRecord{}, false
			}
			s.prev = m
		}
		u.metas = append(u.metas, s)
	}
	return u, true
}

// AddressDir paginates the addresses holding name, returning balances in
// parallel and the total number of holders, per the original's
// (name, onlyTotal, count, start) pagination contract.
func (c *Cache) AddressDir(name string, onlyTotal bool, count, start int) ([]string, []amount.Amount, int, error) {
	prefix := append([]byte(name), 0)
	var addresses []string
	var balances []amount.Amount
	total := 0

	err := c.db.View(func(txn adb.Txn) error {
		return txn.Seek(c.balance, prefix, func(k, v []byte) (bool, error) {
			total++
			if onlyTotal {
				return false, nil
			}
			idx := total - 1
			if idx < start || (count > 0 && idx >= start+count) {
				return false, nil
			}
			addresses = append(addresses, string(k[len(prefix):]))
			balances = append(balances, amount.Amount(binary.BigEndian.Uint64(v)))
			return false, nil
		})
	})
	if err != nil {
		return nil, nil, 0, err
	}
	return addresses, balances, total, nil
}

// GetAllMyTokenBalances scans every (name, address) balance entry whose
// name matches filter — an exact match, or if filter ends with "*" a
// prefix match — and sums per-address balances by name.
func (c *Cache) GetAllMyTokenBalances(filter string) (map[string]amount.Amount, error) {
	prefixOnly := strings.HasSuffix(filter, "*")
	want := strings.TrimSuffix(filter, "*")

	result := make(map[string]amount.Amount)
	err := c.db.View(func(txn adb.Txn) error {
		return txn.ForEach(c.balance, func(k, v []byte) error {
			name, _ := splitBalanceKey(string(k))
			if prefixOnly {
				if !strings.HasPrefix(name, want) {
					return nil
				}
			} else if want != "" && name != want {
				return nil
			}
			bal := amount.Amount(binary.BigEndian.Uint64(v))
			sum, err := amount.Add(result[name], bal)
			if err != nil {
				return err
			}
			result[name] = sum
			return nil
		})
	})
	return result, err
}
