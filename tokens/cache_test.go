package tokens_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glyphchain/glyphchaind/adb/boltdb"
	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/chainparams"
	"github.com/glyphchain/glyphchaind/governance"
	"github.com/glyphchain/glyphchaind/script"
	"github.com/glyphchain/glyphchaind/tokens"
	"github.com/glyphchain/glyphchaind/transaction"
)

type fakeCoinView struct {
	outputs map[transaction.Outpoint]tokens.SpentOutput
}

func (v *fakeCoinView) PrevOutput(op transaction.Outpoint) (tokens.SpentOutput, bool) {
	out, ok := v.outputs[op]
	return out, ok
}

func identityAddress(s script.Script) (string, bool) {
	res, ok := script.Solve(s)
	if !ok || len(res.Solutions) == 0 {
		return "", false
	}
	return string(res.Solutions[0]), true
}

// feeScript and the per-type costs mirror newTestCache's chainparams, so
// tests can build the matching burn output for whichever issuance they are
// exercising.
var feeScript = script.Script{0xaa}

const (
	rootCost    = 100 * amount.COIN
	uniqueCost  = 5 * amount.COIN
	reissueCost = 50 * amount.COIN
)

func newTestCache(t *testing.T) *tokens.Cache {
	t.Helper()
	dir := t.TempDir()
	db, err := boltdb.New(filepath.Join(dir, "tokens.db"), os.FileMode(0o600))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	gov := governance.New(db, nil)
	if err := gov.Init(&chainparams.Params{
		RootTokenFee:     100 * int64(amount.COIN),
		SubTokenFee:      50 * int64(amount.COIN),
		UniqueTokenFee:   5 * int64(amount.COIN),
		ReissueTokenFee:  10 * int64(amount.COIN),
		UsernameFee:      1 * int64(amount.COIN),
		GenesisFeeScript: []byte(feeScript),
	}); err != nil {
		t.Fatal(err)
	}

	return tokens.New(db, gov, nil, 64)
}

func scriptFor(h byte) script.Script {
	var key [20]byte
	for i := range key {
		key[i] = h + byte(i)
	}
	return pubkeyHashScript(key)
}

func burnOutput(cost amount.Amount) transaction.TxOut {
	return transaction.TxOut{Amount: cost, Script: feeScript}
}

func issueOutput(name string, amt amount.Amount, dest byte) transaction.TxOut {
	payload := tokens.EncodeIssue(tokens.NewToken{Name: name, Amount: amt, Units: 0, Reissuable: true})
	s := withToken(scriptFor(dest), payload)
	return transaction.TxOut{Amount: amount.COIN, Script: s}
}

func ownerOutput(name string, dest byte) transaction.TxOut {
	payload := tokens.EncodeOwner(tokens.OwnerToken{Name: name})
	s := withToken(scriptFor(dest), payload)
	return transaction.TxOut{Amount: amount.COIN, Script: s}
}

func transferOutput(name string, amt amount.Amount, dest byte, lockTime uint32) transaction.TxOut {
	payload := tokens.EncodeTransfer(tokens.TransferToken{Name: name, Amount: amt, LockTime: lockTime})
	s := withToken(scriptFor(dest), payload)
	return transaction.TxOut{Amount: amount.COIN, Script: s, LockTime: lockTime}
}

// issueRootWithOwner builds and applies a block that issues name as a ROOT
// token (with its fee burn) and mints its owner token to dest, returning
// the issuing transaction so callers can locate the owner output's
// outpoint for a later owner-consuming spend.
func issueRootWithOwner(t *testing.T, c *tokens.Cache, blockHashByte byte, name string, amt amount.Amount, dest byte) *transaction.Tx {
	t.Helper()
	var blockHash [32]byte
	blockHash[0] = blockHashByte
	tx := &transaction.Tx{Outputs: []transaction.TxOut{
		burnOutput(rootCost),
		issueOutput(name, amt, dest),
		ownerOutput(name, dest),
	}}
	if _, err := c.ApplyBlock(uint32(blockHashByte), 0, blockHash, []*transaction.Tx{tx}, nil, identityAddress); err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestApplyBlockIssueCreatesMetaAndBalance(t *testing.T) {
	c := newTestCache(t)
	var blockHash [32]byte
	blockHash[0] = 1

	tx := &transaction.Tx{Outputs: []transaction.TxOut{burnOutput(rootCost), issueOutput("ROOTCOIN", 1000*amount.COIN, 10)}}
	if _, err := c.ApplyBlock(1, 0, blockHash, []*transaction.Tx{tx}, nil, identityAddress); err != nil {
		t.Fatal(err)
	}

	meta, found, err := c.GetTokenMetaDataIfExists("ROOTCOIN")
	if err != nil {
		t.Fatal(err)
	}
	if !found || meta.Amount != 1000*amount.COIN {
		t.Fatalf("got meta=%+v found=%v, want amount=1000 coins", meta, found)
	}

	addr, _ := identityAddress(scriptFor(10))
	balances, err := c.GetAllMyTokenBalances("ROOTCOIN")
	if err != nil {
		t.Fatal(err)
	}
	if balances["ROOTCOIN"] != 1000*amount.COIN {
		t.Fatalf("got balances=%v", balances)
	}
	_ = addr
}

func TestApplyBlockIssueRequiresFeeBurn(t *testing.T) {
	c := newTestCache(t)
	var blockHash [32]byte
	blockHash[0] = 1

	tx := &transaction.Tx{Outputs: []transaction.TxOut{issueOutput("ROOTCOIN", 1000*amount.COIN, 10)}}
	if _, err := c.ApplyBlock(1, 0, blockHash, []*transaction.Tx{tx}, nil, identityAddress); err != tokens.ErrMissingBurn {
		t.Fatalf("got %v, want ErrMissingBurn", err)
	}
}

func TestApplyBlockRejectsDuplicateIssue(t *testing.T) {
	c := newTestCache(t)
	var blockHash [32]byte
	blockHash[0] = 1

	tx := &transaction.Tx{Outputs: []transaction.TxOut{burnOutput(rootCost), issueOutput("ROOTCOIN", 1000*amount.COIN, 10)}}
	if _, err := c.ApplyBlock(1, 0, blockHash, []*transaction.Tx{tx}, nil, identityAddress); err != nil {
		t.Fatal(err)
	}

	var blockHash2 [32]byte
	blockHash2[0] = 2
	dup := &transaction.Tx{Outputs: []transaction.TxOut{issueOutput("ROOTCOIN", 1*amount.COIN, 11)}}
	if _, err := c.ApplyBlock(2, 0, blockHash2, []*transaction.Tx{dup}, nil, identityAddress); err != tokens.ErrDuplicateIssue {
		t.Fatalf("got %v, want ErrDuplicateIssue", err)
	}
}

func TestApplyBlockUniqueIssuanceRequiresOwnerInput(t *testing.T) {
	c := newTestCache(t)
	issueRootWithOwner(t, c, 1, "ROOTCOIN", 1000*amount.COIN, 10)

	var blockHash2 [32]byte
	blockHash2[0] = 2
	uniqueTx := &transaction.Tx{Outputs: []transaction.TxOut{
		burnOutput(uniqueCost),
		issueOutput("ROOTCOIN#1", 1, 10),
	}}
	if _, err := c.ApplyBlock(2, 0, blockHash2, []*transaction.Tx{uniqueTx}, nil, identityAddress); err != tokens.ErrMissingOwnerInput {
		t.Fatalf("got %v, want ErrMissingOwnerInput", err)
	}
}

func TestApplyBlockUniqueIssuanceSucceedsWhenOwnerConsumed(t *testing.T) {
	c := newTestCache(t)
	issueTx := issueRootWithOwner(t, c, 1, "ROOTCOIN", 1000*amount.COIN, 10)
	ownerOutpoint := transaction.Outpoint{Hash: issueTx.Txid(), Index: 2}

	var blockHash2 [32]byte
	blockHash2[0] = 2
	view := &fakeCoinView{outputs: map[transaction.Outpoint]tokens.SpentOutput{
		ownerOutpoint: {Script: issueTx.Outputs[2].Script},
	}}
	uniqueTx := &transaction.Tx{
		Inputs: []transaction.TxIn{{PrevOut: ownerOutpoint}},
		Outputs: []transaction.TxOut{
			burnOutput(uniqueCost),
			issueOutput("ROOTCOIN#1", 1, 10),
		},
	}
	if _, err := c.ApplyBlock(2, 0, blockHash2, []*transaction.Tx{uniqueTx}, view, identityAddress); err != nil {
		t.Fatal(err)
	}

	_, found, err := c.GetTokenMetaDataIfExists("ROOTCOIN#1")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected ROOTCOIN#1 metadata after a successful unique issuance")
	}

	addr, _ := identityAddress(scriptFor(10))
	ownerBalances, err := c.GetAllMyTokenBalances("ROOTCOIN!")
	if err != nil {
		t.Fatal(err)
	}
	if ownerBalances["ROOTCOIN!"] != 0 {
		t.Fatalf("got owner balance %v after it was spent as an input, want 0", ownerBalances["ROOTCOIN!"])
	}
	_ = addr
}

func TestApplyBlockTransferMovesBalanceViaCoinView(t *testing.T) {
	c := newTestCache(t)
	var blockHash1 [32]byte
	blockHash1[0] = 1

	issueTx := &transaction.Tx{Outputs: []transaction.TxOut{burnOutput(rootCost), issueOutput("ROOTCOIN", 1000*amount.COIN, 10)}}
	if _, err := c.ApplyBlock(1, 0, blockHash1, []*transaction.Tx{issueTx}, nil, identityAddress); err != nil {
		t.Fatal(err)
	}
	issuedOutpoint := transaction.Outpoint{Hash: issueTx.Txid(), Index: 1}

	var blockHash2 [32]byte
	blockHash2[0] = 2
	view := &fakeCoinView{outputs: map[transaction.Outpoint]tokens.SpentOutput{
		issuedOutpoint: {Script: issueTx.Outputs[1].Script},
	}}
	transferTx := &transaction.Tx{
		Inputs:  []transaction.TxIn{{PrevOut: issuedOutpoint}},
		Outputs: []transaction.TxOut{transferOutput("ROOTCOIN", 400*amount.COIN, 20, 0)},
	}
	if _, err := c.ApplyBlock(2, 0, blockHash2, []*transaction.Tx{transferTx}, view, identityAddress); err != nil {
		t.Fatal(err)
	}

	balances, err := c.GetAllMyTokenBalances("ROOTCOIN")
	if err != nil {
		t.Fatal(err)
	}
	if balances["ROOTCOIN"] != 1000*amount.COIN {
		t.Fatalf("got total balance %v, want unchanged issued total of 1000 coins", balances["ROOTCOIN"])
	}

	addrFrom, _ := identityAddress(scriptFor(10))
	addrTo, _ := identityAddress(scriptFor(20))
	addresses, amounts, total, err := c.AddressDir("ROOTCOIN", false, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Fatalf("got %d holders, want 2", total)
	}
	seen := map[string]amount.Amount{}
	for i, a := range addresses {
		seen[a] = amounts[i]
	}
	if seen[addrFrom] != 600*amount.COIN {
		t.Fatalf("got sender balance %v, want 600 coins", seen[addrFrom])
	}
	if seen[addrTo] != 400*amount.COIN {
		t.Fatalf("got receiver balance %v, want 400 coins", seen[addrTo])
	}
}

func TestApplyBlockTransferRejectsUnknownToken(t *testing.T) {
	c := newTestCache(t)
	var blockHash [32]byte
	blockHash[0] = 1

	tx := &transaction.Tx{Outputs: []transaction.TxOut{transferOutput("NEVERISSUED", 1*amount.COIN, 10, 0)}}
	if _, err := c.ApplyBlock(1, 0, blockHash, []*transaction.Tx{tx}, nil, identityAddress); err != tokens.ErrUnknownToken {
		t.Fatalf("got %v, want ErrUnknownToken", err)
	}
}

func TestApplyBlockReissueEnforcesMonotonicConstraints(t *testing.T) {
	c := newTestCache(t)
	issueTx := issueRootWithOwner(t, c, 1, "ROOTCOIN", 1000*amount.COIN, 10)
	ownerOutpoint := transaction.Outpoint{Hash: issueTx.Txid(), Index: 2}

	var blockHash2 [32]byte
	blockHash2[0] = 2
	reissuePayload := tokens.EncodeReissue(tokens.ReissueToken{Name: "ROOTCOIN", Amount: 500 * amount.COIN, Units: -1, Reissuable: false})
	reissueScript := withToken(scriptFor(10), reissuePayload)
	view := &fakeCoinView{outputs: map[transaction.Outpoint]tokens.SpentOutput{
		ownerOutpoint: {Script: issueTx.Outputs[2].Script},
	}}
	reissueTx := &transaction.Tx{
		Inputs:  []transaction.TxIn{{PrevOut: ownerOutpoint}},
		Outputs: []transaction.TxOut{burnOutput(reissueCost), {Amount: amount.COIN, Script: reissueScript}},
	}
	if _, err := c.ApplyBlock(2, 0, blockHash2, []*transaction.Tx{reissueTx}, view, identityAddress); err != nil {
		t.Fatal(err)
	}

	meta, _, err := c.GetTokenMetaDataIfExists("ROOTCOIN")
	if err != nil {
		t.Fatal(err)
	}
	if meta.Amount != 1500*amount.COIN || meta.Reissuable {
		t.Fatalf("got meta=%+v, want amount=1500 coins and reissuable=false", meta)
	}

	var blockHash3 [32]byte
	blockHash3[0] = 3
	secondReissuePayload := tokens.EncodeReissue(tokens.ReissueToken{Name: "ROOTCOIN", Amount: 1 * amount.COIN, Units: -1, Reissuable: true})
	secondReissueScript := withToken(scriptFor(10), secondReissuePayload)
	secondReissueTx := &transaction.Tx{Outputs: []transaction.TxOut{{Amount: amount.COIN, Script: secondReissueScript}}}
	if _, err := c.ApplyBlock(3, 0, blockHash3, []*transaction.Tx{secondReissueTx}, nil, identityAddress); err != tokens.ErrInvalidReissue {
		t.Fatalf("got %v, want ErrInvalidReissue (token is no longer reissuable)", err)
	}
}

func TestApplyBlockReissueRequiresOwnerInput(t *testing.T) {
	c := newTestCache(t)
	issueRootWithOwner(t, c, 1, "ROOTCOIN", 1000*amount.COIN, 10)

	var blockHash2 [32]byte
	blockHash2[0] = 2
	reissuePayload := tokens.EncodeReissue(tokens.ReissueToken{Name: "ROOTCOIN", Amount: 500 * amount.COIN, Units: -1, Reissuable: true})
	reissueScript := withToken(scriptFor(10), reissuePayload)
	reissueTx := &transaction.Tx{Outputs: []transaction.TxOut{
		burnOutput(reissueCost),
		{Amount: amount.COIN, Script: reissueScript},
	}}
	if _, err := c.ApplyBlock(2, 0, blockHash2, []*transaction.Tx{reissueTx}, nil, identityAddress); err != tokens.ErrMissingOwnerInput {
		t.Fatalf("got %v, want ErrMissingOwnerInput", err)
	}
}

func TestDisconnectBlockReversesIssue(t *testing.T) {
	c := newTestCache(t)
	var blockHash [32]byte
	blockHash[0] = 1

	tx := &transaction.Tx{Outputs: []transaction.TxOut{burnOutput(rootCost), issueOutput("ROOTCOIN", 1000*amount.COIN, 10)}}
	if _, err := c.ApplyBlock(1, 0, blockHash, []*transaction.Tx{tx}, nil, identityAddress); err != nil {
		t.Fatal(err)
	}
	if err := c.DisconnectBlock(blockHash); err != nil {
		t.Fatal(err)
	}

	_, found, err := c.GetTokenMetaDataIfExists("ROOTCOIN")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected metadata to be erased after disconnecting its issuing block")
	}

	balances, err := c.GetAllMyTokenBalances("ROOTCOIN")
	if err != nil {
		t.Fatal(err)
	}
	if balances["ROOTCOIN"] != 0 {
		t.Fatalf("got balance %v after disconnect, want 0", balances["ROOTCOIN"])
	}
}

func TestDisconnectBlockReversesTransfer(t *testing.T) {
	c := newTestCache(t)
	var blockHash1 [32]byte
	blockHash1[0] = 1
	issueTx := &transaction.Tx{Outputs: []transaction.TxOut{burnOutput(rootCost), issueOutput("ROOTCOIN", 1000*amount.COIN, 10)}}
	if _, err := c.ApplyBlock(1, 0, blockHash1, []*transaction.Tx{issueTx}, nil, identityAddress); err != nil {
		t.Fatal(err)
	}
	issuedOutpoint := transaction.Outpoint{Hash: issueTx.Txid(), Index: 1}

	var blockHash2 [32]byte
	blockHash2[0] = 2
	view := &fakeCoinView{outputs: map[transaction.Outpoint]tokens.SpentOutput{
		issuedOutpoint: {Script: issueTx.Outputs[1].Script},
	}}
	transferTx := &transaction.Tx{
		Inputs:  []transaction.TxIn{{PrevOut: issuedOutpoint}},
		Outputs: []transaction.TxOut{transferOutput("ROOTCOIN", 400*amount.COIN, 20, 0)},
	}
	if _, err := c.ApplyBlock(2, 0, blockHash2, []*transaction.Tx{transferTx}, view, identityAddress); err != nil {
		t.Fatal(err)
	}

	if err := c.DisconnectBlock(blockHash2); err != nil {
		t.Fatal(err)
	}

	addrFrom, _ := identityAddress(scriptFor(10))
	addrTo, _ := identityAddress(scriptFor(20))
	addresses, amounts, _, err := c.AddressDir("ROOTCOIN", false, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]amount.Amount{}
	for i, a := range addresses {
		seen[a] = amounts[i]
	}
	if seen[addrFrom] != 1000*amount.COIN {
		t.Fatalf("got sender balance %v after disconnect, want the full 1000 coins restored", seen[addrFrom])
	}
	if seen[addrTo] != 0 {
		t.Fatalf("got receiver balance %v after disconnect, want 0", seen[addrTo])
	}
}

func TestApplyBlockRejectsSpendBeforeTokenLockTimeUnlocks(t *testing.T) {
	c := newTestCache(t)
	var blockHash1 [32]byte
	blockHash1[0] = 1
	issueTx := &transaction.Tx{Outputs: []transaction.TxOut{burnOutput(rootCost), issueOutput("ROOTCOIN", 1000*amount.COIN, 10)}}
	if _, err := c.ApplyBlock(1, 0, blockHash1, []*transaction.Tx{issueTx}, nil, identityAddress); err != nil {
		t.Fatal(err)
	}
	issuedOutpoint := transaction.Outpoint{Hash: issueTx.Txid(), Index: 1}

	var blockHash2 [32]byte
	blockHash2[0] = 2
	lockedTransferTx := &transaction.Tx{
		Inputs:  []transaction.TxIn{{PrevOut: issuedOutpoint}},
		Outputs: []transaction.TxOut{transferOutput("ROOTCOIN", 400*amount.COIN, 20, 100)},
	}
	if _, err := c.ApplyBlock(2, 0, blockHash2, []*transaction.Tx{lockedTransferTx}, &fakeCoinView{outputs: map[transaction.Outpoint]tokens.SpentOutput{
		issuedOutpoint: {Script: issueTx.Outputs[1].Script},
	}}, identityAddress); err != nil {
		t.Fatal(err)
	}
	lockedOutpoint := transaction.Outpoint{Hash: lockedTransferTx.Txid(), Index: 0}

	var blockHash3 [32]byte
	blockHash3[0] = 3
	view := &fakeCoinView{outputs: map[transaction.Outpoint]tokens.SpentOutput{
		lockedOutpoint: {Script: lockedTransferTx.Outputs[0].Script},
	}}
	spendTx := &transaction.Tx{
		Inputs:  []transaction.TxIn{{PrevOut: lockedOutpoint}},
		Outputs: []transaction.TxOut{transferOutput("ROOTCOIN", 400*amount.COIN, 30, 0)},
	}
	if _, err := c.ApplyBlock(50, 0, blockHash3, []*transaction.Tx{spendTx}, view, identityAddress); err != tokens.ErrLockedOutput {
		t.Fatalf("got %v at height below the lock time, want ErrLockedOutput", err)
	}

	var blockHash4 [32]byte
	blockHash4[0] = 4
	if _, err := c.ApplyBlock(150, 0, blockHash4, []*transaction.Tx{spendTx}, view, identityAddress); err != nil {
		t.Fatalf("got %v once height reaches the lock time, want success", err)
	}
}

func TestGetAllMyTokenBalancesPrefixFilter(t *testing.T) {
	c := newTestCache(t)
	var blockHash [32]byte
	blockHash[0] = 1

	tx := &transaction.Tx{Outputs: []transaction.TxOut{
		burnOutput(rootCost),
		issueOutput("ROOTCOIN", 100*amount.COIN, 10),
		issueOutput("ROOTOTHER", 50*amount.COIN, 11),
	}}
	if _, err := c.ApplyBlock(1, 0, blockHash, []*transaction.Tx{tx}, nil, identityAddress); err != nil {
		t.Fatal(err)
	}

	balances, err := c.GetAllMyTokenBalances("ROOT*")
	if err != nil {
		t.Fatal(err)
	}
	if len(balances) != 2 {
		t.Fatalf("got %d matches, want 2 for a prefix filter", len(balances))
	}
}
