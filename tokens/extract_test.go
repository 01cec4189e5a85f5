package tokens_test

import (
	"bytes"
	"testing"

	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/script"
	"github.com/glyphchain/glyphchaind/tokens"
)

func pubkeyHashScript(h [20]byte) script.Script {
	s := script.Script{byte(script.OP_DUP), byte(script.OP_HASH160), 0x14}
	s = append(s, h[:]...)
	s = append(s, byte(script.OP_EQUALVERIFY), byte(script.OP_CHECKSIG))
	return s
}

func withToken(s script.Script, payload []byte) script.Script {
	out := append(script.Script{}, s...)
	out = append(out, byte(script.OP_TOKEN))
	out = append(out, payload...)
	return out
}

func sampleHash(seed byte) [20]byte {
	var h [20]byte
	for i := range h {
		h[i] = seed + byte(i)
	}
	return h
}

func TestIsTokenScriptClassifiesIssue(t *testing.T) {
	h := sampleHash(1)
	payload := tokens.EncodeIssue(tokens.NewToken{Name: "FOO", Amount: amount.COIN, Units: 0, Reissuable: true})
	s := withToken(pubkeyHashScript(h), payload)

	kind, scriptKind, isOwner, ok := tokens.IsTokenScript(s)
	if !ok {
		t.Fatal("expected match")
	}
	if kind != script.NEW_TOKEN {
		t.Fatalf("got kind %v, want NEW_TOKEN", kind)
	}
	if scriptKind != script.PUBKEYHASH {
		t.Fatalf("got script kind %v, want PUBKEYHASH", scriptKind)
	}
	if isOwner {
		t.Fatal("issue payload must not be classified as owner")
	}
}

func TestIsTokenScriptClassifiesOwnerMint(t *testing.T) {
	h := sampleHash(2)
	payload := tokens.EncodeOwner(tokens.OwnerToken{Name: "FOO!"})
	s := withToken(pubkeyHashScript(h), payload)

	kind, _, isOwner, ok := tokens.IsTokenScript(s)
	if !ok || kind != script.NEW_TOKEN {
		t.Fatalf("got kind=%v ok=%v, want NEW_TOKEN", kind, ok)
	}
	if !isOwner {
		t.Fatal("owner-key payload must be classified as owner")
	}
}

func TestIsTokenScriptClassifiesTransferAndReissue(t *testing.T) {
	h := sampleHash(3)

	xferPayload := tokens.EncodeTransfer(tokens.TransferToken{Name: "FOO", Amount: amount.COIN})
	xfer := withToken(pubkeyHashScript(h), xferPayload)
	kind, _, _, ok := tokens.IsTokenScript(xfer)
	if !ok || kind != script.TRANSFER_TOKEN {
		t.Fatalf("got kind=%v ok=%v, want TRANSFER_TOKEN", kind, ok)
	}

	reissuePayload := tokens.EncodeReissue(tokens.ReissueToken{Name: "FOO", Amount: amount.COIN, Units: -1, Reissuable: true})
	reissue := withToken(pubkeyHashScript(h), reissuePayload)
	kind, _, _, ok = tokens.IsTokenScript(reissue)
	if !ok || kind != script.REISSUE_TOKEN {
		t.Fatalf("got kind=%v ok=%v, want REISSUE_TOKEN", kind, ok)
	}
}

func TestIsTokenScriptRejectsNonTokenScript(t *testing.T) {
	h := sampleHash(4)
	_, _, _, ok := tokens.IsTokenScript(pubkeyHashScript(h))
	if ok {
		t.Fatal("a plain P2PKH script must not classify as a token script")
	}
}

func TestTokenFromScriptRoundTrip(t *testing.T) {
	h := sampleHash(5)
	want := tokens.NewToken{Name: "ROOTCOIN", Amount: 1000 * amount.COIN, Units: 2, Reissuable: true}
	s := withToken(pubkeyHashScript(h), tokens.EncodeIssue(want))

	got, dest, kind, err := tokens.TokenFromScript(s)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if kind != script.PUBKEYHASH || !bytes.Equal(dest, h[:]) {
		t.Fatalf("got dest=%x kind=%v, want hash=%x PUBKEYHASH", dest, kind, h)
	}
}

func TestTransferTokenFromScriptRoundTrip(t *testing.T) {
	h := sampleHash(6)
	want := tokens.TransferToken{Name: "FOO/BAR", Amount: 5 * amount.COIN, LockTime: 123}
	s := withToken(pubkeyHashScript(h), tokens.EncodeTransfer(want))

	got, dest, _, err := tokens.TransferTokenFromScript(s)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if !bytes.Equal(dest, h[:]) {
		t.Fatalf("got dest=%x, want %x", dest, h)
	}
}

func TestReissueTokenFromScriptRoundTrip(t *testing.T) {
	h := sampleHash(7)
	want := tokens.ReissueToken{Name: "FOO", Amount: 10 * amount.COIN, Units: -1, Reissuable: false}
	s := withToken(pubkeyHashScript(h), tokens.EncodeReissue(want))

	got, _, _, err := tokens.ReissueTokenFromScript(s)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestOwnerTokenFromScriptRoundTrip(t *testing.T) {
	h := sampleHash(8)
	want := tokens.OwnerToken{Name: "FOO!"}
	s := withToken(pubkeyHashScript(h), tokens.EncodeOwner(want))

	got, _, _, err := tokens.OwnerTokenFromScript(s)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestTokenFromScriptRejectsWrongMarker(t *testing.T) {
	h := sampleHash(9)
	s := withToken(pubkeyHashScript(h), tokens.EncodeTransfer(tokens.TransferToken{Name: "FOO"}))
	if _, _, _, err := tokens.TokenFromScript(s); err == nil {
		t.Fatal("expected an error decoding an issue record from a transfer payload")
	}
}
