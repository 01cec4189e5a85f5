package script

import "bytes"

import "testing"

func pubkeyHashScript(h [20]byte) Script {
	s := Script{byte(OP_DUP), byte(OP_HASH160), 0x14}
	s = append(s, h[:]...)
	s = append(s, byte(OP_EQUALVERIFY), byte(OP_CHECKSIG))
	return s
}

func TestSolvePubkeyHash(t *testing.T) {
	var h [20]byte
	for i := range h {
		h[i] = byte(i + 1)
	}
	res, ok := Solve(pubkeyHashScript(h))
	if !ok {
		t.Fatal("expected match")
	}
	if res.Kind != PUBKEYHASH {
		t.Fatalf("got kind %v, want PUBKEYHASH", res.Kind)
	}
	if !bytes.Equal(res.Solutions[0], h[:]) {
		t.Fatalf("got hash %x, want %x", res.Solutions[0], h)
	}
}

func TestSolvePayToScriptHash(t *testing.T) {
	var h [20]byte
	for i := range h {
		h[i] = byte(i)
	}
	s := Script{byte(OP_HASH160), 0x14}
	s = append(s, h[:]...)
	s = append(s, byte(OP_EQUAL))

	res, ok := Solve(s)
	if !ok || res.Kind != SCRIPTHASH {
		t.Fatalf("expected SCRIPTHASH match, got %v ok=%v", res.Kind, ok)
	}
}

func TestSolveTokenBoundaryPreservesDestination(t *testing.T) {
	var h [20]byte
	for i := range h {
		h[i] = byte(i + 5)
	}
	s := pubkeyHashScript(h)
	s = append(s, byte(OP_TOKEN), TokenMarkerIssue)
	s = append(s, []byte("payload")...)

	res, ok := Solve(s)
	if !ok {
		t.Fatal("expected match")
	}
	if res.Kind != NEW_TOKEN {
		t.Fatalf("got kind %v, want NEW_TOKEN", res.Kind)
	}
	if res.ScriptKind != PUBKEYHASH {
		t.Fatalf("got script kind %v, want PUBKEYHASH", res.ScriptKind)
	}
	if !bytes.Equal(res.Solutions[0], h[:]) {
		t.Fatalf("got hash %x, want %x", res.Solutions[0], h)
	}
}

func TestIsWitnessProgram(t *testing.T) {
	program := make([]byte, 20)
	s := Script{byte(OP_0), 0x14}
	s = append(s, program...)

	res, ok := Solve(s)
	if !ok || res.Kind != WITNESS_V0_KEYHASH {
		t.Fatalf("expected WITNESS_V0_KEYHASH, got %v ok=%v", res.Kind, ok)
	}
}

func TestOfflineStaking(t *testing.T) {
	var stake, spend [20]byte
	for i := range stake {
		stake[i] = byte(i + 1)
		spend[i] = byte(i + 100)
	}

	s := Script{byte(OP_IF)}
	s = append(s, pubkeyHashScript(stake)...)
	s = append(s, byte(OP_ELSE))
	s = append(s, pubkeyHashScript(spend)...)
	s = append(s, byte(OP_ENDIF))

	res, ok := Solve(s)
	if !ok || res.Kind != OFFLINE_STAKING {
		t.Fatalf("expected OFFLINE_STAKING, got %v ok=%v", res.Kind, ok)
	}
	if !bytes.Equal(res.Solutions[0], stake[:]) || !bytes.Equal(res.Solutions[1], spend[:]) {
		t.Fatal("stake/spend key hashes mismatch")
	}
}
