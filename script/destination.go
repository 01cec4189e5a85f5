package script

import "github.com/glyphchain/glyphchaind/bitcrypto"

// TxnOutType classifies a script template, independently of whether that
// template also carries an embedded token operation.
type TxnOutType int

const (
	NONSTANDARD TxnOutType = iota
	CLTV
	PUBKEY
	PUBKEYHASH
	SCRIPTHASH
	MULTISIG
	NULL_DATA
	WITNESS_V0_KEYHASH
	WITNESS_V0_SCRIPTHASH
	OFFLINE_STAKING
	NEW_TOKEN
	TRANSFER_TOKEN
	REISSUE_TOKEN
)

func (t TxnOutType) String() string {
	switch t {
	case NONSTANDARD:
		return "nonstandard"
	case CLTV:
		return "cltv"
	case PUBKEY:
		return "pubkey"
	case PUBKEYHASH:
		return "pubkeyhash"
	case SCRIPTHASH:
		return "scripthash"
	case MULTISIG:
		return "multisig"
	case NULL_DATA:
		return "nulldata"
	case WITNESS_V0_KEYHASH:
		return "witness_v0_keyhash"
	case WITNESS_V0_SCRIPTHASH:
		return "witness_v0_scripthash"
	case OFFLINE_STAKING:
		return "offline_staking"
	case NEW_TOKEN:
		return "new_token"
	case TRANSFER_TOKEN:
		return "transfer_token"
	case REISSUE_TOKEN:
		return "reissue_token"
	default:
		return "unknown"
	}
}

// DestKind identifies which variant of Destination is populated.
type DestKind int

const (
	DestNull DestKind = iota
	DestP2PK
	DestP2PKH
	DestP2SH
	DestP2WPKH
	DestP2WSH
	DestCLTV
	DestOfflineStake
)

// Destination is a tagged variant over the spendable-destination shapes the
// solver can produce. Only the fields relevant to Kind are populated.
type Destination struct {
	Kind DestKind

	Pubkey bitcrypto.Pubkey // DestP2PK

	KeyHash    bitcrypto.Hash160 // DestP2PKH, DestCLTV (spend key)
	ScriptHash bitcrypto.Hash160 // DestP2SH

	WitnessProgram []byte // DestP2WPKH (20 bytes), DestP2WSH (32 bytes)

	LockTime int64 // DestCLTV

	StakeKeyHash bitcrypto.Hash160 // DestOfflineStake
	SpendKeyHash bitcrypto.Hash160 // DestOfflineStake
}

// SolveResult is the solver's output: the recognized kind, the script-kind
// used for address extraction (equal to Kind except for token scripts,
// where ScriptKind names the underlying spending template), and the raw
// solutions the template produced (pubkeys, hashes, m/n counts).
type SolveResult struct {
	Kind       TxnOutType
	ScriptKind TxnOutType
	Solutions  [][]byte
}

// the small template list, tried in declaration order after the
// unambiguous shortcuts (P2SH, token marker, witness program, offline
// staking) have all failed to match.
var standardTemplates = []TxnOutType{PUBKEY, PUBKEYHASH, MULTISIG, CLTV}

// Solve decomposes scriptPubKey into (kind, scriptKind, solutions) per the
// strictly ordered rules: P2SH takes precedence, then the reserved token
// opcode marker, then witness-version-byte programs, then the two-branch
// offline-staking form, then the small template list.
func Solve(scriptPubKey Script) (SolveResult, bool) {
	if scriptPubKey.IsPayToScriptHash() {
		var h bitcrypto.Hash160
		copy(h[:], scriptPubKey[2:22])
		return SolveResult{Kind: SCRIPTHASH, ScriptKind: SCRIPTHASH, Solutions: [][]byte{h[:]}}, true
	}

	if destTemplate, payload, ok := scriptPubKey.TokenBoundary(); ok {
		res, matched := Solve(destTemplate)
		if !matched {
			return SolveResult{}, false
		}
		tokenKind, tokenOk := classifyTokenPayload(payload)
		if !tokenOk {
			return SolveResult{}, false
		}
		return SolveResult{Kind: tokenKind, ScriptKind: res.Kind, Solutions: res.Solutions}, true
	}

	if version, program, ok := scriptPubKey.IsWitnessProgram(); ok {
		if version == 0 && len(program) == 20 {
			return SolveResult{Kind: WITNESS_V0_KEYHASH, ScriptKind: WITNESS_V0_KEYHASH, Solutions: [][]byte{program}}, true
		}
		if version == 0 && len(program) == 32 {
			return SolveResult{Kind: WITNESS_V0_SCRIPTHASH, ScriptKind: WITNESS_V0_SCRIPTHASH, Solutions: [][]byte{program}}, true
		}
		return SolveResult{}, false
	}

	if stakeHash, spendHash, ok := scriptPubKey.IsOfflineStaking(); ok {
		return SolveResult{Kind: OFFLINE_STAKING, ScriptKind: OFFLINE_STAKING, Solutions: [][]byte{stakeHash, spendHash}}, true
	}

	if len(scriptPubKey) >= 1 && Opcode(scriptPubKey[0]) == OP_RETURN && scriptPubKey.IsPushOnly(1) {
		return SolveResult{Kind: NULL_DATA, ScriptKind: NULL_DATA}, true
	}

	for _, kind := range standardTemplates {
		if sols, ok := matchTemplate(kind, scriptPubKey); ok {
			return SolveResult{Kind: kind, ScriptKind: kind, Solutions: sols}, true
		}
	}

	return SolveResult{Kind: NONSTANDARD, ScriptKind: NONSTANDARD}, false
}

// matchTemplate implements the handful of fixed shapes the original
// multimap-of-templates loop matched: PUBKEY, PUBKEYHASH, MULTISIG, CLTV.
func matchTemplate(kind TxnOutType, s Script) ([][]byte, bool) {
	switch kind {
	case PUBKEY:
		pc := 0
		_, data, ok := s.GetOp(&pc)
		if !ok || len(data) < 33 || len(data) > 65 {
			return nil, false
		}
		op, _, ok := s.GetOp(&pc)
		if !ok || op != OP_CHECKSIG || pc != len(s) {
			return nil, false
		}
		return [][]byte{data}, true

	case PUBKEYHASH:
		pc := 0
		op, _, ok := s.GetOp(&pc)
		if !ok || op != OP_DUP {
			return nil, false
		}
		op, _, ok = s.GetOp(&pc)
		if !ok || op != OP_HASH160 {
			return nil, false
		}
		_, data, ok := s.GetOp(&pc)
		if !ok || len(data) != 20 {
			return nil, false
		}
		op, _, ok = s.GetOp(&pc)
		if !ok || op != OP_EQUALVERIFY {
			return nil, false
		}
		op, _, ok = s.GetOp(&pc)
		if !ok || op != OP_CHECKSIG || pc != len(s) {
			return nil, false
		}
		return [][]byte{data}, true

	case CLTV:
		pc := 0
		_, lockTime, ok := s.GetOp(&pc)
		if !ok {
			return nil, false
		}
		op, _, ok := s.GetOp(&pc)
		if !ok || op != OP_CHECKLOCKTIMEVERIFY {
			return nil, false
		}
		op, _, ok = s.GetOp(&pc)
		if !ok || op != OP_DROP {
			return nil, false
		}
		op, _, ok = s.GetOp(&pc)
		if !ok || op != OP_DUP {
			return nil, false
		}
		op, _, ok = s.GetOp(&pc)
		if !ok || op != OP_HASH160 {
			return nil, false
		}
		_, keyHash, ok := s.GetOp(&pc)
		if !ok || len(keyHash) != 20 {
			return nil, false
		}
		op, _, ok = s.GetOp(&pc)
		if !ok || op != OP_EQUALVERIFY {
			return nil, false
		}
		op, _, ok = s.GetOp(&pc)
		if !ok || op != OP_CHECKSIG || pc != len(s) {
			return nil, false
		}
		return [][]byte{lockTime, keyHash}, true

	case MULTISIG:
		pc := 0
		op, _, ok := s.GetOp(&pc)
		m := DecodeOpN(op)
		if !ok || m < 1 {
			return nil, false
		}

		var pubkeys [][]byte
		var nOp Opcode
		for {
			op2, data, ok2 := s.GetOp(&pc)
			if !ok2 {
				return nil, false
			}
			if len(data) >= 33 && len(data) <= 65 {
				pubkeys = append(pubkeys, data)
				continue
			}
			nOp = op2
			break
		}

		n := DecodeOpN(nOp)
		if n < 1 || len(pubkeys) != n || m > n {
			return nil, false
		}

		op3, _, ok3 := s.GetOp(&pc)
		if !ok3 || op3 != OP_CHECKMULTISIG || pc != len(s) {
			return nil, false
		}

		sols := append([][]byte{{byte(m)}}, pubkeys...)
		sols = append(sols, []byte{byte(n)})
		return sols, true
	}
	return nil, false
}

// ExtractDestination reduces a solver result to a single spendable
// Destination. For token-operation kinds, callers should already have used
// the token extractors (package tokens) before caring about the spending
// destination; this just resolves the underlying script kind.
func ExtractDestination(res SolveResult) (Destination, bool) {
	switch res.ScriptKind {
	case PUBKEY:
		var pk bitcrypto.Pubkey
		copy(pk[:], res.Solutions[0])
		return Destination{Kind: DestP2PK, Pubkey: pk}, true
	case PUBKEYHASH:
		var h bitcrypto.Hash160
		copy(h[:], res.Solutions[0])
		return Destination{Kind: DestP2PKH, KeyHash: h}, true
	case SCRIPTHASH:
		var h bitcrypto.Hash160
		copy(h[:], res.Solutions[0])
		return Destination{Kind: DestP2SH, ScriptHash: h}, true
	case WITNESS_V0_KEYHASH:
		return Destination{Kind: DestP2WPKH, WitnessProgram: res.Solutions[0]}, true
	case WITNESS_V0_SCRIPTHASH:
		return Destination{Kind: DestP2WSH, WitnessProgram: res.Solutions[0]}, true
	case CLTV:
		var h bitcrypto.Hash160
		copy(h[:], res.Solutions[1])
		lt, _ := decodeScriptNum(res.Solutions[0])
		return Destination{Kind: DestCLTV, KeyHash: h, LockTime: lt}, true
	case OFFLINE_STAKING:
		var stake, spend bitcrypto.Hash160
		copy(stake[:], res.Solutions[0])
		copy(spend[:], res.Solutions[1])
		return Destination{Kind: DestOfflineStake, StakeKeyHash: stake, SpendKeyHash: spend}, true
	default:
		return Destination{Kind: DestNull}, false
	}
}

// decodeScriptNum interprets a little-endian, sign-magnitude variable-width
// script number, the CLTV opcode's native integer encoding.
func decodeScriptNum(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, true
	}
	if len(b) > 8 {
		return 0, false
	}
	var result int64
	for i, v := range b {
		result |= int64(v) << (8 * i)
	}
	if b[len(b)-1]&0x80 != 0 {
		result &^= int64(0x80) << (8 * (len(b) - 1))
		result = -result
	}
	return result, true
}
