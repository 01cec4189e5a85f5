// Package script implements the opcode-level transaction script bytes, the
// Destination taxonomy, and the ordered template solver described for the
// core's C1 component. It also locates (without parsing) the reserved
// opcode boundary that separates a script's spending template from an
// embedded token operation, so the token engine (package tokens) can parse
// the remainder without re-implementing script iteration.
package script

// Script is a raw sequence of script opcodes/pushdata, exactly as it
// appears in a transaction output.
type Script []byte

// GetOp reads a single opcode (and, for push opcodes, its data) starting at
// *pc, advancing *pc past it. ok is false once pc reaches the end of the
// script or the script is malformed (a push opcode claiming more bytes
// than remain).
func (s Script) GetOp(pc *int) (op Opcode, data []byte, ok bool) {
	if *pc >= len(s) {
		return 0, nil, false
	}
	op = Opcode(s[*pc])
	*pc++

	switch {
	case op <= 0x4b: // direct push of op bytes of data
		n := int(op)
		if *pc+n > len(s) {
			return 0, nil, false
		}
		data = s[*pc : *pc+n]
		*pc += n
	case op == OP_PUSHDATA1:
		if *pc+1 > len(s) {
			return 0, nil, false
		}
		n := int(s[*pc])
		*pc++
		if *pc+n > len(s) {
			return 0, nil, false
		}
		data = s[*pc : *pc+n]
		*pc += n
	case op == OP_PUSHDATA2:
		if *pc+2 > len(s) {
			return 0, nil, false
		}
		n := int(s[*pc]) | int(s[*pc+1])<<8
		*pc += 2
		if *pc+n > len(s) {
			return 0, nil, false
		}
		data = s[*pc : *pc+n]
		*pc += n
	case op == OP_PUSHDATA4:
		if *pc+4 > len(s) {
			return 0, nil, false
		}
		n := int(s[*pc]) | int(s[*pc+1])<<8 | int(s[*pc+2])<<16 | int(s[*pc+3])<<24
		*pc += 4
		if *pc+n > len(s) {
			return 0, nil, false
		}
		data = s[*pc : *pc+n]
		*pc += n
	}

	return op, data, true
}

// IsPushOnly reports whether every opcode from offset pc onward is a data
// push (used to recognize OP_RETURN-carried data outputs).
func (s Script) IsPushOnly(pc int) bool {
	for pc < len(s) {
		op, _, ok := s.GetOp(&pc)
		if !ok {
			return false
		}
		if op > OP_16 {
			return false
		}
	}
	return true
}

// IsPayToScriptHash reports whether s is exactly
// OP_HASH160 <20 bytes> OP_EQUAL.
func (s Script) IsPayToScriptHash() bool {
	return len(s) == 23 &&
		Opcode(s[0]) == OP_HASH160 &&
		s[1] == 0x14 &&
		Opcode(s[22]) == OP_EQUAL
}

// IsWitnessProgram reports whether s is a witness program: a small-integer
// version opcode followed by a single push of 2 to 40 bytes that consumes
// the rest of the script.
func (s Script) IsWitnessProgram() (version int, program []byte, ok bool) {
	if len(s) < 4 || len(s) > 42 {
		return 0, nil, false
	}
	n := DecodeOpN(Opcode(s[0]))
	if n < 0 {
		return 0, nil, false
	}
	pushLen := int(s[1])
	if pushLen < 2 || pushLen > 40 {
		return 0, nil, false
	}
	if len(s) != 2+pushLen {
		return 0, nil, false
	}
	return n, s[2:], true
}

// IsOfflineStaking reports whether s follows the two-branch offline-staking
// form: OP_IF <pay-to-pubkeyhash to stakeKeyHash> OP_ELSE <pay-to-pubkeyhash
// to spendKeyHash> OP_ENDIF. The IF branch authorizes staking-only spends by
// the staking key; the ELSE branch authorizes a full spend by the owner.
func (s Script) IsOfflineStaking() (stakeKeyHash, spendKeyHash []byte, ok bool) {
	pc := 0
	op, _, k := s.GetOp(&pc)
	if !k || op != OP_IF {
		return nil, nil, false
	}

	stakeKeyHash, pc2, k := parsePubkeyHashBranch(s, pc)
	if !k {
		return nil, nil, false
	}
	pc = pc2

	op, _, k = s.GetOp(&pc)
	if !k || op != OP_ELSE {
		return nil, nil, false
	}

	spendKeyHash, pc2, k = parsePubkeyHashBranch(s, pc)
	if !k {
		return nil, nil, false
	}
	pc = pc2

	op, _, k = s.GetOp(&pc)
	if !k || op != OP_ENDIF {
		return nil, nil, false
	}

	return stakeKeyHash, spendKeyHash, true
}

// parsePubkeyHashBranch reads OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY
// OP_CHECKSIG starting at pc, returning the hash and the new pc.
func parsePubkeyHashBranch(s Script, pc int) ([]byte, int, bool) {
	op, _, ok := s.GetOp(&pc)
	if !ok || op != OP_DUP {
		return nil, pc, false
	}
	op, _, ok = s.GetOp(&pc)
	if !ok || op != OP_HASH160 {
		return nil, pc, false
	}
	_, data, ok := s.GetOp(&pc)
	if !ok || len(data) != 20 {
		return nil, pc, false
	}
	op, _, ok = s.GetOp(&pc)
	if !ok || op != OP_EQUALVERIFY {
		return nil, pc, false
	}
	op, _, ok = s.GetOp(&pc)
	if !ok || op != OP_CHECKSIG {
		return nil, pc, false
	}
	return data, pc, true
}

// TokenBoundary scans s for the reserved OP_TOKEN marker appearing as an
// opcode (not as pushed data) and reports its position. The bytes before
// the marker are the ordinary spending template (solved via Solve); the
// bytes after it are the token payload, parsed by package tokens. ok is
// false if the script carries no token operation.
func (s Script) TokenBoundary() (destTemplate Script, payload []byte, ok bool) {
	pc := 0
	for pc < len(s) {
		start := pc
		op, _, k := s.GetOp(&pc)
		if !k {
			return nil, nil, false
		}
		if op == OP_TOKEN {
			return s[:start], s[pc:], true
		}
	}
	return nil, nil, false
}
