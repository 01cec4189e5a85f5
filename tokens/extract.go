package tokens

import (
	"github.com/glyphchain/glyphchaind/script"
)

// IsTokenScript classifies s as a token-bearing output, returning the
// operation kind, the underlying spending template (the kind relevant to
// address extraction), and whether a NEW_TOKEN result is specifically an
// owner-token mint rather than a root/sub/unique/username issuance.
func IsTokenScript(s script.Script) (kind script.TxnOutType, scriptKind script.TxnOutType, isOwner bool, ok bool) {
	res, matched := script.Solve(s)
	if !matched {
		return script.NONSTANDARD, script.NONSTANDARD, false, false
	}
	switch res.Kind {
	case script.NEW_TOKEN, script.TRANSFER_TOKEN, script.REISSUE_TOKEN:
		if res.Kind == script.NEW_TOKEN {
			if _, payload, hasToken := s.TokenBoundary(); hasToken {
				isOwner = script.IsOwnerTokenPayload(payload)
			}
		}
		return res.Kind, res.ScriptKind, isOwner, true
	default:
		return script.NONSTANDARD, res.Kind, false, false
	}
}

// TokenFromScript extracts a NewToken issuance record plus the
// destination bytes (key-hash or script-hash) spending this output
// requires.
func TokenFromScript(s script.Script) (NewToken, []byte, script.TxnOutType, error) {
	_, payload, ok := s.TokenBoundary()
	if !ok {
		return NewToken{}, nil, script.NONSTANDARD, errBadPayload
	}
	t, err := DecodeIssue(payload)
	if err != nil {
		return NewToken{}, nil, script.NONSTANDARD, err
	}
	res, solved := script.Solve(s)
	if !solved || len(res.Solutions) == 0 {
		return t, nil, script.NONSTANDARD, errBadPayload
	}
	return t, res.Solutions[0], res.ScriptKind, nil
}

// OwnerTokenFromScript extracts an OwnerToken mint record plus its
// destination.
func OwnerTokenFromScript(s script.Script) (OwnerToken, []byte, script.TxnOutType, error) {
	_, payload, ok := s.TokenBoundary()
	if !ok {
		return OwnerToken{}, nil, script.NONSTANDARD, errBadPayload
	}
	t, err := DecodeOwner(payload)
	if err != nil {
		return OwnerToken{}, nil, script.NONSTANDARD, err
	}
	res, solved := script.Solve(s)
	if !solved || len(res.Solutions) == 0 {
		return t, nil, script.NONSTANDARD, errBadPayload
	}
	return t, res.Solutions[0], res.ScriptKind, nil
}

// TransferTokenFromScript extracts a TransferToken record plus its
// destination.
func TransferTokenFromScript(s script.Script) (TransferToken, []byte, script.TxnOutType, error) {
	_, payload, ok := s.TokenBoundary()
	if !ok {
		return TransferToken{}, nil, script.NONSTANDARD, errBadPayload
	}
	t, err := DecodeTransfer(payload)
	if err != nil {
		return TransferToken{}, nil, script.NONSTANDARD, err
	}
	res, solved := script.Solve(s)
	if !solved || len(res.Solutions) == 0 {
		return t, nil, script.NONSTANDARD, errBadPayload
	}
	return t, res.Solutions[0], res.ScriptKind, nil
}

// ReissueTokenFromScript extracts a ReissueToken record plus its
// destination.
func ReissueTokenFromScript(s script.Script) (ReissueToken, []byte, script.TxnOutType, error) {
	_, payload, ok := s.TokenBoundary()
	if !ok {
		return ReissueToken{}, nil, script.NONSTANDARD, errBadPayload
	}
	t, err := DecodeReissue(payload)
	if err != nil {
		return ReissueToken{}, nil, script.NONSTANDARD, err
	}
	res, solved := script.Solve(s)
	if !solved || len(res.Solutions) == 0 {
		return t, nil, script.NONSTANDARD, errBadPayload
	}
	return t, res.Solutions[0], res.ScriptKind, nil
}
