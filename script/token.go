package script

// Token payload marker bytes, the first byte following the OP_TOKEN
// boundary. These are carried over from the original chain's single-byte
// taxonomy (TOKEN_AOK/TOKEN_LOCAL/TOKEN_PAYMENT/TOKEN_ISSUE/TOKEN_TRANSFER/
// TOKEN_OWNER_KEY in tokens.h) so SPEC_FULL's opcode-marker recognition is
// concrete rather than merely described.
const (
	TokenMarkerAok      byte = 97  // 'a': not classified as a token operation
	TokenMarkerLocal    byte = 108 // 'l': reserved for chain-local tokens
	TokenMarkerPayment  byte = 112 // 'p': reserved for payment-channel use
	TokenMarkerIssue    byte = 113 // 'q': new-token issuance
	TokenMarkerTransfer byte = 116 // 't': transfer-token
	TokenMarkerOwnerKey byte = 111 // 'o': owner-token mint
	TokenMarkerReissue  byte = 114 // 'r': reissue-token
)

// classifyTokenPayload inspects the marker byte of a token payload (the
// bytes immediately following the OP_TOKEN boundary) and reports which
// TxnOutType it represents. Owner-token outputs are reported as NEW_TOKEN
// since minting an owner token is a side effect of issuance, not a
// distinct spendable kind; callers that need to distinguish it use
// IsOwnerTokenPayload below.
func classifyTokenPayload(payload []byte) (TxnOutType, bool) {
	if len(payload) == 0 {
		return NONSTANDARD, false
	}
	switch payload[0] {
	case TokenMarkerIssue, TokenMarkerOwnerKey:
		return NEW_TOKEN, true
	case TokenMarkerTransfer:
		return TRANSFER_TOKEN, true
	case TokenMarkerReissue:
		return REISSUE_TOKEN, true
	default:
		return NONSTANDARD, false
	}
}

// IsOwnerTokenPayload reports whether a token payload's marker byte is the
// owner-token mint marker, as opposed to a root/sub/unique/username issue.
func IsOwnerTokenPayload(payload []byte) bool {
	return len(payload) > 0 && payload[0] == TokenMarkerOwnerKey
}
