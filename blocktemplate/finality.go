package blocktemplate

import "github.com/glyphchain/glyphchaind/transaction"

// sequenceFinal is the input sequence value meaning "no relative-locktime
// constraint on this input", matching the original's CTxIn::SEQUENCE_FINAL.
const sequenceFinal = 0xffffffff

// lockTimeThreshold separates a LockTime interpreted as a block height
// from one interpreted as a unix timestamp: values below it are heights.
const lockTimeThreshold = 500_000_000

// isFinal reports whether tx is final at the given height/lockTimeCutoff
// pair and may be included in a block there. A LockTime of zero is always
// final, and so is one below whichever of height or lockTimeCutoff
// applies; any other tx is final only if every input's Sequence is
// sequenceFinal.
func isFinal(tx *transaction.Tx, height uint32, lockTimeCutoff uint32) bool {
	if tx.LockTime == 0 {
		return true
	}
	threshold := height
	if tx.LockTime >= lockTimeThreshold {
		threshold = lockTimeCutoff
	}
	if tx.LockTime < threshold {
		return true
	}
	for _, in := range tx.Inputs {
		if in.Sequence != sequenceFinal {
			return false
		}
	}
	return true
}
