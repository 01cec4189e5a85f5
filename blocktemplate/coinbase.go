package blocktemplate

import (
	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/script"
	"github.com/glyphchain/glyphchaind/transaction"
)

// BuildCoinbase returns the reward-issuing transaction for height: a
// single input spending the null outpoint with the height minimally
// pushed into scriptSig, and a single output. For a PoW block the output
// carries fees+subsidy to coinbaseScript; for a PoS block the output is
// left empty, since the stake reward is paid out by the coinstake
// transaction instead.
func BuildCoinbase(height uint32, fees amount.Amount, subsidy amount.Amount, coinbaseScript script.Script, proofOfStake bool) *transaction.Tx {
	var out transaction.TxOut
	if !proofOfStake {
		out = transaction.TxOut{Amount: fees + subsidy, Script: coinbaseScript}
	}

	sigScript := append(script.Script{}, encodeHeightPush(height)...)
	sigScript = append(sigScript, byte(script.OP_0))

	return &transaction.Tx{
		Version: 1,
		Inputs: []transaction.TxIn{{
			PrevOut:   transaction.Outpoint{Index: 0xffffffff},
			ScriptSig: sigScript,
			Sequence:  sequenceFinal,
		}},
		Outputs: []transaction.TxOut{out},
	}
}

// BuildCoinstakePlaceholder returns the coinstake transaction shape a PoS
// template reserves at index 1: an empty marker output at index 0 and the
// reward destination at index 1. Its actual stake input, amount, and
// signature are filled in later by the staking signer, outside C5's
// scope.
func BuildCoinstakePlaceholder(coinstakeScript script.Script) *transaction.Tx {
	return &transaction.Tx{
		Version: 1,
		Inputs: []transaction.TxIn{{
			PrevOut:  transaction.Outpoint{Index: 0xffffffff},
			Sequence: sequenceFinal,
		}},
		Outputs: []transaction.TxOut{
			{},
			{Script: coinstakeScript},
		},
	}
}

// encodeHeightPush returns the minimal script push of height, the same
// shape as the original's `CScript() << nHeight`.
func encodeHeightPush(height uint32) []byte {
	if height == 0 {
		return []byte{byte(script.OP_0)}
	}
	if height <= 16 {
		return []byte{byte(script.OP_1) + byte(height) - 1}
	}
	num := encodeScriptNum(int64(height))
	return append([]byte{byte(len(num))}, num...)
}

// encodeScriptNum writes n as a little-endian, sign-magnitude, minimally
// sized byte string — the push format CLTV-style script numbers use, and
// the inverse of the encoding the script package's destination solver
// already knows how to read back.
func encodeScriptNum(n int64) []byte {
	if n == 0 {
		return nil
	}
	neg := n < 0
	abs := n
	if neg {
		abs = -abs
	}
	var b []byte
	for abs > 0 {
		b = append(b, byte(abs&0xff))
		abs >>= 8
	}
	if b[len(b)-1]&0x80 != 0 {
		if neg {
			b = append(b, 0x80)
		} else {
			b = append(b, 0x00)
		}
	} else if neg {
		b[len(b)-1] |= 0x80
	}
	return b
}
