package transaction

import (
	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/binary"
	"github.com/glyphchain/glyphchaind/script"
)

// TxIn spends a previously unspent output. ScriptSig carries the
// pre-segwit unlocking script; Witness carries the stack for witness
// programs and is never part of the legacy (non-witness) serialization.
type TxIn struct {
	PrevOut   Outpoint
	ScriptSig script.Script
	Sequence  uint32
	Witness   [][]byte
}

func (in TxIn) Serialize(s *binary.Ser) {
	in.PrevOut.Serialize(s)
	s.AddByteSlice(in.ScriptSig)
	s.AddUint32(in.Sequence)
}

func (in *TxIn) Deserialize(d *binary.Des) {
	in.PrevOut.Deserialize(d)
	in.ScriptSig = script.Script(d.ReadByteSlice())
	in.Sequence = d.ReadUint32()
}

func (in TxIn) serializeWitness(s *binary.Ser) {
	s.AddUvarint(uint64(len(in.Witness)))
	for _, item := range in.Witness {
		s.AddByteSlice(item)
	}
}

func (in *TxIn) deserializeWitness(d *binary.Des) {
	n := d.ReadUvarint()
	in.Witness = make([][]byte, n)
	for i := range in.Witness {
		in.Witness[i] = d.ReadByteSlice()
	}
}

// TxOut is a single unit of spendable value locked by a script. LockTime,
// when non-zero, additionally restricts spending the same way CLTV
// scripts do, for outputs whose script itself doesn't encode one.
type TxOut struct {
	Amount   amount.Amount
	Script   script.Script
	LockTime uint32
}

func (out TxOut) Serialize(s *binary.Ser) {
	s.AddUint64(uint64(out.Amount))
	s.AddByteSlice(out.Script)
	s.AddUint32(out.LockTime)
}

func (out *TxOut) Deserialize(d *binary.Des) {
	out.Amount = amount.Amount(d.ReadUint64())
	out.Script = script.Script(d.ReadByteSlice())
	out.LockTime = d.ReadUint32()
}
