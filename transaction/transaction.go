// Package transaction implements the UTXO transaction shape (outpoint,
// input, output, optional witness section) that the rest of the node
// operates on: the mempool's ancestor bookkeeping, the block template
// assembler's package selection, and the token engine's script scanning
// all consume transaction.Tx values.
package transaction

import (
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"

	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/binary"
	"github.com/glyphchain/glyphchaind/util"

	"github.com/zeebo/blake3"
)

// TXID is a transaction's identity hash, taken over the non-witness
// serialization. WTXID (below) additionally commits to witness data.
type TXID [32]byte

func (t TXID) String() string {
	return hex.EncodeToString(t[:])
}

type WTXID [32]byte

func (t WTXID) String() string {
	return hex.EncodeToString(t[:])
}

// witnessFlag is the marker byte pair signaling a witness section is
// present, written immediately after the version and time fields and
// before the input count, matching the network's segregated-witness convention.
var witnessFlag = [2]byte{0x00, 0x01}

// Tx is a UTXO transaction: it spends zero or more previously unspent
// outputs named by Inputs and creates the outputs in Outputs. Coinbase
// and coinstake transactions are ordinary Tx values recognized structurally
// (a single input whose PrevOut is the null outpoint).
type Tx struct {
	Version  uint32
	Time     uint64
	LockTime uint32

	Inputs  []TxIn
	Outputs []TxOut

	// Message is an optional free-form payload (e.g. staking metadata).
	// A nil slice means absent.
	Message []byte
}

// IsCoinBase reports whether tx is the reward-issuing transaction of a
// proof-of-work block: exactly one input, spending the null outpoint.
func (tx *Tx) IsCoinBase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].PrevOut.Index == 0xffffffff && tx.Inputs[0].PrevOut.Hash == ([32]byte{})
}

// HasWitness reports whether any input carries witness data.
func (tx *Tx) HasWitness() bool {
	for _, in := range tx.Inputs {
		if len(in.Witness) > 0 {
			return true
		}
	}
	return false
}

// Serialize writes tx's wire form. When withWitness is true and the
// transaction carries witness data, the witnessFlag marker and per-input
// witness stacks are included; this is what WTXID hashes and what goes
// out over the wire. TXID always hashes the withWitness=false form.
func (tx *Tx) Serialize(withWitness bool) []byte {
	s := binary.NewSer(make([]byte, 0, 256))

	s.AddUint32(tx.Version)
	s.AddUint64(tx.Time)

	hasWitness := withWitness && tx.HasWitness()
	if hasWitness {
		s.AddFixedByteArray(witnessFlag[:])
	}

	s.AddUvarint(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		in.Serialize(&s)
	}

	s.AddUvarint(uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		out.Serialize(&s)
	}

	if hasWitness {
		for _, in := range tx.Inputs {
			in.serializeWitness(&s)
		}
	}

	s.AddUint32(tx.LockTime)
	s.AddByteSlice(tx.Message)

	return s.Output()
}

// Deserialize reads the wire form written by Serialize, detecting the
// witness flag on its own.
func (tx *Tx) Deserialize(data []byte) error {
	d := binary.NewDes(data)

	tx.Version = d.ReadUint32()
	tx.Time = d.ReadUint64()

	hasWitness := false
	if len(d.RemainingData()) >= 2 && d.RemainingData()[0] == witnessFlag[0] && d.RemainingData()[1] == witnessFlag[1] {
		d.ReadFixedByteArray(2)
		hasWitness = true
	}

	nin := d.ReadUvarint()
	tx.Inputs = make([]TxIn, nin)
	for i := range tx.Inputs {
		tx.Inputs[i].Deserialize(&d)
	}

	nout := d.ReadUvarint()
	tx.Outputs = make([]TxOut, nout)
	for i := range tx.Outputs {
		tx.Outputs[i].Deserialize(&d)
	}

	if hasWitness {
		for i := range tx.Inputs {
			tx.Inputs[i].deserializeWitness(&d)
		}
	}

	tx.LockTime = d.ReadUint32()
	tx.Message = d.ReadByteSlice()

	return d.Error()
}

// Txid is the identity hash used by outpoints, the mempool, and the
// block's transaction list: it never commits to witness data, so
// replacing a witness in place does not change a transaction's identity.
func (tx *Tx) Txid() TXID {
	return blake3.Sum256(tx.Serialize(false))
}

// Wtxid additionally commits to witness data; it equals Txid when the
// transaction carries none.
func (tx *Tx) Wtxid() WTXID {
	return blake3.Sum256(tx.Serialize(true))
}

// VSize is the transaction's virtual size in weight units / 4, the unit
// block-template packaging budgets against.
func (tx *Tx) VSize() int64 {
	legacy := int64(len(tx.Serialize(false)))
	full := int64(len(tx.Serialize(true)))
	witnessBytes := full - legacy
	weight := legacy*4 + witnessBytes
	return (weight + 3) / 4
}

// TotalOut sums the transaction's output amounts, failing if any single
// output or the running total falls outside the money range.
func (tx *Tx) TotalOut() (amount.Amount, error) {
	var total amount.Amount
	for _, out := range tx.Outputs {
		if !out.Amount.IsMoneyRange() {
			return 0, errors.New("output amount out of range")
		}
		sum, err := amount.Add(total, out.Amount)
		if err != nil {
			return 0, errors.Wrap(err, "output total overflow")
		}
		total = sum
	}
	if !total.IsMoneyRange() {
		return 0, errors.New("output total out of range")
	}
	return total, nil
}

// CheckStructure performs the basic, context-free checks every
// transaction must pass regardless of chain state: non-empty input/output
// lists, in-range output amounts, no duplicate or null (outside coinbase)
// outpoints, and a sane coinbase scriptSig length.
func (tx *Tx) CheckStructure() error {
	if len(tx.Inputs) == 0 {
		return errors.New("bad-txns-vin-empty")
	}
	if len(tx.Outputs) == 0 {
		return errors.New("bad-txns-vout-empty")
	}

	if _, err := tx.TotalOut(); err != nil {
		return err
	}

	if tx.IsCoinBase() {
		n := len(tx.Inputs[0].ScriptSig)
		if n < 2 || n > 100 {
			return errors.New("bad-cb-length")
		}
		return nil
	}

	seen := make(map[Outpoint]struct{}, len(tx.Inputs))
	nullOutpoint := Outpoint{}
	for _, in := range tx.Inputs {
		if in.PrevOut == nullOutpoint {
			return errors.New("bad-txns-prevout-null")
		}
		if _, dup := seen[in.PrevOut]; dup {
			return errors.New("bad-txns-inputs-duplicate")
		}
		seen[in.PrevOut] = struct{}{}
	}

	return nil
}

func (tx *Tx) String() string {
	txid := tx.Txid()
	o := "Transaction " + txid.String() + "\n"
	o += fmt.Sprintf(" Version: %d\n", tx.Version)
	o += " VSize: " + util.FormatInt(tx.VSize()) + "; physical size: " + util.FormatInt(int64(len(tx.Serialize(true)))) + "\n"
	o += fmt.Sprintf(" Inputs: %d, Outputs: %d\n", len(tx.Inputs), len(tx.Outputs))
	if tx.HasWitness() {
		wtxid := tx.Wtxid()
		o += " Wtxid: " + wtxid.String() + "\n"
	}
	total, err := tx.TotalOut()
	if err == nil {
		o += " Total output: " + util.FormatInt(int64(total)) + "\n"
	}
	o += " LockTime: " + util.FormatInt(int64(tx.LockTime))
	return o
}

// DeserializeTx is a convenience constructor mirroring the package's
// Deserialize-method idiom.
func DeserializeTx(data []byte) (*Tx, error) {
	tx := &Tx{}
	if err := tx.Deserialize(data); err != nil {
		return nil, err
	}
	return tx, nil
}
