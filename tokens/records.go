package tokens

import (
	"github.com/pkg/errors"

	"github.com/glyphchain/glyphchaind/amount"
	"github.com/glyphchain/glyphchaind/binary"
	"github.com/glyphchain/glyphchaind/script"
)

// MaxUnit is the highest number of decimal units a token may carry.
const MaxUnit = 8

// OwnerUnits and OwnerAmount are the fixed unit/amount an owner token is
// always minted with — it represents control, not a divisible quantity.
const OwnerUnits = 0

var OwnerAmount = amount.COIN

// NewToken is the record embedded in a ROOT/SUB/UNIQUE/USERNAME issuance
// output.
type NewToken struct {
	Name       string
	Amount     amount.Amount
	Units      int8
	Reissuable bool
}

func (t NewToken) serialize(s *binary.Ser) {
	s.AddString(t.Name)
	s.AddUint64(uint64(t.Amount))
	s.AddUint8(uint8(t.Units))
	s.AddUint8(boolToByte(t.Reissuable))
}

func (t *NewToken) deserialize(d *binary.Des) {
	t.Name = d.ReadString()
	t.Amount = amount.Amount(d.ReadUint64())
	t.Units = int8(d.ReadUint8())
	t.Reissuable = d.ReadUint8() != 0
}

// OwnerToken is the record embedded in the owner-token mint output that
// accompanies every ROOT/SUB issuance.
type OwnerToken struct {
	Name string
}

func (t OwnerToken) serialize(s *binary.Ser) {
	s.AddString(t.Name)
}

func (t *OwnerToken) deserialize(d *binary.Des) {
	t.Name = d.ReadString()
}

// TransferToken is the record embedded in a transfer output, optionally
// bound by a token-specific lock time distinct from the transaction's own.
type TransferToken struct {
	Name     string
	Amount   amount.Amount
	LockTime uint32
}

func (t TransferToken) serialize(s *binary.Ser) {
	s.AddString(t.Name)
	s.AddUint64(uint64(t.Amount))
	s.AddUint32(t.LockTime)
}

func (t *TransferToken) deserialize(d *binary.Des) {
	t.Name = d.ReadString()
	t.Amount = amount.Amount(d.ReadUint64())
	t.LockTime = d.ReadUint32()
}

// ReissueToken is the record embedded in a reissue output: an additive
// amount increase plus monotonic unit/reissuable adjustments.
type ReissueToken struct {
	Name       string
	Amount     amount.Amount
	Units      int8
	Reissuable bool
}

func (t ReissueToken) serialize(s *binary.Ser) {
	s.AddString(t.Name)
	s.AddUint64(uint64(t.Amount))
	s.AddUint8(uint8(t.Units))
	s.AddUint8(boolToByte(t.Reissuable))
}

func (t *ReissueToken) deserialize(d *binary.Des) {
	t.Name = d.ReadString()
	t.Amount = amount.Amount(d.ReadUint64())
	t.Units = int8(d.ReadUint8())
	t.Reissuable = d.ReadUint8() != 0
}

var errBadPayload = errors.New("tokens: malformed token payload")

// boolToByte is used in place of binary.Ser's AddBool/Des's ReadBool pair,
// whose encodings don't agree with each other (AddBool writes 0 for true,
// ReadBool only accepts 1 for true) — see DESIGN.md.
func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// EncodeIssue builds the marker+payload bytes placed after a script's
// OP_TOKEN boundary for a new ROOT/SUB/UNIQUE/USERNAME issuance.
func EncodeIssue(t NewToken) []byte {
	s := binary.NewSer(nil)
	s.AddUint8(script.TokenMarkerIssue)
	t.serialize(&s)
	return s.Output()
}

// EncodeOwner builds the marker+payload bytes for an owner-token mint.
func EncodeOwner(t OwnerToken) []byte {
	s := binary.NewSer(nil)
	s.AddUint8(script.TokenMarkerOwnerKey)
	t.serialize(&s)
	return s.Output()
}

// EncodeTransfer builds the marker+payload bytes for a transfer output.
func EncodeTransfer(t TransferToken) []byte {
	s := binary.NewSer(nil)
	s.AddUint8(script.TokenMarkerTransfer)
	t.serialize(&s)
	return s.Output()
}

// EncodeReissue builds the marker+payload bytes for a reissue output.
func EncodeReissue(t ReissueToken) []byte {
	s := binary.NewSer(nil)
	s.AddUint8(script.TokenMarkerReissue)
	t.serialize(&s)
	return s.Output()
}

// DecodeIssue parses a NewToken record from a token payload (the bytes
// after OP_TOKEN, marker byte included).
func DecodeIssue(payload []byte) (NewToken, error) {
	if len(payload) == 0 || payload[0] != script.TokenMarkerIssue {
		return NewToken{}, errBadPayload
	}
	d := binary.NewDes(payload[1:])
	var t NewToken
	t.deserialize(&d)
	if err := d.Error(); err != nil {
		return NewToken{}, errors.Wrap(err, "decode issue")
	}
	return t, nil
}

// DecodeOwner parses an OwnerToken record.
func DecodeOwner(payload []byte) (OwnerToken, error) {
	if len(payload) == 0 || payload[0] != script.TokenMarkerOwnerKey {
		return OwnerToken{}, errBadPayload
	}
	d := binary.NewDes(payload[1:])
	var t OwnerToken
	t.deserialize(&d)
	if err := d.Error(); err != nil {
		return OwnerToken{}, errors.Wrap(err, "decode owner")
	}
	return t, nil
}

// DecodeTransfer parses a TransferToken record.
func DecodeTransfer(payload []byte) (TransferToken, error) {
	if len(payload) == 0 || payload[0] != script.TokenMarkerTransfer {
		return TransferToken{}, errBadPayload
	}
	d := binary.NewDes(payload[1:])
	var t TransferToken
	t.deserialize(&d)
	if err := d.Error(); err != nil {
		return TransferToken{}, errors.Wrap(err, "decode transfer")
	}
	return t, nil
}

// DecodeReissue parses a ReissueToken record.
func DecodeReissue(payload []byte) (ReissueToken, error) {
	if len(payload) == 0 || payload[0] != script.TokenMarkerReissue {
		return ReissueToken{}, errBadPayload
	}
	d := binary.NewDes(payload[1:])
	var t ReissueToken
	t.deserialize(&d)
	if err := d.Error(); err != nil {
		return ReissueToken{}, errors.Wrap(err, "decode reissue")
	}
	return t, nil
}
