package transaction

import (
	"encoding/hex"
	"strconv"

	"github.com/glyphchain/glyphchaind/binary"
)

// Outpoint identifies a single transaction output by the hash of the
// transaction that created it and its index within that transaction's
// output list.
type Outpoint struct {
	Hash  [32]byte
	Index uint32
}

func (o Outpoint) String() string {
	return hex.EncodeToString(o.Hash[:]) + ":" + strconv.FormatUint(uint64(o.Index), 10)
}

func (o Outpoint) Serialize(s *binary.Ser) {
	s.AddFixedByteArray(o.Hash[:])
	s.AddUint32(o.Index)
}

func (o *Outpoint) Deserialize(d *binary.Des) {
	o.Hash = [32]byte(d.ReadFixedByteArray(32))
	o.Index = d.ReadUint32()
}
