package bitcrypto

import (
	"crypto"
	"crypto/ed25519"
	"fmt"

	"github.com/zeebo/blake3"
)

const SIGNATURE_SIZE = 64
const PUBKEY_SIZE = 32
const PRIVKEY_SIZE = 32 + PUBKEY_SIZE

// HASH160_SIZE is the width of the short key/script hash used throughout
// script destinations (P2PKH/P2SH key-hash and script-hash fields).
const HASH160_SIZE = 20

type Pubkey [PUBKEY_SIZE]byte
type Privkey [PRIVKEY_SIZE]byte
type Signature [SIGNATURE_SIZE]byte

// Hash160 is a 20-byte key/script hash, analogous to RIPEMD160(SHA256(x)) in
// Bitcoin-derived chains. Here it is the leading bytes of a blake3 digest.
type Hash160 [HASH160_SIZE]byte

// Hash256 is a full 32-byte digest, used for txids and script hashes that
// need the full hash rather than the truncated form.
type Hash256 [32]byte

// ToHash160 truncates a blake3 digest of data down to a Hash160.
func ToHash160(data []byte) Hash160 {
	h := blake3.Sum256(data)
	return Hash160(h[:HASH160_SIZE])
}

// ToHash256 computes the full blake3 digest of data.
func ToHash256(data []byte) Hash256 {
	return Hash256(blake3.Sum256(data))
}

func (p Privkey) Public() Pubkey {
	return Pubkey(p[32:])
}

func Sign(message []byte, key Privkey) (Signature, error) {
	edk := ed25519.PrivateKey(key[:])

	x, err := edk.Sign(nil, message, crypto.Hash(0))

	if err != nil {
		return Signature{}, err
	}

	if len(x) != SIGNATURE_SIZE {
		panic(fmt.Errorf("signature size: %d, expected: %d", x, SIGNATURE_SIZE))
	}

	return Signature(x), err
}

// returns true if the signature is valid
func VerifySignature(sender Pubkey, data []byte, signature Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(sender[:]), data, signature[:])
}
