package model

import (
	"crypto/ed25519"
	"encoding/hex"

	"github.com/iotaledger/hive.go/ierrors"
	"golang.org/x/crypto/blake2b"
)

const AddressLength = blake2b.Size256

var EmptyAddress = Address{}

// Address is an ed25519 address, the blake2b-256 hash of the owning public key.
type Address [AddressLength]byte

func AddressFromPubKey(pubKey ed25519.PublicKey) Address {
	return blake2b.Sum256(pubKey)
}

func AddressFromBytes(b []byte) (Address, int, error) {
	var address Address
	if len(b) < AddressLength {
		return address, 0, ierrors.New("invalid address length")
	}
	copy(address[:], b)

	return address, AddressLength, nil
}

func AddressFromHex(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return EmptyAddress, err
	}

	address, _, err := AddressFromBytes(b)

	return address, err
}

func (a Address) Bytes() ([]byte, error) {
	return a[:], nil
}

func (a Address) MapKey() string {
	return string(a[:])
}

func (a Address) ToHex() string {
	return hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.ToHex()
}
