package model

import (
	"crypto/ed25519"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
)

// UnlockType defines the kind of an unlock.
type UnlockType byte

const (
	// UnlockSignature denotes an unlock carrying a signature over the transaction essence.
	UnlockSignature UnlockType = iota
	// UnlockReference denotes an unlock referencing a previous signature unlock.
	UnlockReference
)

var ErrUnknownUnlockType = ierrors.New("unknown unlock type")

// Unlock is the closed sum type over all unlock kinds. A transaction carries exactly
// one unlock per input.
type Unlock interface {
	// Type returns the kind of the unlock.
	Type() UnlockType
}

// SignatureUnlock unlocks an input by an ed25519 signature over the transaction's
// essence hash.
type SignatureUnlock struct {
	PublicKey ed25519.PublicKey
	Signature [ed25519.SignatureSize]byte
}

func (u *SignatureUnlock) Type() UnlockType {
	return UnlockSignature
}

// ReferenceUnlock unlocks an input by referring to the signature unlock at a previous
// index. It must always point backwards at a SignatureUnlock.
type ReferenceUnlock struct {
	Reference uint16
}

func (u *ReferenceUnlock) Type() UnlockType {
	return UnlockReference
}

func serializeUnlock(ms *marshalutil.MarshalUtil, unlock Unlock) error {
	switch u := unlock.(type) {
	case *SignatureUnlock:
		ms.WriteByte(byte(UnlockSignature))
		ms.WriteBytes(u.PublicKey)
		ms.WriteBytes(u.Signature[:])
	case *ReferenceUnlock:
		ms.WriteByte(byte(UnlockReference))
		ms.WriteUint16(u.Reference)
	default:
		return ierrors.Wrapf(ErrUnknownUnlockType, "%T", unlock)
	}

	return nil
}

func unlockFromMarshalUtil(ms *marshalutil.MarshalUtil) (Unlock, error) {
	kind, err := ms.ReadByte()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read unlock type")
	}

	switch UnlockType(kind) {
	case UnlockSignature:
		pubKey, err := ms.ReadBytes(ed25519.PublicKeySize)
		if err != nil {
			return nil, ierrors.Wrap(err, "unable to read unlock public key")
		}

		signatureBytes, err := ms.ReadBytes(ed25519.SignatureSize)
		if err != nil {
			return nil, ierrors.Wrap(err, "unable to read unlock signature")
		}

		unlock := &SignatureUnlock{PublicKey: append(ed25519.PublicKey{}, pubKey...)}
		copy(unlock.Signature[:], signatureBytes)

		return unlock, nil
	case UnlockReference:
		reference, err := ms.ReadUint16()
		if err != nil {
			return nil, ierrors.Wrap(err, "unable to read unlock reference")
		}

		return &ReferenceUnlock{Reference: reference}, nil
	default:
		return nil, ierrors.Wrapf(ErrUnknownUnlockType, "type %d", kind)
	}
}
