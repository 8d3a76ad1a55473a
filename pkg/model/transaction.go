package model

import (
	"sync"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
	"golang.org/x/crypto/blake2b"
)

const (
	// MinInputsCount is the minimum amount of inputs a transaction must consume.
	MinInputsCount = 1
	// MaxInputsCount is the maximum amount of inputs a transaction may consume.
	MaxInputsCount = 128
	// MinOutputsCount is the minimum amount of outputs a transaction must create.
	MinOutputsCount = 1
	// MaxOutputsCount is the maximum amount of outputs a transaction may create.
	MaxOutputsCount = 128
)

var (
	ErrInvalidInputsCount  = ierrors.New("invalid inputs count")
	ErrInvalidOutputsCount = ierrors.New("invalid outputs count")
	ErrInvalidUnlocksCount = ierrors.New("unlocks count must match inputs count")
	ErrInvalidUnlockChain  = ierrors.New("reference unlock must point backwards at a signature unlock")
)

// TransactionEssence is the signed part of a TransactionPayload.
type TransactionEssence struct {
	Inputs  []Input
	Outputs []Output
	// Payload is an optional embedded tagged data payload.
	Payload *TaggedDataPayload
}

// Hash returns the blake2b-256 hash of the serialized essence. Signatures are
// computed and verified against this hash.
func (e *TransactionEssence) Hash() Identifier {
	ms := marshalutil.New()
	e.serialize(ms)

	return IdentifierFromData(ms.Bytes())
}

func (e *TransactionEssence) serialize(ms *marshalutil.MarshalUtil) {
	ms.WriteUint16(uint16(len(e.Inputs)))
	for _, input := range e.Inputs {
		//nolint:forcetypeassert // the only input kind in the closed set
		input.(*UTXOInput).serialize(ms)
	}

	ms.WriteUint16(uint16(len(e.Outputs)))
	for _, output := range e.Outputs {
		serializeOutput(ms, output)
	}

	if e.Payload != nil {
		payloadBytes := e.Payload.Bytes()
		ms.WriteUint32(uint32(len(payloadBytes)))
		ms.WriteBytes(payloadBytes)
	} else {
		ms.WriteUint32(0)
	}
}

func transactionEssenceFromMarshalUtil(ms *marshalutil.MarshalUtil) (*TransactionEssence, error) {
	essence := &TransactionEssence{}

	inputsCount, err := ms.ReadUint16()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read inputs count")
	}
	if inputsCount < MinInputsCount || inputsCount > MaxInputsCount {
		return nil, ierrors.Wrapf(ErrInvalidInputsCount, "%d", inputsCount)
	}
	for i := uint16(0); i < inputsCount; i++ {
		input, err := inputFromMarshalUtil(ms)
		if err != nil {
			return nil, ierrors.Wrapf(err, "input %d", i)
		}
		essence.Inputs = append(essence.Inputs, input)
	}

	outputsCount, err := ms.ReadUint16()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read outputs count")
	}
	if outputsCount < MinOutputsCount || outputsCount > MaxOutputsCount {
		return nil, ierrors.Wrapf(ErrInvalidOutputsCount, "%d", outputsCount)
	}
	for i := uint16(0); i < outputsCount; i++ {
		output, err := outputFromMarshalUtil(ms)
		if err != nil {
			return nil, ierrors.Wrapf(err, "output %d", i)
		}
		essence.Outputs = append(essence.Outputs, output)
	}

	payloadLength, err := ms.ReadUint32()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read essence payload length")
	}
	if payloadLength > 0 {
		payloadBytes, err := ms.ReadBytes(int(payloadLength))
		if err != nil {
			return nil, ierrors.Wrap(err, "unable to read essence payload")
		}

		payload, _, err := PayloadFromBytes(payloadBytes)
		if err != nil {
			return nil, err
		}

		taggedData, ok := payload.(*TaggedDataPayload)
		if !ok {
			return nil, ierrors.Wrapf(ErrUnknownPayloadType, "essence payload must be tagged data, got %s", payload.Type())
		}
		essence.Payload = taggedData
	}

	return essence, nil
}

// TransactionPayload consumes outputs of earlier transactions and creates new ones.
type TransactionPayload struct {
	Essence *TransactionEssence
	Unlocks []Unlock

	idOnce sync.Once
	id     TransactionID
}

func (t *TransactionPayload) Type() PayloadType {
	return PayloadTransaction
}

// ID returns the content hash of the whole payload. Outputs created by this
// transaction are addressed as (ID, output index).
func (t *TransactionPayload) ID() TransactionID {
	t.idOnce.Do(func() {
		t.id = TransactionID(IdentifierFromData(t.Bytes()))
	})

	return t.id
}

// EssenceHash returns the hash the unlock signatures must sign.
func (t *TransactionPayload) EssenceHash() Identifier {
	return t.Essence.Hash()
}

func (t *TransactionPayload) Bytes() []byte {
	ms := marshalutil.New()
	ms.WriteByte(byte(PayloadTransaction))
	t.Essence.serialize(ms)

	ms.WriteUint16(uint16(len(t.Unlocks)))
	for _, unlock := range t.Unlocks {
		// only closed-set unlock kinds can be constructed
		_ = serializeUnlock(ms, unlock)
	}

	return ms.Bytes()
}

// ValidateUnlockChain checks the structural unlock rules: one unlock per input and
// reference unlocks pointing backwards at signature unlocks.
func (t *TransactionPayload) ValidateUnlockChain() error {
	if len(t.Unlocks) != len(t.Essence.Inputs) {
		return ierrors.Wrapf(ErrInvalidUnlocksCount, "%d unlocks for %d inputs", len(t.Unlocks), len(t.Essence.Inputs))
	}

	for i, unlock := range t.Unlocks {
		reference, isReference := unlock.(*ReferenceUnlock)
		if !isReference {
			continue
		}

		if int(reference.Reference) >= i {
			return ierrors.Wrapf(ErrInvalidUnlockChain, "unlock %d references %d", i, reference.Reference)
		}
		if _, isSignature := t.Unlocks[reference.Reference].(*SignatureUnlock); !isSignature {
			return ierrors.Wrapf(ErrInvalidUnlockChain, "unlock %d references non-signature unlock %d", i, reference.Reference)
		}
	}

	return nil
}

func transactionPayloadFromMarshalUtil(ms *marshalutil.MarshalUtil) (*TransactionPayload, error) {
	essence, err := transactionEssenceFromMarshalUtil(ms)
	if err != nil {
		return nil, err
	}

	unlocksCount, err := ms.ReadUint16()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read unlocks count")
	}

	payload := &TransactionPayload{Essence: essence}
	for i := uint16(0); i < unlocksCount; i++ {
		unlock, err := unlockFromMarshalUtil(ms)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unlock %d", i)
		}
		payload.Unlocks = append(payload.Unlocks, unlock)
	}

	if err := payload.ValidateUnlockChain(); err != nil {
		return nil, err
	}

	return payload, nil
}

// TransactionIDFromPayloadData computes the TransactionID without keeping the payload.
func TransactionIDFromPayloadData(data []byte) TransactionID {
	return TransactionID(blake2b.Sum256(data))
}
