package model

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
)

// PayloadType defines the kind of a block payload.
type PayloadType byte

const (
	// PayloadTransaction denotes a TransactionPayload.
	PayloadTransaction PayloadType = iota
	// PayloadMilestone denotes a MilestonePayload.
	PayloadMilestone
	// PayloadTaggedData denotes a TaggedDataPayload.
	PayloadTaggedData
)

var ErrUnknownPayloadType = ierrors.New("unknown payload type")

func (t PayloadType) String() string {
	switch t {
	case PayloadTransaction:
		return "TransactionPayload"
	case PayloadMilestone:
		return "MilestonePayload"
	case PayloadTaggedData:
		return "TaggedDataPayload"
	default:
		return "UnknownPayload"
	}
}

// Payload is the closed sum type over all payload kinds a block can carry.
type Payload interface {
	// Type returns the kind of the payload.
	Type() PayloadType
	// Bytes returns the serialized payload including its type byte.
	Bytes() []byte
}

// PayloadFromBytes deserializes a payload from its binary representation.
func PayloadFromBytes(b []byte) (Payload, int, error) {
	ms := marshalutil.New(b)

	payload, err := payloadFromMarshalUtil(ms)
	if err != nil {
		return nil, 0, err
	}

	return payload, ms.ReadOffset(), nil
}

func payloadFromMarshalUtil(ms *marshalutil.MarshalUtil) (Payload, error) {
	kind, err := ms.ReadByte()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read payload type")
	}

	switch PayloadType(kind) {
	case PayloadTransaction:
		return transactionPayloadFromMarshalUtil(ms)
	case PayloadMilestone:
		return milestonePayloadFromMarshalUtil(ms)
	case PayloadTaggedData:
		return taggedDataPayloadFromMarshalUtil(ms)
	default:
		return nil, ierrors.Wrapf(ErrUnknownPayloadType, "type %d", kind)
	}
}
