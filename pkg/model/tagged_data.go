package model

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
)

// TaggedDataPayload carries arbitrary data with a tag. It has no ledger effect.
type TaggedDataPayload struct {
	Tag  []byte
	Data []byte
}

func (p *TaggedDataPayload) Type() PayloadType {
	return PayloadTaggedData
}

func (p *TaggedDataPayload) Bytes() []byte {
	ms := marshalutil.New()
	ms.WriteByte(byte(PayloadTaggedData))
	ms.WriteUint8(uint8(len(p.Tag)))
	ms.WriteBytes(p.Tag)
	ms.WriteUint32(uint32(len(p.Data)))
	ms.WriteBytes(p.Data)

	return ms.Bytes()
}

func taggedDataPayloadFromMarshalUtil(ms *marshalutil.MarshalUtil) (*TaggedDataPayload, error) {
	tagLength, err := ms.ReadUint8()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read tag length")
	}

	tag, err := ms.ReadBytes(int(tagLength))
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read tag")
	}

	dataLength, err := ms.ReadUint32()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read data length")
	}

	data, err := ms.ReadBytes(int(dataLength))
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read data")
	}

	return &TaggedDataPayload{
		Tag:  append([]byte{}, tag...),
		Data: append([]byte{}, data...),
	}, nil
}
