package model

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
)

// InputType defines the kind of an input.
type InputType byte

const (
	// InputUTXO denotes an input referencing an unspent transaction output.
	InputUTXO InputType = iota
)

var ErrUnknownInputType = ierrors.New("unknown input type")

// Input is the closed sum type over all input kinds.
type Input interface {
	// Type returns the kind of the input.
	Type() InputType
}

// UTXOInput references an output by the id of the transaction that created it and
// the index of the output within that transaction.
type UTXOInput struct {
	TransactionID TransactionID
	Index         uint16
}

func (i *UTXOInput) Type() InputType {
	return InputUTXO
}

// OutputID returns the id of the referenced output.
func (i *UTXOInput) OutputID() OutputID {
	return OutputIDFromTransactionIDAndIndex(i.TransactionID, i.Index)
}

func (i *UTXOInput) serialize(ms *marshalutil.MarshalUtil) {
	ms.WriteByte(byte(InputUTXO))
	ms.WriteBytes(i.TransactionID[:])
	ms.WriteUint16(i.Index)
}

func inputFromMarshalUtil(ms *marshalutil.MarshalUtil) (Input, error) {
	kind, err := ms.ReadByte()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read input type")
	}

	switch InputType(kind) {
	case InputUTXO:
		idBytes, err := ms.ReadBytes(TransactionIDLength)
		if err != nil {
			return nil, ierrors.Wrap(err, "unable to read input transaction id")
		}
		transactionID, _, err := TransactionIDFromBytes(idBytes)
		if err != nil {
			return nil, err
		}

		index, err := ms.ReadUint16()
		if err != nil {
			return nil, ierrors.Wrap(err, "unable to read input index")
		}

		return &UTXOInput{TransactionID: transactionID, Index: index}, nil
	default:
		return nil, ierrors.Wrapf(ErrUnknownInputType, "type %d", kind)
	}
}
