package utxoledger

import (
	"bytes"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
	"github.com/iotaledger/whiteflag/pkg/model"
)

// LexicalOrderedOutputs are outputs ordered in lexical order by their outputID.
type LexicalOrderedOutputs []*Output

func (l LexicalOrderedOutputs) Len() int {
	return len(l)
}

func (l LexicalOrderedOutputs) Less(i int, j int) bool {
	return bytes.Compare(l[i].outputID[:], l[j].outputID[:]) < 0
}

func (l LexicalOrderedOutputs) Swap(i int, j int) {
	l[i], l[j] = l[j], l[i]
}

// Output associates a created output with the block that created it and the
// milestone it was booked in.
type Output struct {
	outputID          model.OutputID
	blockID           model.BlockID
	msIndexBooked     model.MilestoneIndex
	msTimestampBooked uint32

	output model.Output
}

// CreateOutput creates a new ledger output.
func CreateOutput(outputID model.OutputID, blockID model.BlockID, msIndexBooked model.MilestoneIndex, msTimestampBooked uint32, output model.Output) *Output {
	return &Output{
		outputID:          outputID,
		blockID:           blockID,
		msIndexBooked:     msIndexBooked,
		msTimestampBooked: msTimestampBooked,
		output:            output,
	}
}

func (o *Output) OutputID() model.OutputID {
	return o.outputID
}

func (o *Output) MapKey() string {
	return string(o.outputID[:])
}

// BlockID returns the id of the block that carried the creating transaction.
func (o *Output) BlockID() model.BlockID {
	return o.blockID
}

// MilestoneIndexBooked returns the index of the milestone that booked the output.
func (o *Output) MilestoneIndexBooked() model.MilestoneIndex {
	return o.msIndexBooked
}

// MilestoneTimestampBooked returns the timestamp of the milestone that booked the output.
func (o *Output) MilestoneTimestampBooked() uint32 {
	return o.msTimestampBooked
}

func (o *Output) OutputType() model.OutputType {
	return o.output.Type()
}

func (o *Output) Output() model.Output {
	return o.output
}

func (o *Output) Address() model.Address {
	return o.output.Address()
}

func (o *Output) Deposit() model.BaseToken {
	return o.output.Amount()
}

type Outputs []*Output

// OutputSet maps output ids to outputs.
type OutputSet map[model.OutputID]*Output

// - kvStorable

func outputStorageKeyForOutputID(outputID model.OutputID) []byte {
	ms := marshalutil.New(1 + model.OutputIDLength)
	ms.WriteByte(StoreKeyPrefixOutput)
	ms.WriteBytes(outputID[:])

	return ms.Bytes()
}

func (o *Output) KVStorableKey() (key []byte) {
	return outputStorageKeyForOutputID(o.outputID)
}

func (o *Output) KVStorableValue() (value []byte) {
	ms := marshalutil.New()
	ms.WriteBytes(o.blockID[:])
	ms.WriteUint32(uint32(o.msIndexBooked))
	ms.WriteUint32(o.msTimestampBooked)
	ms.WriteBytes(o.output.Bytes())

	return ms.Bytes()
}

func (o *Output) kvStorableLoad(_ *Manager, key []byte, value []byte) error {
	var err error

	keyUtil := marshalutil.New(key)

	if _, err = keyUtil.ReadByte(); err != nil {
		return ierrors.Wrap(err, "unable to read prefix")
	}

	outputIDBytes, err := keyUtil.ReadBytes(model.OutputIDLength)
	if err != nil {
		return ierrors.Wrap(err, "unable to read outputID")
	}
	if o.outputID, _, err = model.OutputIDFromBytes(outputIDBytes); err != nil {
		return err
	}

	valueUtil := marshalutil.New(value)

	blockIDBytes, err := valueUtil.ReadBytes(model.BlockIDLength)
	if err != nil {
		return ierrors.Wrap(err, "unable to read blockID")
	}
	if o.blockID, _, err = model.BlockIDFromBytes(blockIDBytes); err != nil {
		return err
	}

	msIndexBooked, err := valueUtil.ReadUint32()
	if err != nil {
		return ierrors.Wrap(err, "unable to read milestone index booked")
	}
	o.msIndexBooked = model.MilestoneIndex(msIndexBooked)

	if o.msTimestampBooked, err = valueUtil.ReadUint32(); err != nil {
		return ierrors.Wrap(err, "unable to read milestone timestamp booked")
	}

	outputBytes := valueUtil.ReadRemainingBytes()
	if o.output, _, err = model.OutputFromBytes(outputBytes); err != nil {
		return err
	}

	return nil
}

// - Helper

func storeOutput(output *Output, mutations kvstore.BatchedMutations) error {
	return mutations.Set(output.KVStorableKey(), output.KVStorableValue())
}

func deleteOutput(output *Output, mutations kvstore.BatchedMutations) error {
	return mutations.Delete(output.KVStorableKey())
}

// - Manager

func (m *Manager) ReadOutputByOutputIDWithoutLocking(outputID model.OutputID) (*Output, error) {
	key := outputStorageKeyForOutputID(outputID)
	value, err := m.store.Get(key)
	if err != nil {
		return nil, err
	}

	output := &Output{}
	if err := output.kvStorableLoad(m, key, value); err != nil {
		return nil, err
	}

	return output, nil
}

func (m *Manager) ReadOutputByOutputID(outputID model.OutputID) (*Output, error) {
	m.ReadLockLedger()
	defer m.ReadUnlockLedger()

	return m.ReadOutputByOutputIDWithoutLocking(outputID)
}

// code guards.
var _ kvStorable = &Output{}
