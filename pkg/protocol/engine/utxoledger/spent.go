package utxoledger

import (
	"bytes"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
	"github.com/iotaledger/whiteflag/pkg/model"
)

// SpentConsumer is a function that consumes a spent output.
// Returning false from this function indicates to abort the iteration.
type SpentConsumer func(spent *Spent) bool

// LexicalOrderedSpents are spents ordered in lexical order by their outputID.
type LexicalOrderedSpents []*Spent

func (l LexicalOrderedSpents) Len() int {
	return len(l)
}

func (l LexicalOrderedSpents) Less(i int, j int) bool {
	return bytes.Compare(l[i].outputID[:], l[j].outputID[:]) < 0
}

func (l LexicalOrderedSpents) Swap(i int, j int) {
	l[i], l[j] = l[j], l[i]
}

// Spent is a consumed output: it associates an output with the transaction that
// spent it and the milestone that confirmed the spend.
type Spent struct {
	outputID model.OutputID
	// the id of the transaction that spent the output
	transactionIDSpent model.TransactionID
	// the index of the milestone that spent the output
	msIndexSpent model.MilestoneIndex

	output *Output
}

// NewSpent creates a new spent output.
func NewSpent(output *Output, transactionIDSpent model.TransactionID, msIndexSpent model.MilestoneIndex) *Spent {
	return &Spent{
		outputID:           output.outputID,
		output:             output,
		transactionIDSpent: transactionIDSpent,
		msIndexSpent:       msIndexSpent,
	}
}

func (s *Spent) Output() *Output {
	return s.output
}

func (s *Spent) OutputID() model.OutputID {
	return s.outputID
}

func (s *Spent) MapKey() string {
	return string(s.outputID[:])
}

func (s *Spent) BlockID() model.BlockID {
	return s.output.BlockID()
}

func (s *Spent) OutputType() model.OutputType {
	return s.output.OutputType()
}

func (s *Spent) Address() model.Address {
	return s.output.Address()
}

func (s *Spent) Deposit() model.BaseToken {
	return s.output.Deposit()
}

// TransactionIDSpent returns the id of the transaction that spent the output.
func (s *Spent) TransactionIDSpent() model.TransactionID {
	return s.transactionIDSpent
}

// MilestoneIndexSpent returns the index of the milestone that spent the output.
func (s *Spent) MilestoneIndexSpent() model.MilestoneIndex {
	return s.msIndexSpent
}

type Spents []*Spent

// SpentSet maps output ids to spents.
type SpentSet map[model.OutputID]*Spent

// - kvStorable

func spentStorageKeyForOutputID(outputID model.OutputID) []byte {
	ms := marshalutil.New(1 + model.OutputIDLength)
	ms.WriteByte(StoreKeyPrefixOutputSpent)
	ms.WriteBytes(outputID[:])

	return ms.Bytes()
}

func (s *Spent) KVStorableKey() (key []byte) {
	return spentStorageKeyForOutputID(s.outputID)
}

func (s *Spent) KVStorableValue() (value []byte) {
	ms := marshalutil.New(model.TransactionIDLength + model.MilestoneIndexLength)
	ms.WriteBytes(s.transactionIDSpent[:])
	ms.WriteUint32(uint32(s.msIndexSpent))

	return ms.Bytes()
}

func (s *Spent) kvStorableLoad(_ *Manager, key []byte, value []byte) error {
	keyUtil := marshalutil.New(key)

	if _, err := keyUtil.ReadByte(); err != nil {
		return ierrors.Wrap(err, "unable to read prefix")
	}

	outputIDBytes, err := keyUtil.ReadBytes(model.OutputIDLength)
	if err != nil {
		return ierrors.Wrap(err, "unable to read outputID")
	}
	if s.outputID, _, err = model.OutputIDFromBytes(outputIDBytes); err != nil {
		return err
	}

	valueUtil := marshalutil.New(value)

	transactionIDBytes, err := valueUtil.ReadBytes(model.TransactionIDLength)
	if err != nil {
		return ierrors.Wrap(err, "unable to read transactionID spent")
	}
	if s.transactionIDSpent, _, err = model.TransactionIDFromBytes(transactionIDBytes); err != nil {
		return err
	}

	msIndexSpent, err := valueUtil.ReadUint32()
	if err != nil {
		return ierrors.Wrap(err, "unable to read milestone index spent")
	}
	s.msIndexSpent = model.MilestoneIndex(msIndexSpent)

	return nil
}

func (m *Manager) loadOutputOfSpent(s *Spent) error {
	output, err := m.ReadOutputByOutputIDWithoutLocking(s.outputID)
	if err != nil {
		return err
	}
	s.output = output

	return nil
}

func (m *Manager) ReadSpentForOutputIDWithoutLocking(outputID model.OutputID) (*Spent, error) {
	output, err := m.ReadOutputByOutputIDWithoutLocking(outputID)
	if err != nil {
		return nil, err
	}

	key := spentStorageKeyForOutputID(outputID)
	value, err := m.store.Get(key)
	if err != nil {
		return nil, err
	}

	spent := &Spent{}
	if err := spent.kvStorableLoad(m, key, value); err != nil {
		return nil, err
	}

	spent.output = output

	return spent, nil
}

func storeSpent(spent *Spent, mutations kvstore.BatchedMutations) error {
	return mutations.Set(spent.KVStorableKey(), spent.KVStorableValue())
}

func deleteSpent(spent *Spent, mutations kvstore.BatchedMutations) error {
	return mutations.Delete(spent.KVStorableKey())
}

// code guards.
var _ kvStorable = &Spent{}
