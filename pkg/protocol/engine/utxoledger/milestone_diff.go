package utxoledger

import (
	"crypto/sha256"
	"sort"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
	"github.com/iotaledger/whiteflag/pkg/model"
)

// MilestoneDiff represents the generated and spent outputs of a milestone's confirmation.
type MilestoneDiff struct {
	// The index of the milestone.
	Index model.MilestoneIndex
	// The outputs newly generated with this diff.
	Outputs Outputs
	// The outputs spent with this diff.
	Spents Spents
}

func milestoneDiffKeyForIndex(index model.MilestoneIndex) []byte {
	ms := marshalutil.New(1 + model.MilestoneIndexLength)
	ms.WriteByte(StoreKeyPrefixMilestoneDiffs)
	ms.WriteUint32(uint32(index))

	return ms.Bytes()
}

func (md *MilestoneDiff) KVStorableKey() []byte {
	return milestoneDiffKeyForIndex(md.Index)
}

func (md *MilestoneDiff) KVStorableValue() []byte {
	ms := marshalutil.New()

	ms.WriteUint32(uint32(len(md.Outputs)))
	for _, output := range md.sortedOutputs() {
		ms.WriteBytes(output.outputID[:])
	}

	ms.WriteUint32(uint32(len(md.Spents)))
	for _, spent := range md.sortedSpents() {
		ms.WriteBytes(spent.outputID[:])
	}

	return ms.Bytes()
}

// note that this method relies on the data being available within other "tables".
func (md *MilestoneDiff) kvStorableLoad(manager *Manager, key []byte, value []byte) error {
	index, _, err := model.MilestoneIndexFromBytes(key[1:])
	if err != nil {
		return err
	}
	md.Index = index

	valueUtil := marshalutil.New(value)

	outputsCount, err := valueUtil.ReadUint32()
	if err != nil {
		return ierrors.Wrap(err, "unable to read outputs count")
	}

	outputs := make(Outputs, outputsCount)
	for i := 0; i < int(outputsCount); i++ {
		outputIDBytes, err := valueUtil.ReadBytes(model.OutputIDLength)
		if err != nil {
			return ierrors.Wrap(err, "unable to read outputID")
		}
		outputID, _, err := model.OutputIDFromBytes(outputIDBytes)
		if err != nil {
			return err
		}

		output, err := manager.ReadOutputByOutputIDWithoutLocking(outputID)
		if err != nil {
			return err
		}
		outputs[i] = output
	}

	spentsCount, err := valueUtil.ReadUint32()
	if err != nil {
		return ierrors.Wrap(err, "unable to read spents count")
	}

	spents := make(Spents, spentsCount)
	for i := 0; i < int(spentsCount); i++ {
		outputIDBytes, err := valueUtil.ReadBytes(model.OutputIDLength)
		if err != nil {
			return ierrors.Wrap(err, "unable to read outputID")
		}
		outputID, _, err := model.OutputIDFromBytes(outputIDBytes)
		if err != nil {
			return err
		}

		spent, err := manager.ReadSpentForOutputIDWithoutLocking(outputID)
		if err != nil {
			return err
		}
		spents[i] = spent
	}

	md.Outputs = outputs
	md.Spents = spents

	return nil
}

func (md *MilestoneDiff) sortedOutputs() LexicalOrderedOutputs {
	// do not sort in place
	sortedOutputs := make(LexicalOrderedOutputs, len(md.Outputs))
	copy(sortedOutputs, md.Outputs)
	sort.Sort(sortedOutputs)

	return sortedOutputs
}

func (md *MilestoneDiff) sortedSpents() LexicalOrderedSpents {
	// do not sort in place
	sortedSpents := make(LexicalOrderedSpents, len(md.Spents))
	copy(sortedSpents, md.Spents)
	sort.Sort(sortedSpents)

	return sortedSpents
}

// BalanceDiff recomputes the per-address balance changes of this milestone diff.
func (md *MilestoneDiff) BalanceDiff(protocolParams *model.ProtocolParameters) *BalanceDiff {
	balanceDiff := NewBalanceDiff(protocolParams)
	balanceDiff.Add(md.Outputs, md.Spents)

	return balanceDiff
}

// SHA256Sum computes the sha256 of the milestone diff byte representation.
func (md *MilestoneDiff) SHA256Sum() ([]byte, error) {
	diffHash := sha256.New()

	if _, err := diffHash.Write(md.KVStorableKey()); err != nil {
		return nil, ierrors.Wrap(err, "unable to serialize milestone diff")
	}

	if _, err := diffHash.Write(md.KVStorableValue()); err != nil {
		return nil, ierrors.Wrap(err, "unable to serialize milestone diff")
	}

	return diffHash.Sum(nil), nil
}

// DB helper functions.

func storeDiff(diff *MilestoneDiff, mutations kvstore.BatchedMutations) error {
	return mutations.Set(diff.KVStorableKey(), diff.KVStorableValue())
}

func deleteDiff(index model.MilestoneIndex, mutations kvstore.BatchedMutations) error {
	return mutations.Delete(milestoneDiffKeyForIndex(index))
}

// Manager functions.

func (m *Manager) MilestoneDiffWithoutLocking(index model.MilestoneIndex) (*MilestoneDiff, error) {
	key := milestoneDiffKeyForIndex(index)

	value, err := m.store.Get(key)
	if err != nil {
		return nil, err
	}

	diff := &MilestoneDiff{}
	if err := diff.kvStorableLoad(m, key, value); err != nil {
		return nil, err
	}

	return diff, nil
}

func (m *Manager) MilestoneDiff(index model.MilestoneIndex) (*MilestoneDiff, error) {
	m.ReadLockLedger()
	defer m.ReadUnlockLedger()

	return m.MilestoneDiffWithoutLocking(index)
}

// code guards.
var _ kvStorable = &MilestoneDiff{}
