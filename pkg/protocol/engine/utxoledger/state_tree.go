package utxoledger

import (
	"bytes"

	"github.com/iotaledger/hive.go/ads"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/whiteflag/pkg/model"
)

type stateTreeMetadata struct {
	Index model.MilestoneIndex
}

func newStateMetadata(output *Output) *stateTreeMetadata {
	return &stateTreeMetadata{
		Index: output.MilestoneIndexBooked(),
	}
}

func stateMetadataFromBytes(b []byte) (*stateTreeMetadata, int, error) {
	s := new(stateTreeMetadata)

	var err error
	var n int
	s.Index, n, err = model.MilestoneIndexFromBytes(b)
	if err != nil {
		return nil, 0, err
	}

	return s, n, nil
}

func (s *stateTreeMetadata) Bytes() ([]byte, error) {
	return s.Index.Bytes()
}

func (m *Manager) StateTreeRoot() model.Identifier {
	return m.stateTree.Root()
}

func (m *Manager) CheckStateTree() bool {
	comparisonTree := ads.NewMap[model.Identifier](mapdb.NewMapDB(),
		model.Identifier.Bytes,
		model.IdentifierFromBytes,
		model.OutputID.Bytes,
		model.OutputIDFromBytes,
		(*stateTreeMetadata).Bytes,
		stateMetadataFromBytes,
	)

	if err := m.ForEachUnspentOutput(func(output *Output) bool {
		if err := comparisonTree.Set(output.OutputID(), newStateMetadata(output)); err != nil {
			panic(ierrors.Wrapf(err, "failed to set output in comparison tree, outputID: %s", output.OutputID().ToHex()))
		}

		return true
	}); err != nil {
		return false
	}

	comparisonRoot := comparisonTree.Root()
	storedRoot := m.StateTreeRoot()

	return bytes.Equal(comparisonRoot[:], storedRoot[:])
}
