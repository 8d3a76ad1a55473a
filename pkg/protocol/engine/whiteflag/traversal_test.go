//nolint:forcetypeassert,varnamelen,revive,exhaustruct // we don't care about these linters in test cases
package whiteflag_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/whiteflag"
	"github.com/iotaledger/whiteflag/pkg/utils"
)

func TestTraversalDiamondOrder(t *testing.T) {
	tf := newTestFramework(t)

	blockA := tf.IssueBlock(model.BlockIDs{tf.genesisBlockID}, nil)
	blockB := tf.IssueBlock(model.BlockIDs{blockA.ID()}, &model.TaggedDataPayload{Tag: []byte("b")})
	blockC := tf.IssueBlock(model.BlockIDs{blockA.ID()}, &model.TaggedDataPayload{Tag: []byte("c")})
	blockD := tf.IssueBlock(model.BlockIDs{blockB.ID(), blockC.ID()}, nil)

	var visited model.BlockIDs
	require.NoError(t, whiteflag.TraversePastCone(tf.Tangle, model.BlockIDs{blockD.ID()}, func(block *model.Block) error {
		visited = append(visited, block.ID())

		return nil
	}))

	// parents descend in serialized order, each block is applied after its full past cone
	sortedParents := model.BlockIDs{blockB.ID(), blockC.ID()}.RemoveDupsAndSort()
	expected := model.BlockIDs{blockA.ID(), sortedParents[0], sortedParents[1], blockD.ID()}
	require.Equal(t, expected, visited)
}

func TestTraversalMultipleTargets(t *testing.T) {
	tf := newTestFramework(t)

	blockA := tf.IssueBlock(model.BlockIDs{tf.genesisBlockID}, nil)
	blockB := tf.IssueBlock(model.BlockIDs{blockA.ID()}, &model.TaggedDataPayload{Tag: []byte("b")})
	blockC := tf.IssueBlock(model.BlockIDs{blockA.ID()}, &model.TaggedDataPayload{Tag: []byte("c")})

	var visited model.BlockIDs
	require.NoError(t, whiteflag.TraversePastCone(tf.Tangle, model.BlockIDs{blockB.ID(), blockC.ID()}, func(block *model.Block) error {
		visited = append(visited, block.ID())

		return nil
	}))

	// targets share one visited set and are processed in the order given
	require.Equal(t, model.BlockIDs{blockA.ID(), blockB.ID(), blockC.ID()}, visited)
}

func TestTraversalStopsAtSolidEntryPoints(t *testing.T) {
	tf := newTestFramework(t)

	blockA := tf.IssueBlock(model.BlockIDs{tf.genesisBlockID}, nil)

	var visited model.BlockIDs
	require.NoError(t, whiteflag.TraversePastCone(tf.Tangle, model.BlockIDs{blockA.ID()}, func(block *model.Block) error {
		visited = append(visited, block.ID())

		return nil
	}))

	require.Equal(t, model.BlockIDs{blockA.ID()}, visited)
}

func TestTraversalStopsAtReferencedBlocks(t *testing.T) {
	tf := newTestFramework(t)

	blockA := tf.IssueBlock(model.BlockIDs{tf.genesisBlockID}, nil)

	metadata, exists := tf.Tangle.BlockMetadata(blockA.ID())
	require.True(t, exists)
	metadata.SetReferenced(1, 0)
	require.NoError(t, tf.Tangle.StoreBlockMetadata(metadata))

	blockB := tf.IssueBlock(model.BlockIDs{blockA.ID()}, nil)

	var visited model.BlockIDs
	require.NoError(t, whiteflag.TraversePastCone(tf.Tangle, model.BlockIDs{blockB.ID()}, func(block *model.Block) error {
		visited = append(visited, block.ID())

		return nil
	}))

	require.Equal(t, model.BlockIDs{blockB.ID()}, visited)
}

func TestTraversalMissingBlock(t *testing.T) {
	tf := newTestFramework(t)

	err := whiteflag.TraversePastCone(tf.Tangle, model.BlockIDs{utils.RandBlockID()}, func(_ *model.Block) error {
		t.Fatal("no block should be applied")

		return nil
	})
	require.ErrorIs(t, err, whiteflag.ErrMissingBlock)
}
