//nolint:forcetypeassert,varnamelen,revive,exhaustruct // we don't care about these linters in test cases
package tangle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/tangle"
	"github.com/iotaledger/whiteflag/pkg/utils"
)

func issueBlock(t *testing.T, tg *tangle.Tangle, parents model.BlockIDs, payload model.Payload) *model.Block {
	block, err := model.NewBlock(2, parents, payload, 0)
	require.NoError(t, err)

	_, err = tg.StoreBlock(block)
	require.NoError(t, err)

	return block
}

func TestTangleStoreAndLoadBlock(t *testing.T) {
	tg := tangle.New(mapdb.NewMapDB())

	block := issueBlock(t, tg, model.BlockIDs{utils.RandBlockID()}, &model.TaggedDataPayload{Tag: []byte("tag")})

	require.True(t, tg.HasBlock(block.ID()))
	require.False(t, tg.HasBlock(utils.RandBlockID()))

	loaded, exists := tg.Block(block.ID())
	require.True(t, exists)
	require.Equal(t, block.ID(), loaded.ID())
	require.Equal(t, block.Parents(), loaded.Parents())

	_, exists = tg.Block(utils.RandBlockID())
	require.False(t, exists)
}

func TestTangleStoreBlockSetsMilestoneFlag(t *testing.T) {
	tg := tangle.New(mapdb.NewMapDB())

	plainBlock := issueBlock(t, tg, model.BlockIDs{utils.RandBlockID()}, nil)
	milestoneBlock := issueBlock(t, tg, model.BlockIDs{utils.RandBlockID()}, &model.MilestonePayload{
		Index:      1,
		Parents:    model.BlockIDs{utils.RandBlockID()},
		Signatures: []model.MilestoneSignature{{PublicKey: utils.RandPubKey()}},
	})

	metadata, exists := tg.BlockMetadata(plainBlock.ID())
	require.True(t, exists)
	require.False(t, metadata.IsMilestone())

	metadata, exists = tg.BlockMetadata(milestoneBlock.ID())
	require.True(t, exists)
	require.True(t, metadata.IsMilestone())
	require.False(t, metadata.IsReferenced())
}

func TestTangleBlockMetadataPersistence(t *testing.T) {
	store := mapdb.NewMapDB()
	tg := tangle.New(store)

	block := issueBlock(t, tg, model.BlockIDs{utils.RandBlockID()}, nil)

	metadata, exists := tg.BlockMetadata(block.ID())
	require.True(t, exists)
	metadata.SetSolid()
	metadata.SetReferenced(4, 7)
	metadata.SetConflicting(2)
	require.NoError(t, tg.StoreBlockMetadata(metadata))

	// a fresh instance over the same store must read back every flag
	reopened := tangle.New(store)
	loaded, exists := reopened.BlockMetadata(block.ID())
	require.True(t, exists)
	require.True(t, loaded.IsSolid())
	require.True(t, loaded.IsReferenced())
	require.Equal(t, model.MilestoneIndex(4), loaded.ReferencedIndex())
	require.Equal(t, uint32(7), loaded.WhiteFlagIndex())
	require.True(t, loaded.IsConflicting())
	require.Equal(t, byte(2), loaded.ConflictReason())
}

func TestTangleBlockMetadataBatch(t *testing.T) {
	tg := tangle.New(mapdb.NewMapDB())

	var metadataSet []*tangle.BlockMetadata
	var blockIDs model.BlockIDs
	for i := 0; i < 5; i++ {
		block := issueBlock(t, tg, model.BlockIDs{utils.RandBlockID()}, nil)
		blockIDs = append(blockIDs, block.ID())

		metadata, exists := tg.BlockMetadata(block.ID())
		require.True(t, exists)
		metadata.SetReferenced(1, uint32(i))
		metadataSet = append(metadataSet, metadata)
	}

	require.NoError(t, tg.StoreBlockMetadataBatch(metadataSet))

	for i, blockID := range blockIDs {
		metadata, exists := tg.BlockMetadata(blockID)
		require.True(t, exists)
		require.True(t, metadata.IsReferenced())
		require.Equal(t, uint32(i), metadata.WhiteFlagIndex())
	}
}

func TestTangleClearReferenced(t *testing.T) {
	metadata := tangle.NewBlockMetadata(utils.RandBlockID())
	metadata.SetSolid()
	metadata.SetMilestone()
	metadata.SetReferenced(3, 5)
	metadata.SetConflicting(4)

	metadata.ClearReferenced()

	require.False(t, metadata.IsReferenced())
	require.False(t, metadata.IsConflicting())
	require.Equal(t, model.MilestoneIndex(0), metadata.ReferencedIndex())
	require.Equal(t, uint32(0), metadata.WhiteFlagIndex())
	require.Equal(t, byte(0), metadata.ConflictReason())

	// solidity and the milestone flag survive a rollback
	require.True(t, metadata.IsSolid())
	require.True(t, metadata.IsMilestone())
}

func TestTangleChildren(t *testing.T) {
	tg := tangle.New(mapdb.NewMapDB())

	parent := issueBlock(t, tg, model.BlockIDs{utils.RandBlockID()}, nil)
	child1 := issueBlock(t, tg, model.BlockIDs{parent.ID()}, &model.TaggedDataPayload{Tag: []byte("1")})
	child2 := issueBlock(t, tg, model.BlockIDs{parent.ID()}, &model.TaggedDataPayload{Tag: []byte("2")})

	children := tg.Children(parent.ID())
	require.ElementsMatch(t, model.BlockIDs{child1.ID(), child2.ID()}, children)
	require.Empty(t, tg.Children(child1.ID()))
}

func TestTangleSolidEntryPoints(t *testing.T) {
	tg := tangle.New(mapdb.NewMapDB())

	entryPoint := utils.RandBlockID()
	require.False(t, tg.IsSolidEntryPoint(entryPoint))

	require.NoError(t, tg.StoreSolidEntryPoint(entryPoint, 42))
	require.True(t, tg.IsSolidEntryPoint(entryPoint))

	index, err := tg.SolidEntryPointIndex(entryPoint)
	require.NoError(t, err)
	require.Equal(t, model.MilestoneIndex(42), index)

	_, err = tg.SolidEntryPointIndex(utils.RandBlockID())
	require.Error(t, err)
}
