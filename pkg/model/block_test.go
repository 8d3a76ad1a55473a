//nolint:forcetypeassert,varnamelen,revive,exhaustruct // we don't care about these linters in test cases
package model_test

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/utils"
)

func TestBlockIDDeterminism(t *testing.T) {
	parents := model.BlockIDs{utils.RandBlockID()}
	payload := &model.TaggedDataPayload{Tag: []byte("tag"), Data: []byte("data")}

	block1, err := model.NewBlock(2, parents, payload, 0)
	require.NoError(t, err)
	block2, err := model.NewBlock(2, parents, payload, 0)
	require.NoError(t, err)
	require.Equal(t, block1.ID(), block2.ID())

	// any bit of the serialized block changes the id
	block3, err := model.NewBlock(2, parents, payload, 1)
	require.NoError(t, err)
	require.NotEqual(t, block1.ID(), block3.ID())
}

func TestBlockParentsDeduplicatedAndSorted(t *testing.T) {
	parent1 := utils.RandBlockID()
	parent2 := utils.RandBlockID()

	block, err := model.NewBlock(2, model.BlockIDs{parent2, parent1, parent2, parent1}, nil, 0)
	require.NoError(t, err)

	parents := block.Parents()
	require.Len(t, parents, 2)
	require.True(t, sort.SliceIsSorted(parents, func(i, j int) bool {
		return bytes.Compare(parents[i][:], parents[j][:]) < 0
	}))
}

func TestBlockParentsCountBounds(t *testing.T) {
	_, err := model.NewBlock(2, model.BlockIDs{}, nil, 0)
	require.ErrorIs(t, err, model.ErrInvalidParentsCount)

	tooMany := make(model.BlockIDs, model.MaxParentsCount+1)
	for i := range tooMany {
		tooMany[i] = utils.RandBlockID()
	}
	_, err = model.NewBlock(2, tooMany, nil, 0)
	require.ErrorIs(t, err, model.ErrInvalidParentsCount)
}

func TestBlockBytesRoundTrip(t *testing.T) {
	payload := &model.TaggedDataPayload{Tag: []byte("tag"), Data: []byte("data")}

	block, err := model.NewBlock(2, model.BlockIDs{utils.RandBlockID(), utils.RandBlockID()}, payload, 42)
	require.NoError(t, err)

	decoded, err := model.BlockFromBytes(block.Data())
	require.NoError(t, err)

	require.Equal(t, block.ID(), decoded.ID())
	require.Equal(t, block.Parents(), decoded.Parents())
	require.Equal(t, block.Nonce(), decoded.Nonce())

	decodedPayload := decoded.Payload().(*model.TaggedDataPayload)
	require.Equal(t, payload.Tag, decodedPayload.Tag)
	require.Equal(t, payload.Data, decodedPayload.Data)
}

func TestBlockFromBytesRejectsUnsortedParents(t *testing.T) {
	parents := model.BlockIDs{utils.RandBlockID(), utils.RandBlockID()}.RemoveDupsAndSort()

	ms := marshalutil.New()
	ms.WriteByte(2)
	ms.WriteUint8(2)
	// reversed order violates the canonical encoding
	ms.WriteBytes(parents[1][:])
	ms.WriteBytes(parents[0][:])
	ms.WriteUint32(0)
	ms.WriteUint64(0)

	_, err := model.BlockFromBytes(ms.Bytes())
	require.ErrorIs(t, err, model.ErrInvalidParentsOrdering)
}

func TestBlockPOWScore(t *testing.T) {
	block, err := model.NewBlock(2, model.BlockIDs{utils.RandBlockID()}, nil, 0)
	require.NoError(t, err)

	require.Greater(t, block.POWScore(), float64(0))
}
