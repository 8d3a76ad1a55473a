package whiteflag

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/tangle"
)

// ErrMissingBlock is returned when the past cone of a milestone contains a block that
// is not stored locally. The confirmation cannot proceed until the gap is resolved.
var ErrMissingBlock = ierrors.New("block not found during confirmation")

// BlockApplier is invoked exactly once per past-cone block, after all of the block's
// parents have been applied.
type BlockApplier func(block *model.Block) error

// TraversePastCone walks backward from the given target blocks to all of their not
// yet referenced ancestors and applies them in white-flag order. The targets are
// processed in the order given, sharing one visited set.
//
// The walk keeps an explicit stack and inspects the top without popping: a block is
// only applied once every parent has been applied, parents are descended into in the
// order they are encoded in the block. This tie break determines the final ordering
// and with it the merkle roots, so it must not be changed.
func TraversePastCone(storage tangle.Storage, targetBlockIDs model.BlockIDs, apply BlockApplier) error {
	visited := make(map[model.BlockID]struct{})

	stack := make(model.BlockIDs, len(targetBlockIDs))
	for i, targetBlockID := range targetBlockIDs {
		// the stack is LIFO, so the first target goes on top
		stack[len(stack)-1-i] = targetBlockID
	}

	for len(stack) > 0 {
		currentBlockID := stack[len(stack)-1]

		if _, alreadyVisited := visited[currentBlockID]; alreadyVisited {
			stack = stack[:len(stack)-1]

			continue
		}

		// solid entry points are pruned ancestors, implicitly confirmed
		if storage.IsSolidEntryPoint(currentBlockID) {
			visited[currentBlockID] = struct{}{}
			stack = stack[:len(stack)-1]

			continue
		}

		block, exists := storage.Block(currentBlockID)
		if !exists {
			return ierrors.Wrapf(ErrMissingBlock, "block %s", currentBlockID.ToHex())
		}

		if metadata, metadataExists := storage.BlockMetadata(currentBlockID); metadataExists && metadata.IsReferenced() {
			// confirmed by an earlier milestone
			visited[currentBlockID] = struct{}{}
			stack = stack[:len(stack)-1]

			continue
		}

		// descend into the first unvisited parent, in encoded order
		var unvisitedParent model.BlockID
		foundUnvisitedParent := false
		for _, parent := range block.Parents() {
			if _, parentVisited := visited[parent]; !parentVisited {
				unvisitedParent = parent
				foundUnvisitedParent = true

				break
			}
		}

		if foundUnvisitedParent {
			stack = append(stack, unvisitedParent)

			continue
		}

		// all parents are applied, the block itself is ready
		if err := apply(block); err != nil {
			return err
		}

		visited[currentBlockID] = struct{}{}
		stack = stack[:len(stack)-1]
	}

	return nil
}
