package tangle

import (
	"github.com/iotaledger/whiteflag/pkg/model"
)

// Storage is the graph-store view the confirmation engine consumes: parent/child
// relationships, raw blocks and per-block metadata. Reads are cheap and must always
// be answerable from local state; a miss during traversal is a fatal condition the
// caller handles.
type Storage interface {
	// Block returns the block with the given id.
	Block(blockID model.BlockID) (*model.Block, bool)
	// BlockMetadata returns the metadata of the block with the given id.
	BlockMetadata(blockID model.BlockID) (*BlockMetadata, bool)
	// IsSolidEntryPoint tells whether the given block is a pruned ancestor treated
	// as an implicit traversal boundary.
	IsSolidEntryPoint(blockID model.BlockID) bool
	// Children returns the ids of all known blocks referencing the given block.
	Children(blockID model.BlockID) model.BlockIDs
}

// WritableStorage extends Storage by the write operations only the orchestrator may
// call while holding the confirmation lock.
type WritableStorage interface {
	Storage

	// StoreBlock persists a block, its metadata and its child edges.
	StoreBlock(block *model.Block) (*BlockMetadata, error)
	// StoreBlockMetadata persists updated metadata for an already stored block.
	StoreBlockMetadata(metadata *BlockMetadata) error
	// StoreBlockMetadataBatch persists a set of metadata updates in one batch.
	StoreBlockMetadataBatch(metadataSet []*BlockMetadata) error
	// StoreSolidEntryPoint registers a solid entry point with the milestone index
	// it was confirmed at.
	StoreSolidEntryPoint(blockID model.BlockID, index model.MilestoneIndex) error
}
