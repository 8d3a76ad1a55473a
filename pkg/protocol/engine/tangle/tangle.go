package tangle

import (
	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/whiteflag/pkg/model"
)

// Tangle is the kvstore-backed graph store: raw blocks, block metadata, child edges
// and the solid entry point set. Metadata reads go through a write-through cache so
// a confirmation run observes its own uncommitted flag changes.
type Tangle struct {
	store     kvstore.KVStore
	storeLock syncutils.RWMutex

	metadataCache *shrinkingmap.ShrinkingMap[model.BlockID, *BlockMetadata]
}

// New creates a Tangle on top of the given store.
func New(store kvstore.KVStore) *Tangle {
	return &Tangle{
		store:         store,
		metadataCache: shrinkingmap.New[model.BlockID, *BlockMetadata](),
	}
}

func blockKeyForBlockID(blockID model.BlockID) []byte {
	key := make([]byte, 0, 1+model.BlockIDLength)
	key = append(key, StoreKeyPrefixBlock)

	return append(key, blockID[:]...)
}

func childEdgeKey(parent model.BlockID, child model.BlockID) []byte {
	key := make([]byte, 0, 1+2*model.BlockIDLength)
	key = append(key, StoreKeyPrefixChildren)
	key = append(key, parent[:]...)

	return append(key, child[:]...)
}

func solidEntryPointKey(blockID model.BlockID) []byte {
	key := make([]byte, 0, 1+model.BlockIDLength)
	key = append(key, StoreKeyPrefixSolidEntryPoints)

	return append(key, blockID[:]...)
}

// StoreBlock persists the block, fresh metadata for it and its child edges.
func (t *Tangle) StoreBlock(block *model.Block) (*BlockMetadata, error) {
	t.storeLock.Lock()
	defer t.storeLock.Unlock()

	blockID := block.ID()

	mutations, err := t.store.Batched()
	if err != nil {
		return nil, err
	}

	if err := mutations.Set(blockKeyForBlockID(blockID), block.Data()); err != nil {
		mutations.Cancel()

		return nil, err
	}

	metadata := NewBlockMetadata(blockID)
	if block.Milestone() != nil {
		metadata.SetMilestone()
	}

	if err := mutations.Set(metadata.KVStorableKey(), metadata.KVStorableValue()); err != nil {
		mutations.Cancel()

		return nil, err
	}

	for _, parent := range block.Parents() {
		if err := mutations.Set(childEdgeKey(parent, blockID), []byte{}); err != nil {
			mutations.Cancel()

			return nil, err
		}
	}

	if err := mutations.Commit(); err != nil {
		return nil, err
	}

	t.metadataCache.Set(blockID, metadata)

	return metadata, nil
}

// Block returns the block with the given id.
func (t *Tangle) Block(blockID model.BlockID) (*model.Block, bool) {
	t.storeLock.RLock()
	defer t.storeLock.RUnlock()

	value, err := t.store.Get(blockKeyForBlockID(blockID))
	if err != nil {
		return nil, false
	}

	block, err := model.BlockFromBytes(value)
	if err != nil {
		return nil, false
	}

	return block, true
}

// HasBlock tells whether the block is stored locally.
func (t *Tangle) HasBlock(blockID model.BlockID) bool {
	t.storeLock.RLock()
	defer t.storeLock.RUnlock()

	has, err := t.store.Has(blockKeyForBlockID(blockID))

	return err == nil && has
}

// BlockMetadata returns the metadata of the given block.
func (t *Tangle) BlockMetadata(blockID model.BlockID) (*BlockMetadata, bool) {
	t.storeLock.RLock()
	defer t.storeLock.RUnlock()

	return t.blockMetadataWithoutLocking(blockID)
}

func (t *Tangle) blockMetadataWithoutLocking(blockID model.BlockID) (*BlockMetadata, bool) {
	if metadata, exists := t.metadataCache.Get(blockID); exists {
		return metadata, true
	}

	key := blockMetadataKeyForBlockID(blockID)
	value, err := t.store.Get(key)
	if err != nil {
		return nil, false
	}

	metadata := &BlockMetadata{}
	if err := metadata.kvStorableLoad(key, value); err != nil {
		return nil, false
	}

	t.metadataCache.Set(blockID, metadata)

	return metadata, true
}

// StoreBlockMetadata persists updated metadata for an already stored block.
func (t *Tangle) StoreBlockMetadata(metadata *BlockMetadata) error {
	t.storeLock.Lock()
	defer t.storeLock.Unlock()

	if err := t.store.Set(metadata.KVStorableKey(), metadata.KVStorableValue()); err != nil {
		return err
	}

	t.metadataCache.Set(metadata.BlockID(), metadata)

	return nil
}

// StoreBlockMetadataBatch persists a set of metadata mutations atomically. The
// orchestrator uses this to mark all blocks of a confirmation as referenced.
func (t *Tangle) StoreBlockMetadataBatch(metadataSet []*BlockMetadata) error {
	t.storeLock.Lock()
	defer t.storeLock.Unlock()

	mutations, err := t.store.Batched()
	if err != nil {
		return err
	}

	for _, metadata := range metadataSet {
		if err := mutations.Set(metadata.KVStorableKey(), metadata.KVStorableValue()); err != nil {
			mutations.Cancel()

			return err
		}
	}

	if err := mutations.Commit(); err != nil {
		return err
	}

	for _, metadata := range metadataSet {
		t.metadataCache.Set(metadata.BlockID(), metadata)
	}

	return nil
}

// Children returns the ids of all known blocks referencing the given block.
func (t *Tangle) Children(blockID model.BlockID) model.BlockIDs {
	t.storeLock.RLock()
	defer t.storeLock.RUnlock()

	prefix := make([]byte, 0, 1+model.BlockIDLength)
	prefix = append(prefix, StoreKeyPrefixChildren)
	prefix = append(prefix, blockID[:]...)

	var children model.BlockIDs
	_ = t.store.IterateKeys(prefix, func(key kvstore.Key) bool {
		child, _, err := model.BlockIDFromBytes(key[1+model.BlockIDLength:])
		if err != nil {
			return false
		}
		children = append(children, child)

		return true
	})

	return children
}

// StoreSolidEntryPoint registers a solid entry point with the milestone index it was
// confirmed at.
func (t *Tangle) StoreSolidEntryPoint(blockID model.BlockID, index model.MilestoneIndex) error {
	t.storeLock.Lock()
	defer t.storeLock.Unlock()

	return t.store.Set(solidEntryPointKey(blockID), index.MustBytes())
}

// IsSolidEntryPoint tells whether the given block is a registered solid entry point.
func (t *Tangle) IsSolidEntryPoint(blockID model.BlockID) bool {
	t.storeLock.RLock()
	defer t.storeLock.RUnlock()

	has, err := t.store.Has(solidEntryPointKey(blockID))

	return err == nil && has
}

// SolidEntryPointIndex returns the milestone index a solid entry point was confirmed at.
func (t *Tangle) SolidEntryPointIndex(blockID model.BlockID) (model.MilestoneIndex, error) {
	t.storeLock.RLock()
	defer t.storeLock.RUnlock()

	value, err := t.store.Get(solidEntryPointKey(blockID))
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return 0, ierrors.Errorf("solid entry point not found: %s", blockID)
		}

		return 0, err
	}

	index, _, err := model.MilestoneIndexFromBytes(value)

	return index, err
}

// code guards.
var _ WritableStorage = &Tangle{}
