package tangle

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
	"github.com/iotaledger/whiteflag/pkg/model"
)

const (
	blockMetadataFlagSolid       = 1 << 0
	blockMetadataFlagReferenced  = 1 << 1
	blockMetadataFlagMilestone   = 1 << 2
	blockMetadataFlagConflicting = 1 << 3
)

// BlockMetadata tracks the confirmation state of a single block. It is owned by the
// tangle storage; mutation happens only under the single-run confirmation lock.
type BlockMetadata struct {
	blockID model.BlockID

	flags byte
	// referencedIndex is the index of the milestone that referenced the block.
	referencedIndex model.MilestoneIndex
	// whiteFlagIndex is the position at which the block was visited during the
	// white-flag confirmation that referenced it.
	whiteFlagIndex uint32
	// conflictReason is the raw conflict reason recorded when the block was excluded
	// as conflicting. Zero means no conflict.
	conflictReason byte
}

// NewBlockMetadata creates empty metadata for the given block.
func NewBlockMetadata(blockID model.BlockID) *BlockMetadata {
	return &BlockMetadata{blockID: blockID}
}

func (m *BlockMetadata) BlockID() model.BlockID {
	return m.blockID
}

// Clone returns a copy that can be mutated without touching the cached instance.
func (m *BlockMetadata) Clone() *BlockMetadata {
	clone := *m

	return &clone
}

func (m *BlockMetadata) IsSolid() bool {
	return m.flags&blockMetadataFlagSolid != 0
}

func (m *BlockMetadata) SetSolid() {
	m.flags |= blockMetadataFlagSolid
}

// IsReferenced tells whether the block was confirmed by an earlier milestone.
func (m *BlockMetadata) IsReferenced() bool {
	return m.flags&blockMetadataFlagReferenced != 0
}

// ReferencedIndex returns the milestone index that referenced the block, valid only
// if IsReferenced.
func (m *BlockMetadata) ReferencedIndex() model.MilestoneIndex {
	return m.referencedIndex
}

// WhiteFlagIndex returns the ordinal position of the block inside the confirmation
// that referenced it, valid only if IsReferenced.
func (m *BlockMetadata) WhiteFlagIndex() uint32 {
	return m.whiteFlagIndex
}

// SetReferenced marks the block as referenced by the milestone with the given index.
func (m *BlockMetadata) SetReferenced(index model.MilestoneIndex, whiteFlagIndex uint32) {
	m.flags |= blockMetadataFlagReferenced
	m.referencedIndex = index
	m.whiteFlagIndex = whiteFlagIndex
}

// ClearReferenced resets the referenced and conflicting state while preserving the
// solidity and milestone flags. Used when a confirmation is rolled back.
func (m *BlockMetadata) ClearReferenced() {
	m.flags &^= blockMetadataFlagReferenced | blockMetadataFlagConflicting
	m.referencedIndex = 0
	m.whiteFlagIndex = 0
	m.conflictReason = 0
}

func (m *BlockMetadata) IsMilestone() bool {
	return m.flags&blockMetadataFlagMilestone != 0
}

func (m *BlockMetadata) SetMilestone() {
	m.flags |= blockMetadataFlagMilestone
}

// IsConflicting tells whether the block was excluded as conflicting.
func (m *BlockMetadata) IsConflicting() bool {
	return m.flags&blockMetadataFlagConflicting != 0
}

// ConflictReason returns the raw conflict reason recorded for the block.
func (m *BlockMetadata) ConflictReason() byte {
	return m.conflictReason
}

// SetConflicting marks the block as excluded with the given conflict reason.
func (m *BlockMetadata) SetConflicting(reason byte) {
	m.flags |= blockMetadataFlagConflicting
	m.conflictReason = reason
}

// - kvStorable

func blockMetadataKeyForBlockID(blockID model.BlockID) []byte {
	ms := marshalutil.New(1 + model.BlockIDLength)
	ms.WriteByte(StoreKeyPrefixBlockMetadata)
	ms.WriteBytes(blockID[:])

	return ms.Bytes()
}

func (m *BlockMetadata) KVStorableKey() []byte {
	return blockMetadataKeyForBlockID(m.blockID)
}

func (m *BlockMetadata) KVStorableValue() []byte {
	ms := marshalutil.New(10)
	ms.WriteByte(m.flags)
	ms.WriteUint32(uint32(m.referencedIndex))
	ms.WriteUint32(m.whiteFlagIndex)
	ms.WriteByte(m.conflictReason)

	return ms.Bytes()
}

func (m *BlockMetadata) kvStorableLoad(key []byte, value []byte) error {
	keyUtil := marshalutil.New(key)

	if _, err := keyUtil.ReadByte(); err != nil {
		return ierrors.Wrap(err, "unable to read prefix")
	}

	blockIDBytes, err := keyUtil.ReadBytes(model.BlockIDLength)
	if err != nil {
		return ierrors.Wrap(err, "unable to read blockID")
	}
	if m.blockID, _, err = model.BlockIDFromBytes(blockIDBytes); err != nil {
		return err
	}

	valueUtil := marshalutil.New(value)

	if m.flags, err = valueUtil.ReadByte(); err != nil {
		return ierrors.Wrap(err, "unable to read flags")
	}

	referencedIndex, err := valueUtil.ReadUint32()
	if err != nil {
		return ierrors.Wrap(err, "unable to read referenced index")
	}
	m.referencedIndex = model.MilestoneIndex(referencedIndex)

	if m.whiteFlagIndex, err = valueUtil.ReadUint32(); err != nil {
		return ierrors.Wrap(err, "unable to read white-flag index")
	}

	if m.conflictReason, err = valueUtil.ReadByte(); err != nil {
		return ierrors.Wrap(err, "unable to read conflict reason")
	}

	return nil
}
