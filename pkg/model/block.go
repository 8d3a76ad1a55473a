package model

import (
	"bytes"
	"math"
	"sync"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
	"github.com/iotaledger/hive.go/stringify"
	"golang.org/x/crypto/blake2b"
)

const (
	// MinParentsCount is the minimum amount of parents a block references.
	MinParentsCount = 1
	// MaxParentsCount is the maximum amount of parents a block references.
	MaxParentsCount = 8
)

var (
	ErrInvalidParentsCount    = ierrors.New("invalid parents count")
	ErrInvalidParentsOrdering = ierrors.New("parents must be unique and in lexical order")
	ErrInvalidProtocolVersion = ierrors.New("invalid protocol version")
)

// Block is a node of the Tangle: 1..8 parents, an optional payload and a nonce.
// Blocks are immutable once constructed and referenced by their content hash.
type Block struct {
	protocolVersion byte
	parents         BlockIDs
	payload         Payload
	nonce           uint64

	bytesOnce sync.Once
	bytes     []byte

	idOnce sync.Once
	id     BlockID
}

// NewBlock creates a block over the given parents. The parents are deduplicated and
// lexically sorted; the resulting serialized order is canonical and load-bearing for
// white-flag traversal.
func NewBlock(protocolVersion byte, parents BlockIDs, payload Payload, nonce uint64) (*Block, error) {
	sortedParents := parents.RemoveDupsAndSort()
	if len(sortedParents) < MinParentsCount || len(sortedParents) > MaxParentsCount {
		return nil, ierrors.Wrapf(ErrInvalidParentsCount, "%d", len(sortedParents))
	}

	return &Block{
		protocolVersion: protocolVersion,
		parents:         sortedParents,
		payload:         payload,
		nonce:           nonce,
	}, nil
}

func (b *Block) ProtocolVersion() byte {
	return b.protocolVersion
}

// Parents returns the parent ids in their canonical serialized order.
func (b *Block) Parents() BlockIDs {
	return b.parents
}

// ForEachParent calls the consumer for every parent in canonical order.
func (b *Block) ForEachParent(consumer func(parent BlockID)) {
	for _, parent := range b.parents {
		consumer(parent)
	}
}

// Payload returns the payload of the block or nil if it carries none.
func (b *Block) Payload() Payload {
	return b.payload
}

// Transaction returns the transaction payload or nil if the block carries none.
func (b *Block) Transaction() *TransactionPayload {
	if transaction, isTransaction := b.payload.(*TransactionPayload); isTransaction {
		return transaction
	}

	return nil
}

// Milestone returns the milestone payload or nil if the block carries none.
func (b *Block) Milestone() *MilestonePayload {
	if milestone, isMilestone := b.payload.(*MilestonePayload); isMilestone {
		return milestone
	}

	return nil
}

func (b *Block) Nonce() uint64 {
	return b.nonce
}

// Data returns the serialized block.
func (b *Block) Data() []byte {
	b.bytesOnce.Do(func() {
		ms := marshalutil.New()
		ms.WriteByte(b.protocolVersion)
		ms.WriteUint8(uint8(len(b.parents)))
		for _, parent := range b.parents {
			ms.WriteBytes(parent[:])
		}

		if b.payload != nil {
			payloadBytes := b.payload.Bytes()
			ms.WriteUint32(uint32(len(payloadBytes)))
			ms.WriteBytes(payloadBytes)
		} else {
			ms.WriteUint32(0)
		}

		ms.WriteUint64(b.nonce)

		b.bytes = ms.Bytes()
	})

	return b.bytes
}

// ID returns the blake2b-256 hash of the serialized block.
func (b *Block) ID() BlockID {
	b.idOnce.Do(func() {
		b.id = BlockID(blake2b.Sum256(b.Data()))
	})

	return b.id
}

// POWScore returns the Proof-of-Work score of the block: the number of trailing zero
// bits of its id weighted to the block size.
func (b *Block) POWScore() float64 {
	id := b.ID()

	zeros := 0
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] != 0 {
			for mask := byte(1); mask != 0 && id[i]&mask == 0; mask <<= 1 {
				zeros++
			}

			break
		}
		zeros += 8
	}

	return math.Pow(2, float64(zeros)) / float64(len(b.Data()))
}

func (b *Block) String() string {
	return stringify.Struct("Block",
		stringify.NewStructField("id", b.ID()),
		stringify.NewStructField("parents", len(b.parents)),
		stringify.NewStructField("hasPayload", b.payload != nil),
	)
}

// BlockFromBytes deserializes a block and validates the structural rules: parent
// count, uniqueness and lexical parent ordering, and a known payload kind.
func BlockFromBytes(data []byte) (*Block, error) {
	ms := marshalutil.New(data)

	protocolVersion, err := ms.ReadByte()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read protocol version")
	}

	parentsCount, err := ms.ReadUint8()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read parents count")
	}
	if parentsCount < MinParentsCount || parentsCount > MaxParentsCount {
		return nil, ierrors.Wrapf(ErrInvalidParentsCount, "%d", parentsCount)
	}

	block := &Block{protocolVersion: protocolVersion}
	for i := uint8(0); i < parentsCount; i++ {
		parentBytes, err := ms.ReadBytes(BlockIDLength)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to read parent %d", i)
		}
		parent, _, err := BlockIDFromBytes(parentBytes)
		if err != nil {
			return nil, err
		}

		if i > 0 && bytes.Compare(block.parents[i-1][:], parent[:]) >= 0 {
			return nil, ErrInvalidParentsOrdering
		}
		block.parents = append(block.parents, parent)
	}

	payloadLength, err := ms.ReadUint32()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read payload length")
	}
	if payloadLength > 0 {
		payloadBytes, err := ms.ReadBytes(int(payloadLength))
		if err != nil {
			return nil, ierrors.Wrap(err, "unable to read payload")
		}
		if block.payload, _, err = PayloadFromBytes(payloadBytes); err != nil {
			return nil, err
		}
	}

	if block.nonce, err = ms.ReadUint64(); err != nil {
		return nil, ierrors.Wrap(err, "unable to read nonce")
	}

	block.bytesOnce.Do(func() {
		block.bytes = data
	})

	return block, nil
}
