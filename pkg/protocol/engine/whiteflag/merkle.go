package whiteflag

import (
	"math/bits"

	"golang.org/x/crypto/blake2b"

	"github.com/iotaledger/whiteflag/pkg/model"
)

const (
	// LeafHashPrefix is the domain separation prefix for leaf hashes.
	LeafHashPrefix byte = 0x00
	// NodeHashPrefix is the domain separation prefix for inner node hashes.
	NodeHashPrefix byte = 0x01
)

// Hasher computes the merkle root over an ordered list of block ids. Leaves and
// inner nodes are hashed with distinct domain separation prefixes so that neither
// can be mistaken for the other.
type Hasher struct{}

// NewHasher creates a new merkle hasher over blake2b-256.
func NewHasher() *Hasher {
	return &Hasher{}
}

// EmptyRoot returns the root of an empty list, the hash of no input.
func (h *Hasher) EmptyRoot() model.Identifier {
	return blake2b.Sum256(nil)
}

// Hash computes the merkle root of the given ordered list of block ids.
func (h *Hasher) Hash(blockIDs model.BlockIDs) model.Identifier {
	switch len(blockIDs) {
	case 0:
		return h.EmptyRoot()
	case 1:
		return h.hashLeaf(blockIDs[0])
	default:
		k := largestPowerOfTwo(len(blockIDs))

		return h.hashNode(h.Hash(blockIDs[:k]), h.Hash(blockIDs[k:]))
	}
}

func (h *Hasher) hashLeaf(blockID model.BlockID) model.Identifier {
	data := make([]byte, 0, 1+model.BlockIDLength)
	data = append(data, LeafHashPrefix)
	data = append(data, blockID[:]...)

	return blake2b.Sum256(data)
}

func (h *Hasher) hashNode(left model.Identifier, right model.Identifier) model.Identifier {
	data := make([]byte, 0, 1+2*model.IdentifierLength)
	data = append(data, NodeHashPrefix)
	data = append(data, left[:]...)
	data = append(data, right[:]...)

	return blake2b.Sum256(data)
}

// largestPowerOfTwo returns the largest power of two strictly smaller than n, n >= 2.
func largestPowerOfTwo(n int) int {
	return 1 << (bits.Len(uint(n-1)) - 1)
}
