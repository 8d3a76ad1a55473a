package model

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2"
	"golang.org/x/crypto/blake2b"
)

const (
	// IdentifierLength defines the byte length of all content hashes in the protocol.
	IdentifierLength = blake2b.Size256

	BlockIDLength       = IdentifierLength
	TransactionIDLength = IdentifierLength
	MilestoneIDLength   = IdentifierLength

	OutputIndexLength = serializer.UInt16ByteSize
	OutputIDLength    = TransactionIDLength + OutputIndexLength

	MilestoneIndexLength = serializer.UInt32ByteSize
)

var (
	ErrInvalidIdentifierLength = ierrors.New("invalid identifier length")

	EmptyIdentifier    = Identifier{}
	EmptyBlockID       = BlockID{}
	EmptyTransactionID = TransactionID{}
	EmptyMilestoneID   = MilestoneID{}
	EmptyOutputID      = OutputID{}
)

// Identifier is a blake2b-256 content hash.
type Identifier [IdentifierLength]byte

func IdentifierFromData(data []byte) Identifier {
	return blake2b.Sum256(data)
}

func IdentifierFromBytes(b []byte) (Identifier, int, error) {
	var id Identifier
	if len(b) < IdentifierLength {
		return id, 0, ErrInvalidIdentifierLength
	}
	copy(id[:], b)

	return id, IdentifierLength, nil
}

func (i Identifier) Bytes() ([]byte, error) {
	return i[:], nil
}

func (i Identifier) ToHex() string {
	return hex.EncodeToString(i[:])
}

func (i Identifier) String() string {
	return i.ToHex()
}

// BlockID is the unique identifier of a Block.
type BlockID [BlockIDLength]byte

func BlockIDFromBytes(b []byte) (BlockID, int, error) {
	var id BlockID
	if len(b) < BlockIDLength {
		return id, 0, ErrInvalidIdentifierLength
	}
	copy(id[:], b)

	return id, BlockIDLength, nil
}

func BlockIDFromHex(s string) (BlockID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return EmptyBlockID, err
	}

	blockID, _, err := BlockIDFromBytes(b)

	return blockID, err
}

func (b BlockID) Bytes() ([]byte, error) {
	return b[:], nil
}

func (b BlockID) ToHex() string {
	return hex.EncodeToString(b[:])
}

func (b BlockID) String() string {
	return b.ToHex()
}

// BlockIDs is a slice of BlockID.
type BlockIDs []BlockID

// RemoveDupsAndSort removes duplicated BlockIDs and sorts the slice by byte order.
func (ids BlockIDs) RemoveDupsAndSort() BlockIDs {
	sorted := append(BlockIDs{}, ids...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	var result BlockIDs
	var previous BlockID
	for i, id := range sorted {
		if i == 0 || !bytes.Equal(previous[:], id[:]) {
			result = append(result, id)
		}
		previous = id
	}

	return result
}

func (ids BlockIDs) ToHex() []string {
	hexIDs := make([]string, len(ids))
	for i, id := range ids {
		hexIDs[i] = id.ToHex()
	}

	return hexIDs
}

// TransactionID is the unique identifier of a TransactionPayload.
type TransactionID [TransactionIDLength]byte

func TransactionIDFromBytes(b []byte) (TransactionID, int, error) {
	var id TransactionID
	if len(b) < TransactionIDLength {
		return id, 0, ErrInvalidIdentifierLength
	}
	copy(id[:], b)

	return id, TransactionIDLength, nil
}

func (t TransactionID) Bytes() ([]byte, error) {
	return t[:], nil
}

func (t TransactionID) ToHex() string {
	return hex.EncodeToString(t[:])
}

func (t TransactionID) String() string {
	return t.ToHex()
}

// MilestoneID is the unique identifier of a MilestonePayload, computed over its essence.
type MilestoneID [MilestoneIDLength]byte

func MilestoneIDFromBytes(b []byte) (MilestoneID, int, error) {
	var id MilestoneID
	if len(b) < MilestoneIDLength {
		return id, 0, ErrInvalidIdentifierLength
	}
	copy(id[:], b)

	return id, MilestoneIDLength, nil
}

func (m MilestoneID) Bytes() ([]byte, error) {
	return m[:], nil
}

func (m MilestoneID) ToHex() string {
	return hex.EncodeToString(m[:])
}

func (m MilestoneID) String() string {
	return m.ToHex()
}

// OutputID is the concatenation of a TransactionID and the uint16 index of the output
// within that transaction.
type OutputID [OutputIDLength]byte

func OutputIDFromTransactionIDAndIndex(transactionID TransactionID, index uint16) OutputID {
	var outputID OutputID
	copy(outputID[:], transactionID[:])
	binary.LittleEndian.PutUint16(outputID[TransactionIDLength:], index)

	return outputID
}

func OutputIDFromBytes(b []byte) (OutputID, int, error) {
	var id OutputID
	if len(b) < OutputIDLength {
		return id, 0, ErrInvalidIdentifierLength
	}
	copy(id[:], b)

	return id, OutputIDLength, nil
}

func (o OutputID) TransactionID() TransactionID {
	var transactionID TransactionID
	copy(transactionID[:], o[:TransactionIDLength])

	return transactionID
}

func (o OutputID) Index() uint16 {
	return binary.LittleEndian.Uint16(o[TransactionIDLength:])
}

func (o OutputID) Bytes() ([]byte, error) {
	return o[:], nil
}

func (o OutputID) ToHex() string {
	return hex.EncodeToString(o[:])
}

func (o OutputID) String() string {
	return o.ToHex()
}

// OutputIDs is a slice of OutputID.
type OutputIDs []OutputID

// RemoveDupsAndSort removes duplicated OutputIDs and sorts the slice by byte order.
func (ids OutputIDs) RemoveDupsAndSort() OutputIDs {
	sorted := append(OutputIDs{}, ids...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	var result OutputIDs
	var previous OutputID
	for i, id := range sorted {
		if i == 0 || !bytes.Equal(previous[:], id[:]) {
			result = append(result, id)
		}
		previous = id
	}

	return result
}

// MilestoneIndex is the index of a milestone. The ledger advances by exactly one index
// per confirmed milestone.
type MilestoneIndex uint32

func MilestoneIndexFromBytes(b []byte) (MilestoneIndex, int, error) {
	if len(b) < MilestoneIndexLength {
		return 0, 0, ierrors.New("invalid milestone index length")
	}

	return MilestoneIndex(binary.LittleEndian.Uint32(b)), MilestoneIndexLength, nil
}

func (i MilestoneIndex) Bytes() ([]byte, error) {
	return i.MustBytes(), nil
}

func (i MilestoneIndex) MustBytes() []byte {
	b := make([]byte, MilestoneIndexLength)
	binary.LittleEndian.PutUint32(b, uint32(i))

	return b
}

func (i MilestoneIndex) String() string {
	return "MilestoneIndex(" + strconv.FormatUint(uint64(i), 10) + ")"
}

// BaseToken is an amount of base tokens.
type BaseToken uint64
