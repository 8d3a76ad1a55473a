package utils

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"math/big"

	"github.com/iotaledger/whiteflag/pkg/model"
)

func RandomRead(p []byte) (n int, err error) {
	return rand.Read(p)
}

func RandomIntn(n int) int {
	result, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}

	return int(result.Int64())
}

func RandomInt31n(n int32) int32 {
	result, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}

	return int32(result.Int64())
}

func RandomInt63n(n int64) int64 {
	result, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		panic(err)
	}

	return result.Int64()
}

// RandBytes returns length amount random bytes.
func RandBytes(length int) []byte {
	b := make([]byte, length)
	if _, err := RandomRead(b); err != nil {
		panic(err)
	}

	return b
}

// RandUint16 returns a random uint16.
func RandUint16(max uint16) uint16 {
	return uint16(RandomInt31n(int32(max)))
}

// RandUint32 returns a random uint32.
func RandUint32(max uint32) uint32 {
	return uint32(RandomInt63n(int64(max)))
}

// RandUint64 returns a random uint64.
func RandUint64(max uint64) uint64 {
	return uint64(RandomInt63n(int64(uint32(max))))
}

func RandOutputID(index ...uint16) model.OutputID {
	idx := RandUint16(126)
	if len(index) > 0 {
		idx = index[0]
	}

	var outputID model.OutputID
	if _, err := RandomRead(outputID[:model.TransactionIDLength]); err != nil {
		panic(err)
	}

	binary.LittleEndian.PutUint16(outputID[model.TransactionIDLength:], idx)

	return outputID
}

func RandBlockID() model.BlockID {
	blockID := model.BlockID{}
	copy(blockID[:], RandBytes(model.BlockIDLength))

	return blockID
}

func RandTransactionID() model.TransactionID {
	transactionID := model.TransactionID{}
	copy(transactionID[:], RandBytes(model.TransactionIDLength))

	return transactionID
}

func RandMilestoneID() model.MilestoneID {
	milestoneID := model.MilestoneID{}
	copy(milestoneID[:], RandBytes(model.MilestoneIDLength))

	return milestoneID
}

func RandMilestoneIndex() model.MilestoneIndex {
	return model.MilestoneIndex(RandUint32(1000000))
}

func RandAddress() model.Address {
	address := model.Address{}
	copy(address[:], RandBytes(model.AddressLength))

	return address
}

func RandPubKey() ed25519.PublicKey {
	pubKey, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}

	return pubKey
}

func RandAmount() model.BaseToken {
	return model.BaseToken(RandUint64(1000000) + 1)
}

func RandOutputType() model.OutputType {
	if RandomIntn(2) == 0 {
		return model.OutputBasic
	}

	return model.OutputDustAllowance
}

func RandOutput(outputType model.OutputType) model.Output {
	return RandOutputOnAddress(outputType, RandAddress())
}

func RandOutputOnAddress(outputType model.OutputType, address model.Address) model.Output {
	return RandOutputOnAddressWithAmount(outputType, address, RandAmount())
}

func RandOutputOnAddressWithAmount(outputType model.OutputType, address model.Address, amount model.BaseToken) model.Output {
	switch outputType {
	case model.OutputBasic:
		return model.NewBasicOutput(address, amount)
	case model.OutputDustAllowance:
		return model.NewDustAllowanceOutput(address, amount)
	default:
		panic("unknown output type")
	}
}
