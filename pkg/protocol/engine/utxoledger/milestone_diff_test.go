//nolint:forcetypeassert,varnamelen,revive,exhaustruct // we don't care about these linters in test cases
package utxoledger_test

import (
	"encoding/binary"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2/byteutils"
	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/utxoledger"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/utxoledger/tpkg"
	"github.com/iotaledger/whiteflag/pkg/utils"
)

func TestSimpleMilestoneDiffSerialization(t *testing.T) {
	indexBooked := model.MilestoneIndex(255975)

	output := tpkg.RandLedgerStateOutputWithType(model.OutputBasic)
	outputID := output.OutputID()

	transactionIDSpent := utils.RandTransactionID()

	indexSpent := indexBooked + 1

	spent := utxoledger.NewSpent(output, transactionIDSpent, indexSpent)

	diff := &utxoledger.MilestoneDiff{
		Index:   indexSpent,
		Outputs: utxoledger.Outputs{output},
		Spents:  utxoledger.Spents{spent},
	}

	require.Equal(t, byteutils.ConcatBytes([]byte{utxoledger.StoreKeyPrefixMilestoneDiffs}, lo.PanicOnErr(indexSpent.Bytes())), diff.KVStorableKey())

	value := diff.KVStorableValue()
	require.Equal(t, model.OutputIDLength*2+8, len(value))
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(value[:4]))
	require.Equal(t, outputID[:], value[4:4+model.OutputIDLength])
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(value[4+model.OutputIDLength:model.OutputIDLength+8]))
	require.Equal(t, outputID[:], value[model.OutputIDLength+8:model.OutputIDLength*2+8])
}

func TestMilestoneDiffSerialization(t *testing.T) {
	manager := utxoledger.New(mapdb.NewMapDB(), model.TestProtocolParameters())

	outputs := utxoledger.Outputs{
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
	}

	index := model.MilestoneIndex(1)

	spents := utxoledger.Spents{
		tpkg.RandLedgerStateSpentWithOutput(outputs[3], index),
		tpkg.RandLedgerStateSpentWithOutput(outputs[2], index),
	}

	require.NoError(t, manager.ApplyDiffWithoutLocking(index, outputs, spents))

	readDiff, err := manager.MilestoneDiffWithoutLocking(index)
	require.NoError(t, err)

	var sortedOutputs = utxoledger.LexicalOrderedOutputs(outputs)
	sort.Sort(sortedOutputs)

	var sortedSpents = utxoledger.LexicalOrderedSpents(spents)
	sort.Sort(sortedSpents)

	require.Equal(t, index, readDiff.Index)
	tpkg.EqualOutputs(t, utxoledger.Outputs(sortedOutputs), readDiff.Outputs)
	tpkg.EqualSpents(t, utxoledger.Spents(sortedSpents), readDiff.Spents)
}

func TestMilestoneDiffBalanceDiff(t *testing.T) {
	protocolParams := model.TestProtocolParameters()

	address := utils.RandAddress()
	created := tpkg.RandLedgerStateOutputOnAddressWithAmount(model.OutputBasic, address, 3_000_000)
	consumed := tpkg.RandLedgerStateOutputOnAddressWithAmount(model.OutputBasic, address, 1_250_000)

	diff := &utxoledger.MilestoneDiff{
		Index:   2,
		Outputs: utxoledger.Outputs{created},
		Spents:  utxoledger.Spents{utxoledger.NewSpent(consumed, utils.RandTransactionID(), 2)},
	}

	balanceDiff := diff.BalanceDiff(protocolParams)
	require.Equal(t, int64(3_000_000-1_250_000), balanceDiff.AmountSum())
}
