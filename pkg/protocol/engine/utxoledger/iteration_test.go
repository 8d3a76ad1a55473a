//nolint:forcetypeassert,varnamelen,revive,exhaustruct // we don't care about these linters in test cases
package utxoledger_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/utxoledger"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/utxoledger/tpkg"
	"github.com/iotaledger/whiteflag/pkg/utils"
)

func TestUTXOComputeBalance(t *testing.T) {
	manager := utxoledger.New(mapdb.NewMapDB(), model.TestProtocolParameters())

	initialOutput := tpkg.RandLedgerStateOutputOnAddressWithAmount(model.OutputBasic, utils.RandAddress(), 2_134_656_365)
	require.NoError(t, manager.AddGenesisUnspentOutput(initialOutput))
	require.NoError(t, manager.AddGenesisUnspentOutput(tpkg.RandLedgerStateOutputOnAddressWithAmount(model.OutputDustAllowance, utils.RandAddress(), 56_549_524)))
	require.NoError(t, manager.AddGenesisUnspentOutput(tpkg.RandLedgerStateOutputOnAddressWithAmount(model.OutputBasic, utils.RandAddress(), 25_548_858)))
	require.NoError(t, manager.AddGenesisUnspentOutput(tpkg.RandLedgerStateOutputOnAddressWithAmount(model.OutputDustAllowance, utils.RandAddress(), 545_699_656)))
	require.NoError(t, manager.AddGenesisUnspentOutput(tpkg.RandLedgerStateOutputOnAddressWithAmount(model.OutputBasic, utils.RandAddress(), 626_659_696)))

	index := model.MilestoneIndex(1)

	outputs := utxoledger.Outputs{
		tpkg.RandLedgerStateOutputOnAddressWithAmount(model.OutputBasic, utils.RandAddress(), 2_134_656_365),
	}

	spents := utxoledger.Spents{
		tpkg.RandLedgerStateSpentWithOutput(initialOutput, index),
	}

	require.NoError(t, manager.ApplyDiffWithoutLocking(index, outputs, spents))

	spent, err := manager.SpentOutputs()
	require.NoError(t, err)
	require.Equal(t, 1, len(spent))

	unspent, err := manager.UnspentOutputs()
	require.NoError(t, err)
	require.Equal(t, 5, len(unspent))

	balance, count, err := manager.ComputeLedgerBalance()
	require.NoError(t, err)
	require.Equal(t, 5, count)
	require.Equal(t, model.BaseToken(56_549_524+25_548_858+545_699_656+626_659_696+2_134_656_365), balance)
}

func TestUTXOIteration(t *testing.T) {
	manager := utxoledger.New(mapdb.NewMapDB(), model.TestProtocolParameters())

	outputs := utxoledger.Outputs{
		tpkg.RandLedgerStateOutputOnAddress(model.OutputBasic, utils.RandAddress()),
		tpkg.RandLedgerStateOutputOnAddress(model.OutputBasic, utils.RandAddress()),
		tpkg.RandLedgerStateOutputOnAddress(model.OutputBasic, utils.RandAddress()),
		tpkg.RandLedgerStateOutputOnAddress(model.OutputBasic, utils.RandAddress()),
		tpkg.RandLedgerStateOutputOnAddress(model.OutputBasic, utils.RandAddress()),
		tpkg.RandLedgerStateOutputOnAddress(model.OutputDustAllowance, utils.RandAddress()),
		tpkg.RandLedgerStateOutputOnAddress(model.OutputDustAllowance, utils.RandAddress()),
		tpkg.RandLedgerStateOutputOnAddress(model.OutputDustAllowance, utils.RandAddress()),
		tpkg.RandLedgerStateOutputOnAddress(model.OutputBasic, utils.RandAddress()),
		tpkg.RandLedgerStateOutputOnAddress(model.OutputBasic, utils.RandAddress()),
	}

	index := model.MilestoneIndex(1)

	spents := utxoledger.Spents{
		tpkg.RandLedgerStateSpentWithOutput(outputs[3], index),
		tpkg.RandLedgerStateSpentWithOutput(outputs[2], index),
		tpkg.RandLedgerStateSpentWithOutput(outputs[7], index),
	}

	require.NoError(t, manager.ApplyDiffWithoutLocking(index, outputs, spents))

	// Prepare values to check
	outputByID := make(map[string]struct{})
	unspentByID := make(map[string]struct{})
	spentByID := make(map[string]struct{})

	for _, output := range outputs {
		outputByID[output.MapKey()] = struct{}{}
		unspentByID[output.MapKey()] = struct{}{}
	}
	for _, spent := range spents {
		spentByID[spent.MapKey()] = struct{}{}
		delete(unspentByID, spent.MapKey())
	}

	// Test iteration without filters
	require.NoError(t, manager.ForEachOutput(func(output *utxoledger.Output) bool {
		_, has := outputByID[output.MapKey()]
		require.True(t, has)
		delete(outputByID, output.MapKey())

		return true
	}))

	require.Empty(t, outputByID)

	require.NoError(t, manager.ForEachUnspentOutput(func(output *utxoledger.Output) bool {
		_, has := unspentByID[output.MapKey()]
		require.True(t, has)
		delete(unspentByID, output.MapKey())

		return true
	}))
	require.Empty(t, unspentByID)

	require.NoError(t, manager.ForEachSpentOutput(func(spent *utxoledger.Spent) bool {
		_, has := spentByID[spent.MapKey()]
		require.True(t, has)
		delete(spentByID, spent.MapKey())

		return true
	}))

	require.Empty(t, spentByID)
}

func TestUTXOIterationMaxResultCount(t *testing.T) {
	manager := utxoledger.New(mapdb.NewMapDB(), model.TestProtocolParameters())

	outputs := utxoledger.Outputs{
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
	}

	require.NoError(t, manager.ApplyDiffWithoutLocking(1, outputs, utxoledger.Spents{}))

	var count int
	require.NoError(t, manager.ForEachUnspentOutput(func(_ *utxoledger.Output) bool {
		count++

		return true
	}, utxoledger.MaxResultCount(3)))
	require.Equal(t, 3, count)

	ids, err := manager.UnspentOutputsIDs(utxoledger.MaxResultCount(2))
	require.NoError(t, err)
	require.Equal(t, 2, len(ids))
}
