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

func TestConfirmationApplyAndRollbackToEmptyLedger(t *testing.T) {
	manager := utxoledger.New(mapdb.NewMapDB(), model.TestProtocolParameters())

	outputs := utxoledger.Outputs{
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputDustAllowance), // spent
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),         // spent
		tpkg.RandLedgerStateOutputWithType(model.OutputDustAllowance),
	}

	index := model.MilestoneIndex(1)

	spents := utxoledger.Spents{
		tpkg.RandLedgerStateSpentWithOutput(outputs[3], index),
		tpkg.RandLedgerStateSpentWithOutput(outputs[2], index),
	}

	require.NoError(t, manager.ApplyDiffWithoutLocking(index, outputs, spents))

	require.NotEqual(t, manager.StateTreeRoot(), model.Identifier{})
	require.True(t, manager.CheckStateTree())

	var outputCount int
	require.NoError(t, manager.ForEachOutput(func(_ *utxoledger.Output) bool {
		outputCount++

		return true
	}))
	require.Equal(t, 5, outputCount)

	var unspentCount int
	require.NoError(t, manager.ForEachUnspentOutput(func(_ *utxoledger.Output) bool {
		unspentCount++

		return true
	}))
	require.Equal(t, 3, unspentCount)

	var spentCount int
	require.NoError(t, manager.ForEachSpentOutput(func(_ *utxoledger.Spent) bool {
		spentCount++

		return true
	}))
	require.Equal(t, 2, spentCount)

	require.NoError(t, manager.RollbackDiffWithoutLocking(index, outputs, spents))

	require.NoError(t, manager.ForEachOutput(func(_ *utxoledger.Output) bool {
		require.Fail(t, "should not be called")

		return true
	}))

	require.NoError(t, manager.ForEachUnspentOutput(func(_ *utxoledger.Output) bool {
		require.Fail(t, "should not be called")

		return true
	}))

	require.NoError(t, manager.ForEachSpentOutput(func(_ *utxoledger.Spent) bool {
		require.Fail(t, "should not be called")

		return true
	}))

	require.NoError(t, manager.ForEachBalance(func(_ *utxoledger.Balance) bool {
		require.Fail(t, "should not be called")

		return true
	}))

	require.Equal(t, manager.StateTreeRoot(), model.Identifier{})
	require.True(t, manager.CheckStateTree())
}

func TestConfirmationApplyAndRollbackToPreviousLedger(t *testing.T) {
	manager := utxoledger.New(mapdb.NewMapDB(), model.TestProtocolParameters())

	previousOutputs := utxoledger.Outputs{
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),         // spent
		tpkg.RandLedgerStateOutputWithType(model.OutputDustAllowance), // spent on 2nd confirmation
	}

	previousMsIndex := model.MilestoneIndex(1)
	previousSpents := utxoledger.Spents{
		tpkg.RandLedgerStateSpentWithOutput(previousOutputs[1], previousMsIndex),
	}
	require.NoError(t, manager.ApplyDiffWithoutLocking(previousMsIndex, previousOutputs, previousSpents))

	require.True(t, manager.CheckStateTree())

	ledgerIndex, err := manager.ReadLedgerIndex()
	require.NoError(t, err)
	require.Equal(t, previousMsIndex, ledgerIndex)

	outputs := utxoledger.Outputs{
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputDustAllowance),
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic), // spent
	}

	index := model.MilestoneIndex(2)

	spents := utxoledger.Spents{
		tpkg.RandLedgerStateSpentWithOutput(previousOutputs[2], index),
		tpkg.RandLedgerStateSpentWithOutput(outputs[2], index),
	}
	require.NoError(t, manager.ApplyDiffWithoutLocking(index, outputs, spents))

	require.True(t, manager.CheckStateTree())

	ledgerIndex, err = manager.ReadLedgerIndex()
	require.NoError(t, err)
	require.Equal(t, index, ledgerIndex)

	// Prepare values to check
	outputByOutputID := make(map[string]struct{})
	unspentByOutputID := make(map[string]struct{})
	for _, output := range previousOutputs {
		outputByOutputID[output.MapKey()] = struct{}{}
		unspentByOutputID[output.MapKey()] = struct{}{}
	}
	for _, output := range outputs {
		outputByOutputID[output.MapKey()] = struct{}{}
		unspentByOutputID[output.MapKey()] = struct{}{}
	}

	spentByOutputID := make(map[string]struct{})
	for _, spent := range previousSpents {
		spentByOutputID[spent.MapKey()] = struct{}{}
		delete(unspentByOutputID, spent.MapKey())
	}
	for _, spent := range spents {
		spentByOutputID[spent.MapKey()] = struct{}{}
		delete(unspentByOutputID, spent.MapKey())
	}

	var outputCount int
	require.NoError(t, manager.ForEachOutput(func(output *utxoledger.Output) bool {
		outputCount++
		_, has := outputByOutputID[output.MapKey()]
		require.True(t, has)
		delete(outputByOutputID, output.MapKey())

		return true
	}))
	require.Empty(t, outputByOutputID)
	require.Equal(t, 6, outputCount)

	var unspentCount int
	require.NoError(t, manager.ForEachUnspentOutput(func(output *utxoledger.Output) bool {
		unspentCount++
		_, has := unspentByOutputID[output.MapKey()]
		require.True(t, has)
		delete(unspentByOutputID, output.MapKey())

		return true
	}))
	require.Equal(t, 3, unspentCount)
	require.Empty(t, unspentByOutputID)

	var spentCount int
	require.NoError(t, manager.ForEachSpentOutput(func(spent *utxoledger.Spent) bool {
		spentCount++
		_, has := spentByOutputID[spent.MapKey()]
		require.True(t, has)
		delete(spentByOutputID, spent.MapKey())

		return true
	}))
	require.Empty(t, spentByOutputID)
	require.Equal(t, 3, spentCount)

	require.NoError(t, manager.RollbackDiffWithoutLocking(index, outputs, spents))

	require.True(t, manager.CheckStateTree())

	ledgerIndex, err = manager.ReadLedgerIndex()
	require.NoError(t, err)
	require.Equal(t, previousMsIndex, ledgerIndex)

	// Prepare values to check
	outputByOutputID = make(map[string]struct{})
	unspentByOutputID = make(map[string]struct{})
	spentByOutputID = make(map[string]struct{})

	for _, output := range previousOutputs {
		outputByOutputID[output.MapKey()] = struct{}{}
		unspentByOutputID[output.MapKey()] = struct{}{}
	}

	for _, spent := range previousSpents {
		spentByOutputID[spent.MapKey()] = struct{}{}
		delete(unspentByOutputID, spent.MapKey())
	}

	require.NoError(t, manager.ForEachOutput(func(output *utxoledger.Output) bool {
		_, has := outputByOutputID[output.MapKey()]
		require.True(t, has)
		delete(outputByOutputID, output.MapKey())

		return true
	}))
	require.Empty(t, outputByOutputID)

	require.NoError(t, manager.ForEachUnspentOutput(func(output *utxoledger.Output) bool {
		_, has := unspentByOutputID[output.MapKey()]
		require.True(t, has)
		delete(unspentByOutputID, output.MapKey())

		return true
	}))
	require.Empty(t, unspentByOutputID)

	require.NoError(t, manager.ForEachSpentOutput(func(spent *utxoledger.Spent) bool {
		_, has := spentByOutputID[spent.MapKey()]
		require.True(t, has)
		delete(spentByOutputID, spent.MapKey())

		return true
	}))
	require.Empty(t, spentByOutputID)
}

func TestConfirmationRefusesNonContiguousIndex(t *testing.T) {
	manager := utxoledger.New(mapdb.NewMapDB(), model.TestProtocolParameters())

	outputs := utxoledger.Outputs{
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
	}

	err := manager.ApplyDiffWithoutLocking(5, outputs, utxoledger.Spents{})
	require.ErrorIs(t, err, utxoledger.ErrMilestoneDiffIndexMismatch)

	require.NoError(t, manager.ApplyDiffWithoutLocking(1, outputs, utxoledger.Spents{}))

	err = manager.RollbackDiffWithoutLocking(2, outputs, utxoledger.Spents{})
	require.ErrorIs(t, err, utxoledger.ErrMilestoneDiffIndexMismatch)

	require.NoError(t, manager.RollbackDiffWithoutLocking(1, outputs, utxoledger.Spents{}))

	ledgerIndex, err := manager.ReadLedgerIndex()
	require.NoError(t, err)
	require.Equal(t, model.MilestoneIndex(0), ledgerIndex)
}

func TestLedgerStateSHA256Sum(t *testing.T) {
	manager := utxoledger.New(mapdb.NewMapDB(), model.TestProtocolParameters())

	outputs := utxoledger.Outputs{
		tpkg.RandLedgerStateOutputWithType(model.OutputBasic),
		tpkg.RandLedgerStateOutputWithType(model.OutputDustAllowance),
	}
	spents := utxoledger.Spents{
		tpkg.RandLedgerStateSpentWithOutput(outputs[1], 1),
	}
	require.NoError(t, manager.ApplyDiffWithoutLocking(1, outputs, spents))

	sum, err := manager.LedgerStateSHA256Sum()
	require.NoError(t, err)

	sumAgain, err := manager.LedgerStateSHA256Sum()
	require.NoError(t, err)
	require.Equal(t, sum, sumAgain)

	require.NoError(t, manager.RollbackDiffWithoutLocking(1, outputs, spents))

	sumEmpty, err := manager.LedgerStateSHA256Sum()
	require.NoError(t, err)
	require.NotEqual(t, sum, sumEmpty)
}

func TestCheckLedgerState(t *testing.T) {
	protocolParams := model.TestProtocolParameters()
	manager := utxoledger.New(mapdb.NewMapDB(), protocolParams)

	genesis := tpkg.RandLedgerStateOutputOnAddressWithAmount(model.OutputBasic, utils.RandAddress(), protocolParams.TokenSupply)
	require.NoError(t, manager.AddGenesisUnspentOutput(genesis))

	require.NoError(t, manager.CheckLedgerState(protocolParams.TokenSupply))
	require.ErrorIs(t, manager.CheckLedgerState(protocolParams.TokenSupply-1), utxoledger.ErrOutputsSumNotEqualTotalSupply)
}
