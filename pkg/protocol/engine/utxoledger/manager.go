package utxoledger

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/iotaledger/hive.go/ads"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/whiteflag/pkg/model"
)

var (
	// ErrOutputsSumNotEqualTotalSupply is returned if the sum of the output base token amounts is not equal the total supply of tokens.
	ErrOutputsSumNotEqualTotalSupply = ierrors.New("accumulated output balance is not equal to total supply")

	// ErrMilestoneDiffIndexMismatch is returned when a diff is applied or rolled back out of order.
	ErrMilestoneDiffIndexMismatch = ierrors.New("milestone diff index does not fit the current ledger index")
)

// Manager is the ledger state store. It holds the unspent transaction outputs, the spent
// outputs with their spending metadata, per-address balances, per-milestone diffs and an
// authenticated state tree over the unspent set. All mutations of one milestone are
// committed in a single batch.
type Manager struct {
	store     kvstore.KVStore
	storeLock syncutils.RWMutex

	protocolParams *model.ProtocolParameters

	stateTree ads.Map[model.Identifier, model.OutputID, *stateTreeMetadata]
}

func New(store kvstore.KVStore, protocolParams *model.ProtocolParameters) *Manager {
	return &Manager{
		store:          store,
		protocolParams: protocolParams,
		stateTree: ads.NewMap[model.Identifier](lo.PanicOnErr(store.WithExtendedRealm(kvstore.Realm{StoreKeyPrefixStateTree})),
			model.Identifier.Bytes,
			model.IdentifierFromBytes,
			model.OutputID.Bytes,
			model.OutputIDFromBytes,
			(*stateTreeMetadata).Bytes,
			stateMetadataFromBytes,
		),
	}
}

// KVStore returns the underlying KVStore.
func (m *Manager) KVStore() kvstore.KVStore {
	return m.store
}

// ProtocolParameters returns the protocol parameters the ledger validates against.
func (m *Manager) ProtocolParameters() *model.ProtocolParameters {
	return m.protocolParams
}

// ClearLedgerState removes all entries from the ledger (spent, unspent, diff, balances).
func (m *Manager) ClearLedgerState() (err error) {
	m.WriteLockLedger()
	defer m.WriteUnlockLedger()

	defer func() {
		if errFlush := m.store.Flush(); err == nil && errFlush != nil {
			err = errFlush
		}
	}()

	return m.store.Clear()
}

func (m *Manager) ReadLockLedger() {
	m.storeLock.RLock()
}

func (m *Manager) ReadUnlockLedger() {
	m.storeLock.RUnlock()
}

func (m *Manager) WriteLockLedger() {
	m.storeLock.Lock()
}

func (m *Manager) WriteUnlockLedger() {
	m.storeLock.Unlock()
}

// PruneMilestoneIndexWithoutLocking removes the diff and the consumed spents of the given
// milestone. The unspent set stays untouched.
func (m *Manager) PruneMilestoneIndexWithoutLocking(index model.MilestoneIndex) error {
	diff, err := m.MilestoneDiffWithoutLocking(index)
	if err != nil {
		// There's no need to prune this milestone.
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return nil
		}

		return err
	}

	mutations, err := m.store.Batched()
	if err != nil {
		return err
	}

	for _, spent := range diff.Spents {
		if err := deleteOutput(spent.output, mutations); err != nil {
			mutations.Cancel()

			return err
		}

		if err := deleteSpent(spent, mutations); err != nil {
			mutations.Cancel()

			return err
		}
	}

	if err := deleteDiff(index, mutations); err != nil {
		mutations.Cancel()

		return err
	}

	return mutations.Commit()
}

func (m *Manager) PruneMilestoneIndex(index model.MilestoneIndex) error {
	m.WriteLockLedger()
	defer m.WriteUnlockLedger()

	return m.PruneMilestoneIndexWithoutLocking(index)
}

func storeLedgerIndex(index model.MilestoneIndex, mutations kvstore.BatchedMutations) error {
	return mutations.Set([]byte{StoreKeyPrefixLedgerMilestoneIndex}, index.MustBytes())
}

func (m *Manager) StoreLedgerIndexWithoutLocking(index model.MilestoneIndex) error {
	return m.store.Set([]byte{StoreKeyPrefixLedgerMilestoneIndex}, index.MustBytes())
}

func (m *Manager) StoreLedgerIndex(index model.MilestoneIndex) error {
	m.WriteLockLedger()
	defer m.WriteUnlockLedger()

	return m.StoreLedgerIndexWithoutLocking(index)
}

func (m *Manager) ReadLedgerIndexWithoutLocking() (model.MilestoneIndex, error) {
	value, err := m.store.Get([]byte{StoreKeyPrefixLedgerMilestoneIndex})
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			// there is no ledger milestone yet => return 0
			return 0, nil
		}

		return 0, ierrors.Errorf("failed to load ledger milestone index: %w", err)
	}

	return lo.DropCount(model.MilestoneIndexFromBytes(value))
}

func (m *Manager) ReadLedgerIndex() (model.MilestoneIndex, error) {
	m.ReadLockLedger()
	defer m.ReadUnlockLedger()

	return m.ReadLedgerIndexWithoutLocking()
}

// ApplyDiffWithoutLocking advances the ledger to the given milestone index by booking
// the created outputs and the consumed spents. The index must be exactly one higher than
// the current ledger index. All column mutations commit in one batch.
func (m *Manager) ApplyDiffWithoutLocking(index model.MilestoneIndex, newOutputs Outputs, newSpents Spents) error {
	ledgerIndex, err := m.ReadLedgerIndexWithoutLocking()
	if err != nil {
		return err
	}

	if index != ledgerIndex+1 {
		return ierrors.Wrapf(ErrMilestoneDiffIndexMismatch, "apply: ledger index %d, diff index %d", ledgerIndex, index)
	}

	mutations, err := m.store.Batched()
	if err != nil {
		return err
	}

	for _, output := range newOutputs {
		if err := storeOutput(output, mutations); err != nil {
			mutations.Cancel()

			return err
		}
		if err := markAsUnspent(output, mutations); err != nil {
			mutations.Cancel()

			return err
		}
	}

	for _, spent := range newSpents {
		if err := storeSpentAndMarkOutputAsSpent(spent, mutations); err != nil {
			mutations.Cancel()

			return err
		}
	}

	msDiff := &MilestoneDiff{
		Index:   index,
		Outputs: newOutputs,
		Spents:  newSpents,
	}

	if err := storeDiff(msDiff, mutations); err != nil {
		mutations.Cancel()

		return err
	}

	balanceDiff := NewBalanceDiff(m.protocolParams)
	balanceDiff.Add(newOutputs, newSpents)
	if err := m.applyBalanceDiff(balanceDiff, mutations); err != nil {
		mutations.Cancel()

		return err
	}

	if err := storeLedgerIndex(index, mutations); err != nil {
		mutations.Cancel()

		return err
	}

	if err := mutations.Commit(); err != nil {
		return err
	}

	for _, output := range newOutputs {
		if err := m.stateTree.Set(output.OutputID(), newStateMetadata(output)); err != nil {
			return ierrors.Wrapf(err, "failed to set new output in state tree, outputID: %s", output.OutputID().ToHex())
		}
	}
	for _, spent := range newSpents {
		if _, err := m.stateTree.Delete(spent.OutputID()); err != nil {
			return ierrors.Wrapf(err, "failed to delete spent output from state tree, outputID: %s", spent.OutputID().ToHex())
		}
	}

	if err := m.stateTree.Commit(); err != nil {
		return ierrors.Wrap(err, "failed to commit state tree")
	}

	return nil
}

func (m *Manager) ApplyDiff(index model.MilestoneIndex, newOutputs Outputs, newSpents Spents) error {
	m.WriteLockLedger()
	defer m.WriteUnlockLedger()

	return m.ApplyDiffWithoutLocking(index, newOutputs, newSpents)
}

// RollbackDiffWithoutLocking reverts the ledger to the state before the given milestone.
// The index must equal the current ledger index. Rolling back an applied diff restores
// every column to its previous state.
func (m *Manager) RollbackDiffWithoutLocking(index model.MilestoneIndex, newOutputs Outputs, newSpents Spents) error {
	ledgerIndex, err := m.ReadLedgerIndexWithoutLocking()
	if err != nil {
		return err
	}

	if index != ledgerIndex {
		return ierrors.Wrapf(ErrMilestoneDiffIndexMismatch, "rollback: ledger index %d, diff index %d", ledgerIndex, index)
	}

	mutations, err := m.store.Batched()
	if err != nil {
		return err
	}

	// we have to store the spents as output and mark them as unspent
	for _, spent := range newSpents {
		if err := storeOutput(spent.output, mutations); err != nil {
			mutations.Cancel()

			return err
		}

		if err := deleteSpentAndMarkOutputAsUnspent(spent, mutations); err != nil {
			mutations.Cancel()

			return err
		}
	}

	// we have to delete the newOutputs of this milestone
	for _, output := range newOutputs {
		if err := deleteOutput(output, mutations); err != nil {
			mutations.Cancel()

			return err
		}
		if err := deleteOutputLookups(output, mutations); err != nil {
			mutations.Cancel()

			return err
		}
	}

	if err := deleteDiff(index, mutations); err != nil {
		mutations.Cancel()

		return err
	}

	balanceDiff := NewBalanceDiff(m.protocolParams)
	balanceDiff.Add(newOutputs, newSpents)
	if err := m.applyBalanceDiff(balanceDiff.Negated(), mutations); err != nil {
		mutations.Cancel()

		return err
	}

	if err := storeLedgerIndex(index-1, mutations); err != nil {
		mutations.Cancel()

		return err
	}

	if err := mutations.Commit(); err != nil {
		return err
	}

	for _, spent := range newSpents {
		if err := m.stateTree.Set(spent.OutputID(), newStateMetadata(spent.Output())); err != nil {
			return ierrors.Wrapf(err, "failed to set spent output in state tree, outputID: %s", spent.OutputID().ToHex())
		}
	}
	for _, output := range newOutputs {
		if _, err := m.stateTree.Delete(output.OutputID()); err != nil {
			return ierrors.Wrapf(err, "failed to delete new output from state tree, outputID: %s", output.OutputID().ToHex())
		}
	}

	if err := m.stateTree.Commit(); err != nil {
		return ierrors.Wrap(err, "failed to commit state tree")
	}

	return nil
}

func (m *Manager) RollbackDiff(index model.MilestoneIndex, newOutputs Outputs, newSpents Spents) error {
	m.WriteLockLedger()
	defer m.WriteUnlockLedger()

	return m.RollbackDiffWithoutLocking(index, newOutputs, newSpents)
}

// CheckLedgerState verifies that the unspent outputs sum up to the total token supply.
func (m *Manager) CheckLedgerState(tokenSupply model.BaseToken) error {
	total, _, err := m.ComputeLedgerBalance()
	if err != nil {
		return err
	}

	if total != tokenSupply {
		return ErrOutputsSumNotEqualTotalSupply
	}

	return nil
}

// AddGenesisUnspentOutputWithoutLocking books an output without an attached milestone diff.
// It is used to set up the initial ledger state.
func (m *Manager) AddGenesisUnspentOutputWithoutLocking(unspentOutput *Output) error {
	if err := m.importUnspentOutputWithoutLocking(unspentOutput); err != nil {
		return ierrors.Wrapf(err, "failed to import unspent output, outputID: %s", unspentOutput.OutputID().ToHex())
	}

	if err := m.stateTree.Commit(); err != nil {
		return ierrors.Wrap(err, "failed to commit state tree")
	}

	return nil
}

func (m *Manager) importUnspentOutputWithoutLocking(unspentOutput *Output) error {
	mutations, err := m.store.Batched()
	if err != nil {
		return err
	}

	if err := storeOutput(unspentOutput, mutations); err != nil {
		mutations.Cancel()

		return err
	}

	if err := markAsUnspent(unspentOutput, mutations); err != nil {
		mutations.Cancel()

		return err
	}

	balanceDiff := NewBalanceDiff(m.protocolParams)
	balanceDiff.AddOutput(unspentOutput)
	if err := m.applyBalanceDiff(balanceDiff, mutations); err != nil {
		mutations.Cancel()

		return err
	}

	if err := mutations.Commit(); err != nil {
		return err
	}

	if err := m.stateTree.Set(unspentOutput.OutputID(), newStateMetadata(unspentOutput)); err != nil {
		return ierrors.Wrapf(err, "failed to set state tree entry for output, outputID: %s", unspentOutput.OutputID().ToHex())
	}

	return nil
}

func (m *Manager) AddGenesisUnspentOutput(unspentOutput *Output) error {
	m.WriteLockLedger()
	defer m.WriteUnlockLedger()

	return m.AddGenesisUnspentOutputWithoutLocking(unspentOutput)
}

// LedgerStateSHA256Sum hashes the ledger index, the sorted unspent outputs and the state
// tree root into a single digest. Two ledgers with the same digest hold the same state.
func (m *Manager) LedgerStateSHA256Sum() ([]byte, error) {
	m.ReadLockLedger()
	defer m.ReadUnlockLedger()

	ledgerStateHash := sha256.New()

	ledgerIndex, err := m.ReadLedgerIndexWithoutLocking()
	if err != nil {
		return nil, err
	}
	if err := binary.Write(ledgerStateHash, binary.LittleEndian, uint32(ledgerIndex)); err != nil {
		return nil, err
	}

	// get all UTXOs and sort them by outputID
	outputIDs, err := m.UnspentOutputsIDs(ReadLockLedger(false))
	if err != nil {
		return nil, err
	}

	for _, outputID := range outputIDs.RemoveDupsAndSort() {
		output, err := m.ReadOutputByOutputIDWithoutLocking(outputID)
		if err != nil {
			return nil, err
		}

		if _, err := ledgerStateHash.Write(output.outputID[:]); err != nil {
			return nil, err
		}

		if _, err := ledgerStateHash.Write(output.KVStorableValue()); err != nil {
			return nil, err
		}
	}

	// Add root of the state tree
	stateTreeBytes, err := m.StateTreeRoot().Bytes()
	if err != nil {
		return nil, err
	}

	if _, err := ledgerStateHash.Write(stateTreeBytes); err != nil {
		return nil, err
	}

	// calculate sha256 hash
	return ledgerStateHash.Sum(nil), nil
}
