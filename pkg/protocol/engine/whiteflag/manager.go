package whiteflag

import (
	"go.uber.org/atomic"

	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/hive.go/runtime/workerpool"
	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/tangle"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/utxoledger"
)

// Manager is the milestone confirmation front end. Confirmation requests are strictly
// serialized: asynchronous submissions run on a single worker and synchronous calls
// share one non reentrant lock, so no two runs ever interleave their ledger mutations.
type Manager struct {
	Events *Events

	storage tangle.WritableStorage
	ledger  *utxoledger.Manager

	workerPool       *workerpool.WorkerPool
	confirmationLock syncutils.Mutex

	confirmedIndex atomic.Uint32
	// confirmations holds the rollback window, newest last.
	confirmations         []*Confirmation
	retainedConfirmations int

	log.Logger
}

// WithRetainedConfirmations sets how many confirmations the manager keeps available
// for rollback. The default retains only the most recent one.
func WithRetainedConfirmations(count int) options.Option[Manager] {
	return func(m *Manager) {
		m.retainedConfirmations = count
	}
}

// New creates a confirmation manager on top of the given graph and ledger stores.
func New(logger log.Logger, workers *workerpool.Group, storage tangle.WritableStorage, ledger *utxoledger.Manager, opts ...options.Option[Manager]) *Manager {
	return options.Apply(&Manager{
		Events:                NewEvents(),
		storage:               storage,
		ledger:                ledger,
		workerPool:            workers.CreatePool("Confirmation", workerpool.WithWorkerCount(1)),
		retainedConfirmations: 1,
		Logger:                logger,
	}, opts, func(m *Manager) {
		if ledgerIndex, err := ledger.ReadLedgerIndex(); err == nil {
			m.confirmedIndex.Store(uint32(ledgerIndex))
		}
	})
}

// ConfirmedMilestoneIndex returns the index of the latest confirmed milestone.
func (m *Manager) ConfirmedMilestoneIndex() model.MilestoneIndex {
	return model.MilestoneIndex(m.confirmedIndex.Load())
}

// ConfirmMilestone confirms the milestone carried by the given block and blocks until
// the run completed or failed. A failed run leaves the ledger index unchanged and the
// caller retries once the missing dependency is resolved.
func (m *Manager) ConfirmMilestone(milestoneBlockID model.BlockID) (*Confirmation, error) {
	m.confirmationLock.Lock()
	defer m.confirmationLock.Unlock()

	confirmation, err := ConfirmMilestone(m.storage, m.ledger, milestoneBlockID)
	if err != nil {
		m.LogWarn("milestone confirmation failed", "blockID", milestoneBlockID.ToHex(), "err", err)

		return nil, err
	}

	m.confirmedIndex.Store(uint32(confirmation.MilestoneIndex))

	m.confirmations = append(m.confirmations, confirmation)
	if len(m.confirmations) > m.retainedConfirmations {
		m.confirmations = m.confirmations[len(m.confirmations)-m.retainedConfirmations:]
	}

	m.LogInfo("milestone confirmed",
		"index", confirmation.MilestoneIndex,
		"referenced", confirmation.Stats.BlocksReferenced,
		"included", confirmation.Stats.BlocksIncludedWithTransactions,
		"conflicting", confirmation.Stats.BlocksExcludedWithConflictingTransactions,
		"noTransaction", confirmation.Stats.BlocksExcludedWithoutTransactions,
	)

	m.triggerEvents(confirmation)

	return confirmation, nil
}

// SubmitMilestone queues the milestone carried by the given block for confirmation on
// the single confirmation worker.
func (m *Manager) SubmitMilestone(milestoneBlockID model.BlockID) {
	m.workerPool.Submit(func() {
		if _, err := m.ConfirmMilestone(milestoneBlockID); err != nil {
			m.LogError("queued milestone confirmation failed", "blockID", milestoneBlockID.ToHex(), "err", err)
		}
	})
}

// RollbackLastConfirmation undoes the ledger effects of the most recently confirmed
// milestone, restoring the previous ledger index, balances and unspent set. Repeated
// calls unwind older confirmations up to the retained window.
func (m *Manager) RollbackLastConfirmation() error {
	m.confirmationLock.Lock()
	defer m.confirmationLock.Unlock()

	if len(m.confirmations) == 0 {
		return ErrNoConfirmationToRollback
	}

	confirmation := m.confirmations[len(m.confirmations)-1]
	if err := RollbackConfirmation(m.storage, m.ledger, confirmation); err != nil {
		return err
	}

	m.confirmedIndex.Store(uint32(confirmation.MilestoneIndex - 1))
	m.confirmations = m.confirmations[:len(m.confirmations)-1]

	m.LogInfo("milestone rolled back", "index", confirmation.MilestoneIndex)

	return nil
}

// Shutdown waits for queued confirmations to drain and stops the worker.
func (m *Manager) Shutdown() {
	m.workerPool.Shutdown()
}

func (m *Manager) triggerEvents(confirmation *Confirmation) {
	wfm := confirmation.Mutations

	for _, blockID := range wfm.BlocksReferenced {
		m.Events.BlockReferenced.Trigger(&BlockReferencedEvent{
			BlockID:        blockID,
			MilestoneIndex: wfm.MilestoneIndex,
		})
	}

	newOutputs := wfm.CreatedOutputs()
	newSpents := wfm.ConsumedOutputs()

	for _, output := range newOutputs {
		m.Events.OutputCreated.Trigger(output)
	}
	for _, spent := range newSpents {
		m.Events.OutputConsumed.Trigger(spent)
	}

	m.Events.LedgerUpdated.Trigger(&LedgerUpdatedEvent{
		MilestoneIndex: wfm.MilestoneIndex,
		NewOutputs:     newOutputs,
		NewSpents:      newSpents,
	})

	m.Events.MilestoneConfirmed.Trigger(confirmation)
}
