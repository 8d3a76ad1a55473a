package whiteflag

import (
	"time"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/tangle"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/utxoledger"
)

var (
	// ErrMilestoneBlockNotFound is returned when the block carrying the milestone payload is not stored.
	ErrMilestoneBlockNotFound = ierrors.New("milestone block not found")

	// ErrNotAMilestone is returned when the target block does not carry a milestone payload.
	ErrNotAMilestone = ierrors.New("block does not carry a milestone payload")

	// ErrWrongMilestoneIndex is returned when the milestone does not directly follow the current ledger index.
	ErrWrongMilestoneIndex = ierrors.New("milestone index does not follow the ledger index")

	// ErrConfirmedMerkleRootMismatch is returned when the computed confirmed merkle root differs from the one the milestone declares.
	ErrConfirmedMerkleRootMismatch = ierrors.New("confirmed merkle root mismatch")

	// ErrAppliedMerkleRootMismatch is returned when the computed applied merkle root differs from the one the milestone declares.
	ErrAppliedMerkleRootMismatch = ierrors.New("applied merkle root mismatch")

	// ErrReferencedBlocksCountMismatch is returned when the referenced blocks do not split
	// exactly into included, conflicting and no-transaction blocks.
	ErrReferencedBlocksCountMismatch = ierrors.New("referenced blocks count mismatch")

	// ErrBalanceDiffSumNotZero is returned when the signed per-address amount deltas of a run do not cancel out.
	ErrBalanceDiffSumNotZero = ierrors.New("balance diffs do not sum up to zero")

	// ErrNoConfirmationToRollback is returned when a rollback is requested but no confirmation is retained.
	ErrNoConfirmationToRollback = ierrors.New("no confirmation to roll back")
)

// ConfirmationState tracks the progress of one confirmation run.
type ConfirmationState byte

const (
	StateStarted ConfirmationState = iota
	StateTraversing
	StateVerifying
	StateCommitting
	StateDone
	StateFailed
)

func (s ConfirmationState) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateTraversing:
		return "traversing"
	case StateVerifying:
		return "verifying"
	case StateCommitting:
		return "committing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConfirmedMilestoneStats summarizes one successful confirmation run.
type ConfirmedMilestoneStats struct {
	Index                                     model.MilestoneIndex
	MilestoneID                               model.MilestoneID
	BlocksReferenced                          int
	BlocksIncludedWithTransactions            int
	BlocksExcludedWithConflictingTransactions int
	BlocksExcludedWithoutTransactions         int
	// Duration covers the whole run from traversal to commit.
	Duration time.Duration
}

// Confirmation is the finalized outcome of one confirmation run.
type Confirmation struct {
	MilestoneIndex   model.MilestoneIndex
	MilestoneID      model.MilestoneID
	MilestoneBlockID model.BlockID
	Mutations        *WhiteFlagMetadata
	Stats            *ConfirmedMilestoneStats
}

// confirmationRun is the state machine for confirming a single milestone. It is
// exclusively owned by one invocation and never shared.
type confirmationRun struct {
	storage tangle.WritableStorage
	ledger  *utxoledger.Manager
	hasher  *Hasher

	milestoneBlockID model.BlockID
	milestone        *model.MilestonePayload
	metadata         *WhiteFlagMetadata

	state ConfirmationState
}

func (r *confirmationRun) fail(err error) error {
	r.state = StateFailed

	return err
}

// execute drives the run through its states. Any error before committing leaves
// the ledger and the block metadata untouched.
func (r *confirmationRun) execute() (*Confirmation, error) {
	timeStart := time.Now()
	r.state = StateStarted

	milestoneBlock, exists := r.storage.Block(r.milestoneBlockID)
	if !exists {
		return nil, r.fail(ierrors.Wrapf(ErrMilestoneBlockNotFound, "block %s", r.milestoneBlockID.ToHex()))
	}

	milestone := milestoneBlock.Milestone()
	if milestone == nil {
		return nil, r.fail(ierrors.Wrapf(ErrNotAMilestone, "block %s", r.milestoneBlockID.ToHex()))
	}
	r.milestone = milestone

	ledgerIndex, err := r.ledger.ReadLedgerIndexWithoutLocking()
	if err != nil {
		return nil, r.fail(err)
	}
	if milestone.Index != ledgerIndex+1 {
		return nil, r.fail(ierrors.Wrapf(ErrWrongMilestoneIndex, "ledger index %d, milestone index %d", ledgerIndex, milestone.Index))
	}

	r.metadata = NewWhiteFlagMetadata(milestone.Index, milestone.Timestamp, r.ledger.ProtocolParameters())

	// The cone is spanned by the milestone's parents. The milestone block itself is
	// outside its own merkle commitment, it only gets marked referenced on commit.
	r.state = StateTraversing
	if err := TraversePastCone(r.storage, milestoneBlock.Parents(), func(block *model.Block) error {
		return ApplyBlock(r.ledger, r.metadata, block)
	}); err != nil {
		return nil, r.fail(err)
	}

	r.state = StateVerifying
	if err := r.verify(); err != nil {
		return nil, r.fail(err)
	}

	r.state = StateCommitting
	if err := r.commit(); err != nil {
		return nil, r.fail(err)
	}

	r.state = StateDone

	return &Confirmation{
		MilestoneIndex:   milestone.Index,
		MilestoneID:      milestone.ID(),
		MilestoneBlockID: r.milestoneBlockID,
		Mutations:        r.metadata,
		Stats: &ConfirmedMilestoneStats{
			Index:                          milestone.Index,
			MilestoneID:                    milestone.ID(),
			BlocksReferenced:               len(r.metadata.BlocksReferenced),
			BlocksIncludedWithTransactions: len(r.metadata.BlocksIncludedWithTransactions),
			BlocksExcludedWithConflictingTransactions: len(r.metadata.BlocksExcludedWithConflictingTransactions),
			BlocksExcludedWithoutTransactions:         len(r.metadata.BlocksExcludedWithoutTransactions),
			Duration: time.Since(timeStart),
		},
	}, nil
}

// verify recomputes the run invariants and the merkle roots and compares the roots
// against the values the milestone essence declares.
func (r *confirmationRun) verify() error {
	wfm := r.metadata

	referenced := len(wfm.BlocksReferenced)
	split := len(wfm.BlocksIncludedWithTransactions) + len(wfm.BlocksExcludedWithConflictingTransactions) + len(wfm.BlocksExcludedWithoutTransactions)
	if referenced != split {
		return ierrors.Wrapf(ErrReferencedBlocksCountMismatch, "referenced %d, split %d", referenced, split)
	}

	if sum := wfm.BalanceDiff.AmountSum(); sum != 0 {
		return ierrors.Wrapf(ErrBalanceDiffSumNotZero, "sum %d", sum)
	}

	wfm.ConfirmedMerkleRoot = r.hasher.Hash(wfm.BlocksReferenced)
	wfm.AppliedMerkleRoot = r.hasher.Hash(wfm.BlocksIncludedWithTransactions)

	if wfm.ConfirmedMerkleRoot != r.milestone.ConfirmedMerkleRoot {
		return ierrors.Wrapf(ErrConfirmedMerkleRootMismatch, "computed %s, milestone %s", wfm.ConfirmedMerkleRoot, r.milestone.ConfirmedMerkleRoot)
	}
	if wfm.AppliedMerkleRoot != r.milestone.AppliedMerkleRoot {
		return ierrors.Wrapf(ErrAppliedMerkleRootMismatch, "computed %s, milestone %s", wfm.AppliedMerkleRoot, r.milestone.AppliedMerkleRoot)
	}

	return nil
}

// commit persists the ledger mutations and marks every referenced block in one
// metadata batch. The ledger commit itself is a single atomic batch.
func (r *confirmationRun) commit() error {
	wfm := r.metadata

	if err := r.ledger.ApplyDiffWithoutLocking(wfm.MilestoneIndex, wfm.CreatedOutputs(), wfm.ConsumedOutputs()); err != nil {
		return err
	}

	conflictReasons := make(map[model.BlockID]ConflictReason, len(wfm.BlocksExcludedWithConflictingTransactions))
	for _, conflicting := range wfm.BlocksExcludedWithConflictingTransactions {
		conflictReasons[conflicting.BlockID] = conflicting.Reason
	}

	// flags are set on copies, the cached instances stay untouched until the batch commits
	metadataSet := make([]*tangle.BlockMetadata, 0, len(wfm.BlocksReferenced)+1)
	for whiteFlagIndex, blockID := range wfm.BlocksReferenced {
		blockMetadata := tangle.NewBlockMetadata(blockID)
		if existing, exists := r.storage.BlockMetadata(blockID); exists {
			blockMetadata = existing.Clone()
		}

		blockMetadata.SetReferenced(wfm.MilestoneIndex, uint32(whiteFlagIndex))
		if reason, isConflicting := conflictReasons[blockID]; isConflicting {
			blockMetadata.SetConflicting(byte(reason))
		}

		metadataSet = append(metadataSet, blockMetadata)
	}

	// The milestone block is referenced last, outside the merkle roots: its id depends
	// on the roots embedded in its own payload. Later cones terminate at it, so
	// milestone blocks never appear in any referenced set or root.
	milestoneMetadata := tangle.NewBlockMetadata(r.milestoneBlockID)
	if existing, exists := r.storage.BlockMetadata(r.milestoneBlockID); exists {
		milestoneMetadata = existing.Clone()
	}
	milestoneMetadata.SetReferenced(wfm.MilestoneIndex, uint32(len(wfm.BlocksReferenced)))
	metadataSet = append(metadataSet, milestoneMetadata)

	return r.storage.StoreBlockMetadataBatch(metadataSet)
}

// ConfirmMilestone runs the full confirmation of the milestone carried by the given
// block: traversal, validation, verification and the atomic commit. The caller must
// ensure that runs never interleave.
func ConfirmMilestone(storage tangle.WritableStorage, ledger *utxoledger.Manager, milestoneBlockID model.BlockID) (*Confirmation, error) {
	ledger.WriteLockLedger()
	defer ledger.WriteUnlockLedger()

	run := &confirmationRun{
		storage:          storage,
		ledger:           ledger,
		hasher:           NewHasher(),
		milestoneBlockID: milestoneBlockID,
	}

	return run.execute()
}

// RollbackConfirmation is the exact inverse of a confirmed milestone's ledger commit.
// It restores the previous ledger index, balances and unspent set and clears the
// referenced flags of the affected blocks.
func RollbackConfirmation(storage tangle.WritableStorage, ledger *utxoledger.Manager, confirmation *Confirmation) error {
	ledger.WriteLockLedger()
	defer ledger.WriteUnlockLedger()

	wfm := confirmation.Mutations

	if err := ledger.RollbackDiffWithoutLocking(wfm.MilestoneIndex, wfm.CreatedOutputs(), wfm.ConsumedOutputs()); err != nil {
		return err
	}

	affectedBlockIDs := make(model.BlockIDs, 0, len(wfm.BlocksReferenced)+1)
	affectedBlockIDs = append(affectedBlockIDs, wfm.BlocksReferenced...)
	affectedBlockIDs = append(affectedBlockIDs, confirmation.MilestoneBlockID)

	// flags are cleared on copies, the cached instances stay untouched until the batch commits
	metadataSet := make([]*tangle.BlockMetadata, 0, len(affectedBlockIDs))
	for _, blockID := range affectedBlockIDs {
		blockMetadata := tangle.NewBlockMetadata(blockID)
		if existing, exists := storage.BlockMetadata(blockID); exists {
			blockMetadata = existing.Clone()
		}
		blockMetadata.ClearReferenced()

		metadataSet = append(metadataSet, blockMetadata)
	}

	return storage.StoreBlockMetadataBatch(metadataSet)
}
