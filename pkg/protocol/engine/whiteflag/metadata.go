package whiteflag

import (
	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/utxoledger"
)

// BlockWithConflict is a block that was excluded from the ledger together with the
// reason its transaction conflicted.
type BlockWithConflict struct {
	BlockID model.BlockID
	Reason  ConflictReason
}

// WhiteFlagMetadata accumulates the outcome of one confirmation run. It is created
// fresh per milestone and owned exclusively by the in-flight run.
type WhiteFlagMetadata struct {
	// MilestoneIndex is the index of the milestone that gets confirmed.
	MilestoneIndex model.MilestoneIndex
	// MilestoneTimestamp is the timestamp of the milestone that gets confirmed.
	MilestoneTimestamp uint32

	// BlocksReferenced are all blocks of the past cone in visit order.
	BlocksReferenced model.BlockIDs
	// BlocksIncludedWithTransactions are the blocks whose transactions mutate the ledger, in visit order.
	BlocksIncludedWithTransactions model.BlockIDs
	// BlocksExcludedWithConflictingTransactions are the blocks whose transactions conflict.
	BlocksExcludedWithConflictingTransactions []BlockWithConflict
	// BlocksExcludedWithoutTransactions are the blocks that carry no transaction payload.
	BlocksExcludedWithoutTransactions model.BlockIDs

	// NewOutputs are the outputs created by the included transactions of this run.
	NewOutputs map[model.OutputID]*utxoledger.Output
	// NewSpents are the outputs consumed by the included transactions of this run.
	NewSpents map[model.OutputID]*utxoledger.Spent

	// BalanceDiff is the accumulated per-address balance change of this run.
	BalanceDiff *utxoledger.BalanceDiff

	// ConfirmedMerkleRoot commits to the ordered list of all referenced blocks.
	ConfirmedMerkleRoot model.Identifier
	// AppliedMerkleRoot commits to the ordered list of included blocks.
	AppliedMerkleRoot model.Identifier
}

// NewWhiteFlagMetadata creates an empty accumulator for one confirmation run.
func NewWhiteFlagMetadata(index model.MilestoneIndex, timestamp uint32, protocolParams *model.ProtocolParameters) *WhiteFlagMetadata {
	return &WhiteFlagMetadata{
		MilestoneIndex:     index,
		MilestoneTimestamp: timestamp,
		NewOutputs:         make(map[model.OutputID]*utxoledger.Output),
		NewSpents:          make(map[model.OutputID]*utxoledger.Spent),
		BalanceDiff:        utxoledger.NewBalanceDiff(protocolParams),
	}
}

// ReferencedCount returns the number of blocks referenced by this run.
func (wfm *WhiteFlagMetadata) ReferencedCount() int {
	return len(wfm.BlocksReferenced)
}

// CreatedOutputs returns the created outputs as a slice for the ledger commit.
func (wfm *WhiteFlagMetadata) CreatedOutputs() utxoledger.Outputs {
	outputs := make(utxoledger.Outputs, 0, len(wfm.NewOutputs))
	for _, output := range wfm.NewOutputs {
		outputs = append(outputs, output)
	}

	return outputs
}

// ConsumedOutputs returns the consumed outputs as a slice for the ledger commit.
func (wfm *WhiteFlagMetadata) ConsumedOutputs() utxoledger.Spents {
	spents := make(utxoledger.Spents, 0, len(wfm.NewSpents))
	for _, spent := range wfm.NewSpents {
		spents = append(spents, spent)
	}

	return spents
}
