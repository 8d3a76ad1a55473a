package whiteflag

import (
	"crypto/ed25519"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/utxoledger"
)

var (
	// ErrUnsupportedInputType is returned when a transaction consumes an input of an unknown kind.
	// This is a bug upstream of confirmation, never a conflict.
	ErrUnsupportedInputType = ierrors.New("unsupported input type")

	// ErrAmountOverflow is returned when amount accumulation overflows. Output amounts are
	// bounded by the token supply, so an overflow signals corrupted state.
	ErrAmountOverflow = ierrors.New("amount accumulation overflow")
)

// ApplyBlock classifies one visited block as included, conflicting or carrying no
// transaction, and on inclusion mutates the in-memory ledger overlay of the run.
// A conflicting transaction leaves the overlay completely untouched.
func ApplyBlock(ledger *utxoledger.Manager, wfm *WhiteFlagMetadata, block *model.Block) error {
	blockID := block.ID()
	wfm.BlocksReferenced = append(wfm.BlocksReferenced, blockID)

	transaction := block.Transaction()
	if transaction == nil {
		wfm.BlocksExcludedWithoutTransactions = append(wfm.BlocksExcludedWithoutTransactions, blockID)

		return nil
	}

	conflict, newOutputs, newSpents, txDiff, err := validateTransaction(ledger, wfm, blockID, transaction)
	if err != nil {
		return err
	}

	if conflict != ConflictNone {
		wfm.BlocksExcludedWithConflictingTransactions = append(wfm.BlocksExcludedWithConflictingTransactions, BlockWithConflict{
			BlockID: blockID,
			Reason:  conflict,
		})

		return nil
	}

	for _, output := range newOutputs {
		wfm.NewOutputs[output.OutputID()] = output
	}
	for _, spent := range newSpents {
		wfm.NewSpents[spent.OutputID()] = spent
	}
	wfm.BalanceDiff.Merge(txDiff)

	wfm.BlocksIncludedWithTransactions = append(wfm.BlocksIncludedWithTransactions, blockID)

	return nil
}

// validateTransaction checks one transaction against the current overlay and the
// durable ledger. It returns either a conflict reason or the complete set of ledger
// effects the transaction would have.
//
//nolint:gocyclo // the conflict checks are a single linear rule set
func validateTransaction(ledger *utxoledger.Manager, wfm *WhiteFlagMetadata, blockID model.BlockID, transaction *model.TransactionPayload) (ConflictReason, utxoledger.Outputs, utxoledger.Spents, *utxoledger.BalanceDiff, error) {
	transactionID := transaction.ID()
	essenceHash := transaction.EssenceHash()
	protocolParams := ledger.ProtocolParameters()

	if len(transaction.Unlocks) != len(transaction.Essence.Inputs) {
		return ConflictSemanticValidationFailed, nil, nil, nil, nil
	}

	txDiff := utxoledger.NewBalanceDiff(protocolParams)

	var consumedAmount model.BaseToken
	consumedThisTransaction := make(map[model.OutputID]struct{})
	newSpents := make(utxoledger.Spents, 0, len(transaction.Essence.Inputs))

	for i, input := range transaction.Essence.Inputs {
		utxoInput, isUTXOInput := input.(*model.UTXOInput)
		if !isUTXOInput {
			return ConflictNone, nil, nil, nil, ierrors.Wrapf(ErrUnsupportedInputType, "input %d of transaction %s", i, transactionID.ToHex())
		}

		outputID := utxoInput.OutputID()

		// the same output consumed twice within this run, first spender wins
		if _, alreadySpent := wfm.NewSpents[outputID]; alreadySpent {
			return ConflictInputUTXOAlreadySpentInThisMilestone, nil, nil, nil, nil
		}
		if _, alreadySpent := consumedThisTransaction[outputID]; alreadySpent {
			return ConflictInputUTXOAlreadySpentInThisMilestone, nil, nil, nil, nil
		}
		consumedThisTransaction[outputID] = struct{}{}

		output, createdThisRun := wfm.NewOutputs[outputID]
		if !createdThisRun {
			var err error
			output, err = ledger.ReadOutputByOutputIDWithoutLocking(outputID)
			if err != nil {
				if ierrors.Is(err, kvstore.ErrKeyNotFound) {
					return ConflictInputUTXONotFound, nil, nil, nil, nil
				}

				return ConflictNone, nil, nil, nil, err
			}

			unspent, err := ledger.IsOutputIDUnspentWithoutLocking(outputID)
			if err != nil {
				return ConflictNone, nil, nil, nil, err
			}
			if !unspent {
				return ConflictInputUTXOAlreadySpent, nil, nil, nil, nil
			}
		}

		newConsumedAmount := consumedAmount + output.Deposit()
		if newConsumedAmount < consumedAmount {
			return ConflictNone, nil, nil, nil, ierrors.Wrapf(ErrAmountOverflow, "transaction %s consumed amount", transactionID.ToHex())
		}
		consumedAmount = newConsumedAmount

		conflict := verifyUnlock(transaction, i, essenceHash, output.Address())
		if conflict != ConflictNone {
			return conflict, nil, nil, nil, nil
		}

		txDiff.RemoveOutput(output)
		newSpents = append(newSpents, utxoledger.NewSpent(output, transactionID, wfm.MilestoneIndex))
	}

	var createdAmount model.BaseToken
	newOutputs := make(utxoledger.Outputs, 0, len(transaction.Essence.Outputs))

	for index, output := range transaction.Essence.Outputs {
		// amount bounds: no output above the token supply, no underfunded dust allowance
		if output.Validate(protocolParams) != nil {
			return ConflictSemanticValidationFailed, nil, nil, nil, nil
		}

		newCreatedAmount := createdAmount + output.Amount()
		if newCreatedAmount < createdAmount {
			return ConflictNone, nil, nil, nil, ierrors.Wrapf(ErrAmountOverflow, "transaction %s created amount", transactionID.ToHex())
		}
		createdAmount = newCreatedAmount

		outputID := model.OutputIDFromTransactionIDAndIndex(transactionID, uint16(index))
		createdOutput := utxoledger.CreateOutput(outputID, blockID, wfm.MilestoneIndex, wfm.MilestoneTimestamp, output)

		txDiff.AddOutput(createdOutput)
		newOutputs = append(newOutputs, createdOutput)
	}

	if createdAmount != consumedAmount {
		return ConflictInputOutputSumMismatch, nil, nil, nil, nil
	}

	if conflict, err := checkDustAllowance(ledger, wfm, txDiff, protocolParams); conflict != ConflictNone || err != nil {
		return conflict, nil, nil, nil, err
	}

	return ConflictNone, newOutputs, newSpents, txDiff, nil
}

// verifyUnlock resolves the unlock at the given input index to its signature and
// verifies it against the essence hash and the owning address.
func verifyUnlock(transaction *model.TransactionPayload, inputIndex int, essenceHash model.Identifier, owner model.Address) ConflictReason {
	unlock := transaction.Unlocks[inputIndex]

	if reference, isReference := unlock.(*model.ReferenceUnlock); isReference {
		if int(reference.Reference) >= inputIndex {
			return ConflictSemanticValidationFailed
		}
		unlock = transaction.Unlocks[reference.Reference]
	}

	signatureUnlock, isSignature := unlock.(*model.SignatureUnlock)
	if !isSignature {
		return ConflictSemanticValidationFailed
	}

	if model.AddressFromPubKey(signatureUnlock.PublicKey) != owner {
		return ConflictInvalidSignature
	}

	if !ed25519.Verify(signatureUnlock.PublicKey, essenceHash[:], signatureUnlock.Signature[:]) {
		return ConflictInvalidSignature
	}

	return ConflictNone
}

// checkDustAllowance projects the post-transaction balance of every touched address
// and verifies the dust output count stays within the covered limit.
func checkDustAllowance(ledger *utxoledger.Manager, wfm *WhiteFlagMetadata, txDiff *utxoledger.BalanceDiff, protocolParams *model.ProtocolParameters) (ConflictReason, error) {
	projected := utxoledger.NewBalanceDiff(protocolParams)
	projected.Merge(wfm.BalanceDiff)
	projected.Merge(txDiff)

	for _, address := range txDiff.Addresses() {
		balance, err := ledger.ReadBalanceForAddressWithoutLocking(address)
		if err != nil {
			return ConflictNone, err
		}

		dustOutputsCount := projected.DustOutputsCount(balance, address)
		if dustOutputsCount <= 0 {
			continue
		}

		if uint64(dustOutputsCount) > projected.DustOutputLimit(balance, address) {
			return ConflictInvalidDustAllowance, nil
		}
	}

	return ConflictNone, nil
}
