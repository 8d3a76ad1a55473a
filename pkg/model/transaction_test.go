//nolint:forcetypeassert,varnamelen,revive,exhaustruct // we don't care about these linters in test cases
package model_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/utils"
)

func randTransaction() *model.TransactionPayload {
	outputID := utils.RandOutputID()

	essence := &model.TransactionEssence{
		Inputs: []model.Input{
			&model.UTXOInput{TransactionID: outputID.TransactionID(), Index: outputID.Index()},
		},
		Outputs: []model.Output{
			model.NewBasicOutput(utils.RandAddress(), 1_000_000),
		},
	}

	signatureUnlock := &model.SignatureUnlock{PublicKey: utils.RandPubKey()}
	copy(signatureUnlock.Signature[:], utils.RandBytes(ed25519.SignatureSize))

	return &model.TransactionPayload{
		Essence: essence,
		Unlocks: []model.Unlock{signatureUnlock},
	}
}

func TestTransactionIDAndEssenceHash(t *testing.T) {
	transaction := randTransaction()

	// the id covers the full payload, the essence hash only the signed part
	require.Equal(t, model.TransactionIDFromPayloadData(transaction.Bytes()), transaction.ID())
	require.Equal(t, transaction.Essence.Hash(), transaction.EssenceHash())
	require.NotEqual(t, model.TransactionID(transaction.EssenceHash()), transaction.ID())
}

func TestTransactionRoundTrip(t *testing.T) {
	transaction := randTransaction()
	transaction.Essence.Payload = &model.TaggedDataPayload{Tag: []byte("tag")}

	decoded, consumed, err := model.PayloadFromBytes(transaction.Bytes())
	require.NoError(t, err)
	require.Equal(t, len(transaction.Bytes()), consumed)

	decodedTransaction := decoded.(*model.TransactionPayload)
	require.Equal(t, transaction.ID(), decodedTransaction.ID())
	require.Equal(t, transaction.EssenceHash(), decodedTransaction.EssenceHash())
	require.Equal(t, transaction.Essence.Inputs, decodedTransaction.Essence.Inputs)
	require.Equal(t, transaction.Essence.Outputs, decodedTransaction.Essence.Outputs)
	require.Equal(t, transaction.Essence.Payload.Tag, decodedTransaction.Essence.Payload.Tag)
}

func TestValidateUnlockChain(t *testing.T) {
	transaction := randTransaction()
	outputID := utils.RandOutputID()
	transaction.Essence.Inputs = append(transaction.Essence.Inputs,
		&model.UTXOInput{TransactionID: outputID.TransactionID(), Index: outputID.Index()},
	)

	// one unlock for two inputs
	require.ErrorIs(t, transaction.ValidateUnlockChain(), model.ErrInvalidUnlocksCount)

	// a reference pointing backwards at the signature is valid
	transaction.Unlocks = append(transaction.Unlocks, &model.ReferenceUnlock{Reference: 0})
	require.NoError(t, transaction.ValidateUnlockChain())

	// a reference pointing at itself or forward is not
	transaction.Unlocks[1] = &model.ReferenceUnlock{Reference: 1}
	require.ErrorIs(t, transaction.ValidateUnlockChain(), model.ErrInvalidUnlockChain)

	// a reference must resolve to a signature unlock
	thirdOutputID := utils.RandOutputID()
	transaction.Essence.Inputs = append(transaction.Essence.Inputs,
		&model.UTXOInput{TransactionID: thirdOutputID.TransactionID(), Index: thirdOutputID.Index()},
	)
	transaction.Unlocks[1] = &model.ReferenceUnlock{Reference: 0}
	transaction.Unlocks = append(transaction.Unlocks, &model.ReferenceUnlock{Reference: 1})
	require.ErrorIs(t, transaction.ValidateUnlockChain(), model.ErrInvalidUnlockChain)
}

func TestMilestonePayloadRoundTrip(t *testing.T) {
	milestone := &model.MilestonePayload{
		Index:               7,
		Timestamp:           1234,
		PreviousMilestoneID: utils.RandMilestoneID(),
		Parents:             model.BlockIDs{utils.RandBlockID(), utils.RandBlockID()}.RemoveDupsAndSort(),
		ConfirmedMerkleRoot: model.Identifier(utils.RandBlockID()),
		AppliedMerkleRoot:   model.Identifier(utils.RandBlockID()),
		Signatures: []model.MilestoneSignature{
			{PublicKey: utils.RandPubKey()},
		},
	}

	decoded, consumed, err := model.PayloadFromBytes(milestone.Bytes())
	require.NoError(t, err)
	require.Equal(t, len(milestone.Bytes()), consumed)

	decodedMilestone := decoded.(*model.MilestonePayload)
	require.Equal(t, milestone.ID(), decodedMilestone.ID())
	require.Equal(t, milestone.Index, decodedMilestone.Index)
	require.Equal(t, milestone.Parents, decodedMilestone.Parents)
	require.Equal(t, milestone.ConfirmedMerkleRoot, decodedMilestone.ConfirmedMerkleRoot)
	require.Equal(t, milestone.AppliedMerkleRoot, decodedMilestone.AppliedMerkleRoot)
	require.Equal(t, milestone.Signatures, decodedMilestone.Signatures)
}

func TestMilestoneIDCoversEssenceOnly(t *testing.T) {
	milestone := &model.MilestonePayload{
		Index:     3,
		Timestamp: 99,
		Parents:   model.BlockIDs{utils.RandBlockID()},
		Signatures: []model.MilestoneSignature{
			{PublicKey: utils.RandPubKey()},
		},
	}
	id := milestone.ID()

	// signatures are outside the milestone id
	other := &model.MilestonePayload{
		Index:      milestone.Index,
		Timestamp:  milestone.Timestamp,
		Parents:    milestone.Parents,
		Signatures: []model.MilestoneSignature{{PublicKey: utils.RandPubKey()}},
	}
	require.Equal(t, id, other.ID())
}
