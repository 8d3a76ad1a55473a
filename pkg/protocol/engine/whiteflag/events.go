package whiteflag

import (
	"github.com/iotaledger/hive.go/runtime/event"
	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/utxoledger"
)

type Events struct {
	// MilestoneConfirmed is triggered once per successfully confirmed milestone.
	MilestoneConfirmed *event.Event1[*Confirmation]
	// BlockReferenced is triggered once per block of the confirmed past cone.
	BlockReferenced *event.Event1[*BlockReferencedEvent]
	// OutputCreated is triggered once per output created by an included transaction.
	OutputCreated *event.Event1[*utxoledger.Output]
	// OutputConsumed is triggered once per output consumed by an included transaction.
	OutputConsumed *event.Event1[*utxoledger.Spent]
	// LedgerUpdated is triggered after the ledger index advanced.
	LedgerUpdated *event.Event1[*LedgerUpdatedEvent]

	event.Group[Events, *Events]
}

var NewEvents = event.CreateGroupConstructor(func() *Events {
	return &Events{
		MilestoneConfirmed: event.New1[*Confirmation](),
		BlockReferenced:    event.New1[*BlockReferencedEvent](),
		OutputCreated:      event.New1[*utxoledger.Output](),
		OutputConsumed:     event.New1[*utxoledger.Spent](),
		LedgerUpdated:      event.New1[*LedgerUpdatedEvent](),
	}
})

type BlockReferencedEvent struct {
	BlockID        model.BlockID
	MilestoneIndex model.MilestoneIndex
}

type LedgerUpdatedEvent struct {
	MilestoneIndex model.MilestoneIndex
	NewOutputs     utxoledger.Outputs
	NewSpents      utxoledger.Spents
}
