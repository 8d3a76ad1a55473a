package tpkg

import (
	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/protocol/engine/utxoledger"
	"github.com/iotaledger/whiteflag/pkg/utils"
)

func RandLedgerStateOutput() *utxoledger.Output {
	return RandLedgerStateOutputWithType(utils.RandOutputType())
}

func RandLedgerStateOutputWithType(outputType model.OutputType) *utxoledger.Output {
	return utxoledger.CreateOutput(utils.RandOutputID(), utils.RandBlockID(), utils.RandMilestoneIndex(), utils.RandUint32(1000000), utils.RandOutput(outputType))
}

func RandLedgerStateOutputOnAddress(outputType model.OutputType, address model.Address) *utxoledger.Output {
	return utxoledger.CreateOutput(utils.RandOutputID(), utils.RandBlockID(), utils.RandMilestoneIndex(), utils.RandUint32(1000000), utils.RandOutputOnAddress(outputType, address))
}

func RandLedgerStateOutputOnAddressWithAmount(outputType model.OutputType, address model.Address, amount model.BaseToken) *utxoledger.Output {
	return utxoledger.CreateOutput(utils.RandOutputID(), utils.RandBlockID(), utils.RandMilestoneIndex(), utils.RandUint32(1000000), utils.RandOutputOnAddressWithAmount(outputType, address, amount))
}

func RandLedgerStateSpent(indexSpent model.MilestoneIndex) *utxoledger.Spent {
	return utxoledger.NewSpent(RandLedgerStateOutput(), utils.RandTransactionID(), indexSpent)
}

func RandLedgerStateSpentWithOutput(output *utxoledger.Output, indexSpent model.MilestoneIndex) *utxoledger.Spent {
	return utxoledger.NewSpent(output, utils.RandTransactionID(), indexSpent)
}
