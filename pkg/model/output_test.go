//nolint:forcetypeassert,varnamelen,revive,exhaustruct // we don't care about these linters in test cases
package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/utils"
)

func TestOutputValidateAmountBounds(t *testing.T) {
	protocolParams := model.TestProtocolParameters()
	address := utils.RandAddress()

	require.NoError(t, model.NewBasicOutput(address, 1).Validate(protocolParams))
	require.NoError(t, model.NewBasicOutput(address, protocolParams.TokenSupply).Validate(protocolParams))

	err := model.NewBasicOutput(address, protocolParams.TokenSupply+1).Validate(protocolParams)
	require.ErrorIs(t, err, model.ErrOutputAmountTooHigh)
}

func TestDustAllowanceOutputValidateDepositBounds(t *testing.T) {
	protocolParams := model.TestProtocolParameters()
	address := utils.RandAddress()

	require.NoError(t, model.NewDustAllowanceOutput(address, protocolParams.DustAllowanceMinimum).Validate(protocolParams))

	err := model.NewDustAllowanceOutput(address, protocolParams.DustAllowanceMinimum-1).Validate(protocolParams)
	require.ErrorIs(t, err, model.ErrDustAllowanceDepositTooLow)

	err = model.NewDustAllowanceOutput(address, protocolParams.TokenSupply+1).Validate(protocolParams)
	require.ErrorIs(t, err, model.ErrOutputAmountTooHigh)
}
