package model

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
	"github.com/iotaledger/hive.go/stringify"
)

// OutputType defines the kind of an output.
type OutputType byte

const (
	// OutputBasic denotes a basic, signature-locked output.
	OutputBasic OutputType = iota
	// OutputDustAllowance denotes an output whose amount covers dust outputs on its address.
	OutputDustAllowance
)

var (
	ErrUnknownOutputType = ierrors.New("unknown output type")
	ErrInvalidOutputType = ierrors.New("invalid output type")
)

func (t OutputType) String() string {
	switch t {
	case OutputBasic:
		return "BasicOutput"
	case OutputDustAllowance:
		return "DustAllowanceOutput"
	default:
		return "UnknownOutput"
	}
}

var (
	// ErrOutputAmountTooHigh is returned when an output holds more than the token supply.
	ErrOutputAmountTooHigh = ierrors.New("output amount exceeds the token supply")
	// ErrDustAllowanceDepositTooLow is returned when a dust allowance output holds less
	// than the protocol minimum.
	ErrDustAllowanceDepositTooLow = ierrors.New("dust allowance deposit below the protocol minimum")
)

// Output is the closed sum type over all output kinds. New kinds are added by
// extending the variant set, never via runtime dispatch.
type Output interface {
	// Type returns the kind of the output.
	Type() OutputType
	// Address returns the owning address.
	Address() Address
	// Amount returns the base token amount held by the output.
	Amount() BaseToken
	// Validate checks the amount bounds of the output against the protocol parameters.
	Validate(protocolParams *ProtocolParameters) error
	// Bytes returns the serialized output including its type byte.
	Bytes() []byte
}

// BasicOutput is a signature-locked output holding an amount on an address.
type BasicOutput struct {
	Owner   Address
	Deposit BaseToken
}

func NewBasicOutput(owner Address, deposit BaseToken) *BasicOutput {
	return &BasicOutput{Owner: owner, Deposit: deposit}
}

func (o *BasicOutput) Type() OutputType {
	return OutputBasic
}

func (o *BasicOutput) Address() Address {
	return o.Owner
}

func (o *BasicOutput) Amount() BaseToken {
	return o.Deposit
}

func (o *BasicOutput) Validate(protocolParams *ProtocolParameters) error {
	if o.Deposit > protocolParams.TokenSupply {
		return ierrors.Wrapf(ErrOutputAmountTooHigh, "%d", o.Deposit)
	}

	return nil
}

func (o *BasicOutput) Bytes() []byte {
	ms := marshalutil.New(serializedOutputLength)
	serializeOutput(ms, o)

	return ms.Bytes()
}

func (o *BasicOutput) String() string {
	return stringify.Struct("BasicOutput",
		stringify.NewStructField("address", o.Owner),
		stringify.NewStructField("amount", uint64(o.Deposit)),
	)
}

// DustAllowanceOutput holds an amount that raises the allowed number of dust outputs
// on its address. It is itself not spendable as dust.
type DustAllowanceOutput struct {
	Owner   Address
	Deposit BaseToken
}

func NewDustAllowanceOutput(owner Address, deposit BaseToken) *DustAllowanceOutput {
	return &DustAllowanceOutput{Owner: owner, Deposit: deposit}
}

func (o *DustAllowanceOutput) Type() OutputType {
	return OutputDustAllowance
}

func (o *DustAllowanceOutput) Address() Address {
	return o.Owner
}

func (o *DustAllowanceOutput) Amount() BaseToken {
	return o.Deposit
}

func (o *DustAllowanceOutput) Validate(protocolParams *ProtocolParameters) error {
	if o.Deposit > protocolParams.TokenSupply {
		return ierrors.Wrapf(ErrOutputAmountTooHigh, "%d", o.Deposit)
	}
	if o.Deposit < protocolParams.DustAllowanceMinimum {
		return ierrors.Wrapf(ErrDustAllowanceDepositTooLow, "%d < %d", o.Deposit, protocolParams.DustAllowanceMinimum)
	}

	return nil
}

func (o *DustAllowanceOutput) Bytes() []byte {
	ms := marshalutil.New(serializedOutputLength)
	serializeOutput(ms, o)

	return ms.Bytes()
}

func (o *DustAllowanceOutput) String() string {
	return stringify.Struct("DustAllowanceOutput",
		stringify.NewStructField("address", o.Owner),
		stringify.NewStructField("amount", uint64(o.Deposit)),
	)
}

const serializedOutputLength = 1 + AddressLength + 8

func serializeOutput(ms *marshalutil.MarshalUtil, output Output) {
	ms.WriteByte(byte(output.Type()))
	address := output.Address()
	ms.WriteBytes(address[:])
	ms.WriteUint64(uint64(output.Amount()))
}

func outputFromMarshalUtil(ms *marshalutil.MarshalUtil) (Output, error) {
	kind, err := ms.ReadByte()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read output type")
	}

	addressBytes, err := ms.ReadBytes(AddressLength)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read output address")
	}
	address, _, err := AddressFromBytes(addressBytes)
	if err != nil {
		return nil, err
	}

	amount, err := ms.ReadUint64()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read output amount")
	}

	switch OutputType(kind) {
	case OutputBasic:
		return &BasicOutput{Owner: address, Deposit: BaseToken(amount)}, nil
	case OutputDustAllowance:
		return &DustAllowanceOutput{Owner: address, Deposit: BaseToken(amount)}, nil
	default:
		return nil, ierrors.Wrapf(ErrUnknownOutputType, "type %d", kind)
	}
}

// OutputFromBytes deserializes an output from its binary representation.
func OutputFromBytes(b []byte) (Output, int, error) {
	ms := marshalutil.New(b)

	output, err := outputFromMarshalUtil(ms)
	if err != nil {
		return nil, 0, err
	}

	return output, ms.ReadOffset(), nil
}
