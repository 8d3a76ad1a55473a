package utxoledger

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
	"github.com/iotaledger/whiteflag/pkg/model"
)

var (
	// ErrBalanceNegative is returned when a diff would drive an address balance below zero.
	ErrBalanceNegative = ierrors.New("address balance would become negative")
	// ErrDustOutputsCountNegative is returned when a diff would drive the dust outputs count below zero.
	ErrDustOutputsCountNegative = ierrors.New("dust outputs count would become negative")
)

// Balance tracks the funds held by a single address, split into the total amount,
// the amount held in dust allowance outputs and the number of dust outputs.
type Balance struct {
	address             model.Address
	amount              model.BaseToken
	dustAllowanceAmount model.BaseToken
	dustOutputsCount    uint64
}

func (b *Balance) Address() model.Address {
	return b.address
}

// Amount returns the total funds held by the address, including dust allowances.
func (b *Balance) Amount() model.BaseToken {
	return b.amount
}

// DustAllowanceAmount returns the funds held in dust allowance outputs.
func (b *Balance) DustAllowanceAmount() model.BaseToken {
	return b.dustAllowanceAmount
}

// DustOutputsCount returns the number of dust outputs currently held by the address.
func (b *Balance) DustOutputsCount() uint64 {
	return b.dustOutputsCount
}

func (b *Balance) isEmpty() bool {
	return b.amount == 0 && b.dustAllowanceAmount == 0 && b.dustOutputsCount == 0
}

// - kvStorable

func balanceStorageKeyForAddress(address model.Address) []byte {
	ms := marshalutil.New(1 + model.AddressLength)
	ms.WriteByte(StoreKeyPrefixBalances)
	ms.WriteBytes(address[:])

	return ms.Bytes()
}

func (b *Balance) KVStorableKey() (key []byte) {
	return balanceStorageKeyForAddress(b.address)
}

func (b *Balance) KVStorableValue() (value []byte) {
	ms := marshalutil.New(24)
	ms.WriteUint64(uint64(b.amount))
	ms.WriteUint64(uint64(b.dustAllowanceAmount))
	ms.WriteUint64(b.dustOutputsCount)

	return ms.Bytes()
}

func (b *Balance) kvStorableLoad(_ *Manager, key []byte, value []byte) error {
	keyUtil := marshalutil.New(key)

	if _, err := keyUtil.ReadByte(); err != nil {
		return ierrors.Wrap(err, "unable to read prefix")
	}

	addressBytes, err := keyUtil.ReadBytes(model.AddressLength)
	if err != nil {
		return ierrors.Wrap(err, "unable to read address")
	}
	if b.address, _, err = model.AddressFromBytes(addressBytes); err != nil {
		return err
	}

	valueUtil := marshalutil.New(value)

	amount, err := valueUtil.ReadUint64()
	if err != nil {
		return ierrors.Wrap(err, "unable to read amount")
	}
	b.amount = model.BaseToken(amount)

	dustAllowanceAmount, err := valueUtil.ReadUint64()
	if err != nil {
		return ierrors.Wrap(err, "unable to read dust allowance amount")
	}
	b.dustAllowanceAmount = model.BaseToken(dustAllowanceAmount)

	if b.dustOutputsCount, err = valueUtil.ReadUint64(); err != nil {
		return ierrors.Wrap(err, "unable to read dust outputs count")
	}

	return nil
}

// balanceDiffEntry accumulates the signed per-address change of a confirmation.
type balanceDiffEntry struct {
	amount              int64
	dustAllowanceAmount int64
	dustOutputsCount    int64
}

func (b *balanceDiffEntry) isEmpty() bool {
	return b.amount == 0 && b.dustAllowanceAmount == 0 && b.dustOutputsCount == 0
}

// BalanceDiff accumulates the per-address balance changes caused by a set of
// created and consumed outputs. The same diff negated yields the rollback.
type BalanceDiff struct {
	protocolParams *model.ProtocolParameters
	entries        map[model.Address]*balanceDiffEntry
}

// NewBalanceDiff creates an empty balance diff.
func NewBalanceDiff(protocolParams *model.ProtocolParameters) *BalanceDiff {
	return &BalanceDiff{
		protocolParams: protocolParams,
		entries:        make(map[model.Address]*balanceDiffEntry),
	}
}

func (d *BalanceDiff) entry(address model.Address) *balanceDiffEntry {
	entry, exists := d.entries[address]
	if !exists {
		entry = &balanceDiffEntry{}
		d.entries[address] = entry
	}

	return entry
}

// isDustOutput reports whether the given output counts against the dust limit of its address.
func (d *BalanceDiff) isDustOutput(output *Output) bool {
	return output.OutputType() == model.OutputBasic && output.Deposit() < d.protocolParams.DustAllowanceMinimum
}

// AddOutput books a newly created output into the diff.
func (d *BalanceDiff) AddOutput(output *Output) {
	entry := d.entry(output.Address())
	entry.amount += int64(output.Deposit())

	switch {
	case output.OutputType() == model.OutputDustAllowance:
		entry.dustAllowanceAmount += int64(output.Deposit())
	case d.isDustOutput(output):
		entry.dustOutputsCount++
	}
}

// RemoveOutput books a consumed output into the diff.
func (d *BalanceDiff) RemoveOutput(output *Output) {
	entry := d.entry(output.Address())
	entry.amount -= int64(output.Deposit())

	switch {
	case output.OutputType() == model.OutputDustAllowance:
		entry.dustAllowanceAmount -= int64(output.Deposit())
	case d.isDustOutput(output):
		entry.dustOutputsCount--
	}
}

// Add books all created outputs and consumed spents of a confirmation into the diff.
func (d *BalanceDiff) Add(newOutputs Outputs, newSpents Spents) {
	for _, output := range newOutputs {
		d.AddOutput(output)
	}
	for _, spent := range newSpents {
		d.RemoveOutput(spent.Output())
	}
}

// Merge folds the entries of the other diff into this one.
func (d *BalanceDiff) Merge(other *BalanceDiff) {
	for address, otherEntry := range other.entries {
		entry := d.entry(address)
		entry.amount += otherEntry.amount
		entry.dustAllowanceAmount += otherEntry.dustAllowanceAmount
		entry.dustOutputsCount += otherEntry.dustOutputsCount
	}
}

// AmountSum returns the sum of all signed amount deltas. A diff produced by
// value-conserving transactions alone sums to zero.
func (d *BalanceDiff) AmountSum() int64 {
	var sum int64
	for _, entry := range d.entries {
		sum += entry.amount
	}

	return sum
}

// Addresses returns all addresses the diff touches.
func (d *BalanceDiff) Addresses() []model.Address {
	addresses := make([]model.Address, 0, len(d.entries))
	for address := range d.entries {
		addresses = append(addresses, address)
	}

	return addresses
}

// Negated returns a new diff with every entry inverted.
func (d *BalanceDiff) Negated() *BalanceDiff {
	negated := NewBalanceDiff(d.protocolParams)
	for address, entry := range d.entries {
		negated.entries[address] = &balanceDiffEntry{
			amount:              -entry.amount,
			dustAllowanceAmount: -entry.dustAllowanceAmount,
			dustOutputsCount:    -entry.dustOutputsCount,
		}
	}

	return negated
}

// DustOutputLimit returns the number of dust outputs the given address may hold after
// this diff is applied on top of the given stored balance.
func (d *BalanceDiff) DustOutputLimit(balance *Balance, address model.Address) uint64 {
	dustAllowanceAmount := int64(balance.dustAllowanceAmount)
	if entry, exists := d.entries[address]; exists {
		dustAllowanceAmount += entry.dustAllowanceAmount
	}
	if dustAllowanceAmount < 0 {
		return 0
	}

	return d.protocolParams.DustOutputLimit(model.BaseToken(dustAllowanceAmount))
}

// DustOutputsCount returns the number of dust outputs the given address would hold after
// this diff is applied on top of the given stored balance.
func (d *BalanceDiff) DustOutputsCount(balance *Balance, address model.Address) int64 {
	dustOutputsCount := int64(balance.dustOutputsCount)
	if entry, exists := d.entries[address]; exists {
		dustOutputsCount += entry.dustOutputsCount
	}

	return dustOutputsCount
}

// - Manager

// ReadBalanceForAddressWithoutLocking returns the stored balance of the given address.
// Addresses without any funds yield a zero balance.
func (m *Manager) ReadBalanceForAddressWithoutLocking(address model.Address) (*Balance, error) {
	balance := &Balance{address: address}

	key := balanceStorageKeyForAddress(address)
	value, err := m.store.Get(key)
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return balance, nil
		}

		return nil, err
	}

	if err := balance.kvStorableLoad(m, key, value); err != nil {
		return nil, err
	}

	return balance, nil
}

// ReadBalanceForAddress returns the stored balance of the given address.
func (m *Manager) ReadBalanceForAddress(address model.Address) (*Balance, error) {
	m.ReadLockLedger()
	defer m.ReadUnlockLedger()

	return m.ReadBalanceForAddressWithoutLocking(address)
}

// applyBalanceDiff mutates the stored per-address balances by the given diff.
// Entries that drop to zero are deleted from the store.
func (m *Manager) applyBalanceDiff(diff *BalanceDiff, mutations kvstore.BatchedMutations) error {
	for address, entry := range diff.entries {
		if entry.isEmpty() {
			continue
		}

		balance, err := m.ReadBalanceForAddressWithoutLocking(address)
		if err != nil {
			return err
		}

		newAmount := int64(balance.amount) + entry.amount
		newDustAllowanceAmount := int64(balance.dustAllowanceAmount) + entry.dustAllowanceAmount
		newDustOutputsCount := int64(balance.dustOutputsCount) + entry.dustOutputsCount

		if newAmount < 0 || newDustAllowanceAmount < 0 {
			return ierrors.Wrapf(ErrBalanceNegative, "address %s", address.ToHex())
		}
		if newDustOutputsCount < 0 {
			return ierrors.Wrapf(ErrDustOutputsCountNegative, "address %s", address.ToHex())
		}

		balance.amount = model.BaseToken(newAmount)
		balance.dustAllowanceAmount = model.BaseToken(newDustAllowanceAmount)
		balance.dustOutputsCount = uint64(newDustOutputsCount)

		if balance.isEmpty() {
			if err := mutations.Delete(balance.KVStorableKey()); err != nil {
				return err
			}

			continue
		}

		if err := mutations.Set(balance.KVStorableKey(), balance.KVStorableValue()); err != nil {
			return err
		}
	}

	return nil
}

// code guards.
var _ kvStorable = &Balance{}
