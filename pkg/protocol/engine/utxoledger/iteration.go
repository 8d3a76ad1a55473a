package utxoledger

import (
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/whiteflag/pkg/model"
)

// IterateOptions tweak an iteration over the ledger.
type IterateOptions struct {
	readLockLedger bool
	maxResultCount int
}

// IterateOption is a function setting an IterateOptions option.
type IterateOption func(opts *IterateOptions)

// ReadLockLedger sets whether the iteration should take a read lock on the ledger.
// Callers already holding the lock pass false.
func ReadLockLedger(lock bool) IterateOption {
	return func(opts *IterateOptions) {
		opts.readLockLedger = lock
	}
}

// MaxResultCount limits the number of results. Zero means no limit.
func MaxResultCount(count int) IterateOption {
	return func(opts *IterateOptions) {
		opts.maxResultCount = count
	}
}

func iterateOptions(optionalOptions []IterateOption) *IterateOptions {
	result := &IterateOptions{
		readLockLedger: true,
		maxResultCount: 0,
	}

	for _, optionalOption := range optionalOptions {
		optionalOption(result)
	}

	return result
}

// ForEachOutput iterates over every output ever booked, spent or not.
func (m *Manager) ForEachOutput(consumer OutputConsumer, options ...IterateOption) error {
	opt := iterateOptions(options)

	if opt.readLockLedger {
		m.ReadLockLedger()
		defer m.ReadUnlockLedger()
	}

	var innerErr error
	var i int
	if err := m.store.Iterate([]byte{StoreKeyPrefixOutput}, func(key kvstore.Key, value kvstore.Value) bool {
		if (opt.maxResultCount > 0) && (i >= opt.maxResultCount) {
			return false
		}
		i++

		output := &Output{}
		if err := output.kvStorableLoad(m, key, value); err != nil {
			innerErr = err

			return false
		}

		return consumer(output)
	}); err != nil {
		return err
	}

	return innerErr
}

// ForEachUnspentOutputID iterates over the ids of every currently unspent output.
func (m *Manager) ForEachUnspentOutputID(consumer OutputIDConsumer, options ...IterateOption) error {
	opt := iterateOptions(options)

	if opt.readLockLedger {
		m.ReadLockLedger()
		defer m.ReadUnlockLedger()
	}

	var innerErr error
	var i int
	if err := m.store.IterateKeys([]byte{StoreKeyPrefixOutputUnspent}, func(key kvstore.Key) bool {
		if (opt.maxResultCount > 0) && (i >= opt.maxResultCount) {
			return false
		}
		i++

		outputID, err := outputIDFromDatabaseKey(LookupKey(key))
		if err != nil {
			innerErr = err

			return false
		}

		return consumer(outputID)
	}); err != nil {
		return err
	}

	return innerErr
}

// ForEachUnspentOutput iterates over every currently unspent output.
func (m *Manager) ForEachUnspentOutput(consumer OutputConsumer, options ...IterateOption) error {
	opt := iterateOptions(options)

	if opt.readLockLedger {
		m.ReadLockLedger()
		defer m.ReadUnlockLedger()
	}

	var innerErr error
	if err := m.ForEachUnspentOutputID(func(outputID model.OutputID) bool {
		output, err := m.ReadOutputByOutputIDWithoutLocking(outputID)
		if err != nil {
			innerErr = err

			return false
		}

		return consumer(output)
	}, ReadLockLedger(false), MaxResultCount(opt.maxResultCount)); err != nil {
		return err
	}

	return innerErr
}

// UnspentOutputsIDs returns the ids of all currently unspent outputs.
func (m *Manager) UnspentOutputsIDs(options ...IterateOption) (model.OutputIDs, error) {
	var outputIDs model.OutputIDs
	if err := m.ForEachUnspentOutputID(func(outputID model.OutputID) bool {
		outputIDs = append(outputIDs, outputID)

		return true
	}, options...); err != nil {
		return nil, err
	}

	return outputIDs, nil
}

// UnspentOutputs returns all currently unspent outputs.
func (m *Manager) UnspentOutputs(options ...IterateOption) (Outputs, error) {
	var outputs Outputs
	if err := m.ForEachUnspentOutput(func(output *Output) bool {
		outputs = append(outputs, output)

		return true
	}, options...); err != nil {
		return nil, err
	}

	return outputs, nil
}

// ForEachSpentOutput iterates over every spent output.
func (m *Manager) ForEachSpentOutput(consumer SpentConsumer, options ...IterateOption) error {
	opt := iterateOptions(options)

	if opt.readLockLedger {
		m.ReadLockLedger()
		defer m.ReadUnlockLedger()
	}

	var innerErr error
	var i int
	if err := m.store.Iterate([]byte{StoreKeyPrefixOutputSpent}, func(key kvstore.Key, value kvstore.Value) bool {
		if (opt.maxResultCount > 0) && (i >= opt.maxResultCount) {
			return false
		}
		i++

		spent := &Spent{}
		if err := spent.kvStorableLoad(m, key, value); err != nil {
			innerErr = err

			return false
		}

		if err := m.loadOutputOfSpent(spent); err != nil {
			innerErr = err

			return false
		}

		return consumer(spent)
	}); err != nil {
		return err
	}

	return innerErr
}

// SpentOutputs returns all spent outputs.
func (m *Manager) SpentOutputs(options ...IterateOption) (Spents, error) {
	var spents Spents
	if err := m.ForEachSpentOutput(func(spent *Spent) bool {
		spents = append(spents, spent)

		return true
	}, options...); err != nil {
		return nil, err
	}

	return spents, nil
}

// ForEachBalance iterates over every stored address balance.
func (m *Manager) ForEachBalance(consumer func(balance *Balance) bool, options ...IterateOption) error {
	opt := iterateOptions(options)

	if opt.readLockLedger {
		m.ReadLockLedger()
		defer m.ReadUnlockLedger()
	}

	var innerErr error
	var i int
	if err := m.store.Iterate([]byte{StoreKeyPrefixBalances}, func(key kvstore.Key, value kvstore.Value) bool {
		if (opt.maxResultCount > 0) && (i >= opt.maxResultCount) {
			return false
		}
		i++

		balance := &Balance{}
		if err := balance.kvStorableLoad(m, key, value); err != nil {
			innerErr = err

			return false
		}

		return consumer(balance)
	}); err != nil {
		return err
	}

	return innerErr
}

// ComputeLedgerBalance sums up the deposits of all unspent outputs.
func (m *Manager) ComputeLedgerBalance(options ...IterateOption) (balance model.BaseToken, count int, err error) {
	if err := m.ForEachUnspentOutput(func(output *Output) bool {
		balance += output.Deposit()
		count++

		return true
	}, options...); err != nil {
		return 0, 0, err
	}

	return balance, count, nil
}
