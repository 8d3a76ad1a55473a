package utxoledger

const (
	// StoreKeyPrefixLedgerMilestoneIndex defines the prefix for the ledger index watermark.
	StoreKeyPrefixLedgerMilestoneIndex byte = 0

	// StoreKeyPrefixOutput defines the prefix for Output storage.
	StoreKeyPrefixOutput byte = 1

	// StoreKeyPrefixOutputSpent defines the prefix for Spent storage.
	StoreKeyPrefixOutputSpent byte = 2

	// StoreKeyPrefixOutputUnspent defines the prefix for the unspent output lookup.
	StoreKeyPrefixOutputUnspent byte = 3

	// StoreKeyPrefixMilestoneDiffs defines the prefix for milestone diffs.
	StoreKeyPrefixMilestoneDiffs byte = 4

	// StoreKeyPrefixBalances defines the prefix for per-address balances.
	StoreKeyPrefixBalances byte = 5

	// StoreKeyPrefixStateTree defines the prefix for the authenticated state tree.
	StoreKeyPrefixStateTree byte = 6
)

/*
   LedgerState Database

   Milestone Index:
   ================
   Key:
       StoreKeyPrefixLedgerMilestoneIndex
                   1 byte

   Value:
       model.MilestoneIndex
             4 bytes

   Output:
   =======
   Key:
       StoreKeyPrefixOutput + model.OutputID
             1 byte         +    34 bytes

   Value:
       BlockID  + MilestoneIndexBooked + MilestoneTimestampBooked + model.Output.Bytes()
      32 bytes  +       4 bytes        +         4 bytes          +  1 byte type + 40 bytes

   Spent Output:
   =============
   Key:
       StoreKeyPrefixOutputSpent + model.OutputID
             1 byte              +    34 bytes

   Value:
       TransactionIDSpent + MilestoneIndexSpent
            32 bytes      +       4 bytes

   Unspent Output:
   ===============
   Key:
       StoreKeyPrefixOutputUnspent + model.OutputID
              1 byte               +    34 bytes

   Value:
       Empty

   Milestone diffs:
   ================
   Key:
       StoreKeyPrefixMilestoneDiffs + model.MilestoneIndex
                1 byte              +       4 bytes

   Value:
       OutputCount + OutputCount * model.OutputID + SpentCount + SpentCount * model.OutputID
         4 bytes   + (OutputCount *   34 bytes)   +   4 bytes  + (SpentCount *   34 bytes)

   Balances:
   =========
   Key:
       StoreKeyPrefixBalances + model.Address
              1 byte          +   32 bytes

   Value:
       Amount  + DustAllowanceAmount + DustOutputsCount
      8 bytes  +       8 bytes       +      8 bytes
*/
