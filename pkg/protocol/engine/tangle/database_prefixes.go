package tangle

const (
	// StoreKeyPrefixBlock defines the prefix for raw block storage.
	StoreKeyPrefixBlock byte = 0

	// StoreKeyPrefixBlockMetadata defines the prefix for block metadata storage.
	StoreKeyPrefixBlockMetadata byte = 1

	// StoreKeyPrefixChildren defines the prefix for the parent -> child edge index.
	StoreKeyPrefixChildren byte = 2

	// StoreKeyPrefixSolidEntryPoints defines the prefix for the solid entry point set.
	StoreKeyPrefixSolidEntryPoints byte = 3
)

/*
   Tangle Database

   Block:
   ======
   Key:
       StoreKeyPrefixBlock + model.BlockID
             1 byte        +    32 bytes

   Value:
       serialized block

   Block Metadata:
   ===============
   Key:
       StoreKeyPrefixBlockMetadata + model.BlockID
                1 byte             +    32 bytes

   Value:
       flags    + referenced ms index + white-flag index + conflict reason
       1 byte   +       4 bytes       +     4 bytes      +     1 byte

   Children:
   =========
   Key:
       StoreKeyPrefixChildren + parent model.BlockID + child model.BlockID
              1 byte          +       32 bytes       +      32 bytes

   Value:
       Empty

   Solid Entry Points:
   ===================
   Key:
       StoreKeyPrefixSolidEntryPoints + model.BlockID
                  1 byte              +    32 bytes

   Value:
       model.MilestoneIndex
            4 bytes
*/
