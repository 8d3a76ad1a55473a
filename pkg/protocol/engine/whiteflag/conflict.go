package whiteflag

// ConflictReason is the outcome of validating one transaction against the ledger
// overlay. Exactly one reason, or ConflictNone, results per transaction.
type ConflictReason byte

const (
	// ConflictNone signals a valid transaction.
	ConflictNone ConflictReason = iota

	// ConflictInputUTXOAlreadySpent signals that the referenced UTXO was already spent by a previous milestone.
	ConflictInputUTXOAlreadySpent

	// ConflictInputUTXOAlreadySpentInThisMilestone signals that the referenced UTXO was already spent while confirming this milestone.
	ConflictInputUTXOAlreadySpentInThisMilestone

	// ConflictInputUTXONotFound signals that the referenced UTXO cannot be found.
	ConflictInputUTXONotFound

	// ConflictInputOutputSumMismatch signals that the sum of the inputs and outputs does not match.
	ConflictInputOutputSumMismatch

	// ConflictInvalidSignature signals that an unlock signature is invalid.
	ConflictInvalidSignature

	// ConflictInvalidDustAllowance signals that the transaction violates the dust allowance of an address.
	ConflictInvalidDustAllowance

	// ConflictSemanticValidationFailed signals that the transaction failed another semantic validation rule.
	ConflictSemanticValidationFailed ConflictReason = 255
)

func (c ConflictReason) String() string {
	switch c {
	case ConflictNone:
		return "no conflict"
	case ConflictInputUTXOAlreadySpent:
		return "input UTXO already spent"
	case ConflictInputUTXOAlreadySpentInThisMilestone:
		return "input UTXO already spent in this milestone"
	case ConflictInputUTXONotFound:
		return "input UTXO not found"
	case ConflictInputOutputSumMismatch:
		return "input and output sum mismatch"
	case ConflictInvalidSignature:
		return "invalid signature"
	case ConflictInvalidDustAllowance:
		return "invalid dust allowance"
	case ConflictSemanticValidationFailed:
		return "semantic validation failed"
	default:
		return "unknown conflict reason"
	}
}
