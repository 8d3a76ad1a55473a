package model

// ProtocolParameters defines the protocol-wide constants the engine validates against.
type ProtocolParameters struct {
	// Version is the protocol version all blocks must carry.
	Version byte
	// NetworkName is the human-readable name of the network.
	NetworkName string
	// TokenSupply is the total amount of base tokens in existence. No output may carry
	// more than this amount and the ledger must always sum up to it.
	TokenSupply BaseToken
	// MinPoWScore is the minimum Proof-of-Work score a block must reach.
	MinPoWScore float64
	// DustAllowanceMinimum is the minimum amount a dust allowance output must hold.
	DustAllowanceMinimum BaseToken
	// MaxDustOutputsPerAllowance caps the dust outputs covered by one allowance unit.
	MaxDustOutputsPerAllowance uint64
}

// DustOutputLimit returns the number of dust outputs an address may hold given its
// accumulated dust allowance amount. The limit is capped at 100 outputs per address.
func (p *ProtocolParameters) DustOutputLimit(dustAllowanceSum BaseToken) uint64 {
	if p.DustAllowanceMinimum == 0 {
		return 0
	}

	limit := uint64(dustAllowanceSum / p.DustAllowanceMinimum * BaseToken(p.MaxDustOutputsPerAllowance))
	if limit > 100 {
		return 100
	}

	return limit
}

// TestProtocolParameters returns protocol parameters for testing purposes.
func TestProtocolParameters() *ProtocolParameters {
	return &ProtocolParameters{
		Version:                    2,
		NetworkName:                "testnet",
		TokenSupply:                2_779_530_283_277_761,
		MinPoWScore:                0,
		DustAllowanceMinimum:       1_000_000,
		MaxDustOutputsPerAllowance: 10,
	}
}
