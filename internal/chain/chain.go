package chain

import "sort"

const DefaultChainID int64 = 8453

// Contracts are the escrow deployment addresses on one chain.
type Contracts struct {
	Escrow            string            `json:"escrow"`
	NullifierRegistry string            `json:"nullifierRegistry"`
	Verifiers         map[string]string `json:"verifiers"`
	USDC              string            `json:"usdc"`
}

type Network struct {
	ChainID   int64     `json:"chainId"`
	Name      string    `json:"name"`
	Contracts Contracts `json:"contracts"`
}

var networks = map[int64]Network{
	8453: {
		ChainID: 8453,
		Name:    "Base",
		Contracts: Contracts{
			Escrow:            "0x1234567890123456789012345678901234567890",
			NullifierRegistry: "0x2345678901234567890123456789012345678901",
			Verifiers: map[string]string{
				"venmo":   "0x3456789012345678901234567890123456789012",
				"cashapp": "0x4567890123456789012345678901234567890123",
				"revolut": "0x5678901234567890123456789012345678901234",
				"wise":    "0x6789012345678901234567890123456789012345",
				"zelle":   "0x7890123456789012345678901234567890123456",
			},
			USDC: "0x833589fCD6eDb6E08f4c7C32d4f71b54bdA02913",
		},
	},
	43113: {
		ChainID: 43113,
		Name:    "Avalanche Fuji",
		Contracts: Contracts{
			Escrow:            "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
			NullifierRegistry: "0xbcdefabcdefabcdefabcdefabcdefabcdefabcdef",
			Verifiers: map[string]string{
				"venmo":   "0xcdefabcdefabcdefabcdefabcdefabcdefabcdefab",
				"cashapp": "0xdefabcdefabcdefabcdefabcdefabcdefabcdefabc",
				"revolut": "0xefabcdefabcdefabcdefabcdefabcdefabcdefabcd",
				"wise":    "0xfabcdefabcdefabcdefabcdefabcdefabcdefabcde",
				"zelle":   "0x1bcdefabcdefabcdefabcdefabcdefabcdefabcdef",
			},
			USDC: "0x5425890298aed601595a70AB815c96711a31Bc65",
		},
	},
}

func Supported(chainID int64) bool {
	_, ok := networks[chainID]
	return ok
}

// Lookup returns the network for chainID, falling back to Base.
func Lookup(chainID int64) Network {
	if n, ok := networks[chainID]; ok {
		return n
	}
	return networks[DefaultChainID]
}

// VerifierAddress falls back to the venmo verifier for unknown providers.
func VerifierAddress(chainID int64, provider string) string {
	c := Lookup(chainID).Contracts
	if v, ok := c.Verifiers[provider]; ok {
		return v
	}
	return c.Verifiers["venmo"]
}

func All() []Network {
	out := make([]Network, 0, len(networks))
	for _, n := range networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}
