package registry

import "strconv"

const (
	SeiStakingPrecompile      = "0x0000000000000000000000000000000000001005"
	SeiDistributionPrecompile = "0x0000000000000000000000000000000000001007"

	// Tokens sent here are unrecoverable.
	BurnAddress = "0x000000000000000000000000000000000000dEaD"
)

// Sei EVM chain IDs.
const (
	SeiMainnetChainID int64 = 1329
	SeiTestnetChainID int64 = 1328
)

func IsSeiChain(chainID int64) bool {
	return chainID == SeiMainnetChainID || chainID == SeiTestnetChainID
}

// NetworkName returns the human label for a Sei chain id.
func NetworkName(chainID int64) string {
	switch chainID {
	case SeiMainnetChainID:
		return "sei-pacific-1"
	case SeiTestnetChainID:
		return "sei-atlantic-2"
	default:
		return "evm-" + strconv.FormatInt(chainID, 10)
	}
}
