package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Environment describes the network a run targets and the resolved external
// dependencies that vary with it.
type Environment struct {
	ChainID *big.Int
	// Production is true on Ethereum mainnet.
	Production bool
	// DepositContract is the beacon-chain deposit contract every pod-related
	// component is constructed against.
	DepositContract common.Address
}

const MainnetChainID = 1

// MainnetDepositContract is the canonical beacon-chain deposit contract.
var MainnetDepositContract = common.HexToAddress("0x00000000219ab540356cBB839Cbe05303d7705Fa")

// ResolveEnvironment builds the environment descriptor for a chain. On
// mainnet the canonical deposit contract is used verbatim; on every other
// network the configured override is required, and its absence is a
// configuration error.
func ResolveEnvironment(chainID *big.Int, depositOverride common.Address) (Environment, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return Environment{}, fmt.Errorf("invalid chain id: %v", chainID)
	}

	if chainID.Cmp(big.NewInt(MainnetChainID)) == 0 {
		return Environment{
			ChainID:         new(big.Int).Set(chainID),
			Production:      true,
			DepositContract: MainnetDepositContract,
		}, nil
	}

	if depositOverride == (common.Address{}) {
		return Environment{}, fmt.Errorf("deposit contract override is required on chain %s (only mainnet has a canonical address)", chainID)
	}

	return Environment{
		ChainID:         new(big.Int).Set(chainID),
		DepositContract: depositOverride,
	}, nil
}
