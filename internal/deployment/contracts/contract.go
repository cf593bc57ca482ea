package contracts

import "github.com/ethereum/go-ethereum/accounts/abi"

type (
	// ContractName identifies a compiled contract artifact.
	ContractName string

	// CompiledContract holds a parsed artifact ready for deployment.
	CompiledContract struct {
		ABI      abi.ABI
		RawABI   string
		Bytecode []byte
	}
)

const (
	ContractNameEmptyContract    ContractName = "EmptyContract"
	ContractNameProxyAdmin       ContractName = "ProxyAdmin"
	ContractNameTransparentProxy ContractName = "TransparentUpgradeableProxy"
	ContractNameBeacon           ContractName = "UpgradeableBeacon"
	ContractNamePauserRegistry   ContractName = "PauserRegistry"

	ContractNameDelegationManager ContractName = "DelegationManager"
	ContractNameStrategyManager   ContractName = "StrategyManager"
	ContractNameSlasher           ContractName = "Slasher"
	ContractNameStakePodManager   ContractName = "StakePodManager"
	ContractNameStakePod          ContractName = "StakePod"
	ContractNameWithdrawalRouter  ContractName = "WithdrawalRouter"
	ContractNameTokenStrategy     ContractName = "TokenStrategy"
	ContractNameMintableToken     ContractName = "MintableToken"
)

// Contracts is the full artifact set a deployment run needs.
var Contracts = map[ContractName]struct{}{
	ContractNameEmptyContract:     {},
	ContractNameProxyAdmin:        {},
	ContractNameTransparentProxy:  {},
	ContractNameBeacon:            {},
	ContractNamePauserRegistry:    {},
	ContractNameDelegationManager: {},
	ContractNameStrategyManager:   {},
	ContractNameSlasher:           {},
	ContractNameStakePodManager:   {},
	ContractNameStakePod:          {},
	ContractNameWithdrawalRouter:  {},
	ContractNameTokenStrategy:     {},
	ContractNameMintableToken:     {},
}
