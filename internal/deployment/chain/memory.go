package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/compose-network/restaking-deployer/internal/deployment/contracts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MemoryBackend simulates the deployed contract set in process: transparent
// proxy semantics, one-shot initializers, ownership and pause storage, and
// immutable constructor arguments exposed through their getters. It backs
// dry runs and lets tests fabricate any prior-phase state without a chain.
type MemoryBackend struct {
	mutex       sync.Mutex
	chainID     *big.Int
	blockNumber uint64
	deployer    common.Address
	nonce       uint64
	accounts    map[common.Address]*memAccount
}

type memAccount struct {
	contract contracts.ContractName
	ctorArgs []any
	storage  map[string]any

	initialized    bool
	proxy          bool
	implementation common.Address
	admin          common.Address
}

// constructorArity guards against miswired deployments: the simulation
// rejects a constructor call whose argument count does not match the
// contract it claims to be.
var constructorArity = map[contracts.ContractName]int{
	contracts.ContractNameEmptyContract:     0,
	contracts.ContractNameProxyAdmin:        0,
	contracts.ContractNameBeacon:            1,
	contracts.ContractNamePauserRegistry:    2,
	contracts.ContractNameDelegationManager: 2,
	contracts.ContractNameStrategyManager:   3,
	contracts.ContractNameSlasher:           2,
	contracts.ContractNameStakePodManager:   4,
	contracts.ContractNameStakePod:          4,
	contracts.ContractNameWithdrawalRouter:  1,
	contracts.ContractNameTokenStrategy:     1,
	contracts.ContractNameMintableToken:     4,
}

// immutableGetters maps a view method to the constructor argument it
// returns. Immutables are baked into the implementation code, so they read
// identically through a proxy and on the implementation address directly.
var immutableGetters = map[contracts.ContractName]map[string]int{
	contracts.ContractNameDelegationManager: {"strategyManager": 0, "slasher": 1},
	contracts.ContractNameStrategyManager:   {"delegation": 0, "stakePodManager": 1, "slasher": 2},
	contracts.ContractNameSlasher:           {"strategyManager": 0, "delegation": 1},
	contracts.ContractNameStakePodManager:   {"depositContract": 0, "podBeacon": 1, "strategyManager": 2, "slasher": 3},
	contracts.ContractNameStakePod:          {"depositContract": 0, "withdrawalRouter": 1, "stakePodManager": 2, "requiredBalanceWei": 3},
	contracts.ContractNameWithdrawalRouter:  {"stakePodManager": 0},
	contracts.ContractNameTokenStrategy:     {"strategyManager": 0},
	contracts.ContractNamePauserRegistry:    {"pauser": 0, "unpauser": 1},
	contracts.ContractNameBeacon:            {"implementation": 0},
	contracts.ContractNameMintableToken:     {"name": 0, "symbol": 1, "totalSupply": 2},
}

// initializerLayouts maps each initializer argument, in order, to the storage
// key it sets.
var initializerLayouts = map[contracts.ContractName][]string{
	contracts.ContractNameDelegationManager: {"owner", "pauserRegistry", "paused"},
	contracts.ContractNameStrategyManager:   {"owner", "strategyWhitelister", "pauserRegistry", "paused", "withdrawalDelayBlocks"},
	contracts.ContractNameSlasher:           {"owner", "pauserRegistry", "paused"},
	contracts.ContractNameStakePodManager:   {"owner", "pauserRegistry", "paused"},
	contracts.ContractNameWithdrawalRouter:  {"owner", "pauserRegistry", "paused", "withdrawalDelayBlocks"},
	contracts.ContractNameTokenStrategy:     {"underlyingToken", "pauserRegistry", "paused"},
}

func NewMemoryBackend(chainID *big.Int, deployer common.Address) *MemoryBackend {
	return &MemoryBackend{
		chainID:  new(big.Int).Set(chainID),
		deployer: deployer,
		accounts: make(map[common.Address]*memAccount),
	}
}

func (m *MemoryBackend) ChainID(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(m.chainID), nil
}

func (m *MemoryBackend) BlockNumber(_ context.Context) (uint64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.blockNumber, nil
}

func (m *MemoryBackend) DeployerAddress() common.Address {
	return m.deployer
}

func (m *MemoryBackend) Deploy(_ context.Context, contract contracts.ContractName, args ...any) (common.Address, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if contract == contracts.ContractNameTransparentProxy {
		return common.Address{}, fmt.Errorf("proxies must be created through DeployProxy")
	}

	arity, known := constructorArity[contract]
	if !known {
		return common.Address{}, fmt.Errorf("unknown contract %s", contract)
	}
	if len(args) != arity {
		return common.Address{}, fmt.Errorf("%s constructor expects %d arguments, got %d", contract, arity, len(args))
	}

	account := &memAccount{
		contract: contract,
		ctorArgs: args,
		storage:  make(map[string]any),
	}

	// Ownable contracts start owned by their creator.
	if contract == contracts.ContractNameProxyAdmin || contract == contracts.ContractNameBeacon {
		account.storage["owner"] = m.deployer
	}

	return m.commit(account), nil
}

func (m *MemoryBackend) DeployProxy(_ context.Context, logic, admin common.Address, logicContract contracts.ContractName, initMethod string, initArgs ...any) (common.Address, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	logicAccount, exists := m.accounts[logic]
	if !exists {
		return common.Address{}, fmt.Errorf("proxy logic %s is not a deployed contract", logic)
	}

	account := &memAccount{
		contract:       contracts.ContractNameTransparentProxy,
		storage:        make(map[string]any),
		proxy:          true,
		implementation: logic,
		admin:          admin,
	}

	if initMethod != "" {
		if logicAccount.contract != logicContract {
			return common.Address{}, fmt.Errorf("proxy logic %s is a %s, not a %s", logic, logicAccount.contract, logicContract)
		}
		if err := initialize(account, logicContract, initMethod, initArgs); err != nil {
			return common.Address{}, err
		}
	}

	return m.commit(account), nil
}

func (m *MemoryBackend) Upgrade(_ context.Context, admin, proxy, implementation common.Address, implContract contracts.ContractName, initMethod string, initArgs ...any) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	account, exists := m.accounts[proxy]
	if !exists || !account.proxy {
		return fmt.Errorf("%s is not a proxy", proxy)
	}
	if account.admin != admin {
		return fmt.Errorf("proxy %s is administered by %s, not %s", proxy, account.admin, admin)
	}

	implAccount, exists := m.accounts[implementation]
	if !exists {
		return fmt.Errorf("implementation %s is not a deployed contract", implementation)
	}
	if implAccount.contract != implContract {
		return fmt.Errorf("implementation %s is a %s, not a %s", implementation, implAccount.contract, implContract)
	}

	previous := account.implementation
	account.implementation = implementation

	if initMethod != "" {
		if err := initialize(account, implContract, initMethod, initArgs); err != nil {
			// The repoint and the initializer commit together or not at all.
			account.implementation = previous
			return err
		}
	}

	m.blockNumber++
	return nil
}

func (m *MemoryBackend) Send(_ context.Context, to common.Address, contract contracts.ContractName, method string, args ...any) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	account, exists := m.accounts[to]
	if !exists {
		return fmt.Errorf("no contract at %s", to)
	}
	if account.contract != contract {
		return fmt.Errorf("contract at %s is a %s, not a %s", to, account.contract, contract)
	}

	switch method {
	case "transferOwnership":
		if len(args) != 1 {
			return fmt.Errorf("transferOwnership expects 1 argument, got %d", len(args))
		}
		newOwner, ok := args[0].(common.Address)
		if !ok {
			return fmt.Errorf("transferOwnership expects an address argument")
		}
		account.storage["owner"] = newOwner
		m.blockNumber++
		return nil
	default:
		return fmt.Errorf("execution reverted: %s has no method %s", contract, method)
	}
}

func (m *MemoryBackend) Call(_ context.Context, to common.Address, _ contracts.ContractName, method string, args ...any) ([]any, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	account, exists := m.accounts[to]
	if !exists {
		return nil, fmt.Errorf("no contract at %s", to)
	}
	if len(args) != 0 {
		return nil, fmt.Errorf("execution reverted: unsupported call %s with arguments", method)
	}

	logicName := account.contract
	immutables := account.ctorArgs
	storage := account.storage
	if account.proxy {
		logicAccount, ok := m.accounts[account.implementation]
		if !ok {
			return nil, fmt.Errorf("proxy %s delegates to missing implementation %s", to, account.implementation)
		}
		logicName = logicAccount.contract
		immutables = logicAccount.ctorArgs
	}

	if idx, ok := immutableGetters[logicName][method]; ok {
		return []any{immutables[idx]}, nil
	}

	if value, ok := storage[method]; ok {
		return []any{value}, nil
	}

	return nil, fmt.Errorf("execution reverted: %s has no readable %s", logicName, method)
}

func (m *MemoryBackend) ProxyImplementation(_ context.Context, proxy common.Address) (common.Address, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	account, exists := m.accounts[proxy]
	if !exists || !account.proxy {
		return common.Address{}, nil
	}
	return account.implementation, nil
}

func (m *MemoryBackend) ProxyAdminAddress(_ context.Context, proxy common.Address) (common.Address, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	account, exists := m.accounts[proxy]
	if !exists || !account.proxy {
		return common.Address{}, nil
	}
	return account.admin, nil
}

func (m *MemoryBackend) commit(account *memAccount) common.Address {
	address := crypto.CreateAddress(m.deployer, m.nonce)
	m.nonce++
	m.blockNumber++
	m.accounts[address] = account
	return address
}

func initialize(account *memAccount, logic contracts.ContractName, method string, args []any) error {
	if method != "initialize" {
		return fmt.Errorf("execution reverted: %s has no initializer %s", logic, method)
	}
	layout, ok := initializerLayouts[logic]
	if !ok {
		return fmt.Errorf("execution reverted: %s is not initializable", logic)
	}
	if account.initialized {
		return fmt.Errorf("execution reverted: Initializable: contract is already initialized")
	}
	if len(args) != len(layout) {
		return fmt.Errorf("%s.initialize expects %d arguments, got %d", logic, len(layout), len(args))
	}

	for i, key := range layout {
		account.storage[key] = args[i]
	}
	account.initialized = true
	return nil
}
