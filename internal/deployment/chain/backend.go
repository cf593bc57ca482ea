// Package chain is the boundary between the deployment orchestration and the
// network that executes it. The Backend interface is deliberately narrow:
// transaction construction, signing, broadcasting and receipt handling all
// live behind it, so every phase of the deployment can run against either a
// live RPC endpoint or the in-memory simulation.
package chain

import (
	"context"
	"math/big"

	"github.com/compose-network/restaking-deployer/internal/deployment/contracts"
	"github.com/ethereum/go-ethereum/common"
)

// Backend executes deployment operations. Every write is synchronous: it
// returns only once the transaction's full set of state changes has
// committed, or with an error if it reverted or failed to land.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)

	// DeployerAddress is the transient principal signing every transaction.
	// No deployed component may end up owned by it.
	DeployerAddress() common.Address

	// Deploy creates a contract with the given constructor arguments and
	// returns its address.
	Deploy(ctx context.Context, contract contracts.ContractName, args ...any) (common.Address, error)

	// DeployProxy creates a transparent proxy delegating to logic, managed
	// by admin. When initMethod is non-empty the initializer of
	// logicContract is invoked in the proxy constructor, atomically with
	// creation.
	DeployProxy(ctx context.Context, logic, admin common.Address, logicContract contracts.ContractName, initMethod string, initArgs ...any) (common.Address, error)

	// Upgrade atomically repoints proxy at implementation through the proxy
	// admin and, when initMethod is non-empty, invokes the initializer of
	// implContract in the same transaction. Both take effect or neither
	// does.
	Upgrade(ctx context.Context, admin, proxy, implementation common.Address, implContract contracts.ContractName, initMethod string, initArgs ...any) error

	// Send issues a state-changing call on a deployed contract.
	Send(ctx context.Context, to common.Address, contract contracts.ContractName, method string, args ...any) error

	// Call issues a read-only call and returns the unpacked outputs.
	Call(ctx context.Context, to common.Address, contract contracts.ContractName, method string, args ...any) ([]any, error)

	// ProxyImplementation reads the ERC-1967 implementation slot of a proxy.
	ProxyImplementation(ctx context.Context, proxy common.Address) (common.Address, error)

	// ProxyAdminAddress reads the ERC-1967 admin slot of a proxy.
	ProxyAdminAddress(ctx context.Context, proxy common.Address) (common.Address, error)
}

// ERC-1967 storage slots, per the standard.
var (
	implementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")
	adminSlot          = common.HexToHash("0xb53127684a568b3173ae13b9f8a6016e243e63b6e8ee1178d6a717850b5d6103")
)
