package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/compose-network/restaking-deployer/internal/deployment/contracts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDeployer = common.HexToAddress("0x00000000000000000000000000000000DeaDBeef")

func newTestBackend(t *testing.T) *MemoryBackend {
	t.Helper()
	return NewMemoryBackend(big.NewInt(31337), testDeployer)
}

func TestMemoryBackend_Deploy(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	chainID, err := backend.ChainID(ctx)
	require.NoError(t, err)
	assert.Zero(t, chainID.Cmp(big.NewInt(31337)))
	assert.Equal(t, testDeployer, backend.DeployerAddress())

	empty, err := backend.Deploy(ctx, contracts.ContractNameEmptyContract)
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, empty)

	other, err := backend.Deploy(ctx, contracts.ContractNameEmptyContract)
	require.NoError(t, err)
	assert.NotEqual(t, empty, other, "every deployment gets a distinct address")

	block, err := backend.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), block)
}

func TestMemoryBackend_ConstructorArity(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	_, err := backend.Deploy(ctx, contracts.ContractNamePauserRegistry, testDeployer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects 2 arguments")

	_, err = backend.Deploy(ctx, contracts.ContractNameTransparentProxy)
	require.Error(t, err, "proxies are only created through DeployProxy")
}

func TestMemoryBackend_ImmutableGetters(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	strategyManager := common.HexToAddress("0x1111111111111111111111111111111111111111")
	slasher := common.HexToAddress("0x2222222222222222222222222222222222222222")

	impl, err := backend.Deploy(ctx, contracts.ContractNameDelegationManager, strategyManager, slasher)
	require.NoError(t, err)

	out, err := backend.Call(ctx, impl, contracts.ContractNameDelegationManager, "strategyManager")
	require.NoError(t, err)
	assert.Equal(t, strategyManager, out[0])

	out, err = backend.Call(ctx, impl, contracts.ContractNameDelegationManager, "slasher")
	require.NoError(t, err)
	assert.Equal(t, slasher, out[0])

	_, err = backend.Call(ctx, impl, contracts.ContractNameDelegationManager, "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution reverted")
}

func TestMemoryBackend_ProxyDelegation(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	proxyAdmin, err := backend.Deploy(ctx, contracts.ContractNameProxyAdmin)
	require.NoError(t, err)

	slasher := common.HexToAddress("0x2222222222222222222222222222222222222222")
	logic, err := backend.Deploy(ctx, contracts.ContractNameDelegationManager,
		common.HexToAddress("0x1111111111111111111111111111111111111111"), slasher)
	require.NoError(t, err)

	proxy, err := backend.DeployProxy(ctx, logic, proxyAdmin, contracts.ContractNameDelegationManager, "")
	require.NoError(t, err)

	// Immutables read identically through the proxy.
	out, err := backend.Call(ctx, proxy, contracts.ContractNameDelegationManager, "slasher")
	require.NoError(t, err)
	assert.Equal(t, slasher, out[0])

	impl, err := backend.ProxyImplementation(ctx, proxy)
	require.NoError(t, err)
	assert.Equal(t, logic, impl)

	admin, err := backend.ProxyAdminAddress(ctx, proxy)
	require.NoError(t, err)
	assert.Equal(t, proxyAdmin, admin)
}

func TestMemoryBackend_UpgradeIsAtomic(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	proxyAdmin, err := backend.Deploy(ctx, contracts.ContractNameProxyAdmin)
	require.NoError(t, err)
	placeholder, err := backend.Deploy(ctx, contracts.ContractNameEmptyContract)
	require.NoError(t, err)
	proxy, err := backend.DeployProxy(ctx, placeholder, proxyAdmin, contracts.ContractNameEmptyContract, "")
	require.NoError(t, err)

	impl, err := backend.Deploy(ctx, contracts.ContractNameSlasher,
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"))
	require.NoError(t, err)

	// A failing initializer must also roll back the repoint.
	err = backend.Upgrade(ctx, proxyAdmin, proxy, impl, contracts.ContractNameSlasher, "initialize", testDeployer)
	require.Error(t, err)

	current, err := backend.ProxyImplementation(ctx, proxy)
	require.NoError(t, err)
	assert.Equal(t, placeholder, current, "failed upgrade left the proxy repointed")

	// The successful path repoints and initializes together.
	owner := common.HexToAddress("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa")
	pauserRegistry := common.HexToAddress("0x3333333333333333333333333333333333333333")
	err = backend.Upgrade(ctx, proxyAdmin, proxy, impl, contracts.ContractNameSlasher,
		"initialize", owner, pauserRegistry, big.NewInt(0))
	require.NoError(t, err)

	current, err = backend.ProxyImplementation(ctx, proxy)
	require.NoError(t, err)
	assert.Equal(t, impl, current)

	out, err := backend.Call(ctx, proxy, contracts.ContractNameSlasher, "owner")
	require.NoError(t, err)
	assert.Equal(t, owner, out[0])
}

func TestMemoryBackend_DoubleInitializationReverts(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	proxyAdmin, err := backend.Deploy(ctx, contracts.ContractNameProxyAdmin)
	require.NoError(t, err)
	impl, err := backend.Deploy(ctx, contracts.ContractNameSlasher,
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"))
	require.NoError(t, err)

	owner := common.HexToAddress("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa")
	pauserRegistry := common.HexToAddress("0x3333333333333333333333333333333333333333")
	proxy, err := backend.DeployProxy(ctx, impl, proxyAdmin, contracts.ContractNameSlasher,
		"initialize", owner, pauserRegistry, big.NewInt(0))
	require.NoError(t, err)

	err = backend.Upgrade(ctx, proxyAdmin, proxy, impl, contracts.ContractNameSlasher,
		"initialize", owner, pauserRegistry, big.NewInt(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")
}

func TestMemoryBackend_UpgradeAuthorization(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	proxyAdmin, err := backend.Deploy(ctx, contracts.ContractNameProxyAdmin)
	require.NoError(t, err)
	placeholder, err := backend.Deploy(ctx, contracts.ContractNameEmptyContract)
	require.NoError(t, err)
	proxy, err := backend.DeployProxy(ctx, placeholder, proxyAdmin, contracts.ContractNameEmptyContract, "")
	require.NoError(t, err)

	otherAdmin := common.HexToAddress("0x9999999999999999999999999999999999999999")
	err = backend.Upgrade(ctx, otherAdmin, proxy, placeholder, contracts.ContractNameEmptyContract, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "administered by")
}

func TestMemoryBackend_TransferOwnership(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	proxyAdmin, err := backend.Deploy(ctx, contracts.ContractNameProxyAdmin)
	require.NoError(t, err)

	out, err := backend.Call(ctx, proxyAdmin, contracts.ContractNameProxyAdmin, "owner")
	require.NoError(t, err)
	assert.Equal(t, testDeployer, out[0], "contracts start owned by their creator")

	newOwner := common.HexToAddress("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa")
	require.NoError(t, backend.Send(ctx, proxyAdmin, contracts.ContractNameProxyAdmin, "transferOwnership", newOwner))

	out, err = backend.Call(ctx, proxyAdmin, contracts.ContractNameProxyAdmin, "owner")
	require.NoError(t, err)
	assert.Equal(t, newOwner, out[0])

	err = backend.Send(ctx, proxyAdmin, contracts.ContractNameProxyAdmin, "selfDestruct")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution reverted")
}
