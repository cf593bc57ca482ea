package deployment

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/compose-network/restaking-deployer/configs"
	"github.com/compose-network/restaking-deployer/internal/deployment/chain"
	"github.com/compose-network/restaking-deployer/internal/deployment/manifest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDeployer = common.HexToAddress("0x00000000000000000000000000000000DeaDBeef")

func testConfig(t *testing.T) configs.Deployment {
	t.Helper()
	return configs.Deployment{
		DryRun:          true,
		ManifestFile:    filepath.Join(t.TempDir(), "deployments", "manifest.json"),
		DepositContract: "0x4242424242424242424242424242424242424242",
		Multisigs: configs.Multisigs{
			Community: "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa",
			Team:      "0xBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBb",
		},
		Pause: configs.Pause{
			DelegationManager: 0,
			StrategyManager:   ^uint64(0),
		},
		WithdrawalDelayBlocks: 50400,
		MinRestakedBalanceWei: "31000000000000000000",
		Tokens: []configs.TokenDescriptor{
			{Name: "Wrapped Foo", Symbol: "wFOO"},
		},
	}
}

func TestCoordinatorDeploy(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	backend := chain.NewMemoryBackend(big.NewInt(31337), testDeployer)

	require.NoError(t, NewCoordinator(backend).Deploy(ctx, cfg))

	content, err := os.ReadFile(cfg.ManifestFile)
	require.NoError(t, err)

	var m manifest.Manifest
	require.NoError(t, json.Unmarshal(content, &m))

	assert.Equal(t, uint64(31337), m.ChainInfo.ChainID)
	assert.NotZero(t, m.ChainInfo.DeploymentBlock)
	assert.Equal(t, cfg.CommunityMultisig(), m.Parameters.CommunityMultisig)
	assert.Equal(t, cfg.TeamMultisig(), m.Parameters.TeamMultisig)

	// Every recorded address is real and distinct.
	core := []common.Address{
		m.Addresses.ProxyAdmin,
		m.Addresses.Placeholder,
		m.Addresses.PauserRegistry,
		m.Addresses.DelegationManager.Proxy,
		m.Addresses.DelegationManager.Implementation,
		m.Addresses.StrategyManager.Proxy,
		m.Addresses.StrategyManager.Implementation,
		m.Addresses.Slasher.Proxy,
		m.Addresses.Slasher.Implementation,
		m.Addresses.StakePodManager.Proxy,
		m.Addresses.StakePodManager.Implementation,
		m.Addresses.WithdrawalRouter.Proxy,
		m.Addresses.WithdrawalRouter.Implementation,
		m.Addresses.StakePodBeacon,
		m.Addresses.StakePodImplementation,
		m.Addresses.BaseStrategyImplementation,
	}
	seen := make(map[common.Address]struct{}, len(core))
	for _, address := range core {
		assert.NotEqual(t, common.Address{}, address)
		_, dup := seen[address]
		assert.False(t, dup, "address %s recorded twice", address)
		seen[address] = struct{}{}
	}

	// The run created the wFOO token itself at a fresh address.
	require.Contains(t, m.Addresses.Strategies, "wFOO")
	strategy := m.Addresses.Strategies["wFOO"]
	assert.NotEqual(t, common.Address{}, strategy.Proxy)
	assert.NotEqual(t, common.Address{}, strategy.UnderlyingToken)
	_, clash := seen[strategy.UnderlyingToken]
	assert.False(t, clash, "token address collides with a core contract")
}

func TestCoordinatorRejectsDeployerAsPrincipal(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewMemoryBackend(big.NewInt(31337), testDeployer)

	cfg := testConfig(t)
	cfg.Multisigs.Community = testDeployer.Hex()
	err := NewCoordinator(backend).Deploy(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be the deployer address")

	cfg = testConfig(t)
	cfg.Multisigs.Team = testDeployer.Hex()
	err = NewCoordinator(backend).Deploy(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be the deployer address")
}

func TestCoordinatorRequiresDepositOverride(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewMemoryBackend(big.NewInt(31337), testDeployer)

	cfg := testConfig(t)
	cfg.DepositContract = ""

	err := NewCoordinator(backend).Deploy(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deposit contract override is required")
}

func TestCoordinatorRejectsInvalidConfig(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewMemoryBackend(big.NewInt(31337), testDeployer)

	cfg := testConfig(t)
	cfg.WithdrawalDelayBlocks = 0

	err := NewCoordinator(backend).Deploy(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deployment.withdrawal-delay-blocks is required")
}

// corruptedBackend reports a bogus implementation for every proxy, simulating
// state that diverged between broadcast and verification.
type corruptedBackend struct {
	chain.Backend
}

func (c *corruptedBackend) ProxyImplementation(_ context.Context, _ common.Address) (common.Address, error) {
	return common.HexToAddress("0x0000000000000000000000000000000000000bad"), nil
}

func TestCoordinatorWithholdsManifestOnVerificationFailure(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	backend := &corruptedBackend{chain.NewMemoryBackend(big.NewInt(31337), testDeployer)}

	err := NewCoordinator(backend).Deploy(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phase 4")
	assert.Contains(t, err.Error(), "verification failed")

	_, statErr := os.Stat(cfg.ManifestFile)
	assert.True(t, os.IsNotExist(statErr), "no manifest may exist after a failed verification")
}
