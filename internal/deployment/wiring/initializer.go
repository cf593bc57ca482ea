// Package wiring implements phase 3: repointing every proxy shell at its
// real implementation and running the one-time initializers, followed by the
// per-token strategy fan-out and the administrative ownership handoff.
package wiring

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/compose-network/restaking-deployer/configs"
	"github.com/compose-network/restaking-deployer/internal/deployment/chain"
	"github.com/compose-network/restaking-deployer/internal/deployment/contracts"
	"github.com/compose-network/restaking-deployer/internal/deployment/registry"
	"github.com/compose-network/restaking-deployer/internal/logger"
	"github.com/ethereum/go-ethereum/common"
)

// tokenSupply is minted to the community multisig when the run creates a
// token itself.
var tokenSupply, _ = new(big.Int).SetString("1000000000000000000000000", 10)

// Initializer upgrades each proxy and invokes the implementation's one-time
// initializer in the same transaction. There is no state where a proxy
// points at real code but is uninitialized, or the reverse. A repeated
// initializer call reverts inside the implementation and is surfaced as a
// fatal ordering bug, never ignored.
type Initializer struct {
	backend chain.Backend
	cfg     configs.Deployment
	logger  *slog.Logger
}

func NewInitializer(backend chain.Backend, cfg configs.Deployment) *Initializer {
	return &Initializer{
		backend: backend,
		cfg:     cfg,
		logger:  logger.Named("wiring_initializer"),
	}
}

// Run executes phase 3.
func (w *Initializer) Run(ctx context.Context, reg *registry.Registry) error {
	w.logger.Info("Phase 3: wiring proxies to implementations")

	proxyAdmin, err := reg.Address(registry.ComponentProxyAdmin)
	if err != nil {
		return err
	}
	pauserRegistry, err := reg.Address(registry.ComponentPauserRegistry)
	if err != nil {
		return err
	}

	community := w.cfg.CommunityMultisig()
	team := w.cfg.TeamMultisig()
	delayBlocks := new(big.Int).SetUint64(w.cfg.WithdrawalDelayBlocks)

	upgrades := []struct {
		name     registry.ComponentName
		contract contracts.ContractName
		initArgs []any
	}{
		{
			name:     registry.ComponentDelegationManager,
			contract: contracts.ContractNameDelegationManager,
			initArgs: []any{community, pauserRegistry, new(big.Int).SetUint64(w.cfg.Pause.DelegationManager)},
		},
		{
			name:     registry.ComponentStrategyManager,
			contract: contracts.ContractNameStrategyManager,
			initArgs: []any{community, team, pauserRegistry, new(big.Int).SetUint64(w.cfg.Pause.StrategyManager), delayBlocks},
		},
		{
			name:     registry.ComponentSlasher,
			contract: contracts.ContractNameSlasher,
			initArgs: []any{community, pauserRegistry, new(big.Int).SetUint64(w.cfg.Pause.Slasher)},
		},
		{
			name:     registry.ComponentStakePodManager,
			contract: contracts.ContractNameStakePodManager,
			initArgs: []any{community, pauserRegistry, new(big.Int).SetUint64(w.cfg.Pause.StakePodManager)},
		},
		{
			name:     registry.ComponentWithdrawalRouter,
			contract: contracts.ContractNameWithdrawalRouter,
			initArgs: []any{community, pauserRegistry, new(big.Int).SetUint64(w.cfg.Pause.WithdrawalRouter), delayBlocks},
		},
	}

	for _, upgrade := range upgrades {
		component, err := reg.Component(upgrade.name)
		if err != nil {
			return err
		}

		if err := w.backend.Upgrade(ctx, proxyAdmin, component.Proxy, component.Implementation,
			upgrade.contract, "initialize", upgrade.initArgs...); err != nil {
			return fmt.Errorf("failed to wire %s: %w", upgrade.name, err)
		}

		w.logger.
			With("component", upgrade.name).
			With("proxy", component.Proxy).
			With("implementation", component.Implementation).
			Info("proxy wired and initialized")
	}

	if err := w.provisionStrategies(ctx, reg, proxyAdmin, pauserRegistry); err != nil {
		return err
	}

	// Hand administrative control to the community multisig; the deployer
	// key must not retain any permission over the wired system.
	if err := w.backend.Send(ctx, proxyAdmin, contracts.ContractNameProxyAdmin, "transferOwnership", community); err != nil {
		return fmt.Errorf("failed to transfer proxy admin ownership: %w", err)
	}
	pod, err := reg.Component(registry.ComponentStakePod)
	if err != nil {
		return err
	}
	if err := w.backend.Send(ctx, pod.Beacon, contracts.ContractNameBeacon, "transferOwnership", community); err != nil {
		return fmt.Errorf("failed to transfer pod beacon ownership: %w", err)
	}

	w.logger.Info("Phase 3: wiring completed successfully")

	return nil
}

// provisionStrategies creates one strategy proxy per configured token.
// Strategies have no circular dependencies, only a one-directional reference
// to the already-wired strategy manager, so each proxy is created pointing
// straight at the shared implementation with its initializer in the same
// transaction.
func (w *Initializer) provisionStrategies(ctx context.Context, reg *registry.Registry, proxyAdmin, pauserRegistry common.Address) error {
	baseStrategy, err := reg.Address(registry.ComponentBaseStrategy)
	if err != nil {
		return err
	}

	paused := new(big.Int).SetUint64(w.cfg.Pause.Strategies)

	for _, descriptor := range w.cfg.Tokens {
		token, supplied := descriptor.ExistingAddress()
		if !supplied {
			token, err = w.backend.Deploy(ctx, contracts.ContractNameMintableToken,
				descriptor.Name, descriptor.Symbol, tokenSupply, w.cfg.CommunityMultisig())
			if err != nil {
				return fmt.Errorf("failed to deploy token %s: %w", descriptor.Symbol, err)
			}
			w.logger.With("symbol", descriptor.Symbol).With("token", token).Info("token deployed")
		}

		proxy, err := w.backend.DeployProxy(ctx, baseStrategy, proxyAdmin,
			contracts.ContractNameTokenStrategy, "initialize", token, pauserRegistry, paused)
		if err != nil {
			return fmt.Errorf("failed to deploy strategy for %s: %w", descriptor.Symbol, err)
		}

		if err := reg.AddStrategy(registry.StrategyBinding{
			Symbol:          descriptor.Symbol,
			Name:            descriptor.Name,
			UnderlyingToken: token,
			Proxy:           proxy,
			TokenDeployed:   !supplied,
		}); err != nil {
			return err
		}

		w.logger.
			With("symbol", descriptor.Symbol).
			With("strategy", proxy).
			With("underlying_token", token).
			Info("strategy provisioned")
	}

	return nil
}
