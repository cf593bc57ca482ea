package provision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/compose-network/restaking-deployer/configs"
	"github.com/compose-network/restaking-deployer/internal/deployment/chain"
	"github.com/compose-network/restaking-deployer/internal/deployment/contracts"
	"github.com/compose-network/restaking-deployer/internal/deployment/registry"
	"github.com/compose-network/restaking-deployer/internal/logger"
)

// ImplementationProvisioner deploys the real implementation contracts. Each
// takes the proxy addresses of its peers as immutable constructor arguments,
// which is only possible because phase 1 fixed those addresses.
type ImplementationProvisioner struct {
	backend chain.Backend
	env     chain.Environment
	cfg     configs.Deployment
	logger  *slog.Logger
}

func NewImplementationProvisioner(backend chain.Backend, env chain.Environment, cfg configs.Deployment) *ImplementationProvisioner {
	return &ImplementationProvisioner{
		backend: backend,
		env:     env,
		cfg:     cfg,
		logger:  logger.Named("implementation_provisioner"),
	}
}

// Run executes phase 2: pauser registry, core implementations, the pod
// beacon and the shared strategy implementation.
func (p *ImplementationProvisioner) Run(ctx context.Context, reg *registry.Registry) error {
	p.logger.Info("Phase 2: deploying implementation contracts")

	delegationProxy, err := reg.Proxy(registry.ComponentDelegationManager)
	if err != nil {
		return err
	}
	strategyManagerProxy, err := reg.Proxy(registry.ComponentStrategyManager)
	if err != nil {
		return err
	}
	slasherProxy, err := reg.Proxy(registry.ComponentSlasher)
	if err != nil {
		return err
	}
	podManagerProxy, err := reg.Proxy(registry.ComponentStakePodManager)
	if err != nil {
		return err
	}
	routerProxy, err := reg.Proxy(registry.ComponentWithdrawalRouter)
	if err != nil {
		return err
	}

	pauserRegistry, err := p.backend.Deploy(ctx, contracts.ContractNamePauserRegistry,
		p.cfg.TeamMultisig(), p.cfg.CommunityMultisig())
	if err != nil {
		return fmt.Errorf("failed to deploy pauser registry: %w", err)
	}
	if err := reg.RegisterStatic(registry.ComponentPauserRegistry, pauserRegistry); err != nil {
		return err
	}

	delegationImpl, err := p.backend.Deploy(ctx, contracts.ContractNameDelegationManager,
		strategyManagerProxy, slasherProxy)
	if err != nil {
		return fmt.Errorf("failed to deploy delegation manager implementation: %w", err)
	}
	if err := reg.AttachImplementation(registry.ComponentDelegationManager, delegationImpl); err != nil {
		return err
	}

	strategyManagerImpl, err := p.backend.Deploy(ctx, contracts.ContractNameStrategyManager,
		delegationProxy, podManagerProxy, slasherProxy)
	if err != nil {
		return fmt.Errorf("failed to deploy strategy manager implementation: %w", err)
	}
	if err := reg.AttachImplementation(registry.ComponentStrategyManager, strategyManagerImpl); err != nil {
		return err
	}

	slasherImpl, err := p.backend.Deploy(ctx, contracts.ContractNameSlasher,
		strategyManagerProxy, delegationProxy)
	if err != nil {
		return fmt.Errorf("failed to deploy slasher implementation: %w", err)
	}
	if err := reg.AttachImplementation(registry.ComponentSlasher, slasherImpl); err != nil {
		return err
	}

	routerImpl, err := p.backend.Deploy(ctx, contracts.ContractNameWithdrawalRouter, podManagerProxy)
	if err != nil {
		return fmt.Errorf("failed to deploy withdrawal router implementation: %w", err)
	}
	if err := reg.AttachImplementation(registry.ComponentWithdrawalRouter, routerImpl); err != nil {
		return err
	}

	minBalance, err := p.cfg.MinRestakedBalance()
	if err != nil {
		return err
	}

	// The pod implementation and its beacon must exist before the pod
	// manager implementation, which takes the beacon as an immutable.
	podImpl, err := p.backend.Deploy(ctx, contracts.ContractNameStakePod,
		p.env.DepositContract, routerProxy, podManagerProxy, minBalance)
	if err != nil {
		return fmt.Errorf("failed to deploy stake pod implementation: %w", err)
	}

	podBeacon, err := p.backend.Deploy(ctx, contracts.ContractNameBeacon, podImpl)
	if err != nil {
		return fmt.Errorf("failed to deploy stake pod beacon: %w", err)
	}
	if err := reg.RegisterBeacon(registry.ComponentStakePod, podBeacon, podImpl); err != nil {
		return err
	}

	podManagerImpl, err := p.backend.Deploy(ctx, contracts.ContractNameStakePodManager,
		p.env.DepositContract, podBeacon, strategyManagerProxy, slasherProxy)
	if err != nil {
		return fmt.Errorf("failed to deploy stake pod manager implementation: %w", err)
	}
	if err := reg.AttachImplementation(registry.ComponentStakePodManager, podManagerImpl); err != nil {
		return err
	}

	baseStrategyImpl, err := p.backend.Deploy(ctx, contracts.ContractNameTokenStrategy, strategyManagerProxy)
	if err != nil {
		return fmt.Errorf("failed to deploy base strategy implementation: %w", err)
	}
	if err := reg.RegisterStatic(registry.ComponentBaseStrategy, baseStrategyImpl); err != nil {
		return err
	}

	p.logger.Info("Phase 2: implementation contracts deployed successfully")

	return nil
}
