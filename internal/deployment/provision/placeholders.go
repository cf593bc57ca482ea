// Package provision implements the first two deployment phases: allocating
// stable proxy addresses for every mutually-referential component, then
// deploying the real implementations against those addresses.
package provision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/compose-network/restaking-deployer/internal/deployment/chain"
	"github.com/compose-network/restaking-deployer/internal/deployment/contracts"
	"github.com/compose-network/restaking-deployer/internal/deployment/registry"
	"github.com/compose-network/restaking-deployer/internal/logger"
)

// PlaceholderProvisioner deploys one transparent proxy per upgradeable
// component, each delegating to an inert placeholder. The proxy addresses it
// records are final: peer implementations are constructed against them before
// any real logic exists, which breaks the circular address dependency.
type PlaceholderProvisioner struct {
	backend chain.Backend
	logger  *slog.Logger
}

func NewPlaceholderProvisioner(backend chain.Backend) *PlaceholderProvisioner {
	return &PlaceholderProvisioner{
		backend: backend,
		logger:  logger.Named("placeholder_provisioner"),
	}
}

// Run executes phase 1 and populates the registry with proxy addresses only.
func (p *PlaceholderProvisioner) Run(ctx context.Context, reg *registry.Registry) error {
	p.logger.Info("Phase 1: deploying proxy admin, placeholder and proxy shells")

	proxyAdmin, err := p.backend.Deploy(ctx, contracts.ContractNameProxyAdmin)
	if err != nil {
		return fmt.Errorf("failed to deploy proxy admin: %w", err)
	}
	if err := reg.RegisterStatic(registry.ComponentProxyAdmin, proxyAdmin); err != nil {
		return err
	}

	placeholder, err := p.backend.Deploy(ctx, contracts.ContractNameEmptyContract)
	if err != nil {
		return fmt.Errorf("failed to deploy placeholder: %w", err)
	}
	if err := reg.RegisterStatic(registry.ComponentPlaceholder, placeholder); err != nil {
		return err
	}

	for _, name := range registry.ProxiedComponents {
		proxy, err := p.backend.DeployProxy(ctx, placeholder, proxyAdmin, contracts.ContractNameEmptyContract, "")
		if err != nil {
			return fmt.Errorf("failed to deploy proxy shell for %s: %w", name, err)
		}
		if err := reg.RegisterProxy(name, proxy); err != nil {
			return err
		}

		p.logger.With("component", name).With("proxy", proxy).Info("proxy shell deployed")
	}

	p.logger.Info("Phase 1: proxy shells deployed successfully")

	return nil
}
