// Package deployment sequences the full provisioning run: placeholder
// proxies, implementations, wiring, invariant verification and manifest
// emission. Each phase's writes are preconditions for the next phase's
// reads, so execution is strictly sequential.
package deployment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/compose-network/restaking-deployer/configs"
	"github.com/compose-network/restaking-deployer/internal/deployment/chain"
	"github.com/compose-network/restaking-deployer/internal/deployment/manifest"
	"github.com/compose-network/restaking-deployer/internal/deployment/provision"
	"github.com/compose-network/restaking-deployer/internal/deployment/registry"
	"github.com/compose-network/restaking-deployer/internal/deployment/verify"
	"github.com/compose-network/restaking-deployer/internal/deployment/wiring"
	"github.com/compose-network/restaking-deployer/internal/logger"
	"github.com/ethereum/go-ethereum/common"
)

// Coordinator runs the deployment phases in order against a single backend.
// The run is not resumable: if it is interrupted, already-broadcast
// transactions stay committed and the operator inspects state manually.
type Coordinator struct {
	backend chain.Backend
	logger  *slog.Logger
}

func NewCoordinator(backend chain.Backend) *Coordinator {
	return &Coordinator{
		backend: backend,
		logger:  logger.Named("deployment_coordinator"),
	}
}

// Deploy executes phases 1-5. It either returns having written the manifest,
// or with an error and no manifest. Verification runs after all writes have
// been broadcast: a verification failure withholds the manifest but does not
// undo the deployment.
func (c *Coordinator) Deploy(ctx context.Context, cfg configs.Deployment) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := c.checkPrincipals(cfg); err != nil {
		return err
	}

	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %w", err)
	}

	env, err := chain.ResolveEnvironment(chainID, common.HexToAddress(cfg.DepositContract))
	if err != nil {
		return err
	}

	c.logger.
		With("chain_id", env.ChainID).
		With("production", env.Production).
		With("deposit_contract", env.DepositContract).
		Info("starting deployment")

	reg := registry.New()

	if err := provision.NewPlaceholderProvisioner(c.backend).Run(ctx, reg); err != nil {
		return fmt.Errorf("phase 1 failed: %w", err)
	}

	if err := provision.NewImplementationProvisioner(c.backend, env, cfg).Run(ctx, reg); err != nil {
		return fmt.Errorf("phase 2 failed: %w", err)
	}

	if err := wiring.NewInitializer(c.backend, cfg).Run(ctx, reg); err != nil {
		return fmt.Errorf("phase 3 failed: %w", err)
	}

	// All writes are broadcast; from here on the run only reads.
	reg.Freeze()

	if err := verify.NewVerifier(c.backend, env, cfg).Run(ctx, reg); err != nil {
		c.logger.Error("verification failed; the broadcast deployment remains on chain and no manifest will be written", "error", err)
		return fmt.Errorf("phase 4 failed: %w", err)
	}

	deploymentBlock, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to get deployment block: %w", err)
	}

	record, err := manifest.Build(reg, cfg, chainID.Uint64(), deploymentBlock)
	if err != nil {
		return fmt.Errorf("failed to build manifest: %w", err)
	}
	if err := manifest.NewWriter(cfg.ManifestFile).Write(record); err != nil {
		return fmt.Errorf("phase 5 failed: %w", err)
	}

	c.logger.With("manifest", cfg.ManifestFile).Info("deployment completed successfully")

	return nil
}

// checkPrincipals rejects configurations in which an administrative
// principal is the deployer's own transient key. Ownership and roles must
// outlive the deployment key.
func (c *Coordinator) checkPrincipals(cfg configs.Deployment) error {
	deployer := c.backend.DeployerAddress()
	if cfg.CommunityMultisig() == deployer {
		return fmt.Errorf("deployment.multisigs.community must not be the deployer address %s", deployer)
	}
	if cfg.TeamMultisig() == deployer {
		return fmt.Errorf("deployment.multisigs.team must not be the deployer address %s", deployer)
	}
	return nil
}
