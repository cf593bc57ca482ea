package deployment

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/compose-network/restaking-deployer/configs"
	"github.com/compose-network/restaking-deployer/internal/deployment/chain"
	"github.com/compose-network/restaking-deployer/internal/deployment/contracts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// dryRunChainID is the chain the in-memory backend pretends to be. It is
// never mainnet, so dry runs exercise the deposit-contract override path.
const dryRunChainID = 31337

// dryRunDeployer is used when no private key is configured for a dry run.
var dryRunDeployer = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

var CMD = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy and wire the restaking protocol contracts",
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("starting deploy command. Validating config")

		cfg := configs.Values.Deployment
		if err := cfg.Validate(); err != nil {
			return err
		}

		slog.Info("config validation successful. Starting deployment")

		backend, err := buildBackend(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		if err := NewCoordinator(backend).Deploy(cmd.Context(), cfg); err != nil {
			return fmt.Errorf("error occurred during deployment: %w", err)
		}

		return nil
	},
}

func buildBackend(ctx context.Context, cfg configs.Deployment) (chain.Backend, error) {
	if cfg.DryRun {
		deployer := dryRunDeployer
		if cfg.PrivateKey != "" {
			derived, err := chain.AddressFromPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			deployer = derived
		}

		slog.With("chain_id", dryRunChainID).With("deployer", deployer).Info("dry run: using in-memory backend, nothing will be broadcast")
		return chain.NewMemoryBackend(big.NewInt(dryRunChainID), deployer), nil
	}

	compiled, err := contracts.LoadCompiledContracts(cfg.ArtifactsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load compiled contracts: %w", err)
	}

	backend, err := chain.Dial(ctx, cfg.RPCURL, cfg.PrivateKey, compiled)
	if err != nil {
		return nil, err
	}

	return backend, nil
}
