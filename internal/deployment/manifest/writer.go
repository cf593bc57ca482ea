// Package manifest serializes a verified deployment into its persisted
// artifact. The manifest is created once, after verification passes, and is
// never mutated afterwards.
package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/compose-network/restaking-deployer/configs"
	"github.com/compose-network/restaking-deployer/internal/deployment/registry"
	"github.com/compose-network/restaking-deployer/internal/logger"
	"github.com/ethereum/go-ethereum/common"
)

type (
	Manifest struct {
		Addresses  Addresses  `json:"addresses"`
		ChainInfo  ChainInfo  `json:"chainInfo"`
		Parameters Parameters `json:"parameters"`
	}

	Addresses struct {
		ProxyAdmin                 common.Address           `json:"proxyAdmin"`
		Placeholder                common.Address           `json:"placeholder"`
		PauserRegistry             common.Address           `json:"pauserRegistry"`
		DelegationManager          ProxyPair                `json:"delegationManager"`
		StrategyManager            ProxyPair                `json:"strategyManager"`
		Slasher                    ProxyPair                `json:"slasher"`
		StakePodManager            ProxyPair                `json:"stakePodManager"`
		WithdrawalRouter           ProxyPair                `json:"withdrawalRouter"`
		StakePodBeacon             common.Address           `json:"stakePodBeacon"`
		StakePodImplementation     common.Address           `json:"stakePodImplementation"`
		BaseStrategyImplementation common.Address           `json:"baseStrategyImplementation"`
		Strategies                 map[string]StrategyEntry `json:"strategies"`
	}

	ProxyPair struct {
		Proxy          common.Address `json:"proxy"`
		Implementation common.Address `json:"implementation"`
	}

	StrategyEntry struct {
		Proxy           common.Address `json:"proxy"`
		UnderlyingToken common.Address `json:"underlyingToken"`
	}

	ChainInfo struct {
		ChainID         uint64 `json:"chainId"`
		DeploymentBlock uint64 `json:"deploymentBlock"`
	}

	Parameters struct {
		CommunityMultisig common.Address `json:"communityMultisig"`
		TeamMultisig      common.Address `json:"teamMultisig"`
	}
)

// Build assembles the manifest from the frozen registry.
func Build(reg *registry.Registry, cfg configs.Deployment, chainID, deploymentBlock uint64) (Manifest, error) {
	addresses := Addresses{
		Strategies: make(map[string]StrategyEntry),
	}

	var err error
	if addresses.ProxyAdmin, err = reg.Address(registry.ComponentProxyAdmin); err != nil {
		return Manifest{}, err
	}
	if addresses.Placeholder, err = reg.Address(registry.ComponentPlaceholder); err != nil {
		return Manifest{}, err
	}
	if addresses.PauserRegistry, err = reg.Address(registry.ComponentPauserRegistry); err != nil {
		return Manifest{}, err
	}

	pairs := []struct {
		name registry.ComponentName
		dst  *ProxyPair
	}{
		{registry.ComponentDelegationManager, &addresses.DelegationManager},
		{registry.ComponentStrategyManager, &addresses.StrategyManager},
		{registry.ComponentSlasher, &addresses.Slasher},
		{registry.ComponentStakePodManager, &addresses.StakePodManager},
		{registry.ComponentWithdrawalRouter, &addresses.WithdrawalRouter},
	}
	for _, pair := range pairs {
		component, err := reg.Component(pair.name)
		if err != nil {
			return Manifest{}, err
		}
		if component.Implementation == (common.Address{}) {
			return Manifest{}, fmt.Errorf("component %s has no implementation address", pair.name)
		}
		*pair.dst = ProxyPair{Proxy: component.Proxy, Implementation: component.Implementation}
	}

	pod, err := reg.Component(registry.ComponentStakePod)
	if err != nil {
		return Manifest{}, err
	}
	addresses.StakePodBeacon = pod.Beacon
	addresses.StakePodImplementation = pod.Implementation

	if addresses.BaseStrategyImplementation, err = reg.Address(registry.ComponentBaseStrategy); err != nil {
		return Manifest{}, err
	}

	for _, binding := range reg.Strategies() {
		addresses.Strategies[binding.Symbol] = StrategyEntry{
			Proxy:           binding.Proxy,
			UnderlyingToken: binding.UnderlyingToken,
		}
	}

	return Manifest{
		Addresses: addresses,
		ChainInfo: ChainInfo{
			ChainID:         chainID,
			DeploymentBlock: deploymentBlock,
		},
		Parameters: Parameters{
			CommunityMultisig: cfg.CommunityMultisig(),
			TeamMultisig:      cfg.TeamMultisig(),
		},
	}, nil
}

// Writer persists manifests to disk.
type Writer struct {
	path   string
	logger *slog.Logger
}

func NewWriter(path string) *Writer {
	return &Writer{
		path:   path,
		logger: logger.Named("manifest_writer"),
	}
}

func (w *Writer) Write(m Manifest) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", w.path, err)
	}

	content, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(w.path, append(content, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", w.path, err)
	}

	w.logger.With("path", w.path).Info("manifest written")

	return nil
}
