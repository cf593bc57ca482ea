package configs

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var Values Config

type (
	Config struct {
		Deployment Deployment `mapstructure:"deployment"`
	}

	Deployment struct {
		RPCURL       string `mapstructure:"rpc-url"`
		PrivateKey   string `mapstructure:"private-key"`
		ArtifactsDir string `mapstructure:"artifacts-dir"`
		ManifestFile string `mapstructure:"manifest-file"`
		DryRun       bool   `mapstructure:"dry-run"`

		// DepositContract is the beacon-chain deposit contract override.
		// Required on every chain except mainnet, where the canonical
		// address is used verbatim.
		DepositContract string `mapstructure:"deposit-contract"`

		Multisigs             Multisigs         `mapstructure:"multisigs"`
		Pause                 Pause             `mapstructure:"pause"`
		WithdrawalDelayBlocks uint64            `mapstructure:"withdrawal-delay-blocks"`
		MinRestakedBalanceWei string            `mapstructure:"min-restaked-balance-wei"`
		Tokens                []TokenDescriptor `mapstructure:"tokens"`
	}

	Multisigs struct {
		Community string `mapstructure:"community"`
		Team      string `mapstructure:"team"`
	}

	// Pause holds the initial pause bitmask per component. Each bit gates
	// one operation category; 0 means nothing paused.
	Pause struct {
		DelegationManager uint64 `mapstructure:"delegation-manager"`
		StrategyManager   uint64 `mapstructure:"strategy-manager"`
		Slasher           uint64 `mapstructure:"slasher"`
		StakePodManager   uint64 `mapstructure:"stake-pod-manager"`
		WithdrawalRouter  uint64 `mapstructure:"withdrawal-router"`
		Strategies        uint64 `mapstructure:"strategies"`
	}

	TokenDescriptor struct {
		// Address of an already-deployed token. Empty or zero means the
		// deployer creates the token itself.
		Address string `mapstructure:"address"`
		Name    string `mapstructure:"name"`
		Symbol  string `mapstructure:"symbol"`
	}
)

// ExistingAddress returns the pre-supplied token address and whether one was
// configured. Empty and zero addresses both mean "deploy a fresh token".
func (t TokenDescriptor) ExistingAddress() (common.Address, bool) {
	if t.Address == "" || !common.IsHexAddress(t.Address) {
		return common.Address{}, false
	}
	addr := common.HexToAddress(t.Address)
	if addr == (common.Address{}) {
		return common.Address{}, false
	}
	return addr, true
}

func (d *Deployment) Validate() error {
	var errs []error

	if !d.DryRun {
		if d.RPCURL == "" {
			errs = append(errs, errors.New("deployment.rpc-url is required"))
		}
		if d.PrivateKey == "" {
			errs = append(errs, errors.New("deployment.private-key is required"))
		}
		if d.ArtifactsDir == "" {
			errs = append(errs, errors.New("deployment.artifacts-dir is required"))
		}
	}
	if d.ManifestFile == "" {
		errs = append(errs, errors.New("deployment.manifest-file is required"))
	}

	errs = append(errs, validateAddress("deployment.multisigs.community", d.Multisigs.Community, true)...)
	errs = append(errs, validateAddress("deployment.multisigs.team", d.Multisigs.Team, true)...)
	errs = append(errs, validateAddress("deployment.deposit-contract", d.DepositContract, false)...)

	if d.WithdrawalDelayBlocks == 0 {
		errs = append(errs, errors.New("deployment.withdrawal-delay-blocks is required"))
	}
	if _, err := d.MinRestakedBalance(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]struct{}, len(d.Tokens))
	for i, token := range d.Tokens {
		if token.Name == "" {
			errs = append(errs, fmt.Errorf("deployment.tokens[%d].name is required", i))
		}
		if token.Symbol == "" {
			errs = append(errs, fmt.Errorf("deployment.tokens[%d].symbol is required", i))
		} else if _, dup := seen[token.Symbol]; dup {
			errs = append(errs, fmt.Errorf("deployment.tokens[%d].symbol %q is duplicated", i, token.Symbol))
		} else {
			seen[token.Symbol] = struct{}{}
		}
		if token.Address != "" && !common.IsHexAddress(token.Address) {
			errs = append(errs, fmt.Errorf("deployment.tokens[%d].address is not a valid address: %q", i, token.Address))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("deployment configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// MinRestakedBalance parses the configured minimum restaked balance,
// a decimal integer in wei.
func (d *Deployment) MinRestakedBalance() (*big.Int, error) {
	if d.MinRestakedBalanceWei == "" {
		return nil, errors.New("deployment.min-restaked-balance-wei is required")
	}
	value, ok := new(big.Int).SetString(d.MinRestakedBalanceWei, 10)
	if !ok || value.Sign() <= 0 {
		return nil, fmt.Errorf("deployment.min-restaked-balance-wei must be a positive decimal integer, got %q", d.MinRestakedBalanceWei)
	}
	return value, nil
}

// CommunityMultisig returns the parsed community multisig address.
// Validate must have passed before calling it.
func (d *Deployment) CommunityMultisig() common.Address {
	return common.HexToAddress(d.Multisigs.Community)
}

// TeamMultisig returns the parsed team multisig address.
func (d *Deployment) TeamMultisig() common.Address {
	return common.HexToAddress(d.Multisigs.Team)
}

// validateAddress checks a configured address field. Required fields must be
// present; any present field must be a valid, non-zero hex address.
func validateAddress(key, value string, required bool) []error {
	if value == "" {
		if required {
			return []error{fmt.Errorf("%s is required", key)}
		}
		return nil
	}
	if !common.IsHexAddress(value) {
		return []error{fmt.Errorf("%s is not a valid address: %q", key, value)}
	}
	if common.HexToAddress(value) == (common.Address{}) {
		return []error{fmt.Errorf("%s must not be the zero address", key)}
	}
	return nil
}
