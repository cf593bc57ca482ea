package deployment

import (
	"github.com/spf13/viper"
)

// flagDef defines a command-line flag with its configuration.
type (
	flagType interface {
		string | int | bool
	}

	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}
)

var (
	stringFlags = []flagDef[string]{
		{"rpc-url", "deployment.rpc-url", "", "RPC URL of the target chain"},
		{"private-key", "deployment.private-key", "", "Deployer private key"},
		{"artifacts-dir", "deployment.artifacts-dir", "", "Directory holding compiled contract artifacts"},
		{"manifest-file", "deployment.manifest-file", "./deployments/manifest.json", "Path of the output manifest"},
		{"deposit-contract", "deployment.deposit-contract", "", "Deposit contract override (required off mainnet)"},
		{"community-multisig", "deployment.multisigs.community", "", "Community multisig address (owner, unpauser)"},
		{"team-multisig", "deployment.multisigs.team", "", "Team multisig address (pauser, strategy whitelister)"},
		{"min-restaked-balance-wei", "deployment.min-restaked-balance-wei", "31000000000000000000", "Minimum restaked balance per pod in wei"},
	}

	intFlags = []flagDef[int]{
		{"withdrawal-delay-blocks", "deployment.withdrawal-delay-blocks", 50400, "Withdrawal delay in blocks"},
	}

	boolFlags = []flagDef[bool]{
		{"dry-run", "deployment.dry-run", false, "Run the full sequence against an in-memory backend without broadcasting"},
	}
)

// Pause bitmasks and the token list are configured via the config file only:
// bitmask values can exceed the int flag range and tokens are structured.

func init() {
	if err := declareFlags(stringFlags); err != nil {
		panic(err)
	}
	if err := declareFlags(intFlags); err != nil {
		panic(err)
	}
	if err := declareFlags(boolFlags); err != nil {
		panic(err)
	}
}

// declareFlags declares multiple flags and binds them to viper configuration keys.
func declareFlags[T flagType](flags []flagDef[T]) error {
	for _, flag := range flags {
		if err := declareFlag(flag.name, flag.viperKey, flag.defaultValue, flag.description); err != nil {
			return err
		}
	}
	return nil
}

// declareFlag declares a single flag and binds it to a viper configuration key.
// The type parameter T determines the flag type (string, int, or bool).
func declareFlag[T flagType](flagName, viperKey string, defaultValue T, description string) error {
	var zero T
	switch any(zero).(type) {
	case string:
		CMD.Flags().String(flagName, any(defaultValue).(string), description)
	case int:
		CMD.Flags().Int(flagName, any(defaultValue).(int), description)
	case bool:
		CMD.Flags().Bool(flagName, any(defaultValue).(bool), description)
	}
	return viper.BindPFlag(viperKey, CMD.Flags().Lookup(flagName))
}
