// Package verify implements phase 4: a read-only battery of invariant checks
// over the fully wired system. It runs only after every write has been
// broadcast and gates manifest emission: a single failed assertion aborts the
// run. The checks cannot undo the deployment they examine; a failure leaves
// the broadcast state in place for operator inspection.
package verify

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

type Verifier struct {
	backend chain.Backend
	env     chain.Environment
	cfg     configs.Deployment
	logger  *slog.Logger
}

func NewVerifier(backend chain.Backend, env chain.Environment, cfg configs.Deployment) *Verifier {
	return &Verifier{
		backend: backend,
		env:     env,
		cfg:     cfg,
		logger:  logger.Named("invariant_verifier"),
	}
}

// Run asserts every deployment invariant: proxy bindings, referential
// integrity of peer addresses, ownership, administrative roles, pause
// bitmasks and numeric initialization parameters. All-or-nothing: the first
// mismatch aborts with the component and field that diverged.
func (v *Verifier) Run(ctx context.Context, reg *registry.Registry) error {
	v.logger.Info("Phase 4: verifying deployment invariants")

	steps := []struct {
		name  string
		check func(context.Context, *registry.Registry) error
	}{
		{"proxy bindings", v.checkBindings},
		{"referential integrity", v.checkReferences},
		{"ownership", v.checkOwnership},
		{"administrative roles", v.checkRoles},
		{"pause state", v.checkPauseState},
		{"initialization parameters", v.checkParameters},
		{"strategies", v.checkStrategies},
	}

	for _, step := range steps {
		if err := step.check(ctx, reg); err != nil {
			return fmt.Errorf("verification failed (%s): %w", step.name, err)
		}
		v.logger.With("check", step.name).Info("verified")
	}

	v.logger.Info("Phase 4: all invariants hold")

	return nil
}

// checkBindings asserts that every proxy's ERC-1967 implementation slot holds
// the recorded implementation, every proxy is administered by the recorded
// proxy admin, and the pod beacon points at the pod implementation.
func (v *Verifier) checkBindings(ctx context.Context, reg *registry.Registry) error {
	proxyAdmin, err := reg.Address(registry.ComponentProxyAdmin)
	if err != nil {
		return err
	}

	for _, name := range registry.ProxiedComponents {
		component, err := reg.Component(name)
		if err != nil {
			return err
		}

		actual, err := v.backend.ProxyImplementation(ctx, component.Proxy)
		if err != nil {
			return err
		}
		if actual != component.Implementation {
			return mismatch(name, "proxy implementation", component.Implementation, actual)
		}

		admin, err := v.backend.ProxyAdminAddress(ctx, component.Proxy)
		if err != nil {
			return err
		}
		if admin != proxyAdmin {
			return mismatch(name, "proxy admin", proxyAdmin, admin)
		}
	}

	pod, err := reg.Component(registry.ComponentStakePod)
	if err != nil {
		return err
	}
	beaconImpl, err := v.callAddress(ctx, pod.Beacon, contracts.ContractNameBeacon, "implementation")
	if err != nil {
		return err
	}
	if beaconImpl != pod.Implementation {
		return mismatch(registry.ComponentStakePod, "beacon implementation", pod.Implementation, beaconImpl)
	}

	return nil
}

// checkReferences asserts that every immutable peer reference equals the
// address the registry assigned to that peer. Immutables are read twice: once
// through the proxy (exercising delegation) and once on the implementation
// address directly.
func (v *Verifier) checkReferences(ctx context.Context, reg *registry.Registry) error {
	delegation, err := reg.Component(registry.ComponentDelegationManager)
	if err != nil {
		return err
	}
	strategyManager, err := reg.Component(registry.ComponentStrategyManager)
	if err != nil {
		return err
	}
	slasher, err := reg.Component(registry.ComponentSlasher)
	if err != nil {
		return err
	}
	podManager, err := reg.Component(registry.ComponentStakePodManager)
	if err != nil {
		return err
	}
	router, err := reg.Component(registry.ComponentWithdrawalRouter)
	if err != nil {
		return err
	}
	pod, err := reg.Component(registry.ComponentStakePod)
	if err != nil {
		return err
	}
	baseStrategy, err := reg.Address(registry.ComponentBaseStrategy)
	if err != nil {
		return err
	}

	references := []struct {
		component registry.ComponentName
		targets   []common.Address // proxy view first, then implementation view
		contract  contracts.ContractName
		method    string
		want      common.Address
	}{
		{registry.ComponentDelegationManager, bothViews(delegation), contracts.ContractNameDelegationManager, "strategyManager", strategyManager.Proxy},
		{registry.ComponentDelegationManager, bothViews(delegation), contracts.ContractNameDelegationManager, "slasher", slasher.Proxy},

		{registry.ComponentStrategyManager, bothViews(strategyManager), contracts.ContractNameStrategyManager, "delegation", delegation.Proxy},
		{registry.ComponentStrategyManager, bothViews(strategyManager), contracts.ContractNameStrategyManager, "stakePodManager", podManager.Proxy},
		{registry.ComponentStrategyManager, bothViews(strategyManager), contracts.ContractNameStrategyManager, "slasher", slasher.Proxy},

		{registry.ComponentSlasher, bothViews(slasher), contracts.ContractNameSlasher, "strategyManager", strategyManager.Proxy},
		{registry.ComponentSlasher, bothViews(slasher), contracts.ContractNameSlasher, "delegation", delegation.Proxy},

		{registry.ComponentStakePodManager, bothViews(podManager), contracts.ContractNameStakePodManager, "depositContract", v.env.DepositContract},
		{registry.ComponentStakePodManager, bothViews(podManager), contracts.ContractNameStakePodManager, "podBeacon", pod.Beacon},
		{registry.ComponentStakePodManager, bothViews(podManager), contracts.ContractNameStakePodManager, "strategyManager", strategyManager.Proxy},
		{registry.ComponentStakePodManager, bothViews(podManager), contracts.ContractNameStakePodManager, "slasher", slasher.Proxy},

		{registry.ComponentWithdrawalRouter, bothViews(router), contracts.ContractNameWithdrawalRouter, "stakePodManager", podManager.Proxy},

		// The pod and base strategy implementations are never fronted by the
		// singleton proxies, so only the implementation view exists.
		{registry.ComponentStakePod, []common.Address{pod.Implementation}, contracts.ContractNameStakePod, "depositContract", v.env.DepositContract},
		{registry.ComponentStakePod, []common.Address{pod.Implementation}, contracts.ContractNameStakePod, "withdrawalRouter", router.Proxy},
		{registry.ComponentStakePod, []common.Address{pod.Implementation}, contracts.ContractNameStakePod, "stakePodManager", podManager.Proxy},

		{registry.ComponentBaseStrategy, []common.Address{baseStrategy}, contracts.ContractNameTokenStrategy, "strategyManager", strategyManager.Proxy},
	}

	for _, ref := range references {
		for i, target := range ref.targets {
			actual, err := v.callAddress(ctx, target, ref.contract, ref.method)
			if err != nil {
				return err
			}
			if actual != ref.want {
				view := "proxy view"
				if i > 0 || len(ref.targets) == 1 {
					view = "implementation view"
				}
				return fmt.Errorf("component %s: %s (%s): expected %s, actual %s", ref.component, ref.method, view, ref.want, actual)
			}
		}
	}

	return nil
}

type ownedEntry struct {
	component registry.ComponentName
	target    common.Address
	contract  contracts.ContractName
}

func (v *Verifier) checkOwnership(ctx context.Context, reg *registry.Registry) error {
	community := v.cfg.CommunityMultisig()

	var owned []ownedEntry
	for _, name := range registry.ProxiedComponents {
		component, err := reg.Component(name)
		if err != nil {
			return err
		}
		owned = append(owned, ownedEntry{name, component.Proxy, componentContract(name)})
	}

	proxyAdmin, err := reg.Address(registry.ComponentProxyAdmin)
	if err != nil {
		return err
	}
	owned = append(owned, ownedEntry{registry.ComponentProxyAdmin, proxyAdmin, contracts.ContractNameProxyAdmin})

	pod, err := reg.Component(registry.ComponentStakePod)
	if err != nil {
		return err
	}
	owned = append(owned, ownedEntry{registry.ComponentStakePod, pod.Beacon, contracts.ContractNameBeacon})

	for _, entry := range owned {
		owner, err := v.callAddress(ctx, entry.target, entry.contract, "owner")
		if err != nil {
			return err
		}
		if owner != community {
			return mismatch(entry.component, "owner", community, owner)
		}
		if owner == v.backend.DeployerAddress() {
			return fmt.Errorf("component %s: owner resolves to the deployer address %s", entry.component, owner)
		}
	}

	return nil
}

func (v *Verifier) checkRoles(ctx context.Context, reg *registry.Registry) error {
	pauserRegistry, err := reg.Address(registry.ComponentPauserRegistry)
	if err != nil {
		return err
	}

	pauser, err := v.callAddress(ctx, pauserRegistry, contracts.ContractNamePauserRegistry, "pauser")
	if err != nil {
		return err
	}
	if pauser != v.cfg.TeamMultisig() {
		return mismatch(registry.ComponentPauserRegistry, "pauser", v.cfg.TeamMultisig(), pauser)
	}

	unpauser, err := v.callAddress(ctx, pauserRegistry, contracts.ContractNamePauserRegistry, "unpauser")
	if err != nil {
		return err
	}
	if unpauser != v.cfg.CommunityMultisig() {
		return mismatch(registry.ComponentPauserRegistry, "unpauser", v.cfg.CommunityMultisig(), unpauser)
	}

	strategyManager, err := reg.Proxy(registry.ComponentStrategyManager)
	if err != nil {
		return err
	}
	whitelister, err := v.callAddress(ctx, strategyManager, contracts.ContractNameStrategyManager, "strategyWhitelister")
	if err != nil {
		return err
	}
	if whitelister != v.cfg.TeamMultisig() {
		return mismatch(registry.ComponentStrategyManager, "strategyWhitelister", v.cfg.TeamMultisig(), whitelister)
	}

	// Every wired component must point at the one deployed pauser registry.
	for _, name := range registry.ProxiedComponents {
		proxy, err := reg.Proxy(name)
		if err != nil {
			return err
		}
		actual, err := v.callAddress(ctx, proxy, componentContract(name), "pauserRegistry")
		if err != nil {
			return err
		}
		if actual != pauserRegistry {
			return mismatch(name, "pauserRegistry", pauserRegistry, actual)
		}
	}

	return nil
}

// checkPauseState asserts bitwise equality of every live pause bitmask with
// its configured target. Exact equality: a paused-enough value is still a
// mismatch.
func (v *Verifier) checkPauseState(ctx context.Context, reg *registry.Registry) error {
	expected := map[registry.ComponentName]uint64{
		registry.ComponentDelegationManager: v.cfg.Pause.DelegationManager,
		registry.ComponentStrategyManager:   v.cfg.Pause.StrategyManager,
		registry.ComponentSlasher:           v.cfg.Pause.Slasher,
		registry.ComponentStakePodManager:   v.cfg.Pause.StakePodManager,
		registry.ComponentWithdrawalRouter:  v.cfg.Pause.WithdrawalRouter,
	}

	for _, name := range registry.ProxiedComponents {
		proxy, err := reg.Proxy(name)
		if err != nil {
			return err
		}
		actual, err := v.callBig(ctx, proxy, componentContract(name), "paused")
		if err != nil {
			return err
		}
		want := new(big.Int).SetUint64(expected[name])
		if actual.Cmp(want) != 0 {
			return mismatch(name, "paused", want, actual)
		}
	}

	return nil
}

func (v *Verifier) checkParameters(ctx context.Context, reg *registry.Registry) error {
	delayBlocks := new(big.Int).SetUint64(v.cfg.WithdrawalDelayBlocks)

	strategyManager, err := reg.Proxy(registry.ComponentStrategyManager)
	if err != nil {
		return err
	}
	actual, err := v.callBig(ctx, strategyManager, contracts.ContractNameStrategyManager, "withdrawalDelayBlocks")
	if err != nil {
		return err
	}
	if actual.Cmp(delayBlocks) != 0 {
		return mismatch(registry.ComponentStrategyManager, "withdrawalDelayBlocks", delayBlocks, actual)
	}

	router, err := reg.Proxy(registry.ComponentWithdrawalRouter)
	if err != nil {
		return err
	}
	actual, err = v.callBig(ctx, router, contracts.ContractNameWithdrawalRouter, "withdrawalDelayBlocks")
	if err != nil {
		return err
	}
	if actual.Cmp(delayBlocks) != 0 {
		return mismatch(registry.ComponentWithdrawalRouter, "withdrawalDelayBlocks", delayBlocks, actual)
	}

	minBalance, err := v.cfg.MinRestakedBalance()
	if err != nil {
		return err
	}
	pod, err := reg.Component(registry.ComponentStakePod)
	if err != nil {
		return err
	}
	actual, err = v.callBig(ctx, pod.Implementation, contracts.ContractNameStakePod, "requiredBalanceWei")
	if err != nil {
		return err
	}
	if actual.Cmp(minBalance) != 0 {
		return mismatch(registry.ComponentStakePod, "requiredBalanceWei", minBalance, actual)
	}

	return nil
}

func (v *Verifier) checkStrategies(ctx context.Context, reg *registry.Registry) error {
	baseStrategy, err := reg.Address(registry.ComponentBaseStrategy)
	if err != nil {
		return err
	}
	pauserRegistry, err := reg.Address(registry.ComponentPauserRegistry)
	if err != nil {
		return err
	}
	proxyAdmin, err := reg.Address(registry.ComponentProxyAdmin)
	if err != nil {
		return err
	}

	strategies := reg.Strategies()
	if len(strategies) != len(v.cfg.Tokens) {
		return fmt.Errorf("expected %d strategies, registry holds %d", len(v.cfg.Tokens), len(strategies))
	}

	pausedWant := new(big.Int).SetUint64(v.cfg.Pause.Strategies)

	for _, binding := range strategies {
		component := registry.ComponentName("strategy:" + binding.Symbol)

		impl, err := v.backend.ProxyImplementation(ctx, binding.Proxy)
		if err != nil {
			return err
		}
		if impl != baseStrategy {
			return mismatch(component, "proxy implementation", baseStrategy, impl)
		}

		admin, err := v.backend.ProxyAdminAddress(ctx, binding.Proxy)
		if err != nil {
			return err
		}
		if admin != proxyAdmin {
			return mismatch(component, "proxy admin", proxyAdmin, admin)
		}

		token, err := v.callAddress(ctx, binding.Proxy, contracts.ContractNameTokenStrategy, "underlyingToken")
		if err != nil {
			return err
		}
		if token != binding.UnderlyingToken {
			return mismatch(component, "underlyingToken", binding.UnderlyingToken, token)
		}

		registryAddr, err := v.callAddress(ctx, binding.Proxy, contracts.ContractNameTokenStrategy, "pauserRegistry")
		if err != nil {
			return err
		}
		if registryAddr != pauserRegistry {
			return mismatch(component, "pauserRegistry", pauserRegistry, registryAddr)
		}

		paused, err := v.callBig(ctx, binding.Proxy, contracts.ContractNameTokenStrategy, "paused")
		if err != nil {
			return err
		}
		if paused.Cmp(pausedWant) != 0 {
			return mismatch(component, "paused", pausedWant, paused)
		}

		// Symbol and name are only verifiable for tokens this run created;
		// pre-supplied tokens are taken as configured.
		if binding.TokenDeployed {
			symbol, err := v.callString(ctx, binding.UnderlyingToken, contracts.ContractNameMintableToken, "symbol")
			if err != nil {
				return err
			}
			if symbol != binding.Symbol {
				return mismatch(component, "token symbol", binding.Symbol, symbol)
			}

			name, err := v.callString(ctx, binding.UnderlyingToken, contracts.ContractNameMintableToken, "name")
			if err != nil {
				return err
			}
			if name != binding.Name {
				return mismatch(component, "token name", binding.Name, name)
			}
		}
	}

	return nil
}

func (v *Verifier) callAddress(ctx context.Context, target common.Address, contract contracts.ContractName, method string) (common.Address, error) {
	out, err := v.backend.Call(ctx, target, contract, method)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s.%s did not return an address", contract, method)
	}
	return addr, nil
}

func (v *Verifier) callBig(ctx context.Context, target common.Address, contract contracts.ContractName, method string) (*big.Int, error) {
	out, err := v.backend.Call(ctx, target, contract, method)
	if err != nil {
		return nil, err
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s.%s did not return an integer", contract, method)
	}
	return value, nil
}

func (v *Verifier) callString(ctx context.Context, target common.Address, contract contracts.ContractName, method string) (string, error) {
	out, err := v.backend.Call(ctx, target, contract, method)
	if err != nil {
		return "", err
	}
	value, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%s.%s did not return a string", contract, method)
	}
	return value, nil
}

func mismatch(component registry.ComponentName, field string, expected, actual any) error {
	return fmt.Errorf("component %s: %s: expected %v, actual %v", component, field, expected, actual)
}

// bothViews returns the proxy address followed by the implementation address
// of a component, the two targets an immutable getter must agree on.
func bothViews(component registry.Component) []common.Address {
	return []common.Address{component.Proxy, component.Implementation}
}

func componentContract(name registry.ComponentName) contracts.ContractName {
	switch name {
	case registry.ComponentDelegationManager:
		return contracts.ContractNameDelegationManager
	case registry.ComponentStrategyManager:
		return contracts.ContractNameStrategyManager
	case registry.ComponentSlasher:
		return contracts.ContractNameSlasher
	case registry.ComponentStakePodManager:
		return contracts.ContractNameStakePodManager
	case registry.ComponentWithdrawalRouter:
		return contracts.ContractNameWithdrawalRouter
	default:
		return ""
	}
}
