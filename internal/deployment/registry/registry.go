// Package registry tracks the addresses a deployment run assigns to each
// logical component. It is populated incrementally: proxy addresses during
// the placeholder phase, implementation and beacon addresses during the
// implementation phase, strategy bindings during wiring. Every mutation is
// append-only and the whole registry can be frozen once wiring completes.
package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type (
	// ComponentName is the logical name of a deployed component.
	ComponentName string

	// Kind describes how a component is deployed and upgraded.
	Kind string

	Component struct {
		Name           ComponentName
		Kind           Kind
		Proxy          common.Address
		Implementation common.Address
		Beacon         common.Address
	}

	// StrategyBinding records one per-token strategy proxy.
	StrategyBinding struct {
		Symbol          string
		Name            string
		UnderlyingToken common.Address
		Proxy           common.Address
		// TokenDeployed is true when the run created the token itself.
		TokenDeployed bool
	}

	Registry struct {
		components map[ComponentName]*Component
		strategies []StrategyBinding
		frozen     bool
	}
)

const (
	KindSingletonProxy Kind = "singleton-proxy"
	KindBeaconProxy    Kind = "beacon-templated-proxy"
	KindStatic         Kind = "non-upgradeable"
)

const (
	ComponentDelegationManager ComponentName = "delegation-manager"
	ComponentStrategyManager   ComponentName = "strategy-manager"
	ComponentSlasher           ComponentName = "slasher"
	ComponentStakePodManager   ComponentName = "stake-pod-manager"
	ComponentWithdrawalRouter  ComponentName = "withdrawal-router"
	ComponentStakePod          ComponentName = "stake-pod"
	ComponentBaseStrategy      ComponentName = "token-strategy-base"
	ComponentPauserRegistry    ComponentName = "pauser-registry"
	ComponentProxyAdmin        ComponentName = "proxy-admin"
	ComponentPlaceholder       ComponentName = "placeholder"
)

// ProxiedComponents lists every component that receives a transparent proxy
// during the placeholder phase, in deployment order.
var ProxiedComponents = []ComponentName{
	ComponentDelegationManager,
	ComponentStrategyManager,
	ComponentSlasher,
	ComponentStakePodManager,
	ComponentWithdrawalRouter,
}

func New() *Registry {
	return &Registry{
		components: make(map[ComponentName]*Component),
	}
}

// RegisterProxy records the final proxy address of a singleton-proxy
// component. The address never changes for the remainder of the run.
func (r *Registry) RegisterProxy(name ComponentName, proxy common.Address) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, exists := r.components[name]; exists {
		return fmt.Errorf("component %s is already registered", name)
	}
	r.components[name] = &Component{
		Name:  name,
		Kind:  KindSingletonProxy,
		Proxy: proxy,
	}
	return nil
}

// RegisterStatic records a non-upgradeable component deployed at a single
// fixed address.
func (r *Registry) RegisterStatic(name ComponentName, addr common.Address) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, exists := r.components[name]; exists {
		return fmt.Errorf("component %s is already registered", name)
	}
	r.components[name] = &Component{
		Name:           name,
		Kind:           KindStatic,
		Implementation: addr,
	}
	return nil
}

// RegisterBeacon records a beacon-templated component: the shared beacon and
// the implementation it points at.
func (r *Registry) RegisterBeacon(name ComponentName, beacon, implementation common.Address) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, exists := r.components[name]; exists {
		return fmt.Errorf("component %s is already registered", name)
	}
	r.components[name] = &Component{
		Name:           name,
		Kind:           KindBeaconProxy,
		Beacon:         beacon,
		Implementation: implementation,
	}
	return nil
}

// AttachImplementation sets the implementation address of an already
// registered proxied component. It may be set exactly once.
func (r *Registry) AttachImplementation(name ComponentName, implementation common.Address) error {
	if err := r.writable(); err != nil {
		return err
	}
	component, exists := r.components[name]
	if !exists {
		return fmt.Errorf("component %s is not registered", name)
	}
	if component.Implementation != (common.Address{}) {
		return fmt.Errorf("component %s already has implementation %s", name, component.Implementation)
	}
	component.Implementation = implementation
	return nil
}

// AddStrategy appends a strategy binding. Symbols are unique.
func (r *Registry) AddStrategy(binding StrategyBinding) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, existing := range r.strategies {
		if existing.Symbol == binding.Symbol {
			return fmt.Errorf("strategy %s is already registered", binding.Symbol)
		}
	}
	r.strategies = append(r.strategies, binding)
	return nil
}

// Component returns the record for a logical name.
func (r *Registry) Component(name ComponentName) (Component, error) {
	component, exists := r.components[name]
	if !exists {
		return Component{}, fmt.Errorf("component %s is not registered", name)
	}
	return *component, nil
}

// Proxy returns the proxy address of a proxied component.
func (r *Registry) Proxy(name ComponentName) (common.Address, error) {
	component, err := r.Component(name)
	if err != nil {
		return common.Address{}, err
	}
	if component.Proxy == (common.Address{}) {
		return common.Address{}, fmt.Errorf("component %s has no proxy address", name)
	}
	return component.Proxy, nil
}

// Address returns the single address of a non-upgradeable component.
func (r *Registry) Address(name ComponentName) (common.Address, error) {
	component, err := r.Component(name)
	if err != nil {
		return common.Address{}, err
	}
	if component.Implementation == (common.Address{}) {
		return common.Address{}, fmt.Errorf("component %s has no address", name)
	}
	return component.Implementation, nil
}

// Strategies returns the recorded strategy bindings in registration order.
func (r *Registry) Strategies() []StrategyBinding {
	out := make([]StrategyBinding, len(r.strategies))
	copy(out, r.strategies)
	return out
}

// Freeze makes every subsequent mutation fail. Called once all writes have
// been broadcast; verification and manifest emission only read.
func (r *Registry) Freeze() {
	r.frozen = true
}

func (r *Registry) writable() error {
	if r.frozen {
		return fmt.Errorf("registry is frozen")
	}
	return nil
}
