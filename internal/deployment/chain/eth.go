package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/compose-network/restaking-deployer/internal/deployment/contracts"
	"github.com/compose-network/restaking-deployer/internal/logger"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	txTimeout      = time.Minute
	deployGasLimit = uint64(10_000_000)
)

// EthBackend executes deployment operations against a live RPC endpoint.
// Every write waits for its receipt and fails on revert, so phase ordering
// guarantees hold at the chain level, not just in-process.
type EthBackend struct {
	client    *ethclient.Client
	auth      *bind.TransactOpts
	deployer  common.Address
	chainID   *big.Int
	contracts map[contracts.ContractName]contracts.CompiledContract
	logger    *slog.Logger
}

// Dial connects to an RPC endpoint and prepares a keyed transactor for the
// given private key.
func Dial(ctx context.Context, rpcURL, privateKeyHex string, compiled map[contracts.ContractName]contracts.CompiledContract) (*EthBackend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to cast public key to ECDSA")
	}

	return &EthBackend{
		client:    client,
		auth:      auth,
		deployer:  crypto.PubkeyToAddress(*publicKey),
		chainID:   chainID,
		contracts: compiled,
		logger:    logger.Named("chain_backend"),
	}, nil
}

// Close releases the underlying RPC connection.
func (b *EthBackend) Close() {
	b.client.Close()
}

func (b *EthBackend) ChainID(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

func (b *EthBackend) BlockNumber(ctx context.Context) (uint64, error) {
	return b.client.BlockNumber(ctx)
}

func (b *EthBackend) DeployerAddress() common.Address {
	return b.deployer
}

func (b *EthBackend) Deploy(ctx context.Context, contract contracts.ContractName, args ...any) (common.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	compiled, err := b.compiled(contract)
	if err != nil {
		return common.Address{}, err
	}

	auth, err := b.txOpts(ctx)
	if err != nil {
		return common.Address{}, err
	}

	address, tx, _, err := bind.DeployContract(auth, compiled.ABI, compiled.Bytecode, b.client, args...)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy %s: %w", contract, err)
	}

	b.logger.
		With("contract", contract).
		With("address", address).
		With("tx_hash", tx.Hash().Hex()).
		Info("contract deployment transaction sent")

	if err := b.waitMined(ctx, tx); err != nil {
		return common.Address{}, fmt.Errorf("deployment of %s did not commit: %w", contract, err)
	}

	return address, nil
}

func (b *EthBackend) DeployProxy(ctx context.Context, logic, admin common.Address, logicContract contracts.ContractName, initMethod string, initArgs ...any) (common.Address, error) {
	data, err := b.packInitializer(logicContract, initMethod, initArgs...)
	if err != nil {
		return common.Address{}, err
	}

	return b.Deploy(ctx, contracts.ContractNameTransparentProxy, logic, admin, data)
}

func (b *EthBackend) Upgrade(ctx context.Context, admin, proxy, implementation common.Address, implContract contracts.ContractName, initMethod string, initArgs ...any) error {
	if initMethod == "" {
		return b.Send(ctx, admin, contracts.ContractNameProxyAdmin, "upgrade", proxy, implementation)
	}

	data, err := b.packInitializer(implContract, initMethod, initArgs...)
	if err != nil {
		return err
	}

	return b.Send(ctx, admin, contracts.ContractNameProxyAdmin, "upgradeAndCall", proxy, implementation, data)
}

func (b *EthBackend) Send(ctx context.Context, to common.Address, contract contracts.ContractName, method string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	compiled, err := b.compiled(contract)
	if err != nil {
		return err
	}

	auth, err := b.txOpts(ctx)
	if err != nil {
		return err
	}

	bound := bind.NewBoundContract(to, compiled.ABI, b.client, b.client, b.client)
	tx, err := bound.Transact(auth, method, args...)
	if err != nil {
		return fmt.Errorf("failed to call %s.%s: %w", contract, method, err)
	}

	b.logger.
		With("contract", contract).
		With("method", method).
		With("tx_hash", tx.Hash().Hex()).
		Info("transaction sent")

	if err := b.waitMined(ctx, tx); err != nil {
		return fmt.Errorf("%s.%s did not commit: %w", contract, method, err)
	}

	return nil
}

func (b *EthBackend) Call(ctx context.Context, to common.Address, contract contracts.ContractName, method string, args ...any) ([]any, error) {
	compiled, err := b.compiled(contract)
	if err != nil {
		return nil, err
	}

	bound := bind.NewBoundContract(to, compiled.ABI, b.client, b.client, b.client)

	var out []any
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("failed to call %s.%s on %s: %w", contract, method, to, err)
	}

	return out, nil
}

func (b *EthBackend) ProxyImplementation(ctx context.Context, proxy common.Address) (common.Address, error) {
	return b.storageAddress(ctx, proxy, implementationSlot)
}

func (b *EthBackend) ProxyAdminAddress(ctx context.Context, proxy common.Address) (common.Address, error) {
	return b.storageAddress(ctx, proxy, adminSlot)
}

func (b *EthBackend) storageAddress(ctx context.Context, account common.Address, slot common.Hash) (common.Address, error) {
	raw, err := b.client.StorageAt(ctx, account, slot, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to read storage slot of %s: %w", account, err)
	}
	return common.BytesToAddress(raw), nil
}

func (b *EthBackend) compiled(contract contracts.ContractName) (contracts.CompiledContract, error) {
	compiled, ok := b.contracts[contract]
	if !ok {
		return contracts.CompiledContract{}, fmt.Errorf("no compiled artifact for %s", contract)
	}
	return compiled, nil
}

func (b *EthBackend) packInitializer(contract contracts.ContractName, initMethod string, initArgs ...any) ([]byte, error) {
	if initMethod == "" {
		return nil, nil
	}

	compiled, err := b.compiled(contract)
	if err != nil {
		return nil, err
	}

	data, err := compiled.ABI.Pack(initMethod, initArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s.%s: %w", contract, initMethod, err)
	}
	return data, nil
}

func (b *EthBackend) txOpts(ctx context.Context) (*bind.TransactOpts, error) {
	gasPrice, err := b.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	auth := *b.auth
	auth.Context = ctx
	auth.GasLimit = deployGasLimit
	auth.GasPrice = gasPrice

	return &auth, nil
}

func (b *EthBackend) waitMined(ctx context.Context, tx *types.Transaction) error {
	receipt, err := bind.WaitMined(ctx, b.client, tx)
	if err != nil {
		return fmt.Errorf("failed to wait for transaction: %w", err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted with status %d", tx.Hash().Hex(), receipt.Status)
	}

	return nil
}
