package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var depositOverride = common.HexToAddress("0x4242424242424242424242424242424242424242")

func TestResolveEnvironment_Mainnet(t *testing.T) {
	env, err := ResolveEnvironment(big.NewInt(MainnetChainID), common.Address{})
	require.NoError(t, err)
	assert.True(t, env.Production)
	assert.Equal(t, MainnetDepositContract, env.DepositContract)

	// A configured override never displaces the canonical mainnet address.
	env, err = ResolveEnvironment(big.NewInt(MainnetChainID), depositOverride)
	require.NoError(t, err)
	assert.Equal(t, MainnetDepositContract, env.DepositContract)
}

func TestResolveEnvironment_OtherChains(t *testing.T) {
	_, err := ResolveEnvironment(big.NewInt(31337), common.Address{})
	require.Error(t, err, "non-mainnet chains have no canonical deposit contract")
	assert.Contains(t, err.Error(), "deposit contract override is required")

	env, err := ResolveEnvironment(big.NewInt(31337), depositOverride)
	require.NoError(t, err)
	assert.False(t, env.Production)
	assert.Equal(t, depositOverride, env.DepositContract)
	assert.Zero(t, env.ChainID.Cmp(big.NewInt(31337)))
}

func TestResolveEnvironment_InvalidChainID(t *testing.T) {
	_, err := ResolveEnvironment(nil, depositOverride)
	require.Error(t, err)

	_, err = ResolveEnvironment(big.NewInt(0), depositOverride)
	require.Error(t, err)
}
