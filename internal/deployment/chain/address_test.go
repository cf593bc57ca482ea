package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressFromPrivateKey(t *testing.T) {
	// The first well-known anvil/hardhat development account.
	const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	expected := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	addr, err := AddressFromPrivateKey(devKey)
	require.NoError(t, err)
	assert.Equal(t, expected, addr)

	// A 0x prefix is tolerated.
	addr, err = AddressFromPrivateKey("0x" + devKey)
	require.NoError(t, err)
	assert.Equal(t, expected, addr)

	_, err = AddressFromPrivateKey("not-a-key")
	require.Error(t, err)
}
