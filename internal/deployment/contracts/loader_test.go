package contracts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testArtifact = `{
  "abi": [{"type": "constructor", "inputs": []}],
  "bytecode": "0x6080604052"
}`

func writeArtifacts(t *testing.T, dir string) {
	t.Helper()
	for name := range Contracts {
		path := filepath.Join(dir, string(name)+".json")
		require.NoError(t, os.WriteFile(path, []byte(testArtifact), 0644))
	}
}

func TestLoadCompiledContracts(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir)

	loaded, err := LoadCompiledContracts(dir)
	require.NoError(t, err)
	require.Len(t, loaded, len(Contracts))

	for name := range Contracts {
		contract, ok := loaded[name]
		require.True(t, ok, "missing artifact for %s", name)
		assert.NotEmpty(t, contract.Bytecode)
		assert.NotEmpty(t, contract.RawABI)
	}
}

func TestLoadCompiledContracts_MissingDirectory(t *testing.T) {
	_, err := LoadCompiledContracts(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifacts directory not found")
}

func TestLoadCompiledContracts_MissingArtifact(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, string(ContractNameSlasher)+".json")))

	_, err := LoadCompiledContracts(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read artifact for Slasher")
}

func TestParseArtifact(t *testing.T) {
	contract, err := parseArtifact([]byte(testArtifact))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, contract.Bytecode)

	_, err = parseArtifact([]byte(`not json`))
	require.Error(t, err)

	_, err = parseArtifact([]byte(`{"abi": [], "bytecode": "0x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty bytecode")

	_, err = parseArtifact([]byte(`{"abi": "bogus", "bytecode": "0x6080"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse ABI")
}
