package contracts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// LoadCompiledContracts reads one <Name>.json artifact per required contract
// from dir. Artifacts carry {"abi": ..., "bytecode": "0x..."}.
func LoadCompiledContracts(dir string) (map[ContractName]CompiledContract, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("artifacts directory not found. Directory: '%s'", dir)
	}

	loaded := make(map[ContractName]CompiledContract, len(Contracts))
	for name := range Contracts {
		path := filepath.Join(dir, string(name)+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact for %s: %w", name, err)
		}

		contract, err := parseArtifact(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse artifact for %s: %w", name, err)
		}
		loaded[name] = contract
	}

	return loaded, nil
}

func parseArtifact(data []byte) (CompiledContract, error) {
	var artifact struct {
		ABI      json.RawMessage `json:"abi"`
		Bytecode string          `json:"bytecode"`
	}

	if err := json.Unmarshal(data, &artifact); err != nil {
		return CompiledContract{}, fmt.Errorf("failed to parse artifact JSON: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(string(artifact.ABI)))
	if err != nil {
		return CompiledContract{}, fmt.Errorf("failed to parse ABI: %w", err)
	}

	bytecodeHex := strings.TrimPrefix(artifact.Bytecode, "0x")
	bytecode := common.Hex2Bytes(bytecodeHex)
	if len(bytecode) == 0 {
		return CompiledContract{}, fmt.Errorf("artifact has empty bytecode")
	}

	return CompiledContract{
		ABI:      parsedABI,
		RawABI:   string(artifact.ABI),
		Bytecode: bytecode,
	}, nil
}
