// Package contract provides support for deploying and calling the externally
// compiled contracts the harness benchmarks. Contracts are known only by
// their ABI and bytecode artifacts.
package contract

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Artifact represents a compiled contract.
type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

// LoadArtifact reads the ABI from <dir>/abi/<name>.abi and the bytecode from
// <dir>/bin/<name>.bin. The bytecode file is optional for contracts that are
// only ever called.
func LoadArtifact(dir string, name string) (Artifact, error) {
	abiFile, err := os.Open(filepath.Join(dir, "abi", name+".abi"))
	if err != nil {
		return Artifact{}, fmt.Errorf("open abi %s: %w", name, err)
	}
	defer abiFile.Close()

	parsed, err := abi.JSON(abiFile)
	if err != nil {
		return Artifact{}, fmt.Errorf("parse abi %s: %w", name, err)
	}

	art := Artifact{
		Name: name,
		ABI:  parsed,
	}

	bin, err := os.ReadFile(filepath.Join(dir, "bin", name+".bin"))
	switch {
	case os.IsNotExist(err):
		return art, nil
	case err != nil:
		return Artifact{}, fmt.Errorf("read bytecode %s: %w", name, err)
	}

	code, err := decodeBytecode(bin)
	if err != nil {
		return Artifact{}, fmt.Errorf("decode bytecode %s: %w", name, err)
	}
	art.Bytecode = code

	return art, nil
}

// decodeBytecode decodes hex encoded bytecode as written by solc and truffle.
func decodeBytecode(bin []byte) ([]byte, error) {
	s := string(bytes.TrimSpace(bin))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, fmt.Errorf("empty bytecode")
	}

	return hex.DecodeString(s)
}
