package contracts

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

//go:embed contracts.yaml
var defaultRegistry []byte

// DefaultFile is the project contracts file merged over the embedded registry
const DefaultFile = "contracts.yaml"

// Contract definition keys
const (
	KeyBatch          = "batch"
	KeyDelegatedBatch = "delegatedBatch"
	KeyWallet         = "wallet"
)

type registryFile struct {
	Contracts map[string]contractDef `yaml:"contracts"`
	Chains    map[uint64]chainDef    `yaml:"chains"`
}

type contractDef struct {
	Name     string `yaml:"name"`
	ABI      string `yaml:"abi,omitempty"`
	Bytecode string `yaml:"bytecode,omitempty"`
	// Artifact is a Foundry artifact path, relative to the project root
	Artifact string `yaml:"artifact,omitempty"`
}

type chainDef struct {
	Batch        string              `yaml:"batch,omitempty"`
	WalletParams map[string]string   `yaml:"walletParams,omitempty"`
	Tokens       map[string]tokenDef `yaml:"tokens,omitempty"`
}

type tokenDef struct {
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
}

// foundryArtifact is the part of a Foundry build artifact the registry reads
type foundryArtifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode struct {
		Object string `json:"object"`
	} `json:"bytecode"`
}

// Repository provides per-chain contract metadata from the embedded registry
// and the project's contracts.yaml
type Repository struct {
	projectRoot string
	file        string
	log         *slog.Logger

	mu        sync.RWMutex
	loaded    bool
	artifacts map[string]*models.ContractArtifact
	chains    map[uint64]chainDef
}

// NewRepository creates a new contracts registry
func NewRepository(cfg *config.RuntimeConfig, log *slog.Logger) *Repository {
	file := cfg.ContractsFile
	if file == "" {
		file = DefaultFile
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(cfg.ProjectRoot, file)
	}
	return &Repository{
		projectRoot: cfg.ProjectRoot,
		file:        file,
		log:         log.With("component", "contracts"),
	}
}

// Load parses the registry once
func (r *Repository) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return nil
	}

	var registry registryFile
	if err := yaml.Unmarshal(defaultRegistry, &registry); err != nil {
		return fmt.Errorf("failed to parse embedded contracts registry: %w", err)
	}

	data, err := os.ReadFile(r.file)
	switch {
	case err == nil:
		var project registryFile
		if err := yaml.Unmarshal(data, &project); err != nil {
			return fmt.Errorf("failed to parse %s: %w", r.file, err)
		}
		merge(&registry, &project)
		r.log.Debug("merged project contracts", "file", r.file, "chains", len(project.Chains))
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to read %s: %w", r.file, err)
	}

	artifacts := make(map[string]*models.ContractArtifact, len(registry.Contracts))
	for key, def := range registry.Contracts {
		artifact, err := r.buildArtifact(key, def)
		if err != nil {
			return err
		}
		artifacts[key] = artifact
	}

	r.artifacts = artifacts
	r.chains = registry.Chains
	r.loaded = true
	return nil
}

func merge(into, project *registryFile) {
	if into.Contracts == nil {
		into.Contracts = make(map[string]contractDef)
	}
	maps.Copy(into.Contracts, project.Contracts)

	if into.Chains == nil {
		into.Chains = make(map[uint64]chainDef)
	}
	for id, chain := range project.Chains {
		base := into.Chains[id]
		if chain.Batch != "" {
			base.Batch = chain.Batch
		}
		if len(chain.WalletParams) > 0 {
			base.WalletParams = mergeMap(base.WalletParams, chain.WalletParams)
		}
		if len(chain.Tokens) > 0 {
			base.Tokens = mergeMap(base.Tokens, chain.Tokens)
		}
		into.Chains[id] = base
	}
}

func mergeMap[V any](base, over map[string]V) map[string]V {
	out := make(map[string]V, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}

// buildArtifact parses the inline ABI and bytecode. A Foundry artifact, when
// present on disk, takes precedence.
func (r *Repository) buildArtifact(key string, def contractDef) (*models.ContractArtifact, error) {
	abiJSON := def.ABI
	bytecode := def.Bytecode

	if def.Artifact != "" {
		path := def.Artifact
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.projectRoot, path)
		}
		artifact, err := readArtifact(path)
		switch {
		case err == nil:
			if len(artifact.ABI) > 0 {
				abiJSON = string(artifact.ABI)
			}
			if artifact.Bytecode.Object != "" && artifact.Bytecode.Object != "0x" {
				bytecode = artifact.Bytecode.Object
			}
		case os.IsNotExist(err):
			r.log.Debug("contract artifact not built", "contract", key, "path", path)
		default:
			return nil, fmt.Errorf("failed to load artifact for %s: %w", key, err)
		}
	}

	if strings.TrimSpace(abiJSON) == "" {
		return nil, fmt.Errorf("%w: contract %s has no ABI", domain.ErrMissingContractMetadata, key)
	}
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid ABI for contract %s: %w", key, err)
	}

	return &models.ContractArtifact{
		Name:     def.Name,
		ABI:      parsed,
		Bytecode: common.FromHex(bytecode),
	}, nil
}

func readArtifact(path string) (*foundryArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var artifact foundryArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("invalid artifact %s: %w", path, err)
	}
	return &artifact, nil
}

// ChainContracts returns the contracts registered for chainID. Unknown chains
// return domain.ErrUnsupportedNetwork.
func (r *Repository) ChainContracts(_ context.Context, chainID uint64) (*models.ChainContracts, error) {
	if err := r.Load(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, ok := r.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: no contracts registered for %s", domain.ErrUnsupportedNetwork, domain.ChainName(chainID))
	}

	out := &models.ChainContracts{
		ChainID:        chainID,
		DelegatedBatch: r.copyArtifact(KeyDelegatedBatch),
		Tokens:         make(map[string]models.Token, len(chain.Tokens)),
	}

	if batch := r.copyArtifact(KeyBatch); batch != nil {
		if chain.Batch != "" {
			if !common.IsHexAddress(chain.Batch) {
				return nil, fmt.Errorf("invalid batch address %q on chain %d", chain.Batch, chainID)
			}
			batch.Address = common.HexToAddress(chain.Batch)
		}
		out.Batch = batch
	}

	if wallet := r.copyArtifact(KeyWallet); wallet != nil {
		wallet.Params = make(map[string]common.Address, len(chain.WalletParams))
		for name, addr := range chain.WalletParams {
			if !common.IsHexAddress(addr) {
				return nil, fmt.Errorf("invalid wallet param %s %q on chain %d", name, addr, chainID)
			}
			wallet.Params[name] = common.HexToAddress(addr)
		}
		out.Wallet = wallet
	}

	for symbol, token := range chain.Tokens {
		if !common.IsHexAddress(token.Address) {
			return nil, fmt.Errorf("invalid %s address %q on chain %d", symbol, token.Address, chainID)
		}
		out.Tokens[symbol] = models.Token{
			Symbol:   symbol,
			Address:  common.HexToAddress(token.Address),
			Decimals: token.Decimals,
		}
	}
	return out, nil
}

// Artifact returns a copy of the contract definition registered under key
func (r *Repository) Artifact(key string) (*models.ContractArtifact, error) {
	if err := r.Load(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	artifact := r.copyArtifact(key)
	if artifact == nil {
		return nil, fmt.Errorf("contract %s: %w", key, domain.ErrNotFound)
	}
	return artifact, nil
}

// Chains lists the registered chain ids
func (r *Repository) Chains() ([]uint64, error) {
	if err := r.Load(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *Repository) copyArtifact(key string) *models.ContractArtifact {
	artifact, ok := r.artifacts[key]
	if !ok {
		return nil
	}
	cp := *artifact
	return &cp
}

var _ usecase.ContractsRegistry = (*Repository)(nil)
