package dao

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/usecase"
	"github.com/trebuchet-org/payrail/pkg/aragon"
)

// DefaultENSRegistry is the ENS registry deployed on Ethereum networks
var DefaultENSRegistry = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// Discovery scan sizes from the kernel initialization block
const (
	defaultDiscoveryBlocks = 100000
	harmonyDiscoveryBlocks = 1024
)

const ensABIJSON = `[
	{"type":"function","name":"resolver","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"addr","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
]`

var ensABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(ensABIJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// Resolver resolves aragonid.eth names through ENS and discovers installed
// apps from the kernel's NewAppProxy logs
type Resolver struct {
	network *config.Network
	chain   usecase.ChainClient
	log     *slog.Logger
}

// NewResolver creates a new DAO resolver for the configured network
func NewResolver(cfg *config.RuntimeConfig, chain usecase.ChainClient, log *slog.Logger) *Resolver {
	return &Resolver{
		network: cfg.Network,
		chain:   chain,
		log:     log.With("component", "dao-resolver"),
	}
}

func (r *Resolver) registry() common.Address {
	if r.network != nil && common.IsHexAddress(r.network.ENSRegistry) {
		return common.HexToAddress(r.network.ENSRegistry)
	}
	return DefaultENSRegistry
}

// ResolveDAO accepts a DAO address, a bare aragonid name or a full ENS name
func (r *Resolver) ResolveDAO(ctx context.Context, name string) (common.Address, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return common.Address{}, fmt.Errorf("%w: empty DAO name", domain.ErrDaoNotFound)
	}
	if common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}

	ensName := name
	if !strings.Contains(ensName, ".") {
		ensName += aragon.DAOSuffix
	}
	node := aragon.Namehash(ensName)

	resolver, err := r.callAddress(ctx, r.registry(), "resolver", node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s: %w", domain.ErrDaoNotFound, ensName, err)
	}
	if resolver == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s has no resolver", domain.ErrDaoNotFound, ensName)
	}

	address, err := r.callAddress(ctx, resolver, "addr", node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s: %w", domain.ErrDaoNotFound, ensName, err)
	}
	if address == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s", domain.ErrDaoNotFound, ensName)
	}
	r.log.Debug("resolved DAO name", "name", ensName, "address", address.Hex())
	return address, nil
}

func (r *Resolver) callAddress(ctx context.Context, to common.Address, method string, node common.Hash) (common.Address, error) {
	data, err := ensABI.Pack(method, node)
	if err != nil {
		return common.Address{}, err
	}
	out, err := r.chain.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) == 0 {
		return common.Address{}, nil
	}
	values, err := ensABI.Unpack(method, out)
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

// discoveryBlocks is the log scan size for the network
func (r *Resolver) discoveryBlocks() uint64 {
	if r.network == nil {
		return defaultDiscoveryBlocks
	}
	if r.network.DiscoveryBlockCap > 0 {
		return r.network.DiscoveryBlockCap
	}
	if domain.IsHarmony(r.network.ChainID) {
		return harmonyDiscoveryBlocks
	}
	return defaultDiscoveryBlocks
}

// DiscoverApps scans NewAppProxy logs from the kernel initialization block and
// maps known app names to their proxies. The last proxy of an app wins.
func (r *Resolver) DiscoverApps(ctx context.Context, dao common.Address) (map[string]common.Address, error) {
	data, err := aragon.KernelABI.Pack("getInitializationBlock")
	if err != nil {
		return nil, err
	}
	out, err := r.chain.CallContract(ctx, ethereum.CallMsg{To: &dao, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: getInitializationBlock: %w", domain.ErrDaoInitializationFailed, err)
	}
	values, err := aragon.KernelABI.Unpack("getInitializationBlock", out)
	if err != nil || len(values) == 0 {
		return nil, fmt.Errorf("%w: %s is not an Aragon kernel", domain.ErrDaoInitializationFailed, dao.Hex())
	}
	fromBlock := values[0].(*big.Int).Uint64()
	if fromBlock == 0 {
		return nil, fmt.Errorf("%w: %s is not initialized", domain.ErrDaoInitializationFailed, dao.Hex())
	}

	toBlock := fromBlock + r.discoveryBlocks()
	head, err := r.chain.BlockNumber(ctx)
	if err != nil && !errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("%w: %w", domain.ErrDaoInitializationFailed, err)
	}
	if err == nil && head < toBlock {
		toBlock = head
	}

	logs, err := r.chain.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{dao},
		Topics:    [][]common.Hash{{aragon.NewAppProxyTopic}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: app discovery: %w", domain.ErrDaoInitializationFailed, err)
	}

	names := aragon.AppNames()
	apps := make(map[string]common.Address)
	for _, l := range logs {
		proxy, appID, ok := aragon.ParseNewAppProxy(l.Data)
		if !ok {
			continue
		}
		if name, known := names[appID]; known {
			apps[name] = proxy
		}
	}
	r.log.Debug("discovered DAO apps", "dao", dao.Hex(), "from", fromBlock, "to", toBlock, "apps", len(apps))
	return apps, nil
}

var _ usecase.DAOResolver = (*Resolver)(nil)
