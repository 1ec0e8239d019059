package aragon

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// DAOSuffix is appended to DAO names before ENS resolution
	DAOSuffix = ".aragonid.eth"
	// PackageSuffix is appended to app names to derive app ids
	PackageSuffix = ".aragonpm.eth"
)

// Known app names
const (
	AppAgent        = "agent"
	AppFinance      = "finance"
	AppFundraising  = "aragon-fundraising"
	AppSurvey       = "survey"
	AppTokenManager = "token-manager"
	AppVault        = "vault"
	AppVoting       = "voting"
)

// KnownApps lists every app name discovery matches against
var KnownApps = []string{AppAgent, AppFinance, AppFundraising, AppSurvey, AppTokenManager, AppVault, AppVoting}

// RequiredApps are the apps a withdrawal is routed through
var RequiredApps = []string{AppTokenManager, AppVoting, AppFinance}

// Namehash computes the ENS namehash of name
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(strings.ToLower(name), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = common.BytesToHash(crypto.Keccak256(node.Bytes(), labelHash))
	}
	return node
}

// AppID returns the app id of a package published under aragonpm.eth
func AppID(name string) common.Hash {
	return Namehash(name + PackageSuffix)
}

// AppNames maps app ids of KnownApps to their names
func AppNames() map[common.Hash]string {
	ids := make(map[common.Hash]string, len(KnownApps))
	for _, name := range KnownApps {
		ids[AppID(name)] = name
	}
	return ids
}

// NewAppProxyTopic is the topic of NewAppProxy(address,bool,bytes32)
var NewAppProxyTopic = crypto.Keccak256Hash([]byte("NewAppProxy(address,bool,bytes32)"))

// ParseNewAppProxy extracts the proxy address and app id from NewAppProxy log data
func ParseNewAppProxy(data []byte) (proxy common.Address, appID common.Hash, ok bool) {
	if len(data) < 3*wordSize {
		return common.Address{}, common.Hash{}, false
	}
	proxy = common.BytesToAddress(data[12:wordSize])
	appID = common.BytesToHash(data[len(data)-wordSize:])
	return proxy, appID, true
}

const tokenManagerABIJSON = `[
	{"type":"function","name":"forward","stateMutability":"nonpayable","inputs":[{"name":"_evmScript","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"canForward","stateMutability":"view","inputs":[{"name":"_sender","type":"address"},{"name":"","type":"bytes"}],"outputs":[{"name":"","type":"bool"}]}
]`

const kernelABIJSON = `[
	{"type":"function","name":"getInitializationBlock","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"NewAppProxy","anonymous":false,"inputs":[{"name":"proxy","type":"address","indexed":false},{"name":"isUpgradeable","type":"bool","indexed":false},{"name":"appId","type":"bytes32","indexed":false}]}
]`

var (
	TokenManagerABI = mustParseABI(tokenManagerABIJSON)
	KernelABI       = mustParseABI(kernelABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
