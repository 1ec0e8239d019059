package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/trebuchet-org/payrail/internal/domain/config"
)

// DataDirName is the per-project state directory
const DataDirName = ".payrail"

// Defaults applied when neither flags, env nor payrail.toml set a value
const (
	DefaultConfirmations   = 2
	DefaultReconcileWindow = 100000
	DefaultStoreDriver     = "json"
	DefaultOrigin          = "payrail"
)

// Provider creates RuntimeConfig for Wire dependency injection.
// Flags and PAYRAIL_* env vars win over payrail.toml, which wins over defaults.
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	loadEnvFiles(projectRoot)

	file, err := loadFileConfig(projectRoot)
	if err != nil {
		return nil, err
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        filepath.Join(projectRoot, DataDirName),
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		JSON:           v.GetBool("json"),
		Timeout:        v.GetDuration("timeout"),
		PollInterval:   v.GetDuration("poll_interval"),

		Confirmations:   lo.CoalesceOrEmpty(v.GetInt("confirmations"), file.Payout.Confirmations, DefaultConfirmations),
		ReconcileWindow: lo.CoalesceOrEmpty(v.GetUint64("reconcile_window"), file.Payout.ReconcileWindow, DefaultReconcileWindow),
		ContractsFile:   lo.CoalesceOrEmpty(v.GetString("contracts"), file.Payout.Contracts),
		Origin:          lo.CoalesceOrEmpty(v.GetString("origin"), file.Payout.Origin, DefaultOrigin),

		Store: config.StoreConfig{
			Driver: lo.CoalesceOrEmpty(v.GetString("store_driver"), file.Store.Driver, DefaultStoreDriver),
			Path:   lo.CoalesceOrEmpty(v.GetString("store_path"), file.Store.Path),
		},
		Signer: config.SignerConfig{
			Type:       lo.CoalesceOrEmpty(v.GetString("signer"), file.Signer.Type),
			PrivateKey: lo.CoalesceOrEmpty(v.GetString("private_key"), file.Signer.PrivateKey),
			Mnemonic:   lo.CoalesceOrEmpty(v.GetString("mnemonic"), file.Signer.Mnemonic),
			URL:        lo.CoalesceOrEmpty(v.GetString("signer_url"), file.Signer.URL),
			Address:    lo.CoalesceOrEmpty(v.GetString("signer_address"), file.Signer.Address),
		},
		File: file,
	}

	switch cfg.Store.Driver {
	case "json", "sqlite":
	default:
		return nil, fmt.Errorf("unknown store driver %q (expected json or sqlite)", cfg.Store.Driver)
	}

	if networkName := lo.CoalesceOrEmpty(v.GetString("network"), file.DefaultNetwork); networkName != "" {
		resolver, err := NewNetworkResolver(projectRoot, cfg.DataDir, file)
		if err != nil {
			return nil, err
		}
		network, err := resolver.ResolveNetwork(context.Background(), networkName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve network %s: %w", networkName, err)
		}
		cfg.Network = network
	}

	return cfg, nil
}

// ProvideNetworkResolver creates a NetworkResolver for Wire dependency injection
func ProvideNetworkResolver(cfg *config.RuntimeConfig) (*NetworkResolver, error) {
	return NewNetworkResolver(cfg.ProjectRoot, cfg.DataDir, cfg.File)
}

// FindProjectRoot walks up from the current directory to the nearest
// payrail.toml or foundry.toml. Without either, the current directory is used.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for dir := cwd; ; {
		for _, marker := range []string{FileName, "foundry.toml"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	v.SetConfigName("config.local")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, DataDirName))

	v.SetEnvPrefix("PAYRAIL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("timeout", "5m")
	v.SetDefault("poll_interval", 4*time.Second)
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("project_root", projectRoot)

	// Try to read config file (ignore error if not found)
	_ = v.ReadInConfig()

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
			panic(err)
		}
	})

	return v
}
