// Package config loads the workflow run configuration from a YAML file or
// command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/lendo/internal/domain"
	"gopkg.in/yaml.v3"
)

// Mainnet defaults. The pool address itself is resolved at runtime through
// the address provider.
const (
	defaultWrappedAsset        = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2" // WETH
	defaultDebtAsset           = "0x6B175474E89094C44Da98b954EedeAC495271d0F" // DAI
	defaultPoolAddressProvider = "0xB53C1a33016B2DC2fF3653530bfF1848a515c8c5"
	defaultOracle              = "0x773616E4d11A78F511299002da57A0a94577F1f4" // DAI/ETH feed

	defaultKeyEnv        = "LENDO_PRIVATE_KEY"
	defaultDepositAmount = "0.1"
	defaultSafetyFactor  = "0.95"
	defaultJournalDir    = "./wal/run"
)

// Config is the fully parsed run configuration.
type Config struct {
	RPCURL              string
	KeyEnv              string
	Network             string
	WrappedAsset        common.Address
	DebtAsset           common.Address
	PoolAddressProvider common.Address
	Oracle              common.Address
	DepositAmount       decimal.Decimal
	SafetyFactor        decimal.Decimal
	RateMode            domain.RateMode
	Confirmations       uint64
	JournalDir          string
	DashboardAddr       string
	DashboardTLSDomains []string
	DashboardCertCache  string
}

// ConfigTmp mirrors Config with raw string fields for YAML unmarshalling.
type ConfigTmp struct {
	RPCURL              string   `yaml:"rpc_url"`
	KeyEnv              string   `yaml:"key_env,omitempty"`
	Network             string   `yaml:"network,omitempty"`
	WrappedAsset        string   `yaml:"wrapped_asset,omitempty"`
	DebtAsset           string   `yaml:"debt_asset,omitempty"`
	PoolAddressProvider string   `yaml:"pool_address_provider,omitempty"`
	Oracle              string   `yaml:"oracle,omitempty"`
	DepositAmount       string   `yaml:"deposit_amount,omitempty"`
	SafetyFactor        string   `yaml:"safety_factor,omitempty"`
	RateMode            string   `yaml:"rate_mode,omitempty"`
	Confirmations       uint64   `yaml:"confirmations,omitempty"`
	JournalDir          string   `yaml:"journal_dir,omitempty"`
	DashboardAddr       string   `yaml:"dashboard_addr,omitempty"`
	DashboardTLSDomains []string `yaml:"dashboard_tls_domains,omitempty"`
	DashboardCertCache  string   `yaml:"dashboard_cert_cache,omitempty"`
}

// Get parses the configuration from --config or individual flags.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	rpcURL := flag.String("rpc", "http://127.0.0.1:8545", "node RPC endpoint")
	depositAmount := flag.String("deposit", defaultDepositAmount, "native asset amount to wrap and deposit, example: 0.1")
	safetyFactor := flag.String("safety", defaultSafetyFactor, "fraction of available borrow capacity to use, must be below 1")
	rateMode := flag.String("ratemode", domain.RateModeVariable.String(), "interest rate mode: stable or variable")
	confirmations := flag.Uint64("confirmations", 1, "block confirmations to wait per transaction")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	tmp := ConfigTmp{
		RPCURL:        *rpcURL,
		DepositAmount: *depositAmount,
		SafetyFactor:  *safetyFactor,
		RateMode:      *rateMode,
		Confirmations: *confirmations,
	}
	return fromTmp(tmp)
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	return fromTmp(tmp)
}

func fromTmp(tmp ConfigTmp) (Config, error) {
	if tmp.RPCURL == "" {
		return Config{}, fmt.Errorf("'rpc_url' param is required")
	}

	conf := Config{
		RPCURL:              tmp.RPCURL,
		KeyEnv:              orDefault(tmp.KeyEnv, defaultKeyEnv),
		Network:             orDefault(tmp.Network, "mainnet"),
		Confirmations:       tmp.Confirmations,
		JournalDir:          orDefault(tmp.JournalDir, defaultJournalDir),
		DashboardAddr:       tmp.DashboardAddr,
		DashboardTLSDomains: tmp.DashboardTLSDomains,
		DashboardCertCache:  tmp.DashboardCertCache,
	}
	if conf.Confirmations == 0 {
		conf.Confirmations = 1
	}
	if len(conf.DashboardTLSDomains) > 0 && conf.DashboardAddr == "" {
		conf.DashboardAddr = ":443"
	}

	var err error
	if conf.WrappedAsset, err = getAddress(orDefault(tmp.WrappedAsset, defaultWrappedAsset)); err != nil {
		return Config{}, fmt.Errorf("incorrect 'wrapped_asset' param: %w", err)
	}
	if conf.DebtAsset, err = getAddress(orDefault(tmp.DebtAsset, defaultDebtAsset)); err != nil {
		return Config{}, fmt.Errorf("incorrect 'debt_asset' param: %w", err)
	}
	if conf.PoolAddressProvider, err = getAddress(orDefault(tmp.PoolAddressProvider, defaultPoolAddressProvider)); err != nil {
		return Config{}, fmt.Errorf("incorrect 'pool_address_provider' param: %w", err)
	}
	if conf.Oracle, err = getAddress(orDefault(tmp.Oracle, defaultOracle)); err != nil {
		return Config{}, fmt.Errorf("incorrect 'oracle' param: %w", err)
	}

	conf.DepositAmount, err = decimal.NewFromString(orDefault(tmp.DepositAmount, defaultDepositAmount))
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'deposit_amount' param (correct format is 0.1): %w", err)
	}
	if conf.DepositAmount.LessThanOrEqual(decimal.Zero) {
		return Config{}, fmt.Errorf("'deposit_amount' must be positive, got %s", conf.DepositAmount.String())
	}

	conf.SafetyFactor, err = decimal.NewFromString(orDefault(tmp.SafetyFactor, defaultSafetyFactor))
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'safety_factor' param (correct format is 0.95): %w", err)
	}
	if conf.SafetyFactor.LessThanOrEqual(decimal.Zero) || conf.SafetyFactor.GreaterThanOrEqual(decimal.New(1, 0)) {
		return Config{}, fmt.Errorf("'safety_factor' must be in (0, 1), got %s", conf.SafetyFactor.String())
	}

	conf.RateMode = domain.RateMode(orDefault(tmp.RateMode, domain.RateModeVariable.String()))
	if !conf.RateMode.IsValid() {
		return Config{}, fmt.Errorf("incorrect 'rate_mode' param: %s", tmp.RateMode)
	}

	return conf, nil
}

func getAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(strings.TrimSpace(raw)) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(strings.TrimSpace(raw)), nil
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
