package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Chain struct {
		RPCEndpoints          []string `yaml:"rpc_endpoints"`
		ContractAddress       string   `yaml:"contract_address"`
		ContractModule        string   `yaml:"contract_module"`
		CoinType              string   `yaml:"coin_type"`
		ConfirmTimeoutSeconds int64    `yaml:"confirm_timeout_seconds"`
		PollIntervalMillis    int64    `yaml:"poll_interval_millis"`
		FailoverThreshold     int      `yaml:"failover_threshold"`
		FetchLimit            int      `yaml:"fetch_limit"`
	} `yaml:"chain"`
	Wallet struct {
		BridgeEndpoint string `yaml:"bridge_endpoint"`
	} `yaml:"wallet"`
	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`
	Docs struct {
		MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	} `yaml:"docs"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if len(cfg.Chain.RPCEndpoints) == 0 {
		return nil, errors.New("chain.rpc_endpoints is required")
	}
	if cfg.Chain.ContractAddress == "" {
		return nil, errors.New("chain.contract_address is required")
	}
	if cfg.Wallet.BridgeEndpoint == "" {
		return nil, errors.New("wallet.bridge_endpoint is required")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Chain.ContractModule == "" {
		cfg.Chain.ContractModule = "peer_lending"
	}
	if cfg.Chain.ConfirmTimeoutSeconds <= 0 {
		cfg.Chain.ConfirmTimeoutSeconds = 30
	}
	if cfg.Chain.PollIntervalMillis <= 0 {
		cfg.Chain.PollIntervalMillis = 1000
	}
	if cfg.Chain.FetchLimit <= 0 {
		cfg.Chain.FetchLimit = 8
	}
	if cfg.Docs.MaxUploadBytes <= 0 {
		cfg.Docs.MaxUploadBytes = 5 << 20
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("RPC_ENDPOINTS"); v != "" {
		cfg.Chain.RPCEndpoints = splitCommaList(v)
	}
	if v := os.Getenv("CONTRACT_ADDRESS"); v != "" {
		cfg.Chain.ContractAddress = v
	}
	if v := os.Getenv("CONTRACT_MODULE"); v != "" {
		cfg.Chain.ContractModule = v
	}
	if v := os.Getenv("COIN_TYPE"); v != "" {
		cfg.Chain.CoinType = v
	}
	if v := os.Getenv("CONFIRM_TIMEOUT_SECONDS"); v != "" {
		cfg.Chain.ConfirmTimeoutSeconds = atoi64Or(cfg.Chain.ConfirmTimeoutSeconds, v)
	}
	if v := os.Getenv("POLL_INTERVAL_MILLIS"); v != "" {
		cfg.Chain.PollIntervalMillis = atoi64Or(cfg.Chain.PollIntervalMillis, v)
	}
	if v := os.Getenv("RPC_FAILOVER_THRESHOLD"); v != "" {
		cfg.Chain.FailoverThreshold = atoiOr(cfg.Chain.FailoverThreshold, v)
	}
	if v := os.Getenv("FETCH_LIMIT"); v != "" {
		cfg.Chain.FetchLimit = atoiOr(cfg.Chain.FetchLimit, v)
	}
	if v := os.Getenv("WALLET_BRIDGE_ENDPOINT"); v != "" {
		cfg.Wallet.BridgeEndpoint = v
	}
	if v := os.Getenv("CACHE_PATH"); v != "" {
		cfg.Cache.Path = v
	}
	if v := os.Getenv("DOCS_MAX_UPLOAD_BYTES"); v != "" {
		cfg.Docs.MaxUploadBytes = atoi64Or(cfg.Docs.MaxUploadBytes, v)
	}
}

func splitCommaList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
