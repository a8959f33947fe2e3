package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contractAddr = "0x00000000000000000000000000000000000000c0"

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	t.Setenv("ORACLEPANEL_ETHEREUM_CONTRACT_ADDRESS", contractAddr)
	t.Setenv("ORACLEPANEL_SESSION_ACCOUNT_POLL_INTERVAL", "750ms")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err, "explicit config path must exist")
	assert.Nil(t, cfg)

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, contractAddr, cfg.Ethereum.ContractAddress)
	assert.Equal(t, 750*time.Millisecond, cfg.Session.AccountPollInterval)
	assert.Equal(t, 5, cfg.Session.AlertEvery)
	assert.Equal(t, uint64(3), cfg.Events.FromBlockLag)
	assert.False(t, cfg.Auditing())
}

func TestLoadReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.yaml")
	body := `
ethereum:
  rpc_url: http://node:8545
  contract_address: "` + contractAddr + `"
  request_timeout: 3s
panel:
  listen_addr: 0.0.0.0:9000
database:
  dsn: postgres://panel@db/panel
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://node:8545", cfg.Ethereum.RPCURL)
	assert.Equal(t, contractAddr, cfg.Ethereum.ContractAddress)
	assert.Equal(t, 3*time.Second, cfg.Ethereum.RequestTimeout)
	assert.Equal(t, "0.0.0.0:9000", cfg.Panel.ListenAddr)
	assert.True(t, cfg.Auditing())
}

func TestLoadRejectsUnquotedHex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.yaml")
	body := "ethereum:\n  contract_address: " + contractAddr + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ethereum.contract_address")
	assert.Contains(t, err.Error(), "quote the value")
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		return Config{
			Ethereum: EthereumConfig{RPCURL: "http://x", ContractAddress: contractAddr},
			Session:  SessionConfig{AccountPollInterval: time.Second, AlertEvery: 5},
			Events:   EventsConfig{PollInterval: time.Second, BufferSize: 1},
			Export:   ExportConfig{MaxDataPoints: 10},
		}
	}
	ok := base()
	require.NoError(t, ok.Validate())

	cases := map[string]func(*Config){
		"contract address": func(c *Config) { c.Ethereum.ContractAddress = "nope" },
		"poll interval":    func(c *Config) { c.Session.AccountPollInterval = 0 },
		"alert every":      func(c *Config) { c.Session.AlertEvery = 0 },
		"telegram token":   func(c *Config) { c.Alerting.Telegram.Enabled = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
