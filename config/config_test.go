package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sheetnet "github.com/blutspende/go-sheetnet"
)

func TestMissingFileGivesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Nil(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadOverridesOnlyWhatIsGiven(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheetclient.yaml")
	require.Nil(t, os.WriteFile(path, []byte(`
server:
  ip: 10.0.0.7
  port: 2112
session:
  user: alice
client:
  connect_timeout: 250ms
  send_proxy_v2: true
  socks_proxy: 127.0.0.1:1080
logging:
  level: debug
  file_path: /tmp/sheetclient.log
`), 0o644))

	config, err := LoadConfig(path)
	require.Nil(t, err)

	assert.Equal(t, "10.0.0.7", config.Server.IP)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 2112, config.Server.Port)
	assert.Equal(t, "alice", config.Session.User)
	assert.Equal(t, "default", config.Session.Spreadsheet)
	assert.Equal(t, 250*time.Millisecond, config.Client.ConnectTimeout)
	assert.Equal(t, 5*time.Second, config.Client.WriteTimeout)
	assert.True(t, config.Client.SendProxyV2)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "/tmp/sheetclient.log", config.Logging.FilePath)
	assert.Equal(t, []string{"sysadmin"}, config.Serve.Users)
}

func TestBrokenFileGivesDefaultsAndError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.Nil(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	config, err := LoadConfig(path)
	assert.NotNil(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestSaveAndLoadAgain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")

	config := DefaultConfig()
	config.Client.WriteTimeout = 1500 * time.Millisecond
	config.Serve.Users = []string{"sysadmin", "bob"}
	require.Nil(t, config.Save(path))

	data, err := os.ReadFile(path)
	require.Nil(t, err)
	assert.Contains(t, string(data), "write_timeout: 1.5s")

	loaded, err := LoadConfig(path)
	require.Nil(t, err)
	assert.Equal(t, config, loaded)
}

func TestClientConfiguration(t *testing.T) {
	client := ClientConfig{
		ConnectTimeout: time.Second,
		WriteTimeout:   2 * time.Second,
		ReadChunkSize:  128,
		MaxLineLength:  64,
		SendProxyV2:    true,
		SocksProxy:     "127.0.0.1:1080",
	}

	configuration := client.ClientConfiguration()
	assert.Equal(t, time.Second, configuration.Timing.ConnectTimeout)
	assert.Equal(t, 2*time.Second, configuration.Timing.WriteTimeout)
	assert.Equal(t, 128, configuration.Timing.ReadChunkSize)
	assert.Equal(t, sheetnet.HAProxySendProxyV2, configuration.Proxy)
	assert.Equal(t, "127.0.0.1:1080", configuration.SocksProxy)

	_, _, err := configuration.LowLevelProtocol.Frame(make([]byte, 65))
	assert.NotNil(t, err)
}
