package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/tavla.db")
	require.Equal(t, "/tmp/tavla.db", cfg.Database.Path)
	require.False(t, cfg.Database.InMemory)
	require.True(t, cfg.Seed.Enabled)
	require.True(t, cfg.UI.SidePanelOpen)
	require.False(t, cfg.UI.DarkMode)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, 5*time.Minute, cfg.Cache.TTL())
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/tavla.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[database]
path = "/custom/tavla.db"

[seed]
enabled = false
path = "/custom/boards.json"

[ui]
dark_mode = true
side_panel_open = false

[server]
http_bind = "0.0.0.0:9090"

[cache]
enabled = true
addr = "redis:6379"
db = 2
ttl_seconds = 30

[logging]
level = "debug"

[logging.dev_file]
enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, Default("/tmp/default.db"))
	require.NoError(t, err)
	require.Equal(t, "/custom/tavla.db", cfg.Database.Path)
	require.False(t, cfg.Seed.Enabled)
	require.Equal(t, "/custom/boards.json", cfg.Seed.Path)
	require.True(t, cfg.UI.DarkMode)
	require.False(t, cfg.UI.SidePanelOpen)
	require.True(t, cfg.UI.ConfirmDelete, "unset keys keep defaults")
	require.Equal(t, "0.0.0.0:9090", cfg.Server.HTTPBind)
	require.Equal(t, "/api/v1", cfg.Server.APIEndpoint)
	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, 2, cfg.Cache.DB)
	require.Equal(t, "tavla:changes", cfg.Cache.Channel)
	require.Equal(t, 30*time.Second, cfg.Cache.TTL())
	require.Equal(t, "debug", cfg.Logging.Level)
	require.False(t, cfg.Logging.DevFile.Enabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"log level":      "[logging]\nlevel = \"chatty\"\n",
		"bind":           "[server]\nhttp_bind = \"nope\"\n",
		"same endpoints": "[server]\napi_endpoint = \"/x\"\nmcp_endpoint = \"x/\"\n",
		"cache addr":     "[cache]\nenabled = true\naddr = \" \"\n",
		"ttl":            "[cache]\nttl_seconds = -1\n",
		"db path":        "[database]\npath = \"\"\n",
		"bad toml":       "[database\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := Load(path, Default("/tmp/default.db"))
			require.Error(t, err)
		})
	}
}

func TestInMemorySkipsDatabasePath(t *testing.T) {
	cfg := Default("")
	cfg.Database.InMemory = true
	require.NoError(t, cfg.Validate())
}

func TestSeedPayload(t *testing.T) {
	payload, err := SeedConfig{}.SeedPayload()
	require.NoError(t, err)
	require.Nil(t, payload)

	path := filepath.Join(t.TempDir(), "boards.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
	payload, err = SeedConfig{Path: path}.SeedPayload()
	require.NoError(t, err)
	require.Equal(t, "[]", string(payload))

	_, err = SeedConfig{Path: filepath.Join(t.TempDir(), "missing.json")}.SeedPayload()
	require.Error(t, err)
}

func TestEnsureConfigDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	require.NoError(t, EnsureConfigDir(target))
	_, err := os.Stat(filepath.Dir(target))
	require.NoError(t, err)
}
