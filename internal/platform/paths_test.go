package platform

import (
	"errors"
	"path/filepath"
	"testing"
)

func envOf(values map[string]string) func(string) string {
	return func(name string) string { return values[name] }
}

func TestResolveHonoursPlatformOverrides(t *testing.T) {
	cases := []struct {
		name       string
		host       Host
		wantConfig string
		wantData   string
	}{
		{
			name: "linux xdg",
			host: Host{
				GOOS:          "linux",
				Getenv:        envOf(map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": " /xdg/data "}),
				UserConfigDir: "/fallback/config",
				UserDataDir:   "/fallback/data",
			},
			wantConfig: "/xdg/config",
			wantData:   "/xdg/data",
		},
		{
			name:       "linux without xdg",
			host:       Host{GOOS: "linux", UserConfigDir: "/home/me/.config", UserDataDir: "/home/me/.local/share"},
			wantConfig: "/home/me/.config",
			wantData:   "/home/me/.local/share",
		},
		{
			name: "windows appdata",
			host: Host{
				GOOS:          "windows",
				Getenv:        envOf(map[string]string{"APPDATA": `C:\Roaming`, "LOCALAPPDATA": `C:\Local`}),
				UserConfigDir: `C:\fallback\config`,
				UserDataDir:   `C:\fallback\data`,
			},
			wantConfig: `C:\Roaming`,
			wantData:   `C:\Local`,
		},
		{
			name: "darwin ignores xdg",
			host: Host{
				GOOS:          "darwin",
				Getenv:        envOf(map[string]string{"XDG_CONFIG_HOME": "/ignored", "XDG_DATA_HOME": "/ignored"}),
				UserConfigDir: "/Users/me/Library/Application Support",
				UserDataDir:   "/Users/me/Library/Application Support",
			},
			wantConfig: "/Users/me/Library/Application Support",
			wantData:   "/Users/me/Library/Application Support",
		},
		{
			name:       "unknown os",
			host:       Host{GOOS: "freebsd", UserConfigDir: "/cfg", UserDataDir: "/data"},
			wantConfig: "/cfg",
			wantData:   "/data",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Resolve(tc.host, Options{})
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if want := filepath.Join(tc.wantConfig, "tavla", "config.toml"); p.ConfigPath != want {
				t.Fatalf("config path = %q, want %q", p.ConfigPath, want)
			}
			if want := filepath.Join(tc.wantData, "tavla"); p.DataDir != want {
				t.Fatalf("data dir = %q, want %q", p.DataDir, want)
			}
			if want := filepath.Join(tc.wantData, "tavla", "tavla.db"); p.DBPath != want {
				t.Fatalf("db path = %q, want %q", p.DBPath, want)
			}
			if want := filepath.Join(tc.wantData, "tavla", "tavla-snapshot.json"); p.SnapshotPath != want {
				t.Fatalf("snapshot path = %q, want %q", p.SnapshotPath, want)
			}
		})
	}
}

func TestResolveAppNameAndDevMode(t *testing.T) {
	host := Host{GOOS: "freebsd", UserConfigDir: "/cfg", UserDataDir: "/data"}
	p, err := Resolve(host, Options{AppName: " boards ", DevMode: true})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.ConfigPath != filepath.Join("/cfg", "boards-dev", "config.toml") {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if filepath.Base(p.DBPath) != "boards-dev.db" {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
}

func TestResolveRejectsMissingBaseDirs(t *testing.T) {
	_, err := Resolve(Host{GOOS: "darwin", UserDataDir: "/tmp/data"}, Options{})
	if !errors.Is(err, errNoBaseDirs) {
		t.Fatalf("expected errNoBaseDirs, got %v", err)
	}
}

func TestDefaultPathsUsesDefaultAppName(t *testing.T) {
	p, err := DefaultPaths()
	if err != nil {
		t.Fatalf("DefaultPaths() error = %v", err)
	}
	if filepath.Base(filepath.Dir(p.ConfigPath)) != DefaultAppName {
		t.Fatalf("expected %s config dir, got %q", DefaultAppName, p.ConfigPath)
	}
}

func TestDefaultPathsWithOptionsDevMode(t *testing.T) {
	p, err := DefaultPathsWithOptions(Options{DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if filepath.Base(filepath.Dir(p.ConfigPath)) != "tavla-dev" {
		t.Fatalf("expected dev config dir suffix, got %q", p.ConfigPath)
	}
	if filepath.Base(p.DBPath) != "tavla-dev.db" {
		t.Fatalf("expected dev db name, got %q", p.DBPath)
	}
}
