// Package platform resolves where tavla keeps its config, database and snapshots on each OS.
package platform

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories when no override is given.
const DefaultAppName = "tavla"

// Paths holds the resolved per-user file locations.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	// SnapshotPath is where export writes and import reads when no file is named.
	SnapshotPath string
}

// Options selects the app directory name.
type Options struct {
	AppName string
	// DevMode appends "-dev" so development runs never touch the real board database.
	DevMode bool
}

// Host describes the machine paths are resolved for.
type Host struct {
	GOOS string
	// Getenv reads XDG_* on linux and APPDATA/LOCALAPPDATA on windows. Nil reads nothing.
	Getenv        func(string) string
	UserConfigDir string
	UserDataDir   string
}

var errNoBaseDirs = errors.New("platform: user config and data dirs are required")

// DefaultPaths resolves paths for DefaultAppName on this machine.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{})
}

// DefaultPathsWithOptions resolves paths on this machine.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	host, err := currentHost()
	if err != nil {
		return Paths{}, err
	}
	return Resolve(host, opts)
}

// currentHost reads the base directories of the running process.
func currentHost() (Host, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Host{}, err
	}
	host := Host{
		GOOS:          runtime.GOOS,
		Getenv:        os.Getenv,
		UserConfigDir: configDir,
		UserDataDir:   configDir,
	}
	// os has no user data dir helper; linux follows the XDG default.
	if host.GOOS == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Host{}, err
		}
		host.UserDataDir = filepath.Join(home, ".local", "share")
	}
	return host, nil
}

// Resolve computes the app paths for host.
func Resolve(host Host, opts Options) (Paths, error) {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}
	if host.UserConfigDir == "" || host.UserDataDir == "" {
		return Paths{}, errNoBaseDirs
	}

	configRoot, dataRoot := host.baseDirs()
	dataDir := filepath.Join(dataRoot, name)
	return Paths{
		ConfigPath:   filepath.Join(configRoot, name, "config.toml"),
		DataDir:      dataDir,
		DBPath:       filepath.Join(dataDir, name+".db"),
		SnapshotPath: filepath.Join(dataDir, name+"-snapshot.json"),
	}, nil
}

// baseDirs applies the per-OS environment overrides. macOS and others keep the os defaults.
func (h Host) baseDirs() (string, string) {
	configRoot, dataRoot := h.UserConfigDir, h.UserDataDir
	var configVar, dataVar string
	switch h.GOOS {
	case "linux":
		configVar, dataVar = "XDG_CONFIG_HOME", "XDG_DATA_HOME"
	case "windows":
		configVar, dataVar = "APPDATA", "LOCALAPPDATA"
	default:
		return configRoot, dataRoot
	}
	if v := h.lookup(configVar); v != "" {
		configRoot = v
	}
	if v := h.lookup(dataVar); v != "" {
		dataRoot = v
	}
	return configRoot, dataRoot
}

func (h Host) lookup(name string) string {
	if h.Getenv == nil {
		return ""
	}
	return strings.TrimSpace(h.Getenv(name))
}
