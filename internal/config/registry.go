package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "aio-mgr"
	configFile = "config.yaml"

	// ConfigPathEnvVar overrides the configuration file location.
	ConfigPathEnvVar = "AIO_CONFIG"
)

// ErrUnsupportedVersion is returned for files written by a newer or
// older schema.
var ErrUnsupportedVersion = errors.New("unsupported config version")

var (
	shared     *Registry
	sharedErr  error
	sharedOnce sync.Once

	// fileMu serializes reads and writes of config files in this process.
	fileMu sync.Mutex
)

const fileHeader = `# aio-mgr configuration
#
# Remembered devices and discovery preferences. Session tokens are never
# stored here; pass --token or set AIO_TOKEN instead.
#
`

// GetConfigDir returns the per-user directory holding config.yaml:
//   - Windows: %LOCALAPPDATA%\aio-mgr
//   - otherwise: $XDG_CONFIG_HOME/aio-mgr, falling back to ~/.config/aio-mgr
//
// macOS uses the XDG layout rather than ~/Library.
func GetConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appName), nil
		}
		profile := os.Getenv("USERPROFILE")
		if profile == "" {
			return "", errors.New("cannot determine config directory: LOCALAPPDATA and USERPROFILE are unset")
		}
		return filepath.Join(profile, "AppData", "Local", appName), nil
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && runtime.GOOS != "darwin" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// GetConfigPath returns the configuration file path. AIO_CONFIG wins
// when set.
func GetConfigPath() (string, error) {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// LoadRegistry returns the process-wide registry, reading it on first use.
func LoadRegistry() (*Registry, error) {
	sharedOnce.Do(func() {
		path, err := GetConfigPath()
		if err != nil {
			sharedErr = err
			return
		}
		shared, sharedErr = LoadFile(path)
	})
	return shared, sharedErr
}

// ReloadRegistry drops the cached registry and reads it again.
func ReloadRegistry() (*Registry, error) {
	fileMu.Lock()
	sharedOnce = sync.Once{}
	shared, sharedErr = nil, nil
	fileMu.Unlock()
	return LoadRegistry()
}

// LoadFile reads a registry from path. A missing file yields defaults.
func LoadFile(path string) (*Registry, error) {
	fileMu.Lock()
	defer fileMu.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	reg := &Registry{}
	if err := yaml.Unmarshal(data, reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if reg.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrUnsupportedVersion, reg.Version, CurrentVersion)
	}
	reg.fillDefaults()
	return reg, nil
}

// Save writes the registry to GetConfigPath.
func (r *Registry) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return r.SaveFile(path)
}

// SaveFile writes the registry to path, replacing it atomically. Missing
// parent directories are created user-private.
func (r *Registry) SaveFile(path string) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	body, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+configFile+".*")
	if err != nil {
		return fmt.Errorf("create temporary config: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.WriteString(fileHeader); err == nil {
		_, err = tmp.Write(body)
	}
	if err == nil {
		err = tmp.Chmod(0o600)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write temporary config: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
