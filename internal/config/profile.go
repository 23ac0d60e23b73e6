package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName     = "hpgen"
	profileFile = "profile.yaml"
)

// Mutex for file writes
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/hpgen or $HOME/.config/hpgen
//   - macOS: $HOME/.config/hpgen
//   - Windows: %LOCALAPPDATA%\hpgen
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the default profile.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, profileFile), nil
}

// resolvePath maps an empty path onto the default profile location.
func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	p, err := GetConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get config path: %w", err)
	}
	return p, nil
}

// LoadProfile reads a profile from path, or from the default location when
// path is empty. A missing default profile yields NewProfile(); a missing
// explicit path is an error.
func LoadProfile(path string) (*Profile, error) {
	explicit := path != ""
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return NewProfile(), nil
	}
	if err != nil {
		return nil, &ProfileError{Path: path, Op: "read", Err: err}
	}

	return ParseProfile(data, path)
}

// ParseProfile decodes and validates profile YAML. name is used in errors.
func ParseProfile(data []byte, name string) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, &ProfileError{Path: name, Op: "parse", Err: err}
	}
	if err := p.Validate(); err != nil {
		return nil, &ProfileError{Path: name, Op: "validate", Err: err}
	}
	if p.Generation == nil {
		p.Generation = &Generation{}
	}
	return &p, nil
}

// Marshal encodes the profile as YAML with a header comment.
func (p *Profile) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	header := []byte(`# hpgen generation profile
#
# markers:    reserved names the patch build macros emit
# generation: strict fails when any patch function is skipped;
#             max_code_size is the device slot capacity (0 = unlimited)

`)
	return append(header, data...), nil
}

// Save writes the profile to path, or to the default location when path is
// empty. The write goes through a temporary file and a rename.
func (p *Profile) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	path, err := resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return &ProfileError{Path: path, Op: "write", Err: fmt.Errorf("failed to create config directory: %w", err)}
	}

	data, err := p.Marshal()
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return &ProfileError{Path: path, Op: "write", Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &ProfileError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// Init writes a default profile to path unless one already exists there.
// It returns the path written.
func Init(path string, force bool) (string, error) {
	path, err := resolvePath(path)
	if err != nil {
		return "", err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, &ProfileError{Path: path, Op: "init", Err: ErrProfileExists}
		}
	}
	return path, NewProfile().Save(path)
}
