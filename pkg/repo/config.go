package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config stores repository-local settings.
type Config struct {
	DefaultBranch string            `toml:"defaultbranch"`
	Compression   string            `toml:"compression,omitempty"`
	Remotes       map[string]string `toml:"remotes,omitempty"`
}

func (r *Repo) configPath() string {
	return filepath.Join(r.MetaDir, "config.toml")
}

// ReadConfig reads .reft/config.toml. A missing file returns defaults.
func (r *Repo) ReadConfig() (*Config, error) {
	cfg := &Config{DefaultBranch: DefaultBranch}
	if _, err := toml.DecodeFile(r.configPath(), cfg); err != nil {
		if os.IsNotExist(err) {
			cfg.Remotes = make(map[string]string)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.DefaultBranch == "" {
		cfg.DefaultBranch = DefaultBranch
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}
	return cfg, nil
}

// WriteConfig atomically writes .reft/config.toml via temp + rename.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{DefaultBranch: DefaultBranch}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(r.MetaDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// SetRemote stores or updates a named remote URL in repository config.
func (r *Repo) SetRemote(name, remoteURL string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("set remote: remote name is required")
	}
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return fmt.Errorf("set remote: remote URL is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	cfg.Remotes[name] = remoteURL
	return r.WriteConfig(cfg)
}

// RemoteURL returns the configured URL for the given remote name.
func (r *Repo) RemoteURL(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("remote name is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	url, ok := cfg.Remotes[name]
	if !ok || strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("remote %q is not configured", name)
	}
	return url, nil
}
