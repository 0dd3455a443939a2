// Package config manages disk and keyring state for confluencectl profiles.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	serviceName     = "confluencectl"
	envPrefix       = "CONFLUENCECTL"
	defaultBasePath = "/"

	dirPermissions  = 0o700
	filePermissions = 0o600
)

// Profile holds the non-secret defaults stored for a profile.
type Profile struct {
	Domain       string `json:"domain,omitempty"`
	BasePath     string `json:"base_path,omitempty"`
	SpaceKey     string `json:"space_key,omitempty"`
	ParentPageID string `json:"parent_page_id,omitempty"`
}

// Auth is everything needed to reach a Confluence site.
type Auth struct {
	Token    string
	Domain   string
	BasePath string
}

// DefaultBasePath is used when a profile does not set one.
func DefaultBasePath() string {
	return defaultBasePath
}

// configDir returns the directory where we persist structured configuration.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", serviceName), nil
}

// ensureConfigDir ensures the configuration directory exists with restricted permissions.
func ensureConfigDir() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}

// SaveToken stores the personal access token for the provided profile in the OS keyring.
func SaveToken(profile, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if profile == "" {
		return errors.New("profile name cannot be empty")
	}
	if err := keyring.Set(serviceName, profile, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// LoadToken returns the stored token for a profile.
func LoadToken(profile string) (string, error) {
	if profile == "" {
		return "", errors.New("profile name cannot be empty")
	}
	tok, err := keyring.Get(serviceName, profile)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("load token: no stored credentials for profile %q", profile)
		}
		return "", fmt.Errorf("load token: %w", err)
	}
	return tok, nil
}

// SaveProfile merges the non-empty fields of p into the stored profile.
func SaveProfile(profile string, p Profile) error {
	if profile == "" {
		return errors.New("profile name cannot be empty")
	}

	cfg, configPath, err := readConfig()
	if err != nil {
		return err
	}

	set := func(field, value string) {
		if value = strings.TrimSpace(value); value != "" {
			cfg.Set(profileKey(profile, field), value)
		}
	}
	set("domain", p.Domain)
	set("base_path", p.BasePath)
	set("space_key", p.SpaceKey)
	set("parent_page_id", p.ParentPageID)

	if err := cfg.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Chmod(configPath, filePermissions); err != nil {
		return fmt.Errorf("restrict config permissions: %w", err)
	}
	return nil
}

// LoadProfile returns the stored defaults for a profile. A missing config
// file yields an empty profile with the default base path.
func LoadProfile(profile string) (Profile, error) {
	if profile == "" {
		return Profile{}, errors.New("profile name cannot be empty")
	}

	cfg, _, err := readConfig()
	if err != nil {
		return Profile{}, err
	}

	p := Profile{
		Domain:       cfg.GetString(profileKey(profile, "domain")),
		BasePath:     cfg.GetString(profileKey(profile, "base_path")),
		SpaceKey:     cfg.GetString(profileKey(profile, "space_key")),
		ParentPageID: cfg.GetString(profileKey(profile, "parent_page_id")),
	}
	if p.BasePath == "" {
		p.BasePath = defaultBasePath
	}
	return p, nil
}

// ResolveAuth fills in whatever token and domain were not given explicitly.
// Precedence: explicit argument, then CONFLUENCECTL_TOKEN / CONFLUENCECTL_DOMAIN,
// then the stored profile.
func ResolveAuth(profile, token, domain string) (Auth, error) {
	env := viper.New()
	env.SetEnvPrefix(envPrefix)
	if err := env.BindEnv("token"); err != nil {
		return Auth{}, fmt.Errorf("bind env: %w", err)
	}
	if err := env.BindEnv("domain"); err != nil {
		return Auth{}, fmt.Errorf("bind env: %w", err)
	}

	if token == "" {
		token = env.GetString("token")
	}
	if domain == "" {
		domain = env.GetString("domain")
	}

	p, err := LoadProfile(profile)
	if err != nil {
		if token == "" || domain == "" {
			return Auth{}, err
		}
		// Everything needed was given; the profile only contributes a base path.
		p = Profile{BasePath: defaultBasePath}
	}
	if domain == "" {
		domain = p.Domain
	}
	if token == "" {
		token, err = LoadToken(profile)
		if err != nil {
			return Auth{}, err
		}
	}
	if domain == "" {
		return Auth{}, fmt.Errorf("no Confluence domain given and none stored for profile %q", profile)
	}
	return Auth{Token: token, Domain: domain, BasePath: p.BasePath}, nil
}

func readConfig() (*viper.Viper, string, error) {
	dir, err := ensureConfigDir()
	if err != nil {
		return nil, "", err
	}

	cfg := viper.New()
	configPath := filepath.Join(dir, "config.yaml")
	cfg.SetConfigFile(configPath)
	if readErr := cfg.ReadInConfig(); readErr != nil && !isConfigNotFound(readErr) {
		return nil, "", fmt.Errorf("read config: %w", readErr)
	}
	return cfg, configPath, nil
}

func profileKey(profile, field string) string {
	return fmt.Sprintf("profiles.%s.%s", profile, field)
}

func isConfigNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nf viper.ConfigFileNotFoundError
	if errors.As(err, &nf) {
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return true
	}
	return errors.Is(err, os.ErrNotExist)
}
