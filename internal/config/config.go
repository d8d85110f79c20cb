// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Built-in deployment settings. A bare `rdeploy <host>` uses these.
const (
	DefaultUser       = "dumitru"
	DefaultPassword   = "noviflow"
	DefaultDeployPath = "/home/dumitru/work/dp4c"
	DefaultTransport  = "rsync"
	DefaultPort       = 22
)

// Config is the effective configuration of a single deployment run.
type Config struct {
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	PasswordMode string `mapstructure:"password-mode" yaml:"password-mode"`
	PasswordFile string `mapstructure:"password-file" yaml:"password-file,omitempty"`
	DeployPath   string `mapstructure:"deploy-path" yaml:"deploy-path"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Transport    string `mapstructure:"transport" yaml:"transport"`
	Strict       bool   `mapstructure:"strict" yaml:"strict"`

	Tools   ToolsConfig   `mapstructure:"tools" yaml:"tools"`
	Exclude ExcludeConfig `mapstructure:"exclude" yaml:"exclude"`
	SSH     SSHConfig     `mapstructure:"ssh" yaml:"ssh"`

	// Per-invocation settings, never written to a config file.
	Source      string `mapstructure:"source" yaml:"-"`
	DryRun      bool   `mapstructure:"dry-run" yaml:"-"`
	Debug       bool   `mapstructure:"debug" yaml:"-"`
	AskPassword bool   `mapstructure:"ask-password" yaml:"-"`
}

// ToolsConfig names the external programs used by the rsync transport.
type ToolsConfig struct {
	Rsync   string `mapstructure:"rsync" yaml:"rsync"`
	Sshpass string `mapstructure:"sshpass" yaml:"sshpass"`
}

// ExcludeConfig holds patterns appended after the built-in exclusion list.
type ExcludeConfig struct {
	Extra []string `mapstructure:"extra" yaml:"extra"`
}

// SSHConfig is used by the native sftp transport.
type SSHConfig struct {
	KnownHosts    string        `mapstructure:"known-hosts" yaml:"known-hosts"`
	StrictHostKey bool          `mapstructure:"strict-host-key" yaml:"strict-host-key"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Defaults returns the viper defaults for every known key. source is the
// local tree to deploy, normally the working directory at invocation.
func Defaults(source string) map[string]any {
	knownHosts := ""
	if home, err := os.UserHomeDir(); err == nil {
		knownHosts = filepath.Join(home, ".ssh", "known_hosts")
	}
	return map[string]any{
		"user":                DefaultUser,
		"password":            DefaultPassword,
		"password-mode":       "arg",
		"password-file":       "",
		"deploy-path":         DefaultDeployPath,
		"port":                DefaultPort,
		"transport":           DefaultTransport,
		"strict":              false,
		"source":              source,
		"dry-run":             false,
		"debug":               false,
		"ask-password":        false,
		"tools.rsync":         "rsync",
		"tools.sshpass":       "sshpass",
		"exclude.extra":       []string{},
		"ssh.known-hosts":     knownHosts,
		"ssh.strict-host-key": false,
		"ssh.timeout":         10 * time.Second,
	}
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "rdeploy")
		default:
			configDir = "/etc/rdeploy"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "rdeploy")
	}

	return filepath.Join(configDir, "rdeploy.yaml"), nil
}

// LoadConfig resolves T from defaults, the first rdeploy.yaml found (or the
// explicit file), RDEPLOY_* environment variables and the command's flags,
// in increasing order of precedence.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("rdeploy")
	v.SetConfigType("yaml")

	if configFile != nil && *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		if userConfigPath, err := GetConfigPath(false); err == nil {
			v.AddConfigPath(filepath.Dir(userConfigPath))
		}
		if systemConfigPath, err := GetConfigPath(true); err == nil {
			v.AddConfigPath(filepath.Dir(systemConfigPath))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("rdeploy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}

	return c, nil
}

// WriteConfigFile writes c as YAML to the user or system config path and
// returns the path written.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the file carries the deployment password.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", err
	}

	return path, nil
}
