/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	CmdRoot = "core"
	// EnvPath is the environment variable that overrides the folder core.yaml is looked up in
	EnvPath = "IOUNODE_CFG_PATH"
)

// Provider gives access to the node configuration backed by viper
type Provider struct {
	confPath string
	Backend  *viper.Viper

	mergeConfigMutex sync.Mutex
}

// NewProvider loads core.yaml from confPath, the IOUNODE_CFG_PATH folder or the current folder
func NewProvider(confPath string) (*Provider, error) {
	p := &Provider{confPath: confPath}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewProviderFromReader loads the configuration from the passed reader, e.g. an embedded yaml document
func NewProviderFromReader(r io.Reader, configType string) (*Provider, error) {
	p := &Provider{Backend: viper.New()}
	p.Backend.SetConfigType(configType)
	if err := p.Backend.ReadConfig(r); err != nil {
		return nil, errors.WithMessagef(err, "error when reading %s config", configType)
	}
	if err := p.substituteEnv(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) GetDuration(key string) time.Duration {
	return p.Backend.GetDuration(key)
}

func (p *Provider) GetBool(key string) bool {
	return p.Backend.GetBool(key)
}

func (p *Provider) GetInt(key string) int {
	return p.Backend.GetInt(key)
}

func (p *Provider) GetString(key string) string {
	return p.Backend.GetString(key)
}

func (p *Provider) GetStringSlice(key string) []string {
	return p.Backend.GetStringSlice(key)
}

func (p *Provider) IsSet(key string) bool {
	return p.Backend.IsSet(key)
}

// UnmarshalKey decodes the subtree under key into rawVal.
// Durations can be given as strings, e.g. "10s", and "[a, b]" strings decode into slices.
func (p *Provider) UnmarshalKey(key string, rawVal interface{}) error {
	return p.Backend.UnmarshalKey(key, rawVal, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		bracketSliceDecodeHook,
		mapstructure.StringToSliceHookFunc(","),
	)))
}

// GetPath returns the path under key, relative paths are resolved against the config file folder
func (p *Provider) GetPath(key string) string {
	return p.TranslatePath(p.Backend.GetString(key))
}

func (p *Provider) TranslatePath(path string) string {
	if path == "" {
		return ""
	}
	return TranslatePath(filepath.Dir(p.Backend.ConfigFileUsed()), path)
}

func (p *Provider) ConfigFileUsed() string {
	return p.Backend.ConfigFileUsed()
}

// MergeConfig merges the passed yaml document into the current configuration
func (p *Provider) MergeConfig(raw []byte) error {
	// only one writer at the time
	p.mergeConfigMutex.Lock()
	defer p.mergeConfigMutex.Unlock()

	return p.Backend.MergeConfig(bytes.NewReader(raw))
}

func (p *Provider) load() error {
	p.Backend = viper.New()
	if err := p.initViper(p.Backend, CmdRoot); err != nil {
		return err
	}

	if err := p.Backend.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return errors.Errorf("could not find config file, "+
				"please make sure that %s is set to a path which contains %s.yaml", EnvPath, CmdRoot)
		}
		return errors.WithMessagef(err, "error when reading %s config file", CmdRoot)
	}
	return p.substituteEnv()
}

// Manually override keys if the respective environment variable is set, because viper doesn't do
// that for UnmarshalKey values.
// Example: CORE_IOU_NOTARY_POLICY sets iou.notary.policy.
func (p *Provider) substituteEnv() error {
	prefix := strings.ToUpper(CmdRoot) + "_"
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, prefix) {
			continue
		}

		env := strings.Split(e, "=")
		key, val := env[0], strings.Join(env[1:], "=")
		if len(val) == 0 {
			continue
		}

		key = strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, prefix), "_", "."))

		// nested key
		keys := strings.Split(key, ".")
		parent := strings.Join(keys[:len(keys)-1], ".")
		if len(keys) < 2 || !p.Backend.IsSet(parent) {
			p.Backend.Set(key, val)
			continue
		}

		if len(p.Backend.GetStringMap(key)) > 0 {
			fmt.Fprintln(os.Stderr, "-- skipping "+env[0]+": cannot override maps")
			continue
		}

		root := p.Backend.GetStringMap(keys[0])
		if err := setDeepValue(root, keys, val); err != nil {
			return errors.Wrap(err, "error when substituting")
		}
		p.Backend.Set(keys[0], root)
	}
	return nil
}

// Function to set the value at the deepest level
func setDeepValue(m map[string]any, keys []string, value any) error {
	if len(keys) < 2 {
		return errors.New("can't set root key")
	}

	current := m
	// traverse to the last map
	for i := 1; i < len(keys)-1; i++ {
		key := keys[i]
		nextMap, ok := current[key].(map[string]any)
		if !ok {
			return errors.New("expected map at key " + key)
		}
		current = nextMap
	}
	current[keys[len(keys)-1]] = value
	return nil
}

func (p *Provider) initViper(v *viper.Viper, configName string) error {
	if len(p.confPath) != 0 {
		v.AddConfigPath(p.confPath)
	}

	if altPath := os.Getenv(EnvPath); altPath != "" {
		// If the user has overridden the path with an envvar, its the only path
		// we will consider
		if !dirExists(altPath) {
			return errors.Errorf("%s %s does not exist", EnvPath, altPath)
		}
		v.AddConfigPath(altPath)
	} else {
		v.AddConfigPath("./")
	}
	v.SetConfigName(configName)
	return nil
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.IsDir()
}

func TranslatePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
