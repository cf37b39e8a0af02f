/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/notary"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/config"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/db"
)

const (
	DefaultSessionTimeout  = 30 * time.Second
	DefaultFinalityTimeout = time.Minute
)

type NotaryConfig struct {
	// Policy is either input or fixed, there is no default
	Policy string `mapstructure:"policy"`
	// Identity is the alias of the default notary
	Identity string `mapstructure:"identity"`
}

type TimeoutsConfig struct {
	Session  time.Duration `mapstructure:"session"`
	Finality time.Duration `mapstructure:"finality"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the configuration of an IOU node, found under the iou key
type Config struct {
	// Identity is the alias other nodes use to address this one
	Identity    string         `mapstructure:"identity"`
	Notary      NotaryConfig   `mapstructure:"notary"`
	Timeouts    TimeoutsConfig `mapstructure:"timeouts"`
	Persistence db.Config      `mapstructure:"persistence"`
	Metrics     MetricsConfig  `mapstructure:"metrics"`
}

// LoadConfig reads the iou section of the passed configuration and initializes logging
func LoadConfig(p *config.Provider) (*Config, error) {
	if p.IsSet("logging") {
		logging.Init(logging.Config{
			Format:  p.GetString("logging.format"),
			LogSpec: p.GetString("logging.spec"),
		})
	}
	c := &Config{}
	if err := p.UnmarshalKey("iou", c); err != nil {
		return nil, errors.WithMessagef(err, "failed loading iou configuration")
	}
	if len(c.Persistence.Opts.Path) != 0 {
		c.Persistence.Opts.Path = p.TranslatePath(c.Persistence.Opts.Path)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the mandatory fields and sets the default timeouts
func (c *Config) Validate() error {
	if len(c.Identity) == 0 {
		return errors.New("iou.identity must be set")
	}
	switch notary.Policy(c.Notary.Policy) {
	case notary.InputPolicy, notary.FixedPolicy:
	case "":
		return errors.Errorf("iou.notary.policy must be set to [%s] or [%s]", notary.InputPolicy, notary.FixedPolicy)
	default:
		return errors.Errorf("invalid iou.notary.policy [%s], expected [%s] or [%s]", c.Notary.Policy, notary.InputPolicy, notary.FixedPolicy)
	}
	if len(c.Notary.Identity) == 0 {
		return errors.New("iou.notary.identity must be set")
	}
	if c.Timeouts.Session <= 0 {
		c.Timeouts.Session = DefaultSessionTimeout
	}
	if c.Timeouts.Finality <= 0 {
		c.Timeouts.Finality = DefaultFinalityTimeout
	}
	return nil
}
