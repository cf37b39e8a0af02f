/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package db

import (
	"os"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/driver"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/driver/badger"
	mem "github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/driver/memory"
)

const (
	MemoryPersistence = "memory"
	BadgerPersistence = "badger"
)

// Opts holds the driver specific options
type Opts struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"inMemory"`
}

// Config selects and configures the persistence driver
type Config struct {
	Type string `mapstructure:"type"`
	Opts Opts   `mapstructure:"opts"`
}

// Open returns a new store for the passed configuration. An empty type selects memory.
func Open(c Config) (driver.KeyValueStore, error) {
	switch c.Type {
	case "", MemoryPersistence:
		return mem.New(), nil
	case BadgerPersistence:
		if !c.Opts.InMemory {
			if err := os.MkdirAll(c.Opts.Path, 0755); err != nil {
				return nil, errors.Wrapf(err, "failed creating directory [%s]", c.Opts.Path)
			}
		}
		return badger.OpenDB(badger.Opts{Path: c.Opts.Path, InMemory: c.Opts.InMemory})
	default:
		return nil, errors.Errorf("invalid persistence type [%s]", c.Type)
	}
}
