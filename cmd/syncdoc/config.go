// Copyright 2022 The go-syncdoc Authors
// This file is part of go-syncdoc.
//
// go-syncdoc is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-syncdoc is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-syncdoc. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"
)

var configFileFlag = cli.StringFlag{
	Name:  "config",
	Usage: "TOML configuration file",
}

// These settings ensure that TOML keys use the same names as Go struct
// fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

type syncdocConfig struct {
	// DataDir is the docdb directory used by the store-backed commands.
	DataDir string `toml:",omitempty"`
	// Verbosity is a logrus level name.
	Verbosity string `toml:",omitempty"`
	// Cache and Handles tune the leveldb instance.
	Cache   int `toml:",omitempty"`
	Handles int `toml:",omitempty"`
}

func defaultConfig() syncdocConfig {
	return syncdocConfig{
		DataDir:   "syncdoc-data",
		Verbosity: "info",
		Cache:     64,
		Handles:   64,
	}
}

func loadConfig(file string, cfg *syncdocConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = fmt.Errorf("%v in file %s", err, file)
	}
	return err
}

func makeConfig(ctx *cli.Context) (syncdocConfig, error) {
	cfg := defaultConfig()
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.GlobalIsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.GlobalString(dataDirFlag.Name)
	}
	level, err := logrus.ParseLevel(cfg.Verbosity)
	if err != nil {
		return cfg, err
	}
	logrus.SetLevel(level)
	return cfg, nil
}
