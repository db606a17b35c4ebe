// Copyright (C) 2024 The ivm-engine Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the settings ivmctl reads from a config file (any
// format viper supports: yaml, json, toml) and/or IVMCTL_*
// environment variables; no command-line flag sets these fields.
type Config struct {
	// DumpCompression selects the zstd level runDump uses when
	// --compress is passed, on zstdLevel's 1 (fastest) to 4 (best) scale.
	DumpCompression int `mapstructure:"dump_compression"`
	// Verbose turns on per-round row-count logging during run.
	Verbose bool `mapstructure:"verbose"`
}

func defaultConfig() Config {
	return Config{DumpCompression: 3}
}

// loadConfig reads configuration from cfgFile if set, or from any
// "ivmctl.yaml"/"ivmctl.json"/etc. discovered on viper's default
// search path otherwise. With cfgFile set, any error reading it
// (including the file being missing) is returned. Without it, a config
// file that is missing or fails to read is ignored: the defaults and
// IVMCTL_* env vars apply.
func loadConfig(cfgFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IVMCTL")
	v.AutomaticEnv()

	cfg := defaultConfig()
	v.SetDefault("dump_compression", cfg.DumpCompression)
	v.SetDefault("verbose", cfg.Verbose)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("ivmctl")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ivmctl")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return cfg, fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
