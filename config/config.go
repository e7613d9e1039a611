// Copyright (C) 2025 The University of Chicago
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package config aggregates configuration for the CLI. Service URLs default
// to the in-cluster Gen3 names derived from the GEN3_ENVIRONMENT variable,
// matching how the tools run inside workspace pods; everything can be
// overridden through GWASTOOLS_* variables or a config file.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Legacy environment variable names honored verbatim for compatibility with
// the workflow definitions that already set them.
const (
	Gen3EnvironmentKey = "GEN3_ENVIRONMENT"
	IndexdUserKey      = "INDEXDUSER"
	IndexdPasswordKey  = "INDEXDPASS"
)

// Config aggregates configuration for the application.
type Config struct {
	Gen3   Gen3Config   `mapstructure:"gen3"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Indexd IndexdConfig `mapstructure:"indexd"`
}

// Gen3Config locates the Gen3 services the subcommands talk to.
type Gen3Config struct {
	Environment      string `mapstructure:"environment"`
	CohortServiceURL string `mapstructure:"cohort_service_url"`
	WTSServiceURL    string `mapstructure:"wts_service_url"`
	IndexdServiceURL string `mapstructure:"indexd_service_url"`
}

// HTTPConfig holds client timeouts. StreamTimeout covers the long-running
// CSV download endpoints, which routinely take many minutes on large cohorts.
type HTTPConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	StreamTimeout  time.Duration `mapstructure:"stream_timeout"`
}

// IndexdConfig carries the basic-auth credentials for record creation.
type IndexdConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// Load reads configuration from an optional config file and environment
// variables. Environment variables use the prefix "GWASTOOLS" with dots
// replaced by underscores, e.g. "gen3.environment" becomes
// "GWASTOOLS_GEN3_ENVIRONMENT". The legacy GEN3_ENVIRONMENT, INDEXDUSER and
// INDEXDPASS variables take effect when the prefixed forms are unset.
func Load() (*Config, error) {
	cfg := &Config{
		Gen3: Gen3Config{Environment: "default"},
		HTTP: HTTPConfig{
			RequestTimeout: 30 * time.Second,
			StreamTimeout:  30 * time.Minute,
		},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("GWASTOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	applyLegacyEnv(cfg)
	cfg.applyServiceDefaults()
	return cfg, nil
}

func applyLegacyEnv(cfg *Config) {
	if env := os.Getenv(Gen3EnvironmentKey); env != "" && cfg.Gen3.Environment == "default" {
		cfg.Gen3.Environment = env
	}
	if cfg.Indexd.User == "" {
		cfg.Indexd.User = os.Getenv(IndexdUserKey)
	}
	if cfg.Indexd.Password == "" {
		cfg.Indexd.Password = os.Getenv(IndexdPasswordKey)
	}
}

// applyServiceDefaults fills any unset service URL with the internal Gen3
// service name for the configured environment.
func (c *Config) applyServiceDefaults() {
	if c.Gen3.CohortServiceURL == "" {
		c.Gen3.CohortServiceURL = fmt.Sprintf("http://cohort-middleware-service.%s", c.Gen3.Environment)
	}
	if c.Gen3.WTSServiceURL == "" {
		c.Gen3.WTSServiceURL = fmt.Sprintf("http://workspace-token-service.%s", c.Gen3.Environment)
	}
	if c.Gen3.IndexdServiceURL == "" {
		c.Gen3.IndexdServiceURL = fmt.Sprintf("http://indexd-service.%s", c.Gen3.Environment)
	}
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
