// Package config loads the dem-server process configuration via viper
// (adopted from the marmos91-dittofs pack member, which drives its own
// control plane config the same way): a config file plus environment
// overrides, with sane defaults so the daemon runs with zero setup.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full set of dem-server process settings.
type Config struct {
	// DiscoveryConfigDir is a directory of .conf files, one per listening
	// interface (see pkg/discoveryconfig).
	DiscoveryConfigDir string

	// StorePath is the JSON persistence file for pkg/model.
	StorePath string

	// SignaturePath, if non-empty, is read at startup to seed the REST
	// auth signature; empty disables authentication.
	SignaturePath string

	// DefaultRefresh is the default_refresh setting, in minutes. dem-server
	// does not pass it to the log-page aggregator, which uses its own
	// aggregator.DefaultRefresh (five minutes) for targets without a
	// refresh interval.
	DefaultRefresh int

	// RESTAddress is the listen address for the management HTTP surface.
	RESTAddress string

	// MetricsAddress is the listen address for the Prometheus /metrics
	// endpoint.
	MetricsAddress string
}

func defaults(v *viper.Viper) {
	v.SetDefault("discovery_config_dir", "/etc/nvme-dem/discovery.d")
	v.SetDefault("store_path", "/var/lib/nvme-dem/config.json")
	v.SetDefault("signature_path", "")
	v.SetDefault("default_refresh", 5)
	v.SetDefault("rest_address", ":8080")
	v.SetDefault("metrics_address", ":9090")
}

// Load reads configuration from path (if non-empty) plus NVME_DEM_*
// environment variable overrides, falling back to built-in defaults for
// anything unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("nvme_dem")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	return &Config{
		DiscoveryConfigDir: v.GetString("discovery_config_dir"),
		StorePath:          v.GetString("store_path"),
		SignaturePath:      v.GetString("signature_path"),
		DefaultRefresh:     v.GetInt("default_refresh"),
		RESTAddress:        v.GetString("rest_address"),
		MetricsAddress:     v.GetString("metrics_address"),
	}, nil
}
