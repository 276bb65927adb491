package config

import (
	"github.com/spf13/pflag"
)

// Load builds a Config from defaults, the YAML file named by the --config
// flag, the environment and finally explicitly set flags. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	var path string
	if fs != nil && fs.Lookup(FlagConfig) != nil {
		p, err := fs.GetString(FlagConfig)
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := parseYAML(cfg, path); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, nil); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, fs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
