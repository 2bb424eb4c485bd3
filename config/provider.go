package config

import "go.uber.org/fx"

// NewProvider supplies a *Config to the fx graph. A nil override loads the
// configuration from the environment.
func NewProvider(override *Config) fx.Option {
	if override != nil {
		return fx.Provide(func() *Config {
			return override
		})
	}

	return fx.Provide(func() (*Config, error) {
		cfg := &Config{}
		if err := LoadConfig(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	})
}
