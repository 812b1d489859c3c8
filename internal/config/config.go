package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	ModeCompat = "compat"
	ModeStrict = "strict"
)

const (
	DefaultURL           = "https://ai-proxy.lab.epam.com"
	DefaultDeployment    = "gpt-4o"
	DefaultTimeout       = 30 * time.Second
	DefaultStreamTimeout = 60 * time.Second
)

type Config struct {
	DIAL DIALConfig `mapstructure:"dial"`
}

type DIALConfig struct {
	URL           string        `mapstructure:"url"`
	APIKey        string        `mapstructure:"api_key"`
	Deployment    string        `mapstructure:"deployment"`
	Timeout       time.Duration `mapstructure:"timeout"`
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
	// Mode selects how failures reach the caller: compat folds them into
	// the reply text, strict returns them as errors.
	Mode string `mapstructure:"mode"`
}

func Default() Config {
	return Config{
		DIAL: DIALConfig{
			URL:           DefaultURL,
			Deployment:    DefaultDeployment,
			Timeout:       DefaultTimeout,
			StreamTimeout: DefaultStreamTimeout,
			Mode:          ModeCompat,
		},
	}
}

// SetDefaults registers the default values with v.
func SetDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("dial.url", def.DIAL.URL)
	v.SetDefault("dial.deployment", def.DIAL.Deployment)
	v.SetDefault("dial.timeout", def.DIAL.Timeout)
	v.SetDefault("dial.stream_timeout", def.DIAL.StreamTimeout)
	v.SetDefault("dial.mode", def.DIAL.Mode)
}

func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DIAL.Mode {
	case "", ModeCompat, ModeStrict:
	default:
		return fmt.Errorf("invalid dial.mode: %s", c.DIAL.Mode)
	}
	if c.DIAL.Timeout <= 0 {
		return fmt.Errorf("invalid dial.timeout: %s", c.DIAL.Timeout)
	}
	if c.DIAL.StreamTimeout <= 0 {
		return fmt.Errorf("invalid dial.stream_timeout: %s", c.DIAL.StreamTimeout)
	}
	return nil
}

func (c DIALConfig) Strict() bool {
	return c.Mode == ModeStrict
}
