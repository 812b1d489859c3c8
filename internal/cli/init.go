package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"dial-go/internal/config"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// fileConfig mirrors config.Config with durations written as strings.
type fileConfig struct {
	DIAL struct {
		URL           string `toml:"url"`
		APIKey        string `toml:"api_key"`
		Deployment    string `toml:"deployment"`
		Timeout       string `toml:"timeout"`
		StreamTimeout string `toml:"stream_timeout"`
		Mode          string `toml:"mode"`
	} `toml:"dial"`
}

func newInitCmd(root *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		// The file does not exist yet, so skip loading it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Long: `Write a default configuration file.
The file is created at $HOME/.config/dial-go/dial-go.toml unless --config is given.
The api key can be left empty and supplied through DIAL_API_KEY or a .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := initConfigPath(root.Config)
			if err != nil {
				return err
			}
			if err := writeDefaultConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}
}

func initConfigPath(configFile string) (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "dial-go", "dial-go.toml"), nil
}

func writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at: %s", path)
	}

	def := config.Default()
	var out fileConfig
	out.DIAL.URL = def.DIAL.URL
	out.DIAL.Deployment = def.DIAL.Deployment
	out.DIAL.Timeout = def.DIAL.Timeout.String()
	out.DIAL.StreamTimeout = def.DIAL.StreamTimeout.String()
	out.DIAL.Mode = def.DIAL.Mode

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(out); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
