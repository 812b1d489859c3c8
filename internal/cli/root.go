package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"dial-go/internal/config"
	"dial-go/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Options struct {
	Config string
	Debug  bool
}

func (o *Options) newLogger(cmd *cobra.Command) *zap.Logger {
	return logger.New(o.Debug, cmd.ErrOrStderr())
}

func NewRootCmd() *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:           "dial-go",
		Short:         "dial-go - chat with models behind a DIAL gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initConfig(cmd, opts.Config)
			return nil
		},
	}

	root.PersistentFlags().StringVar(
		&opts.Config,
		"config",
		"",
		"config file (default: ./dial-go.toml or $HOME/.config/dial-go/dial-go.toml)",
	)
	root.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "log requests and diagnostics")
	_ = viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))

	root.AddCommand(newChatCmd(opts))
	root.AddCommand(newImageCmd(opts))
	root.AddCommand(newAttachCmd(opts))
	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func initConfig(cmd *cobra.Command, configFile string) {
	// .env supplies DIAL_API_KEY and friends when they are not exported.
	_ = godotenv.Load()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("dial-go")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/dial-go")
	}

	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix("DIAL_GO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("dial.api_key", "DIAL_GO_DIAL_API_KEY", "DIAL_API_KEY")
	_ = viper.BindEnv("dial.url", "DIAL_GO_DIAL_URL", "DIAL_URL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return
		}
		fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	}
}
