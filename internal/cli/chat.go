package cli

import (
	"strings"

	"dial-go/internal/config"
	"dial-go/internal/dial"

	"github.com/spf13/cobra"
)

type chatOptions struct {
	InputFile string
	System    string
	Gateway   gatewayFlags
	Params    paramFlags
}

func newChatCmd(root *Options) *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat [text...]",
		Short: "Send a chat completion request",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "file", "F", "", "prompt file, use -F- for stdin")
	cmd.Flags().StringVar(&opts.System, "system", "", "system prompt")
	opts.Gateway.register(cmd)
	opts.Params.register(cmd)
	return cmd
}

func runChat(cmd *cobra.Command, root *Options, opts *chatOptions, args []string) error {
	if err := opts.Gateway.validate(); err != nil {
		return err
	}
	prompt, err := readInput(args, opts.InputFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if strings.TrimSpace(prompt) == "" {
		return errEmptyPrompt
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	gateway := opts.Gateway.resolve(cfg)
	client, err := newDialClient(gateway, root.newLogger(cmd))
	if err != nil {
		return err
	}
	return runCompletion(cmd, client, buildMessages(opts.System, prompt),
		opts.Gateway.mode(gateway), opts.Params.options(cmd))
}

// paramFlags expose the model parameters. Only flags the user set are sent.
type paramFlags struct {
	MaxTokens        int
	Temperature      float64
	TopP             float64
	N                int
	Seed             int64
	Stop             []string
	PresencePenalty  float64
	FrequencyPenalty float64
}

func (p *paramFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.MaxTokens, "max-tokens", 0, "maximum number of tokens to generate")
	cmd.Flags().Float64Var(&p.Temperature, "temperature", 0, "sampling temperature")
	cmd.Flags().Float64Var(&p.TopP, "top-p", 0, "nucleus sampling probability mass")
	cmd.Flags().IntVar(&p.N, "n", 0, "number of choices to generate (only the first is printed)")
	cmd.Flags().Int64Var(&p.Seed, "seed", 0, "sampling seed")
	cmd.Flags().StringArrayVar(&p.Stop, "stop", nil, "stop sequence (repeatable)")
	cmd.Flags().Float64Var(&p.PresencePenalty, "presence-penalty", 0, "presence penalty")
	cmd.Flags().Float64Var(&p.FrequencyPenalty, "frequency-penalty", 0, "frequency penalty")
}

func (p *paramFlags) options(cmd *cobra.Command) []dial.Option {
	flags := cmd.Flags()
	var opts []dial.Option
	if flags.Changed("max-tokens") {
		opts = append(opts, dial.WithMaxTokens(p.MaxTokens))
	}
	if flags.Changed("temperature") {
		opts = append(opts, dial.WithTemperature(p.Temperature))
	}
	if flags.Changed("top-p") {
		opts = append(opts, dial.WithTopP(p.TopP))
	}
	if flags.Changed("n") {
		opts = append(opts, dial.WithN(p.N))
	}
	if flags.Changed("seed") {
		opts = append(opts, dial.WithSeed(p.Seed))
	}
	if flags.Changed("stop") {
		opts = append(opts, dial.WithStop(p.Stop...))
	}
	if flags.Changed("presence-penalty") {
		opts = append(opts, dial.WithPresencePenalty(p.PresencePenalty))
	}
	if flags.Changed("frequency-penalty") {
		opts = append(opts, dial.WithFrequencyPenalty(p.FrequencyPenalty))
	}
	return opts
}
