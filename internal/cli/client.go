package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"dial-go/internal/chat"
	"dial-go/internal/config"
	"dial-go/internal/dial"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// gatewayFlags override the configured gateway for a single invocation.
type gatewayFlags struct {
	Deployment string
	URL        string
	APIKey     string
	Strict     bool
	Stream     bool
	NoStream   bool
	Details    bool
}

func (f *gatewayFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Deployment, "deployment", "", "override deployment name")
	cmd.Flags().StringVar(&f.URL, "url", "", "override gateway base url")
	cmd.Flags().StringVar(&f.APIKey, "api-key", "", "override api key")
	cmd.Flags().BoolVar(&f.Strict, "strict", false, "fail with an error instead of printing diagnostics as the reply")
	cmd.Flags().BoolVar(&f.Stream, "stream", false, "stream response")
	cmd.Flags().BoolVar(&f.NoStream, "no-stream", false, "disable streaming response")
	cmd.Flags().BoolVar(&f.Details, "details", false, "print the finish reason after the reply")
}

func (f *gatewayFlags) validate() error {
	if f.Stream && f.NoStream {
		return errors.New("only one of --stream or --no-stream can be set")
	}
	return nil
}

// resolve merges flags over the loaded configuration.
func (f *gatewayFlags) resolve(cfg config.Config) config.DIALConfig {
	resolved := cfg.DIAL
	resolved.Deployment = firstNonEmpty(f.Deployment, resolved.Deployment)
	resolved.URL = firstNonEmpty(f.URL, resolved.URL)
	resolved.APIKey = firstNonEmpty(f.APIKey, resolved.APIKey)
	if f.Strict {
		resolved.Mode = config.ModeStrict
	}
	return resolved
}

// replyMode controls how runCompletion calls the client and prints the reply.
type replyMode struct {
	Stream  bool
	Strict  bool
	Details bool
}

func (f *gatewayFlags) mode(gateway config.DIALConfig) replyMode {
	return replyMode{Stream: f.Stream, Strict: gateway.Strict(), Details: f.Details}
}

func newDialClient(cfg config.DIALConfig, log *zap.Logger) (*dial.Client, error) {
	return dial.NewClient(dial.Config{
		BaseURL:       cfg.URL,
		APIKey:        cfg.APIKey,
		Deployment:    cfg.Deployment,
		Timeout:       cfg.Timeout,
		StreamTimeout: cfg.StreamTimeout,
		Logger:        log,
	})
}

// runCompletion sends messages and prints the reply. Streaming prints each
// delta as it arrives. In strict mode failures are returned; otherwise they
// are printed in place of the reply.
func runCompletion(cmd *cobra.Command, client *dial.Client, messages []chat.Message, mode replyMode, opts []dial.Option) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var msg chat.Message
	if !mode.Stream {
		if mode.Strict {
			var err error
			if msg, err = client.Complete(ctx, messages, opts...); err != nil {
				return err
			}
		} else {
			msg = client.GetCompletion(ctx, messages, opts...)
		}
		if _, err := fmt.Fprintln(out, msg.Content); err != nil {
			return err
		}
		return printDetails(out, mode, msg)
	}

	var streamed strings.Builder
	printer := func(delta string) error {
		streamed.WriteString(delta)
		_, err := fmt.Fprint(out, delta)
		return err
	}
	if mode.Strict {
		var err error
		msg, err = client.Stream(ctx, messages, printer, opts...)
		_, _ = fmt.Fprintln(out)
		if err != nil {
			return err
		}
		return printDetails(out, mode, msg)
	}
	msg = client.StreamCompletion(ctx, messages, printer, opts...)
	if rest, ok := strings.CutPrefix(msg.Content, streamed.String()); ok {
		// Anything beyond the streamed text is a diagnostic.
		_, _ = fmt.Fprint(out, rest)
	} else {
		_, _ = fmt.Fprint(out, msg.Content)
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	return printDetails(out, mode, msg)
}

func printDetails(out io.Writer, mode replyMode, msg chat.Message) error {
	if !mode.Details || msg.FinishReason == "" {
		return nil
	}
	_, err := fmt.Fprintf(out, "finish_reason: %s\n", msg.FinishReason)
	return err
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
