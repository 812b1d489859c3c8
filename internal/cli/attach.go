package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dial-go/internal/chat"
	"dial-go/internal/config"
	"dial-go/internal/dial"

	"github.com/spf13/cobra"
)

type attachOptions struct {
	Files   []string
	Prompt  string
	Unique  bool
	Gateway gatewayFlags
}

func newAttachCmd(root *Options) *cobra.Command {
	opts := &attachOptions{}
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Upload files to the DIAL bucket and ask a model about them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttach(cmd, root, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Files, "file", nil, "file to upload (repeatable)")
	cmd.Flags().StringVar(&opts.Prompt, "prompt", defaultImagePrompt, "question about the attachments")
	cmd.Flags().BoolVar(&opts.Unique, "unique", false, "store each upload under a random directory")
	opts.Gateway.register(cmd)
	return cmd
}

func runAttach(cmd *cobra.Command, root *Options, opts *attachOptions) error {
	if err := opts.Gateway.validate(); err != nil {
		return err
	}
	if len(opts.Files) == 0 {
		return errors.New("at least one --file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	gateway := opts.Gateway.resolve(cfg)
	log := root.newLogger(cmd)
	bucket, err := dial.NewBucketClient(dial.BucketConfig{
		BaseURL: gateway.URL,
		APIKey:  gateway.APIKey,
		Timeout: gateway.Timeout,
		Logger:  log,
	})
	if err != nil {
		return err
	}
	client, err := newDialClient(gateway, log)
	if err != nil {
		return err
	}

	attachments := make([]chat.Attachment, 0, len(opts.Files))
	for _, path := range opts.Files {
		attachment, err := uploadFile(cmd, bucket, path, opts.Unique)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "attached %s (%s) as %s\n", attachment.Title, attachment.Type, attachment.URL)
		attachments = append(attachments, attachment)
	}

	message := chat.NewMessage(chat.User, opts.Prompt).WithAttachments(attachments...)
	return runCompletion(cmd, client, []chat.Message{message},
		opts.Gateway.mode(gateway), nil)
}

func uploadFile(cmd *cobra.Command, bucket *dial.BucketClient, path string, unique bool) (chat.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chat.Attachment{}, fmt.Errorf("read file: %w", err)
	}
	name := filepath.Base(path)
	if unique {
		name = dial.UniqueName(name)
	}
	return bucket.Upload(cmd.Context(), name, detectMimeType(path, data), bytes.NewReader(data))
}
