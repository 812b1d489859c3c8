package cli

import (
	"errors"
	"fmt"
	"os"

	"dial-go/internal/chat"
	"dial-go/internal/config"

	"github.com/spf13/cobra"
)

const defaultImagePrompt = "What do you see on this picture?"

type imageOptions struct {
	Files   []string
	URLs    []string
	Prompt  string
	Gateway gatewayFlags
}

func newImageCmd(root *Options) *cobra.Command {
	opts := &imageOptions{}
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Ask a model about images sent inline or by URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImage(cmd, root, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Files, "file", nil, "image file, sent as a base64 data URI (repeatable)")
	cmd.Flags().StringArrayVar(&opts.URLs, "image-url", nil, "image URL (repeatable)")
	cmd.Flags().StringVar(&opts.Prompt, "prompt", defaultImagePrompt, "question about the images")
	opts.Gateway.register(cmd)
	return cmd
}

func runImage(cmd *cobra.Command, root *Options, opts *imageOptions) error {
	if err := opts.Gateway.validate(); err != nil {
		return err
	}
	message, err := buildImageMessage(opts.Prompt, opts.Files, opts.URLs)
	if err != nil {
		return err
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
	return runCompletion(cmd, client, []chat.Message{message},
		opts.Gateway.mode(gateway), nil)
}

// buildImageMessage puts the prompt first, then inline files, then URLs.
func buildImageMessage(prompt string, files, urls []string) (chat.Message, error) {
	if len(files) == 0 && len(urls) == 0 {
		return chat.Message{}, errors.New("at least one --file or --image-url is required")
	}
	parts := []chat.Part{chat.TextPart(prompt)}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return chat.Message{}, fmt.Errorf("read image: %w", err)
		}
		parts = append(parts, chat.ImageDataPart(detectMimeType(path, data), data))
	}
	for _, url := range urls {
		parts = append(parts, chat.ImagePart(url))
	}
	return chat.NewPartsMessage(chat.User, parts...), nil
}
