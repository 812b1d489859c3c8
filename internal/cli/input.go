package cli

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"dial-go/internal/chat"
)

var errEmptyPrompt = errors.New("prompt is required")

func readInput(args []string, inputFile string, stdin io.Reader) (string, error) {
	if inputFile != "" && len(args) > 0 {
		return "", fmt.Errorf("input args and -F are mutually exclusive")
	}
	if inputFile == "" {
		if len(args) == 0 {
			return "", fmt.Errorf("missing input: provide args or -F")
		}
		return strings.Join(args, " "), nil
	}
	if inputFile == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return trimTrailingNewline(string(data)), nil
	}
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return trimTrailingNewline(string(data)), nil
}

func trimTrailingNewline(value string) string {
	return strings.TrimRight(value, "\r\n")
}

func buildMessages(system, prompt string) []chat.Message {
	messages := make([]chat.Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, chat.NewMessage(chat.System, system))
	}
	messages = append(messages, chat.NewMessage(chat.User, prompt))
	return messages
}

// detectMimeType guesses a file's MIME type from its extension, falling
// back to sniffing its content.
func detectMimeType(path string, data []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}
