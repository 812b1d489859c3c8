package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"dial-go/internal/config"
	"dial-go/internal/dial"

	"github.com/spf13/viper"
)

const chatPath = "/openai/deployments/gpt-test/chat/completions"

func writeTestConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("DIAL_API_KEY", "")
	t.Setenv("DIAL_URL", "")
	path := filepath.Join(t.TempDir(), "dial-go.toml")
	content := "[dial]\ndeployment = \"gpt-test\"\nmode = \"compat\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func gatewayArgs(t *testing.T, serverURL string, args ...string) []string {
	t.Helper()
	base := []string{"--config", writeTestConfig(t), "--url", serverURL, "--api-key", "secret-key"}
	return append(args, base...)
}

func decodeChatRequest(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	if r.URL.Path != chatPath {
		t.Fatalf("unexpected path: %s", r.URL.Path)
	}
	if r.Header.Get("api-key") != "secret-key" {
		t.Fatalf("missing api-key header")
	}
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	return req
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"chat", "image", "attach", "init", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("missing %s command: %v", name, err)
		}
	}
	image, _, _ := root.Find([]string{"image"})
	if image.Flags().Lookup("image-url") == nil || image.Flags().Lookup("url") == nil {
		t.Fatalf("image command must accept both --image-url and the gateway --url")
	}
}

func TestChatCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeChatRequest(t, r)
		messages := req["messages"].([]any)
		if len(messages) != 2 {
			t.Fatalf("unexpected messages: %v", messages)
		}
		user := messages[1].(map[string]any)
		if user["content"] != "hello world" {
			t.Fatalf("unexpected prompt: %v", user["content"])
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"X"}}]}`))
	}))
	defer server.Close()

	out, err := runCmd(t, gatewayArgs(t, server.URL, "chat", "--system", "be brief", "hello", "world")...)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != "X\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestChatCommandStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeChatRequest(t, r)
		if req["stream"] != true {
			t.Fatalf("expected stream request")
		}
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"Hel"}}]}` + "\n\n" +
			`data: {"choices":[{"delta":{"content":"lo"}}]}` + "\n\n" +
			"data: [DONE]\n\n"))
	}))
	defer server.Close()

	out, err := runCmd(t, gatewayArgs(t, server.URL, "chat", "--stream", "hi")...)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != "Hello\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestChatCommandPrintsDiagnostic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`boom`))
	}))
	defer server.Close()

	out, err := runCmd(t, gatewayArgs(t, server.URL, "chat", "hi")...)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != "HTTP 500: boom\n" {
		t.Fatalf("unexpected output: %q", out)
	}

	out, err = runCmd(t, gatewayArgs(t, server.URL, "chat", "--stream", "hi")...)
	if err != nil {
		t.Fatalf("chat stream: %v", err)
	}
	if out != "HTTP 500: boom\n" {
		t.Fatalf("unexpected stream output: %q", out)
	}
}

func TestChatCommandStrict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`no deployment`))
	}))
	defer server.Close()

	_, err := runCmd(t, gatewayArgs(t, server.URL, "chat", "--strict", "hi")...)
	var statusErr *dial.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestChatCommandParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeChatRequest(t, r)
		if req["max_tokens"] != float64(10) {
			t.Fatalf("unexpected max_tokens: %v", req["max_tokens"])
		}
		if req["temperature"] != 0.0 {
			t.Fatalf("unexpected temperature: %v", req["temperature"])
		}
		if _, ok := req["seed"]; ok {
			t.Fatalf("seed should be omitted")
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"A token is"}}]}`))
	}))
	defer server.Close()

	out, err := runCmd(t, gatewayArgs(t, server.URL, "chat", "--max-tokens", "10", "--temperature", "0", "what is a token?")...)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != "A token is\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestChatCommandDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeChatRequest(t, r)
		if req["stream"] == true {
			_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"A token"}}]}` + "\n\n" +
				`data: {"choices":[{"delta":{},"finish_reason":"length"}]}` + "\n\n" +
				"data: [DONE]\n\n"))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"A token"},"finish_reason":"length"}]}`))
	}))
	defer server.Close()

	for _, extra := range [][]string{nil, {"--stream"}} {
		args := append([]string{"chat", "--max-tokens", "2", "--details"}, extra...)
		args = append(args, "what is a token?")
		out, err := runCmd(t, gatewayArgs(t, server.URL, args...)...)
		if err != nil {
			t.Fatalf("chat %v: %v", extra, err)
		}
		if out != "A token\nfinish_reason: length\n" {
			t.Fatalf("unexpected output for %v: %q", extra, out)
		}
	}

	out, err := runCmd(t, gatewayArgs(t, server.URL, "chat", "what is a token?")...)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != "A token\n" {
		t.Fatalf("finish reason printed without --details: %q", out)
	}
}

func TestChatCommandRejectsConflictingStreamFlags(t *testing.T) {
	_, err := runCmd(t, gatewayArgs(t, "http://127.0.0.1:1", "chat", "--stream", "--no-stream", "hi")...)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestImageCommand(t *testing.T) {
	imagePath := filepath.Join(t.TempDir(), "banner.png")
	if err := os.WriteFile(imagePath, []byte("abc"), 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeChatRequest(t, r)
		message := req["messages"].([]any)[0].(map[string]any)
		parts := message["content"].([]any)
		if len(parts) != 3 {
			t.Fatalf("unexpected parts: %v", parts)
		}
		text := parts[0].(map[string]any)
		if text["type"] != "text" || text["text"] != defaultImagePrompt {
			t.Fatalf("unexpected text part: %v", text)
		}
		inline := parts[1].(map[string]any)["image_url"].(map[string]any)
		if inline["url"] != "data:image/png;base64,YWJj" {
			t.Fatalf("unexpected inline image: %v", inline)
		}
		remote := parts[2].(map[string]any)["image_url"].(map[string]any)
		if remote["url"] != "https://example.com/elephant.jpg" {
			t.Fatalf("unexpected remote image: %v", remote)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"an elephant"}}]}`))
	}))
	defer server.Close()

	out, err := runCmd(t, gatewayArgs(t, server.URL, "image", "--file", imagePath, "--image-url", "https://example.com/elephant.jpg")...)
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if out != "an elephant\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestImageCommandRequiresImage(t *testing.T) {
	_, err := runCmd(t, gatewayArgs(t, "http://127.0.0.1:1", "image")...)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestAttachCommand(t *testing.T) {
	imagePath := filepath.Join(t.TempDir(), "banner.png")
	if err := os.WriteFile(imagePath, []byte("png"), 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/bucket":
			_, _ = w.Write([]byte(`{"bucket":"bucket-1"}`))
		case "/v1/files/bucket-1/banner.png":
			_, _ = w.Write([]byte(`{"name":"banner.png","bucket":"bucket-1"}`))
		default:
			req := decodeChatRequest(t, r)
			message := req["messages"].([]any)[0].(map[string]any)
			custom := message["custom_content"].(map[string]any)
			attachment := custom["attachments"].([]any)[0].(map[string]any)
			if attachment["url"] != "files/bucket-1/banner.png" || attachment["type"] != "image/png" {
				t.Fatalf("unexpected attachment: %v", attachment)
			}
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"a banner"}}]}`))
		}
	}))
	defer server.Close()

	out, err := runCmd(t, gatewayArgs(t, server.URL, "attach", "--file", imagePath)...)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if out != "a banner\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dial-go.toml")
	out, err := runCmd(t, "init", "--config", path)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Fatalf("unexpected output: %q", out)
	}
	if _, err := runCmd(t, "init", "--config", path); err == nil {
		t.Fatalf("expected error for existing config")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}
	cfg, err := config.LoadFrom(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DIAL != config.Default().DIAL {
		t.Fatalf("unexpected config: %+v", cfg.DIAL)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatalf("expected version output")
	}
}

func TestVersionCommandVerbose(t *testing.T) {
	out, err := runCmd(t, "version", "--verbose")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "dial-go ") || !strings.Contains(out, runtime.GOOS) {
		t.Fatalf("unexpected version output: %q", out)
	}
}
