package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dial-go/internal/chat"
)

func TestReadInputFromArgs(t *testing.T) {
	input, err := readInput([]string{"hello", "world"}, "", strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input != "hello world" {
		t.Fatalf("unexpected input: %q", input)
	}
}

func TestReadInputFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.txt")
	if err := os.WriteFile(path, []byte("file input\n"), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	input, err := readInput(nil, path, strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input != "file input" {
		t.Fatalf("unexpected input: %q", input)
	}
}

func TestReadInputFromStdin(t *testing.T) {
	input, err := readInput(nil, "-", strings.NewReader("stdin input\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input != "stdin input" {
		t.Fatalf("unexpected input: %q", input)
	}
}

func TestReadInputMissing(t *testing.T) {
	_, err := readInput(nil, "", strings.NewReader(""))
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestReadInputConflict(t *testing.T) {
	_, err := readInput([]string{"hello"}, "input.txt", strings.NewReader(""))
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestBuildMessagesWithSystem(t *testing.T) {
	messages := buildMessages("be brief", "hello")
	if len(messages) != 2 {
		t.Fatalf("unexpected message count: %d", len(messages))
	}
	if messages[0].Role != chat.System || messages[0].Content != "be brief" {
		t.Fatalf("unexpected system message: %+v", messages[0])
	}
	if messages[1].Role != chat.User || messages[1].Content != "hello" {
		t.Fatalf("unexpected user message: %+v", messages[1])
	}
}

func TestBuildMessagesWithoutSystem(t *testing.T) {
	messages := buildMessages("  ", "hello")
	if len(messages) != 1 || messages[0].Role != chat.User {
		t.Fatalf("unexpected messages: %+v", messages)
	}
}
