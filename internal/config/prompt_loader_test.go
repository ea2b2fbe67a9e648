package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writePromptFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write prompt file: %v", err)
	}
	return path
}

func TestLoadPromptsFromFiles(t *testing.T) {
	dir := t.TempDir()
	sysFile := writePromptFile(t, dir, "system.txt", "You extract resume facts.")
	userFile := writePromptFile(t, dir, "user.txt", "Extract from: %s current: %s")

	cfg := &Config{}
	cfg.AI.CustomPrompts.SystemPrompts.ExtractResumeFile = sysFile
	cfg.AI.CustomPrompts.UserPrompts.ExtractResumeFile = userFile

	if err := cfg.loadPromptsFromFiles(); err != nil {
		t.Fatalf("loadPromptsFromFiles returned error: %v", err)
	}

	if cfg.AI.CustomPrompts.SystemPrompts.ExtractResume != "You extract resume facts." {
		t.Errorf("system prompt = %q", cfg.AI.CustomPrompts.SystemPrompts.ExtractResume)
	}
	if cfg.AI.CustomPrompts.UserPrompts.ExtractResume != "Extract from: %s current: %s" {
		t.Errorf("user prompt = %q", cfg.AI.CustomPrompts.UserPrompts.ExtractResume)
	}
}

func TestInlinePromptWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	sysFile := writePromptFile(t, dir, "system.txt", "from file")

	cfg := &Config{}
	cfg.AI.CustomPrompts.SystemPrompts.ExtractResume = "inline"
	cfg.AI.CustomPrompts.SystemPrompts.ExtractResumeFile = sysFile

	if err := cfg.loadPromptsFromFiles(); err != nil {
		t.Fatalf("loadPromptsFromFiles returned error: %v", err)
	}
	if got := cfg.AI.CustomPrompts.SystemPrompts.ExtractResume; got != "inline" {
		t.Errorf("prompt = %q, want inline value preserved", got)
	}
}

func TestLoadPromptsRejectsMissingFile(t *testing.T) {
	cfg := &Config{}
	cfg.AI.CustomPrompts.SystemPrompts.GenerateFile = "/nonexistent/prompt.txt"

	if err := cfg.loadPromptsFromFiles(); err == nil {
		t.Error("expected error for missing prompt file")
	}
}

func TestLoadPromptsRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	empty := writePromptFile(t, dir, "empty.txt", "   \n")

	cfg := &Config{}
	cfg.AI.CustomPrompts.UserPrompts.GenerateResumeFile = empty

	if err := cfg.loadPromptsFromFiles(); err == nil {
		t.Error("expected error for empty prompt file")
	}
}

func TestReloadHandsOutSnapshotWithoutMutatingOriginal(t *testing.T) {
	dir := t.TempDir()
	sysFile := writePromptFile(t, dir, "system.txt", "first version")

	cfg := &Config{}
	cfg.AI.CustomPrompts.SystemPrompts.ExtractResumeFile = sysFile
	if err := cfg.loadPromptsFromFiles(); err != nil {
		t.Fatalf("initial resolve failed: %v", err)
	}

	writePromptFile(t, dir, "system.txt", "second version")

	var reloaded *Config
	w := NewPromptWatcher(cfg, 0, func(c *Config) { reloaded = c }, nil)
	w.reload()

	if reloaded == nil {
		t.Fatal("onReload was not invoked")
	}
	if reloaded == cfg {
		t.Error("onReload must receive a fresh snapshot, not the live config")
	}
	if got := reloaded.AI.CustomPrompts.SystemPrompts.ExtractResume; got != "second version" {
		t.Errorf("snapshot prompt = %q, want the re-read file contents", got)
	}
	// The live config keeps serving the old prompt to concurrent readers
	if got := cfg.AI.CustomPrompts.SystemPrompts.ExtractResume; got != "first version" {
		t.Errorf("original prompt = %q, reload must not mutate the live config", got)
	}
}

func TestPromptFilesDeduplicates(t *testing.T) {
	cfg := &Config{}
	cfg.AI.CustomPrompts.SystemPrompts.ExtractResumeFile = "/etc/cvstudio/sys.txt"
	cfg.AI.Resume.CustomPrompts.SystemPrompts.ExtractResumeFile = "/etc/cvstudio/sys.txt"
	cfg.AI.Generate.CustomPrompts.SystemPrompts.GenerateFile = "/etc/cvstudio/gen.txt"

	files := cfg.PromptFiles()
	if len(files) != 2 {
		t.Errorf("PromptFiles = %v, want 2 unique paths", files)
	}
}
