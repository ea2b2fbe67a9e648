package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// loadPromptsFromFiles resolves every *File reference into its inline
// prompt field, at the global level and per operation. Inline values set
// directly in config win over file references.
func (c *Config) loadPromptsFromFiles() error {
	sections := []*PromptConfig{
		&c.AI.CustomPrompts,
		&c.AI.Resume.CustomPrompts,
		&c.AI.CoverLetter.CustomPrompts,
		&c.AI.Generate.CustomPrompts,
	}
	for _, section := range sections {
		if err := section.resolveFiles(); err != nil {
			return err
		}
	}
	return nil
}

// resolveFiles loads each file-backed prompt into its inline field
func (p *PromptConfig) resolveFiles() error {
	refs := []struct {
		file   string
		target *string
	}{
		{p.SystemPrompts.ExtractResumeFile, &p.SystemPrompts.ExtractResume},
		{p.SystemPrompts.ExtractCoverLetterFile, &p.SystemPrompts.ExtractCoverLetter},
		{p.SystemPrompts.GenerateFile, &p.SystemPrompts.Generate},
		{p.UserPrompts.ExtractResumeFile, &p.UserPrompts.ExtractResume},
		{p.UserPrompts.ExtractCoverLetterFile, &p.UserPrompts.ExtractCoverLetter},
		{p.UserPrompts.GenerateResumeFile, &p.UserPrompts.GenerateResume},
		{p.UserPrompts.GenerateCoverLetterFile, &p.UserPrompts.GenerateCoverLetter},
	}

	for _, ref := range refs {
		if ref.file == "" || *ref.target != "" {
			continue
		}
		content, err := loadPromptFile(ref.file)
		if err != nil {
			return err
		}
		*ref.target = content
	}
	return nil
}

// loadPromptFile reads one prompt file, rejecting empty files so a
// truncated deploy cannot silently blank a prompt.
func loadPromptFile(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve prompt file path %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return "", fmt.Errorf("cannot read prompt file %s: %w", absPath, err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("prompt file %s is empty", absPath)
	}
	return content, nil
}

// PromptFiles lists every file-backed prompt path in the configuration,
// deduplicated. This is what the hot-reload watcher subscribes to.
func (c *Config) PromptFiles() []string {
	var files []string
	seen := make(map[string]bool)
	add := func(paths ...string) {
		for _, p := range paths {
			if p != "" && !seen[p] {
				seen[p] = true
				files = append(files, p)
			}
		}
	}

	for _, p := range []*PromptConfig{
		&c.AI.CustomPrompts,
		&c.AI.Resume.CustomPrompts,
		&c.AI.CoverLetter.CustomPrompts,
		&c.AI.Generate.CustomPrompts,
	} {
		add(p.SystemPrompts.ExtractResumeFile,
			p.SystemPrompts.ExtractCoverLetterFile,
			p.SystemPrompts.GenerateFile,
			p.UserPrompts.ExtractResumeFile,
			p.UserPrompts.ExtractCoverLetterFile,
			p.UserPrompts.GenerateResumeFile,
			p.UserPrompts.GenerateCoverLetterFile)
	}
	return files
}

// PromptWatcher watches file-backed prompts and re-resolves them on
// change, so prompt tuning in production does not need a restart.
type PromptWatcher struct {
	mu sync.Mutex

	config        *Config
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer
	stopChan      chan struct{}
	onReload      func(*Config)
	logf          func(format string, args ...any)
	running       bool
}

// NewPromptWatcher creates a watcher over the config's prompt files.
// onReload runs after a successful re-resolve with a fresh config snapshot;
// the original config is left untouched.
func NewPromptWatcher(cfg *Config, debounce time.Duration, onReload func(*Config), logf func(format string, args ...any)) *PromptWatcher {
	if debounce <= 0 {
		debounce = time.Second
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &PromptWatcher{
		config:        cfg,
		debounceDelay: debounce,
		stopChan:      make(chan struct{}),
		onReload:      onReload,
		logf:          logf,
	}
}

// Start begins watching. A config with no file-backed prompts is a no-op.
func (w *PromptWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("prompt watcher is already running")
	}

	files := w.config.PromptFiles()
	if len(files) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = watcher

	// Watch directories rather than files: editors and configmap mounts
	// replace files atomically, which drops per-file watches.
	dirs := make(map[string]bool)
	for _, f := range files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			w.logf("[CONFIG] Cannot watch prompt directory %s: %v", dir, err)
		}
	}

	w.running = true
	go w.watchLoop(files)
	w.logf("[CONFIG] Watching %d prompt file(s) for changes", len(files))
	return nil
}

// Stop terminates the watcher
func (w *PromptWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopChan)
	if w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false
}

func (w *PromptWatcher) watchLoop(files []string) {
	watched := make(map[string]bool, len(files))
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			watched[abs] = true
		}
		watched[f] = true
	}

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !watched[event.Name] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logf("[CONFIG] Prompt watcher error: %v", err)
		case <-w.stopChan:
			return
		}
	}
}

// scheduleReload debounces bursts of file events into one reload
func (w *PromptWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.reload)
}

func (w *PromptWatcher) reload() {
	// Re-resolve into a fresh snapshot. The config handed out at startup is
	// read concurrently by request handlers, so it is never written again;
	// onReload receives the snapshot and swaps it in under its own lock.
	// Prompt fields are plain strings, so a shallow copy isolates them.
	snapshot := *w.config
	cfg := &snapshot

	// Clear resolved values so the file contents win again
	for _, p := range []*PromptConfig{
		&cfg.AI.CustomPrompts,
		&cfg.AI.Resume.CustomPrompts,
		&cfg.AI.CoverLetter.CustomPrompts,
		&cfg.AI.Generate.CustomPrompts,
	} {
		p.clearFileBacked()
	}

	if err := cfg.loadPromptsFromFiles(); err != nil {
		w.logf("[CONFIG] Prompt reload failed, keeping previous prompts: %v", err)
		return
	}

	w.logf("[CONFIG] Prompts reloaded from files")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// clearFileBacked blanks every inline value that came from a file so the
// next resolve pass re-reads it
func (p *PromptConfig) clearFileBacked() {
	if p.SystemPrompts.ExtractResumeFile != "" {
		p.SystemPrompts.ExtractResume = ""
	}
	if p.SystemPrompts.ExtractCoverLetterFile != "" {
		p.SystemPrompts.ExtractCoverLetter = ""
	}
	if p.SystemPrompts.GenerateFile != "" {
		p.SystemPrompts.Generate = ""
	}
	if p.UserPrompts.ExtractResumeFile != "" {
		p.UserPrompts.ExtractResume = ""
	}
	if p.UserPrompts.ExtractCoverLetterFile != "" {
		p.UserPrompts.ExtractCoverLetter = ""
	}
	if p.UserPrompts.GenerateResumeFile != "" {
		p.UserPrompts.GenerateResume = ""
	}
	if p.UserPrompts.GenerateCoverLetterFile != "" {
		p.UserPrompts.GenerateCoverLetter = ""
	}
}
