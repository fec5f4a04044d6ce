// Package watch re-runs extraction whenever the source workbook changes.
// Editors often save by writing a temp file and renaming it over the
// original, so the watcher follows the parent directory and filters by name.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler is called with the workbook path after a debounced change.
type Handler func(ctx context.Context, path string) error

// Config holds the watcher configuration.
type Config struct {
	Files    []string `json:"files"`
	Debounce int      `json:"debounceMs"` // milliseconds to wait before processing
}

// Event records one processed change.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"` // "processed", "error"
	Error     string    `json:"error,omitempty"`
}

// Status summarizes what the watcher has processed so far.
type Status struct {
	Files      []string `json:"files"`
	EventCount int      `json:"eventCount"`
	Failed     int      `json:"failed"`
	Last       *Event   `json:"last,omitempty"`
}

// Watcher monitors workbook files and calls Handler when they change.
type Watcher struct {
	Config  Config
	Logger  *zap.Logger
	Handler Handler

	mu       sync.Mutex
	runMu    sync.Mutex
	events   []Event
	watcher  *fsnotify.Watcher
	targets  map[string]bool
	debounce map[string]*time.Timer
}

// New creates a new Watcher with the given configuration.
func New(config Config, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}
	if config.Debounce <= 0 {
		config.Debounce = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		Config:   config,
		Logger:   logger.Named("watch"),
		watcher:  fsw,
		targets:  make(map[string]bool),
		debounce: make(map[string]*time.Timer),
	}, nil
}

// Start watches the configured files. It blocks until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for _, file := range w.Config.Files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", file, err)
		}
		w.targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.watcher.Close()
			return fmt.Errorf("could not watch %s: %w", dir, err)
		}
	}

	w.Logger.Info("watching", zap.Strings("files", w.Config.Files), zap.Int("debounce_ms", w.Config.Debounce))

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("stopping watcher")
			w.stopTimers()
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	path, err := filepath.Abs(event.Name)
	if err != nil || !w.targets[path] {
		return
	}

	// Skip Office lock files
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".~") {
		return
	}

	w.mu.Lock()
	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	op := event.Op.String()
	w.debounce[path] = time.AfterFunc(time.Duration(w.Config.Debounce)*time.Millisecond, func() {
		w.process(ctx, path, op)
	})
	w.mu.Unlock()
}

// process runs the handler once at a time and records the outcome.
func (w *Watcher) process(ctx context.Context, path, operation string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		// Renamed away; the replacing write will trigger another event.
		return
	}

	w.runMu.Lock()
	defer w.runMu.Unlock()

	evt := Event{Time: time.Now(), Path: path, Operation: operation, Status: "processed"}
	if w.Handler != nil {
		if err := w.Handler(ctx, path); err != nil {
			evt.Status = "error"
			evt.Error = err.Error()
			w.Logger.Warn("processing failed", zap.String("path", path), zap.Error(err))
		} else {
			w.Logger.Info("processed", zap.String("path", path), zap.String("op", operation))
		}
	}

	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.debounce {
		timer.Stop()
		delete(w.debounce, path)
	}
}

// GetStatus returns the processed and failed counts and the latest event.
func (w *Watcher) GetStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := Status{Files: w.Config.Files, EventCount: len(w.events)}
	for _, evt := range w.events {
		if evt.Status == "error" {
			st.Failed++
		}
	}
	if n := len(w.events); n > 0 {
		last := w.events[n-1]
		st.Last = &last
	}
	return st
}

const pidFile = "watch.pid"

// WritePIDFile writes the current process ID to the PID file in dir.
func WritePIDFile(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, pidFile), []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

// ReadPIDFile reads the PID from the PID file.
func ReadPIDFile(dir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dir, pidFile))
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return pid, nil
}

// RemovePIDFile removes the PID file.
func RemovePIDFile(dir string) error {
	return os.Remove(filepath.Join(dir, pidFile))
}

// SaveConfig writes the watcher config to a JSON file in dir.
func SaveConfig(dir string, config Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "watch-config.json"), data, 0644)
}

// LoadConfig reads the watcher config from dir.
func LoadConfig(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, "watch-config.json"))
	if err != nil {
		return nil, err
	}
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("invalid watch config: %w", err)
	}
	return &config, nil
}

// DefaultStateDir returns where the watcher keeps its PID and config.
func DefaultStateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".chojson")
}
