// Package prefs holds the live user preferences consulted on every capture
// and retention decision. The backing YAML file is hot-reloaded, so edits
// from another process (or an editor) apply without a restart.
package prefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Prefs is one immutable snapshot of the user preferences.
type Prefs struct {
	LoggingEnabled   bool
	IgnoreSystemApps bool
	AutoDeleteDays   int
}

// Default returns the documented fallback values, also used when the file
// is missing or unreadable.
func Default() Prefs {
	return Prefs{
		LoggingEnabled:   true,
		IgnoreSystemApps: false,
		AutoDeleteDays:   30,
	}
}

// filePrefs is the on-disk YAML shape. Pointer fields distinguish "unset"
// from an explicit false/zero so defaults apply per key.
type filePrefs struct {
	LoggingEnabled   *bool `yaml:"logging_enabled"`
	IgnoreSystemApps *bool `yaml:"ignore_system_apps"`
	AutoDeleteDays   *int  `yaml:"auto_delete_days"`
}

// Manager owns the preferences file: reads with defaults, atomic writes,
// hot reload, and change notification.
type Manager struct {
	path string
	log  zerolog.Logger

	mu  sync.RWMutex
	cur Prefs

	// subsMu guards the subscriber list and ensures we never send on a
	// channel that is concurrently being closed in Unsubscribe.
	subsMu sync.Mutex
	subs   []chan Prefs
}

// NewManager creates a Manager for the given file path and loads the
// current values. A missing or unreadable file is not an error: the
// defaults apply until a first write.
func NewManager(path string, log zerolog.Logger) *Manager {
	m := &Manager{path: path, log: log, cur: Default()}
	m.reload()
	return m
}

// Get returns the latest committed snapshot. It is cheap and safe to call
// on every capture decision.
func (m *Manager) Get() Prefs {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// SetLoggingEnabled persists the logging toggle.
func (m *Manager) SetLoggingEnabled(v bool) error {
	return m.update(func(p *Prefs) { p.LoggingEnabled = v })
}

// SetIgnoreSystemApps persists the system-app filter toggle.
func (m *Manager) SetIgnoreSystemApps(v bool) error {
	return m.update(func(p *Prefs) { p.IgnoreSystemApps = v })
}

// SetAutoDeleteDays persists the retention age in days. Values <= 0
// disable retention.
func (m *Manager) SetAutoDeleteDays(days int) error {
	return m.update(func(p *Prefs) { p.AutoDeleteDays = days })
}

// update applies a mutation to the current snapshot, writes the file
// atomically, and publishes the new value.
func (m *Manager) update(mutate func(*Prefs)) error {
	m.mu.Lock()
	next := m.cur
	mutate(&next)
	if err := m.writeFile(next); err != nil {
		m.mu.Unlock()
		return err
	}
	m.cur = next
	m.mu.Unlock()

	m.publish(next)
	return nil
}

// writeFile persists the snapshot via temp-file + rename so a crashed
// write never leaves a truncated preferences file.
func (m *Manager) writeFile(p Prefs) error {
	fp := filePrefs{
		LoggingEnabled:   &p.LoggingEnabled,
		IgnoreSystemApps: &p.IgnoreSystemApps,
		AutoDeleteDays:   &p.AutoDeleteDays,
	}
	data, err := yaml.Marshal(fp)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp prefs file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close prefs file: %w", err)
	}

	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename prefs file: %w", err)
	}
	return nil
}

// reload re-reads the file and commits + publishes when values changed.
// Read or parse failures fall back to the last committed snapshot; a
// missing file falls back to defaults.
func (m *Manager) reload() {
	loaded, err := readFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.log.Warn().Err(err).Str("path", m.path).Msg("prefs reload failed, keeping last values")
			return
		}
		loaded = Default()
	}

	m.mu.Lock()
	changed := loaded != m.cur
	m.cur = loaded
	m.mu.Unlock()

	if changed {
		m.publish(loaded)
	}
}

// readFile parses the prefs file, applying defaults for unset keys.
func readFile(path string) (Prefs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), err
	}

	var fp filePrefs
	if err := yaml.Unmarshal(data, &fp); err != nil {
		return Default(), fmt.Errorf("parse prefs: %w", err)
	}

	p := Default()
	if fp.LoggingEnabled != nil {
		p.LoggingEnabled = *fp.LoggingEnabled
	}
	if fp.IgnoreSystemApps != nil {
		p.IgnoreSystemApps = *fp.IgnoreSystemApps
	}
	if fp.AutoDeleteDays != nil {
		p.AutoDeleteDays = *fp.AutoDeleteDays
	}
	return p, nil
}

// Watch reloads the preferences whenever the file changes on disk, until
// ctx is cancelled. The watch is on the containing directory, so
// rename-style atomic writes are seen too.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.Close()
		return fmt.Errorf("create prefs directory: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					m.reload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				m.log.Warn().Err(err).Msg("prefs watcher error")
			}
		}
	}()

	return nil
}

// Subscribe returns a channel receiving every committed snapshot, in write
// order, until Unsubscribe. A slow subscriber misses intermediate values
// rather than blocking writers.
func (m *Manager) Subscribe(buffer int) chan Prefs {
	ch := make(chan Prefs, buffer)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (m *Manager) Unsubscribe(ch chan Prefs) {
	if ch == nil {
		return
	}
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for i, s := range m.subs {
		if s == ch {
			last := len(m.subs) - 1
			m.subs[i] = m.subs[last]
			m.subs[last] = nil
			m.subs = m.subs[:last]
			close(ch)
			return
		}
	}
}

func (m *Manager) publish(p Prefs) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- p:
		default:
		}
	}
}
