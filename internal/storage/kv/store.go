// Package kv stores the finance state as one JSON document with the keys
// accounts, transactions and budgets. Writes replace the file atomically.
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage/memory"
)

// Store is a file backed key-value store.
type Store struct {
	mu     sync.RWMutex
	path   string
	state  memory.State
	last   []byte
	logger *applog.Logger
}

// Open loads the document at path, creating an empty one when it does not
// exist yet.
func Open(path string, logger *applog.Logger) (*Store, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{path: path, logger: logger.WithComponent(applog.ComponentStorage)}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.persist(memory.State{}); err != nil {
			return nil, fmt.Errorf("initialize data file: %w", err)
		}
		return s, nil
	}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path is the data file location.
func (s *Store) Path() string { return s.path }

// load re-reads the file. It reports false when the content is what this
// store wrote last.
func (s *Store) load() (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false, fmt.Errorf("read data file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && bytes.Equal(data, s.last) {
		return false, nil
	}

	var state memory.State
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &state); err != nil {
			return false, fmt.Errorf("parse data file: %w", err)
		}
	}
	s.state, s.last = state, data
	return true, nil
}

func (s *Store) LoadAccounts(context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Accounts), nil
}

func (s *Store) LoadTransactions(context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Transactions), nil
}

func (s *Store) LoadBudgets(context.Context) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Budgets), nil
}

// Apply computes the next document in memory and writes it once. When the
// write fails the previous file and state are kept.
func (s *Store) Apply(ctx context.Context, c core.Changes) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Apply(c)
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.state = next
	s.logger.DebugContext(ctx, "Data file written", "path", s.path,
		"accounts", len(next.Accounts), "transactions", len(next.Transactions))
	return nil
}

// GetTransaction returns a transaction by id.
func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.state.Transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
}

func (s *Store) Close() error { return nil }

func (s *Store) persist(state memory.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(state)
}

func (s *Store) persistLocked(state memory.State) error {
	if state.Accounts == nil {
		state.Accounts = []core.Account{}
	}
	if state.Transactions == nil {
		state.Transactions = []core.Transaction{}
	}
	if state.Budgets == nil {
		state.Budgets = []core.Budget{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}
	data = append(data, '\n')

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp data file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	s.last = data
	return nil
}

// Watch reloads the document whenever another process edits it and then
// calls onChange. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	// Atomic saves replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
		_ = watcher.Close()
	}()

	const debounceDelay = 100 * time.Millisecond
	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() { s.handleChange(ctx, onChange) })

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("File watcher error", applog.FieldError, err)
		}
	}
}

func (s *Store) handleChange(ctx context.Context, onChange func(context.Context) error) {
	changed, err := s.load()
	if err != nil {
		s.logger.Error("Failed to reload data file", applog.FieldError, err, "path", s.path)
		return
	}
	if !changed {
		return
	}
	s.logger.Info("Data file changed on disk, reloading", "path", s.path)
	if onChange == nil {
		return
	}
	if err := onChange(ctx); err != nil {
		s.logger.Error("Reload after file change failed", applog.FieldError, err)
	}
}
