/*
Package history remembers the fingerprints of items that were already
delivered, so a scheduled run never posts the same item twice.
*/
package history

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shanehull/cs2news/internal/logger"
)

// Retention policies.
const (
	PolicySingle = "single"
	PolicyAppend = "append"
)

// DefaultKeep bounds the append policy when no explicit limit is set.
const DefaultKeep = 200

// ErrInvalidPolicy is returned for an unknown retention policy name.
var ErrInvalidPolicy = errors.New("retention policy must be 'single' or 'append'")

// ErrUnreadable means an existing history could not be read in full.
var ErrUnreadable = errors.New("history file unreadable")

// Store is the dedup record shared by all sources of a run.
type Store interface {
	Contains(ctx context.Context, fp string) (bool, error)
	Record(ctx context.Context, fp string) error
	Close() error
}

// Retention describes how many fingerprints a store keeps.
type Retention struct {
	Policy string
	// Keep is the number of most recent fingerprints kept under the append
	// policy. Zero keeps everything.
	Keep int
}

// Validate checks the policy name and limit.
func (r Retention) Validate() error {
	switch r.Policy {
	case PolicySingle, PolicyAppend:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, r.Policy)
	}
	if r.Keep < 0 {
		return errors.New("retention keep must be non-negative")
	}
	return nil
}

func (r Retention) limit() int {
	if r.Policy == PolicySingle {
		return 1
	}
	return r.Keep
}

// FileStore keeps fingerprints in a plain text file, one per line, oldest
// first. The whole file is rewritten on Record.
type FileStore struct {
	mutex     sync.Mutex
	path      string
	retention Retention
	entries   []string
	index     map[string]struct{}
	log       logger.Logger
}

// OpenFile loads the store at path. A missing or empty file is an empty
// store. Any other read failure is returned, since starting from a partial
// history would re-deliver items and then overwrite the file.
func OpenFile(path string, retention Retention, log logger.Logger) (*FileStore, error) {
	if err := retention.Validate(); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory %s: %w", dir, err)
		}
	}

	s := &FileStore{
		path:      path,
		retention: retention,
		index:     make(map[string]struct{}),
		log:       log.With(logger.String("history_file", path)),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Info("history file not found, starting fresh")
			return nil
		}
		return fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close()

	// ReadString has no line length limit, unlike bufio.Scanner.
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if fp := strings.TrimSpace(line); fp != "" {
			s.add(fp)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrUnreadable, s.path, err)
		}
	}

	s.log.Info("loaded delivery history", logger.Int("fingerprints", len(s.entries)))
	return nil
}

// add appends fp, moving it to the newest position if already present.
func (s *FileStore) add(fp string) {
	if _, ok := s.index[fp]; ok {
		for i, e := range s.entries {
			if e == fp {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
				break
			}
		}
	}
	s.entries = append(s.entries, fp)
	s.index[fp] = struct{}{}
	s.trim()
}

func (s *FileStore) trim() {
	limit := s.retention.limit()
	if limit <= 0 || len(s.entries) <= limit {
		return
	}
	for _, old := range s.entries[:len(s.entries)-limit] {
		delete(s.index, old)
	}
	s.entries = append([]string(nil), s.entries[len(s.entries)-limit:]...)
}

func (s *FileStore) Contains(_ context.Context, fp string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, ok := s.index[fp]
	return ok, nil
}

// Record adds fp and persists the file before returning. The in-memory set
// is only updated once the write succeeded.
func (s *FileStore) Record(_ context.Context, fp string) error {
	fp = strings.TrimSpace(fp)
	if fp == "" {
		return errors.New("empty fingerprint")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	prevEntries := append([]string(nil), s.entries...)
	prevIndex := make(map[string]struct{}, len(s.index))
	for k := range s.index {
		prevIndex[k] = struct{}{}
	}

	s.add(fp)
	if err := s.save(); err != nil {
		s.entries, s.index = prevEntries, prevIndex
		return err
	}
	return nil
}

func (s *FileStore) save() error {
	var buf bytes.Buffer
	for _, fp := range s.entries {
		buf.WriteString(fp)
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history file %s: %w", s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync history file %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close history file %s: %w", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace history file %s: %w", s.path, err)
	}

	s.log.Debug("saved delivery history", logger.Int("fingerprints", len(s.entries)))
	return nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Close() error {
	return nil
}
