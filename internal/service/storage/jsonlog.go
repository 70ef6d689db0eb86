package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"facecam/internal/model"
)

// LogEntry is one element of the JSON observation log.
type LogEntry struct {
	Timestamp string    `json:"timestamp"`
	Age       model.Age `json:"age"`
	Gender    string    `json:"gender"`
	Race      string    `json:"race"`
}

func NewLogEntry(obs model.Observation) LogEntry {
	return LogEntry{
		Timestamp: obs.FormattedTimestamp(),
		Age:       obs.Age,
		Gender:    obs.Gender,
		Race:      obs.Race,
	}
}

// JSONLog is an append-only JSON array on disk.
// Every append rewrites the whole file so it always parses.
type JSONLog struct {
	path string
	mu   sync.Mutex
}

func NewJSONLog(path string) *JSONLog {
	return &JSONLog{path: path}
}

func (l *JSONLog) Path() string {
	return l.path
}

// Append loads the existing entries, adds obs and writes the full array back.
func (l *JSONLog) Append(obs model.Observation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensure(); err != nil {
		return err
	}
	entries, err := l.read()
	if err != nil {
		return err
	}
	entries = append(entries, NewLogEntry(obs))
	return l.write(entries)
}

func (l *JSONLog) ReadAll() ([]LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return []LogEntry{}, nil
	}
	return l.read()
}

// Clear leaves an empty array in place.
func (l *JSONLog) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return l.writeRaw([]byte("[]\n"))
}

func (l *JSONLog) ensure() error {
	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", l.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return l.writeRaw([]byte("[]\n"))
}

func (l *JSONLog) read() ([]LogEntry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.path, err)
	}
	entries := []LogEntry{}
	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", l.path, err)
	}
	return entries, nil
}

func (l *JSONLog) write(entries []LogEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode log: %w", err)
	}
	return l.writeRaw(append(data, '\n'))
}

// writeRaw replaces the file through a rename so readers never see a partial array.
func (l *JSONLog) writeRaw(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", l.path, err)
	}
	return nil
}
