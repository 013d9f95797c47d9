package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"shareVault/internal/model"
)

// JsonlSink appends event records to a JSONL file.
type JsonlSink struct {
	path string
	mu   sync.Mutex
}

func NewJsonlSink(path string) *JsonlSink {
	return &JsonlSink{path: path}
}

// Emit appends one event record as a JSON line.
func (s *JsonlSink) Emit(ev model.EventRecord) error {
	return s.append(func(write func([]byte) error) error {
		line, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		return write(line)
	})
}

// EmitBatch appends a batch of event records as JSON lines.
func (s *JsonlSink) EmitBatch(events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	return s.append(func(write func([]byte) error) error {
		for _, ev := range events {
			line, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}
			if err := write(line); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteOpError appends a rejected-operation record.
func (s *JsonlSink) WriteOpError(opErr model.OpError) error {
	return s.append(func(write func([]byte) error) error {
		line, err := json.Marshal(opErr)
		if err != nil {
			return fmt.Errorf("marshal op error: %w", err)
		}
		return write(line)
	})
}

func (s *JsonlSink) append(fill func(write func([]byte) error) error) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	write := func(line []byte) error {
		if _, err := file.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
		return nil
	}
	return fill(write)
}
