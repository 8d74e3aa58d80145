package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"honeypotScope/internal/model"
)

// JsonlStorage appends probe reports to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutReports appends reports as JSON lines.
func (s *JsonlStorage) PutReports(reports []model.ProbeReport) error {
	if len(reports) == 0 {
		return nil
	}

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
		return fmt.Errorf("open report file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, report := range reports {
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("write report %s: %w", report.Pool.ID, err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush reports: %w", err)
	}
	return nil
}
