package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"selene/domain/entities"
	"selene/domain/interfaces"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type reportStore struct {
	mu          sync.Mutex
	dir         string
	historyPath string
}

// NewReportStore - creates a file report store under dir, defaulting to ~/.selene/reports
func NewReportStore(dir string) (interfaces.ReportStorage, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".selene", "reports")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	return &reportStore{
		dir:         dir,
		historyPath: filepath.Join(dir, "history.json"),
	}, nil
}

// SaveScreenshot - writes a screenshot as <name>.png
func (s *reportStore) SaveScreenshot(name string, png []byte) (string, error) {
	return s.write(name+".png", png)
}

// SavePageSource - writes page html as <name>.html
func (s *reportStore) SavePageSource(name string, html string) (string, error) {
	return s.write(name+".html", []byte(html))
}

func (s *reportStore) write(file string, data []byte) (string, error) {
	path := filepath.Join(s.dir, unsafeName.ReplaceAllString(file, "_"))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// SaveHistory - saves the newest entities.MaxHistory action results
func (s *reportStore) SaveHistory(history []entities.ActionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(entities.TrimHistory(history), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.historyPath, data, 0644)
}

// LoadHistory - loads executed action results
func (s *reportStore) LoadHistory() ([]entities.ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []entities.ActionResult{}, nil
		}
		return nil, err
	}

	var history []entities.ActionResult
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.historyPath, err)
	}

	return history, nil
}
