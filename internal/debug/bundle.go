// Package debug writes a JSON snapshot of the local install for bug reports.
// Secrets never enter the bundle; only whether they are set.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

type Check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type Store struct {
	Backend       string         `json:"backend"`
	DataDir       string         `json:"data_dir"`
	SchemaVersion int            `json:"schema_version"`
	LatestVersion int            `json:"latest_version"`
	Counts        map[string]int `json:"counts,omitempty"`
}

type Bundle struct {
	GeneratedAt string         `json:"generated_at"`
	GOOS        string         `json:"goos"`
	GOARCH      string         `json:"goarch"`
	GoVersion   string         `json:"go_version"`
	Version     map[string]any `json:"version,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	Store       *Store         `json:"store,omitempty"`
	Checks      []Check        `json:"checks,omitempty"`
	Notes       []string       `json:"notes,omitempty"`
}

func NewBundle() Bundle {
	return Bundle{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339Nano),
		GOOS:        runtime.GOOS,
		GOARCH:      runtime.GOARCH,
		GoVersion:   runtime.Version(),
	}
}

// AddCheck records a passing check when err is nil and a failing one
// carrying err's message otherwise.
func (b *Bundle) AddCheck(name string, err error) {
	c := Check{Name: name, OK: err == nil}
	if err != nil {
		c.Message = err.Error()
	}
	b.Checks = append(b.Checks, c)
}

func (b Bundle) Healthy() bool {
	for _, c := range b.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

func WriteBundle(outputPath string, bundle Bundle) error {
	if outputPath == "" {
		return fmt.Errorf("write debug bundle: output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o700); err != nil {
		return fmt.Errorf("write debug bundle: create output directory: %w", err)
	}

	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("write debug bundle: marshal json: %w", err)
	}
	if err := os.WriteFile(outputPath, payload, 0o600); err != nil {
		return fmt.Errorf("write debug bundle: %w", err)
	}
	return nil
}
