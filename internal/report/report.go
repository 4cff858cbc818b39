// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report reads and writes the YAML files that surround a batch: the
// input list a batch can be started from, and the report written after it.
package report

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf2txt/pkg/types"
)

// Report is the on-disk record of one finished batch.
type Report struct {
	Job     JobInfo                  `yaml:"job"`
	Results []types.ConversionResult `yaml:"results"`
	Summary Summary                  `yaml:"summary"`
}

// JobInfo stores the job and the settings it ran with.
type JobInfo struct {
	ID        string   `yaml:"id,omitempty"`
	Inputs    []string `yaml:"inputs"`
	OutputDir string   `yaml:"output_dir"`
	Backend   string   `yaml:"backend"`
	Collision string   `yaml:"collision"`
}

// Summary stores the tally and timing of the batch.
type Summary struct {
	Succeeded  int       `yaml:"succeeded"`
	Failed     int       `yaml:"failed"`
	Total      int       `yaml:"total"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
}

// New assembles a Report from a finished batch.
func New(id string, job types.ConversionJob, cfg types.ConversionConfig, results []types.ConversionResult, summary types.BatchSummary, started, finished time.Time) Report {
	return Report{
		Job: JobInfo{
			ID:        id,
			Inputs:    job.Inputs,
			OutputDir: job.OutputDir,
			Backend:   string(cfg.Backend),
			Collision: string(cfg.Collision),
		},
		Results: results,
		Summary: Summary{
			Succeeded:  summary.Succeeded,
			Failed:     summary.Failed(),
			Total:      summary.Total,
			StartedAt:  started.UTC(),
			FinishedAt: finished.UTC(),
		},
	}
}

// Write saves r to path as YAML.
func Write(path string, r Report) error {
	data, err := yaml.Marshal(&r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

// Read loads a report written by Write.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &r, nil
}

// ReadInputList loads the input paths listed in path. The file is either a
// YAML sequence of paths or plain text with one path per line, where blank
// lines and lines starting with # are skipped. Relative paths are resolved
// against the directory holding the list. Order is preserved.
func ReadInputList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input list: %w", err)
	}

	var entries []string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		entries = nil
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			entries = append(entries, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("parsing input list %s: %w", path, err)
		}
	}

	base := filepath.Dir(path)
	inputs := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !filepath.IsAbs(e) {
			e = filepath.Join(base, e)
		}
		inputs = append(inputs, e)
	}
	return inputs, nil
}
