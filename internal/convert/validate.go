// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"os"

	"github.com/pdiddy/pdf2txt/pkg/types"
)

// Configuration errors. They are returned before a batch starts and mean no
// item was attempted.
var (
	ErrNoInputs  = errors.New("no input files")
	ErrOutputDir = errors.New("output directory is not usable")
	ErrLocked    = errors.New("output directory is in use by another batch")
)

// Validate checks that job can run: it has at least one input and its output
// directory exists, is a directory, and accepts new files. The inputs
// themselves are not checked; an unreadable input is a per-item failure.
func Validate(job types.ConversionJob) error {
	if len(job.Inputs) == 0 {
		return ErrNoInputs
	}
	if job.OutputDir == "" {
		return fmt.Errorf("%w: no output directory given", ErrOutputDir)
	}

	info, err := os.Stat(job.OutputDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrOutputDir, job.OutputDir)
	}

	probe, err := os.CreateTemp(job.OutputDir, ".pdf2txt-probe-*")
	if err != nil {
		return fmt.Errorf("%w: %s is not writable: %w", ErrOutputDir, job.OutputDir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}
