// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Outcome records whether a single item of a batch converted.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ConversionJob is one batch: an ordered list of input PDFs and the directory
// that receives the text files. A job is consumed once and never mutated after
// conversion starts.
type ConversionJob struct {
	// Inputs are the PDF paths in the order the caller supplied them.
	// Duplicates are permitted.
	Inputs []string `json:"inputs" yaml:"inputs"`

	// OutputDir is an existing, writable directory. It is not created.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// Snapshot returns a copy of the job whose input slice no longer aliases the
// caller's.
func (j ConversionJob) Snapshot() ConversionJob {
	inputs := make([]string, len(j.Inputs))
	copy(inputs, j.Inputs)
	return ConversionJob{Inputs: inputs, OutputDir: j.OutputDir}
}

// ConversionResult describes what happened to one item.
type ConversionResult struct {
	// Index is the 1-based position of the item in the job.
	Index int `json:"index" yaml:"index"`

	// InputPath is the PDF as supplied by the caller.
	InputPath string `json:"input_path" yaml:"input_path"`

	// OutputPath is the text file derived from InputPath. It is set even when
	// the item failed and nothing was written there.
	OutputPath string `json:"output_path" yaml:"output_path"`

	Outcome Outcome `json:"outcome" yaml:"outcome"`

	// Error holds the failure cause; empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Pages is the number of pages read; zero on failure.
	Pages int `json:"pages,omitempty" yaml:"pages,omitempty"`
}

// Succeeded reports whether the item converted.
func (r ConversionResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// BatchSummary is the tally reported when a batch completes.
type BatchSummary struct {
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Total     int `json:"total" yaml:"total"`
}

// Failed returns the number of items that did not convert.
func (s BatchSummary) Failed() int {
	return s.Total - s.Succeeded
}

// HasFailures reports whether any item failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed() > 0
}
