// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Backend identifies the library or tool used to read PDF text.
type Backend string

const (
	// BackendNative reads PDFs in-process with github.com/ledongthuc/pdf.
	BackendNative Backend = "native"
	// BackendPdfcpu reads page content streams with pdfcpu.
	BackendPdfcpu Backend = "pdfcpu"
	// BackendPdftotext pipes each PDF through a poppler container.
	BackendPdftotext Backend = "pdftotext"
)

// CollisionPolicy decides what happens when two inputs in one batch share a
// base name.
type CollisionPolicy string

const (
	// CollisionOverwrite lets the later item replace the earlier output.
	CollisionOverwrite CollisionPolicy = "overwrite"
	// CollisionSuffix appends -1, -2, ... to later outputs with a used name.
	CollisionSuffix CollisionPolicy = "suffix"
)

// ContainerConfig holds settings for the container-backed pdftotext backend.
type ContainerConfig struct {
	// Image is the container image whose entrypoint is pdftotext.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// Args are passed after the image name. The PDF arrives on stdin and the
	// text is read from stdout.
	Args []string `json:"args" yaml:"args" mapstructure:"args"`
}

// ConversionConfig holds settings for a conversion run.
type ConversionConfig struct {
	// OutputDir receives the .txt files.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Backend selects the PDF reader: native, pdfcpu, or pdftotext.
	Backend Backend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Collision selects the same-batch name collision policy.
	Collision CollisionPolicy `json:"collision" yaml:"collision" mapstructure:"collision"`

	// ReportPath, when set, is where the YAML batch report is written.
	ReportPath string `json:"report,omitempty" yaml:"report,omitempty" mapstructure:"report"`

	// HistoryPath, when set, is the SQLite database that records batches.
	HistoryPath string `json:"history,omitempty" yaml:"history,omitempty" mapstructure:"history"`

	Container ContainerConfig `json:"container" yaml:"container" mapstructure:"container"`
}
