// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert runs batches of PDF-to-text conversions.
//
// A batch runs on a single background goroutine that processes inputs one at
// a time in caller order. The caller learns about the batch only through
// events: one progress event per input, success or failure, followed by one
// completion event. Per-file failures are logged and counted; they never stop
// the batch.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/pdf2txt/internal/pdftext"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

// textExt is the extension of every output file.
const textExt = ".txt"

// pageSeparator goes between the texts of consecutive pages.
const pageSeparator = "\n"

// EventKind distinguishes progress events from the completion event.
type EventKind int

const (
	EventProgress EventKind = iota + 1
	EventCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Event is delivered to the caller as the batch advances.
type Event struct {
	Kind EventKind

	// Index is the 1-based position of the item just processed. Zero on
	// the completion event.
	Index int

	// Total is the number of items in the batch.
	Total int

	// BaseName is the input's file name without directory or extension.
	BaseName string

	// Result is the item's outcome. Set on progress events only.
	Result types.ConversionResult

	// Summary is the final tally. Set on the completion event only.
	Summary types.BatchSummary
}

// Converter converts batches of PDFs into text files using an Opener.
type Converter struct {
	opener    pdftext.Opener
	log       *logrus.Logger
	collision types.CollisionPolicy
	lock      bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used for per-item outcomes. The default is the
// logrus standard logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Converter) { c.log = l }
}

// WithCollisionPolicy selects what happens when two inputs of one batch share
// a base name. The default is types.CollisionOverwrite.
func WithCollisionPolicy(p types.CollisionPolicy) Option {
	return func(c *Converter) { c.collision = p }
}

// WithoutLock disables the advisory lock Start takes on the output directory.
func WithoutLock() Option {
	return func(c *Converter) { c.lock = false }
}

// New returns a Converter that reads PDFs through opener.
func New(opener pdftext.Opener, opts ...Option) *Converter {
	c := &Converter{
		opener:    opener,
		log:       logrus.StandardLogger(),
		collision: types.CollisionOverwrite,
		lock:      true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start validates job and launches the batch on a background goroutine. It
// returns configuration errors (ErrNoInputs, ErrOutputDir, ErrLocked) without
// emitting any event.
//
// The returned channel delivers one EventProgress per input in input order,
// then one EventCompleted, and is then closed. It is buffered for the whole
// batch, so the worker never waits on the reader. The output directory lock
// is released before the channel closes; callers that start another batch on
// the same directory should drain the channel first.
//
// Cancelling ctx does not interrupt the item in flight. Items not yet started
// are reported as failed with the context error.
func (c *Converter) Start(ctx context.Context, job types.ConversionJob) (<-chan Event, error) {
	job = job.Snapshot()
	if err := Validate(job); err != nil {
		return nil, err
	}

	var lock *dirLock
	if c.lock {
		l, err := lockDir(job.OutputDir)
		if err != nil {
			return nil, err
		}
		lock = l
	}

	events := make(chan Event, len(job.Inputs)+1)
	go func() {
		defer close(events)
		defer lock.release(c.log)
		c.Run(ctx, job, func(e Event) { events <- e })
	}()
	return events, nil
}

// Run converts every input of job in order on the calling goroutine, calling
// emit after each item and once more at the end. It does not validate job
// or lock the output directory; Start does both.
func (c *Converter) Run(ctx context.Context, job types.ConversionJob, emit func(Event)) types.BatchSummary {
	total := len(job.Inputs)
	names := newNamer(job.OutputDir, c.collision)
	summary := types.BatchSummary{Total: total}

	for i, input := range job.Inputs {
		base := BaseName(input)
		result := types.ConversionResult{
			Index:      i + 1,
			InputPath:  input,
			OutputPath: names.next(base),
		}
		fields := logrus.Fields{
			"index":  result.Index,
			"total":  total,
			"input":  input,
			"output": result.OutputPath,
		}

		var err error
		if err = ctx.Err(); err == nil {
			result.Pages, err = c.ConvertFile(ctx, input, result.OutputPath)
		}

		if err != nil {
			result.Outcome = types.OutcomeFailure
			result.Error = err.Error()
			result.Pages = 0
			c.log.WithError(err).WithFields(fields).Error("Failed to convert PDF")
		} else {
			result.Outcome = types.OutcomeSuccess
			summary.Succeeded++
			c.log.WithFields(fields).WithField("pages", result.Pages).Debug("Converted PDF")
		}

		emit(Event{
			Kind:     EventProgress,
			Index:    result.Index,
			Total:    total,
			BaseName: base,
			Result:   result,
		})
	}

	c.log.WithFields(logrus.Fields{
		"succeeded": summary.Succeeded,
		"total":     summary.Total,
	}).Info("Batch complete")
	emit(Event{Kind: EventCompleted, Total: total, Summary: summary})
	return summary
}

// ConvertFile reads every page of the PDF at inputPath and writes the joined
// text to outputPath, replacing any existing file. It returns the page count.
// On error nothing is written to outputPath.
func (c *Converter) ConvertFile(ctx context.Context, inputPath, outputPath string) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("converting %s: unexpected panic: %v", inputPath, r)
		}
	}()

	doc, err := c.opener.Open(ctx, inputPath)
	if err != nil {
		return 0, err
	}
	defer doc.Close()

	text, err := ExtractText(doc)
	if err != nil {
		return 0, fmt.Errorf("extracting text from %s: %w", inputPath, err)
	}

	if err := writeFileAtomic(outputPath, text); err != nil {
		return 0, err
	}
	return doc.NumPages(), nil
}

// ExtractText returns the text of every page of doc in order, with a newline
// between consecutive pages. A page without text contributes an empty string.
// Any page error fails the whole document.
func ExtractText(doc pdftext.Document) (string, error) {
	var b strings.Builder
	n := doc.NumPages()
	for i := 1; i <= n; i++ {
		text, err := doc.PageText(i)
		if err != nil {
			return "", err
		}
		if i > 1 {
			b.WriteString(pageSeparator)
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// BaseName returns the file name of path without its directory or extension:
// "a/b/report.pdf" becomes "report".
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// OutputPath returns the text file that input converts to inside outputDir.
func OutputPath(outputDir, input string) string {
	return filepath.Join(outputDir, BaseName(input)+textExt)
}

// writeFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never see a partially written output.
func writeFileAtomic(path, data string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	committed = true
	return nil
}
