// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf2txt/internal/pdftext"
	"github.com/pdiddy/pdf2txt/internal/pdftext/pdftest"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

// fakeDoc is an in-memory pdftext.Document.
type fakeDoc struct {
	pages   []string
	pageErr map[int]error
}

func (d *fakeDoc) NumPages() int { return len(d.pages) }

func (d *fakeDoc) PageText(n int) (string, error) {
	if err := d.pageErr[n]; err != nil {
		return "", err
	}
	return d.pages[n-1], nil
}

func (d *fakeDoc) Close() error { return nil }

// fakeOpener serves fakeDocs by path. Unknown paths fail to open.
type fakeOpener struct {
	docs  map[string]*fakeDoc
	opens []string
	// onOpen, if set, runs before each open.
	onOpen func(path string)
}

func (f *fakeOpener) Open(_ context.Context, path string) (pdftext.Document, error) {
	f.opens = append(f.opens, path)
	if f.onOpen != nil {
		f.onOpen(path)
	}
	doc, ok := f.docs[path]
	if !ok {
		return nil, fmt.Errorf("opening PDF %s: not a PDF file", path)
	}
	return doc, nil
}

// panicOpener panics the way a parsing library does on a malformed file.
type panicOpener struct{}

func (panicOpener) Open(context.Context, string) (pdftext.Document, error) {
	panic("malformed xref table")
}

func quietLogger() *logrus.Logger {
	l, _ := logtest.NewNullLogger()
	return l
}

// drain collects the events of a batch and checks the ordering contract:
// progress indices run 1..N with no gaps, and exactly one completion arrives
// after them, just before the channel closes.
func drain(t *testing.T, events <-chan Event) ([]Event, types.BatchSummary) {
	t.Helper()
	var (
		progress  []Event
		completed []Event
	)
	for e := range events {
		switch e.Kind {
		case EventProgress:
			require.Empty(t, completed, "progress event after completion")
			require.Equal(t, len(progress)+1, e.Index, "progress index out of order")
			progress = append(progress, e)
		case EventCompleted:
			completed = append(completed, e)
		default:
			t.Fatalf("unexpected event kind %v", e.Kind)
		}
	}
	require.Len(t, completed, 1, "want exactly one completion event")
	for _, p := range progress {
		require.Equal(t, len(progress), p.Total)
	}
	return progress, completed[0].Summary
}

func start(t *testing.T, c *Converter, inputs []string, outDir string) ([]Event, types.BatchSummary) {
	t.Helper()
	events, err := c.Start(context.Background(), types.ConversionJob{Inputs: inputs, OutputDir: outDir})
	require.NoError(t, err)
	return drain(t, events)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestStart_Scenario(t *testing.T) {
	out := t.TempDir()
	opener := &fakeOpener{docs: map[string]*fakeDoc{
		"/in/a.pdf": {pages: []string{"Hello", "World"}},
	}}
	c := New(opener, WithLogger(quietLogger()))

	progress, summary := start(t, c, []string{"/in/a.pdf", "/in/b.pdf"}, out)

	require.Len(t, progress, 2)
	assert.Equal(t, 1, progress[0].Index)
	assert.Equal(t, 2, progress[0].Total)
	assert.Equal(t, "a", progress[0].BaseName)
	assert.True(t, progress[0].Result.Succeeded())
	assert.Equal(t, 2, progress[0].Result.Pages)

	assert.Equal(t, 2, progress[1].Index)
	assert.Equal(t, "b", progress[1].BaseName)
	assert.Equal(t, types.OutcomeFailure, progress[1].Result.Outcome)
	assert.Contains(t, progress[1].Result.Error, "/in/b.pdf")

	assert.Equal(t, types.BatchSummary{Succeeded: 1, Total: 2}, summary)
	assert.Equal(t, "Hello\nWorld", readFile(t, filepath.Join(out, "a.txt")))
	assert.NoFileExists(t, filepath.Join(out, "b.txt"))
}

func TestStart_ScenarioWithRealPDFs(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	a := pdftest.Write(t, filepath.Join(in, "a.pdf"), "Hello", "World")
	b := filepath.Join(in, "b.pdf")
	require.NoError(t, os.WriteFile(b, []byte("%PDF-1.4 truncated"), 0o644))

	progress, summary := start(t, New(pdftext.NativeOpener{}, WithLogger(quietLogger())), []string{a, b}, out)

	require.Len(t, progress, 2)
	assert.Equal(t, []string{"a", "b"}, []string{progress[0].BaseName, progress[1].BaseName})
	assert.Equal(t, types.BatchSummary{Succeeded: 1, Total: 2}, summary)
	assert.Equal(t, "Hello\nWorld", readFile(t, filepath.Join(out, "a.txt")))
	assert.NoFileExists(t, filepath.Join(out, "b.txt"))
}

func TestStart_OrderAndIsolation(t *testing.T) {
	out := t.TempDir()
	docs := make(map[string]*fakeDoc)
	var inputs []string
	failing := map[int]bool{2: true, 5: true, 6: true, 10: true}
	for i := 1; i <= 12; i++ {
		p := fmt.Sprintf("/in/doc%02d.pdf", i)
		inputs = append(inputs, p)
		if !failing[i] {
			docs[p] = &fakeDoc{pages: []string{fmt.Sprintf("text %d", i)}}
		}
	}
	opener := &fakeOpener{docs: docs}

	progress, summary := start(t, New(opener, WithLogger(quietLogger())), inputs, out)

	require.Len(t, progress, len(inputs))
	for i, e := range progress {
		assert.Equal(t, i+1, e.Index)
		assert.Equal(t, BaseName(inputs[i]), e.BaseName)
		assert.Equal(t, !failing[i+1], e.Result.Succeeded(), "item %d", i+1)
	}
	assert.Equal(t, inputs, opener.opens, "inputs must be opened in caller order")
	assert.Equal(t, len(inputs)-len(failing), summary.Succeeded)
	assert.Equal(t, len(failing), summary.Failed())
	assert.True(t, summary.HasFailures())

	for i := 1; i <= 12; i++ {
		path := filepath.Join(out, fmt.Sprintf("doc%02d.txt", i))
		if failing[i] {
			assert.NoFileExists(t, path)
		} else {
			assert.Equal(t, fmt.Sprintf("text %d", i), readFile(t, path))
		}
	}
}

func TestBaseNameAndOutputPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"report.pdf", "report"},
		{"a/b/report.pdf", "report"},
		{"/abs/path/Report.PDF", "Report"},
		{"archive.tar.pdf", "archive.tar"},
		{"noext", "noext"},
		{"dir.v2/file", "file"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseName(tt.input))
			assert.Equal(t, filepath.Join("D", tt.want+".txt"), OutputPath("D", tt.input))
		})
	}
}

func TestStart_DirectoryComponentDiscarded(t *testing.T) {
	out := t.TempDir()
	opener := &fakeOpener{docs: map[string]*fakeDoc{
		"a/b/report.pdf": {pages: []string{"nested"}},
	}}

	progress, _ := start(t, New(opener, WithLogger(quietLogger())), []string{"a/b/report.pdf"}, out)

	assert.Equal(t, filepath.Join(out, "report.txt"), progress[0].Result.OutputPath)
	assert.Equal(t, "nested", readFile(t, filepath.Join(out, "report.txt")))
}

func TestStart_EmptyPages(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  string
	}{
		{"single empty page", []string{""}, ""},
		{"three empty pages", []string{"", "", ""}, "\n\n"},
		{"empty page between text", []string{"one", "", "three"}, "one\n\nthree"},
		{"no trimming", []string{"  padded \n", "\n"}, "  padded \n\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := t.TempDir()
			opener := &fakeOpener{docs: map[string]*fakeDoc{"scan.pdf": {pages: tt.pages}}}

			_, summary := start(t, New(opener, WithLogger(quietLogger())), []string{"scan.pdf"}, out)

			assert.Equal(t, 1, summary.Succeeded)
			assert.Equal(t, tt.want, readFile(t, filepath.Join(out, "scan.txt")))
		})
	}
}

func TestStart_Idempotent(t *testing.T) {
	out := t.TempDir()
	opener := &fakeOpener{docs: map[string]*fakeDoc{
		"x.pdf": {pages: []string{"first", "second"}},
		"y.pdf": {pages: []string{"why"}},
	}}
	c := New(opener, WithLogger(quietLogger()))
	inputs := []string{"x.pdf", "bad.pdf", "y.pdf"}

	_, first := start(t, c, inputs, out)
	x1 := readFile(t, filepath.Join(out, "x.txt"))
	y1 := readFile(t, filepath.Join(out, "y.txt"))

	_, second := start(t, c, inputs, out)

	assert.Equal(t, first, second)
	assert.Equal(t, x1, readFile(t, filepath.Join(out, "x.txt")))
	assert.Equal(t, y1, readFile(t, filepath.Join(out, "y.txt")))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"x.txt", "y.txt"}, names, "no temporary, probe, or lock files left behind")
}

func TestStart_PageFailureWritesNothing(t *testing.T) {
	out := t.TempDir()
	existing := filepath.Join(out, "doc.txt")
	require.NoError(t, os.WriteFile(existing, []byte("from an earlier run"), 0o644))

	opener := &fakeOpener{docs: map[string]*fakeDoc{
		"doc.pdf": {
			pages:   []string{"page one", "page two", "page three"},
			pageErr: map[int]error{3: errors.New("invalid font descriptor")},
		},
	}}

	progress, summary := start(t, New(opener, WithLogger(quietLogger())), []string{"doc.pdf"}, out)

	assert.Equal(t, 0, summary.Succeeded)
	assert.Contains(t, progress[0].Result.Error, "invalid font descriptor")
	assert.Zero(t, progress[0].Result.Pages)
	assert.Equal(t, "from an earlier run", readFile(t, existing))
}

func TestStart_WriteFailureIsPerItem(t *testing.T) {
	out := t.TempDir()
	// A directory where the output file should go makes the rename fail.
	require.NoError(t, os.Mkdir(filepath.Join(out, "blocked.txt"), 0o755))

	opener := &fakeOpener{docs: map[string]*fakeDoc{
		"blocked.pdf": {pages: []string{"cannot land"}},
		"fine.pdf":    {pages: []string{"lands"}},
	}}

	progress, summary := start(t, New(opener, WithLogger(quietLogger())), []string{"blocked.pdf", "fine.pdf"}, out)

	assert.Equal(t, types.BatchSummary{Succeeded: 1, Total: 2}, summary)
	assert.False(t, progress[0].Result.Succeeded())
	assert.Contains(t, progress[0].Result.Error, "blocked.txt")
	assert.Equal(t, "lands", readFile(t, filepath.Join(out, "fine.txt")))

	matches, err := filepath.Glob(filepath.Join(out, ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temporary file must be removed after a failed write")
}

func TestStart_CollisionPolicies(t *testing.T) {
	docs := map[string]*fakeDoc{
		"x/report.pdf": {pages: []string{"one"}},
		"y/report.pdf": {pages: []string{"two"}},
		"z/report.pdf": {pages: []string{"three"}},
		"report-1.pdf": {pages: []string{"literal"}},
	}

	t.Run("overwrite keeps the last", func(t *testing.T) {
		out := t.TempDir()
		c := New(&fakeOpener{docs: docs}, WithLogger(quietLogger()))

		progress, summary := start(t, c, []string{"x/report.pdf", "y/report.pdf"}, out)

		assert.Equal(t, 2, summary.Succeeded)
		assert.Equal(t, progress[0].Result.OutputPath, progress[1].Result.OutputPath)
		assert.Equal(t, "two", readFile(t, filepath.Join(out, "report.txt")))
	})

	t.Run("suffix keeps all", func(t *testing.T) {
		out := t.TempDir()
		c := New(&fakeOpener{docs: docs}, WithLogger(quietLogger()), WithCollisionPolicy(types.CollisionSuffix))

		progress, summary := start(t, c, []string{"report-1.pdf", "x/report.pdf", "y/report.pdf", "z/report.pdf"}, out)

		assert.Equal(t, 4, summary.Succeeded)
		for _, e := range progress[1:] {
			assert.Equal(t, "report", e.BaseName)
		}
		assert.Equal(t, "literal", readFile(t, filepath.Join(out, "report-1.txt")))
		assert.Equal(t, "one", readFile(t, filepath.Join(out, "report.txt")))
		assert.Equal(t, "two", readFile(t, filepath.Join(out, "report-2.txt")))
		assert.Equal(t, "three", readFile(t, filepath.Join(out, "report-3.txt")))
	})
}

func TestStart_ConfigurationErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		name string
		job  types.ConversionJob
		want error
	}{
		{"no inputs", types.ConversionJob{OutputDir: dir}, ErrNoInputs},
		{"no output dir", types.ConversionJob{Inputs: []string{"a.pdf"}}, ErrOutputDir},
		{"missing output dir", types.ConversionJob{Inputs: []string{"a.pdf"}, OutputDir: filepath.Join(dir, "absent")}, ErrOutputDir},
		{"output is a file", types.ConversionJob{Inputs: []string{"a.pdf"}, OutputDir: file}, ErrOutputDir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &fakeOpener{}
			events, err := New(opener, WithLogger(quietLogger())).Start(context.Background(), tt.job)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, events)
			assert.Empty(t, opener.opens, "no item may be attempted")
		})
	}

	t.Run("missing dir keeps the os error", func(t *testing.T) {
		err := Validate(types.ConversionJob{Inputs: []string{"a.pdf"}, OutputDir: filepath.Join(dir, "absent")})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestValidate_ReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	err := Validate(types.ConversionJob{Inputs: []string{"a.pdf"}, OutputDir: dir})
	require.ErrorIs(t, err, ErrOutputDir)
	assert.Contains(t, err.Error(), "not writable")
}

func TestStart_LockedOutputDir(t *testing.T) {
	out := t.TempDir()
	held, err := lockDir(out)
	require.NoError(t, err)

	c := New(&fakeOpener{}, WithLogger(quietLogger()))
	job := types.ConversionJob{Inputs: []string{"a.pdf"}, OutputDir: out}

	_, err = c.Start(context.Background(), job)
	require.ErrorIs(t, err, ErrLocked)

	held.release(quietLogger())
	assert.NoFileExists(t, filepath.Join(out, LockFile))

	events, err := c.Start(context.Background(), job)
	require.NoError(t, err)
	drain(t, events)
	assert.NoFileExists(t, filepath.Join(out, LockFile), "lock file removed when the batch ends")

	held, err = lockDir(out)
	require.NoError(t, err)
	defer held.release(quietLogger())
	events, err = New(&fakeOpener{}, WithoutLock(), WithLogger(quietLogger())).Start(context.Background(), job)
	require.NoError(t, err, "an unlocked converter ignores the lock")
	drain(t, events)
}

func TestStart_SnapshotsInputs(t *testing.T) {
	out := t.TempDir()
	block := make(chan struct{})
	opener := &fakeOpener{
		docs:   map[string]*fakeDoc{"one.pdf": {pages: []string{"1"}}, "two.pdf": {pages: []string{"2"}}},
		onOpen: func(string) { <-block },
	}
	inputs := []string{"one.pdf", "two.pdf"}

	events, err := New(opener, WithLogger(quietLogger())).Start(context.Background(), types.ConversionJob{Inputs: inputs, OutputDir: out})
	require.NoError(t, err)
	inputs[1] = "mutated.pdf"
	close(block)

	progress, summary := drain(t, events)
	assert.Equal(t, "two", progress[1].BaseName)
	assert.Equal(t, 2, summary.Succeeded)
}

func TestStart_Cancellation(t *testing.T) {
	t.Run("cancelled before start", func(t *testing.T) {
		out := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		opener := &fakeOpener{docs: map[string]*fakeDoc{"a.pdf": {pages: []string{"a"}}}}

		events, err := New(opener, WithLogger(quietLogger())).Start(ctx, types.ConversionJob{Inputs: []string{"a.pdf", "b.pdf"}, OutputDir: out})
		require.NoError(t, err)
		progress, summary := drain(t, events)

		require.Len(t, progress, 2)
		for _, e := range progress {
			assert.Contains(t, e.Result.Error, context.Canceled.Error())
		}
		assert.Equal(t, 0, summary.Succeeded)
		assert.Empty(t, opener.opens)
	})

	t.Run("cancelled between items", func(t *testing.T) {
		out := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		opener := &fakeOpener{
			docs:   map[string]*fakeDoc{"a.pdf": {pages: []string{"a"}}, "b.pdf": {pages: []string{"b"}}},
			onOpen: func(string) { cancel() },
		}

		events, err := New(opener, WithLogger(quietLogger())).Start(ctx, types.ConversionJob{Inputs: []string{"a.pdf", "b.pdf", "c.pdf"}, OutputDir: out})
		require.NoError(t, err)
		progress, summary := drain(t, events)

		require.Len(t, progress, 3)
		assert.True(t, progress[0].Result.Succeeded(), "the item in flight finishes")
		assert.False(t, progress[1].Result.Succeeded())
		assert.False(t, progress[2].Result.Succeeded())
		assert.Equal(t, 1, summary.Succeeded)
		assert.Equal(t, []string{"a.pdf"}, opener.opens)
	})
}

func TestStart_RecoversBackendPanic(t *testing.T) {
	out := t.TempDir()

	progress, summary := start(t, New(panicOpener{}, WithLogger(quietLogger())), []string{"x.pdf", "y.pdf"}, out)

	require.Len(t, progress, 2)
	assert.Contains(t, progress[0].Result.Error, "malformed xref table")
	assert.Equal(t, 0, summary.Succeeded)
}

func TestRun_LogsFailures(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	opener := &fakeOpener{docs: map[string]*fakeDoc{"ok.pdf": {pages: []string{"x"}}}}
	c := New(opener, WithLogger(logger))

	var events []Event
	summary := c.Run(context.Background(), types.ConversionJob{Inputs: []string{"ok.pdf", "broken.pdf"}, OutputDir: t.TempDir()},
		func(e Event) { events = append(events, e) })

	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, events, 3)
	assert.Equal(t, EventCompleted, events[2].Kind)

	var failures []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			failures = append(failures, e)
		}
	}
	require.Len(t, failures, 1)
	assert.Equal(t, "broken.pdf", failures[0].Data["input"])
	assert.Equal(t, 2, failures[0].Data["index"])
	assert.Error(t, failures[0].Data[logrus.ErrorKey].(error))
}

func TestExtractText(t *testing.T) {
	text, err := ExtractText(&fakeDoc{pages: []string{"Hello", "World"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello\nWorld", text)

	text, err = ExtractText(&fakeDoc{})
	require.NoError(t, err)
	assert.Equal(t, "", text)

	_, err = ExtractText(&fakeDoc{pages: []string{"a", "b"}, pageErr: map[int]error{1: errors.New("bad page")}})
	assert.EqualError(t, err, "bad page")
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "progress", EventProgress.String())
	assert.Equal(t, "completed", EventCompleted.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}
