// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf2txt/internal/convert"
	"github.com/pdiddy/pdf2txt/internal/history"
	"github.com/pdiddy/pdf2txt/internal/pdftext"
	"github.com/pdiddy/pdf2txt/internal/report"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdfs...]",
	Short: "Convert PDF files to plain text",
	Long: `Convert extracts the text of each PDF into <out>/<name>.txt, pages joined
by newlines, in the order given. Inputs come from the arguments and from an
optional --list file (YAML sequence or one path per line). Paths that do not
end in .pdf are skipped and repeated paths are converted once.

A failed file is reported and the batch continues. The command exits non-zero
when any file failed. Backends: native (in-process), pdfcpu (content streams),
and pdftotext (poppler in a docker or podman container).`,
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := conversionConfig()
	if err != nil {
		return err
	}

	listPath, _ := cmd.Flags().GetString("list")
	inputs, err := collectInputs(args, listPath)
	if err != nil {
		return err
	}
	inputs, skipped := filterPDFs(inputs)
	for _, s := range skipped {
		logger.WithField("input", s).Warn("Skipping non-PDF input")
	}

	ctx := cmd.Context()
	opener, err := pdftext.ForBackend(ctx, cfg.Backend, cfg.Container)
	if err != nil {
		return err
	}

	conv := convert.New(opener,
		convert.WithLogger(logger),
		convert.WithCollisionPolicy(cfg.Collision),
	)
	job := types.ConversionJob{Inputs: inputs, OutputDir: cfg.OutputDir}

	started := time.Now()
	events, err := conv.Start(ctx, job)
	if err != nil {
		return err
	}

	out := newProgressPrinter(cmd.OutOrStdout())
	results := make([]types.ConversionResult, 0, len(inputs))
	var summary types.BatchSummary
	for e := range events {
		switch e.Kind {
		case convert.EventProgress:
			results = append(results, e.Result)
			out.progress(e)
		case convert.EventCompleted:
			summary = e.Summary
			out.summary(summary)
		}
	}
	finished := time.Now()

	id := history.NewID()
	if cfg.HistoryPath != "" {
		recordHistory(ctx, cfg, id, results, summary, started, finished)
	}
	if cfg.ReportPath != "" {
		r := report.New(id, job, cfg, results, summary, started, finished)
		if err := report.Write(cfg.ReportPath, r); err != nil {
			return err
		}
	}

	if summary.HasFailures() {
		return fmt.Errorf("%d of %d PDF(s) failed", summary.Failed(), summary.Total)
	}
	return nil
}

// conversionConfig reads the conversion settings from viper and checks the
// enumerated values.
func conversionConfig() (types.ConversionConfig, error) {
	var cfg types.ConversionConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	if cfg.Backend == "" {
		cfg.Backend = types.BackendNative
	}
	switch cfg.Collision {
	case "":
		cfg.Collision = types.CollisionOverwrite
	case types.CollisionOverwrite, types.CollisionSuffix:
	default:
		return cfg, fmt.Errorf("unknown collision policy %q: use overwrite or suffix", cfg.Collision)
	}
	return cfg, nil
}

// collectInputs joins the argument paths with the entries of the list file,
// arguments first.
func collectInputs(args []string, listPath string) ([]string, error) {
	inputs := append([]string(nil), args...)
	if listPath == "" {
		return inputs, nil
	}
	listed, err := report.ReadInputList(listPath)
	if err != nil {
		return nil, err
	}
	return append(inputs, listed...), nil
}

// filterPDFs keeps paths ending in .pdf (any case), dropping repeats after
// their first occurrence. Paths with any other extension are returned as
// skipped.
func filterPDFs(paths []string) (kept, skipped []string) {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if !strings.EqualFold(filepath.Ext(p), ".pdf") {
			skipped = append(skipped, p)
			continue
		}
		key := filepath.Clean(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, p)
	}
	return kept, skipped
}

func recordHistory(ctx context.Context, cfg types.ConversionConfig, id string, results []types.ConversionResult, summary types.BatchSummary, started, finished time.Time) {
	store, err := history.NewStore(cfg.HistoryPath)
	if err != nil {
		logger.WithError(err).Warn("History unavailable; batch not recorded")
		return
	}
	defer store.Close()

	_, err = store.Record(context.WithoutCancel(ctx), history.Batch{
		ID:         id,
		StartedAt:  started,
		FinishedAt: finished,
		OutputDir:  cfg.OutputDir,
		Backend:    cfg.Backend,
		Summary:    summary,
		Items:      results,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to record batch in history")
	}
}

// progressPrinter writes the running tally of a batch.
type progressPrinter struct {
	w      io.Writer
	ok     func(a ...any) string
	failed func(a ...any) string
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{
		w:      w,
		ok:     color.New(color.FgGreen).SprintFunc(),
		failed: color.New(color.FgRed).SprintFunc(),
	}
}

// progress prints "[i/N] converted <base>" or "[i/N] failed <base>: <error>".
func (p *progressPrinter) progress(e convert.Event) {
	if e.Result.Succeeded() {
		fmt.Fprintf(p.w, "[%d/%d] %s %s\n", e.Index, e.Total, p.ok("converted"), e.BaseName)
		return
	}
	fmt.Fprintf(p.w, "[%d/%d] %s %s: %s\n", e.Index, e.Total, p.failed("failed"), e.BaseName, e.Result.Error)
}

func (p *progressPrinter) summary(s types.BatchSummary) {
	fmt.Fprintf(p.w, "%d of %d succeeded\n", s.Succeeded, s.Total)
}

func init() {
	convertCmd.Flags().StringP("out", "o", "", "output directory for .txt files (must exist)")
	convertCmd.Flags().String("list", "", "file listing input PDFs (YAML sequence or one path per line)")
	convertCmd.Flags().String("backend", string(types.BackendNative), "PDF reader: native, pdfcpu, or pdftotext")
	convertCmd.Flags().String("collision", string(types.CollisionOverwrite), "same-name inputs: overwrite or suffix")
	convertCmd.Flags().String("report", "", "write a YAML batch report to this path")
	convertCmd.Flags().String("container-image", "", "pdftotext container image (default "+pdftext.DefaultPdftotextImage+")")

	_ = viper.BindPFlag("output_dir", convertCmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("backend", convertCmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("collision", convertCmd.Flags().Lookup("collision"))
	_ = viper.BindPFlag("report", convertCmd.Flags().Lookup("report"))
	_ = viper.BindPFlag("container.image", convertCmd.Flags().Lookup("container-image"))
	viper.SetDefault("container.args", []string{})

	rootCmd.AddCommand(convertCmd)
}
