// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"context"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PdfcpuOpener reads PDFs with pdfcpu and collects the strings shown by each
// page's text operators. Fonts with custom encodings come out as their raw
// codes; the native backend handles those better.
type PdfcpuOpener struct{}

func (PdfcpuOpener) Open(_ context.Context, path string) (doc Document, err error) {
	defer pageRecover(&err, "opening PDF "+path)

	pctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("counting pages of %s: %w", path, err)
	}
	return &pdfcpuDocument{ctx: pctx}, nil
}

type pdfcpuDocument struct {
	ctx *model.Context
}

func (d *pdfcpuDocument) NumPages() int {
	return d.ctx.PageCount
}

func (d *pdfcpuDocument) PageText(n int) (text string, err error) {
	defer pageRecover(&err, fmt.Sprintf("reading page %d", n))

	r, err := pdfcpu.ExtractPageContent(d.ctx, n)
	if err != nil {
		return "", fmt.Errorf("reading page %d: %w", n, err)
	}
	if r == nil {
		return "", nil
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading page %d content: %w", n, err)
	}
	return ShownText(content), nil
}

// Close is a no-op: pdfcpu reads the whole file into memory on open.
func (d *pdfcpuDocument) Close() error {
	return nil
}
