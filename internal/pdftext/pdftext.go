// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext reads the text layer of PDF documents page by page.
// Several backends implement Opener; the batch converter only sees the
// interface, so backends can be swapped per run.
package pdftext

import (
	"context"
	"fmt"

	"github.com/pdiddy/pdf2txt/internal/container"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

// Document is an opened PDF. Pages are numbered from 1.
type Document interface {
	// NumPages returns the number of pages in the document.
	NumPages() int

	// PageText returns the text of page n. A page without a text layer
	// returns "" and no error.
	PageText(n int) (string, error)

	Close() error
}

// Opener opens PDF files for text extraction.
type Opener interface {
	Open(ctx context.Context, path string) (Document, error)
}

// ForBackend returns the Opener for the named backend. The pdftotext backend
// needs a working container runtime and a local image; their absence is
// reported here, before any file is read.
func ForBackend(ctx context.Context, backend types.Backend, cc types.ContainerConfig) (Opener, error) {
	switch backend {
	case types.BackendNative, "":
		return NativeOpener{}, nil
	case types.BackendPdfcpu:
		return PdfcpuOpener{}, nil
	case types.BackendPdftotext:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		return NewPdftotextOpener(ctx, rt, cc)
	default:
		return nil, fmt.Errorf("unknown backend %q: use native, pdfcpu, or pdftotext", backend)
	}
}

// pageRecover converts a panic raised by a parsing library into an error.
// The native and pdfcpu libraries both panic on some malformed inputs.
func pageRecover(err *error, what string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: malformed PDF: %v", what, r)
	}
}
