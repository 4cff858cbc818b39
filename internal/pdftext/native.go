// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// NativeOpener reads PDFs in-process with github.com/ledongthuc/pdf.
type NativeOpener struct{}

// Open parses the PDF cross-reference table and trailer. Page content is
// decoded lazily by PageText.
func (NativeOpener) Open(_ context.Context, path string) (doc Document, err error) {
	defer pageRecover(&err, "opening PDF "+path)

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	return &nativeDocument{
		file:   f,
		reader: r,
		fonts:  make(map[string]*pdf.Font),
	}, nil
}

type nativeDocument struct {
	file   *os.File
	reader *pdf.Reader
	// fonts is shared across pages; ledongthuc resolves glyphs per font name.
	fonts map[string]*pdf.Font
}

func (d *nativeDocument) NumPages() int {
	return d.reader.NumPage()
}

func (d *nativeDocument) PageText(n int) (text string, err error) {
	defer pageRecover(&err, fmt.Sprintf("reading page %d", n))

	p := d.reader.Page(n)
	if p.V.IsNull() {
		return "", nil
	}

	for _, name := range p.Fonts() {
		if _, ok := d.fonts[name]; !ok {
			f := p.Font(name)
			d.fonts[name] = &f
		}
	}

	text, err = p.GetPlainText(d.fonts)
	if err != nil {
		return "", fmt.Errorf("reading page %d: %w", n, err)
	}
	return text, nil
}

func (d *nativeDocument) Close() error {
	return d.file.Close()
}
