// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/pdf2txt/internal/container"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

const (
	// DefaultPdftotextImage is used when no image is configured. Its
	// entrypoint must be poppler's pdftotext.
	DefaultPdftotextImage = "pdftotext:latest"

	// pageBreak is the form feed pdftotext writes after every page.
	pageBreak = "\f"
)

// DefaultPdftotextArgs read the PDF from stdin and write UTF-8 text to stdout.
var DefaultPdftotextArgs = []string{"-enc", "UTF-8", "-", "-"}

// PdftotextOpener converts each PDF by piping it through a pdftotext
// container. The whole document is converted on Open; pages are then split
// on form feeds.
type PdftotextOpener struct {
	runtime container.Runtime
	image   string
	args    []string
}

// NewPdftotextOpener returns an opener that runs cc.Image on rt. It verifies
// that the image exists locally before returning.
func NewPdftotextOpener(ctx context.Context, rt container.Runtime, cc types.ContainerConfig) (*PdftotextOpener, error) {
	image := cc.Image
	if image == "" {
		image = DefaultPdftotextImage
	}
	args := cc.Args
	if len(args) == 0 {
		args = DefaultPdftotextArgs
	}
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("pdftotext image not available in %s: %w", rt.Name(), err)
	}
	return &PdftotextOpener{runtime: rt, image: image, args: args}, nil
}

func (o *PdftotextOpener) Open(ctx context.Context, path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := o.runtime.Run(ctx, o.image, o.args, f, &out); err != nil {
		return nil, fmt.Errorf("converting %s with pdftotext: %w", path, err)
	}
	return pagedText(splitPages(out.String())), nil
}

// splitPages splits pdftotext output into pages. Every page, including the
// last, is followed by a form feed.
func splitPages(out string) []string {
	if out == "" {
		return nil
	}
	pages := strings.Split(out, pageBreak)
	if pages[len(pages)-1] == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}

// pagedText is a Document whose page texts are already in memory.
type pagedText []string

func (p pagedText) NumPages() int { return len(p) }

func (p pagedText) PageText(n int) (string, error) {
	if n < 1 || n > len(p) {
		return "", fmt.Errorf("page %d out of range (1-%d)", n, len(p))
	}
	return p[n-1], nil
}

func (p pagedText) Close() error { return nil }
