// Package document turns a folder of design documents into one
// requirements text: PDF page text plus diagrams rendered as Mermaid.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/felixgeelhaar/sdra/pkg/domain"
)

// Converter renders a diagram image as Mermaid source.
type Converter interface {
	Convert(ctx context.Context, imagePath string) (string, error)
}

// Parser reads the top-level files of a folder.
type Parser struct {
	reader    PDFReader
	converter Converter
	logger    *slog.Logger
}

// NewParser creates a Parser. A nil reader uses LibReader; a nil converter
// leaves a placeholder diagram for every image.
func NewParser(reader PDFReader, converter Converter, logger *slog.Logger) *Parser {
	if reader == nil {
		reader = NewLibReader()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{reader: reader, converter: converter, logger: logger}
}

// ParseFolder returns the concatenated text of every top-level file in
// name order. Failures on one file are recorded inline and the scan
// continues.
func (p *Parser) ParseFolder(ctx context.Context, folder string) (string, error) {
	root, err := filepath.Abs(folder)
	if err != nil {
		return "", &domain.ValidationError{Field: "folder", Reason: fmt.Sprintf("invalid folder: %s", folder)}
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", &domain.ValidationError{Field: "folder", Reason: fmt.Sprintf("invalid folder: %s", root)}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", root, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var b strings.Builder
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(root, e.Name())
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			b.WriteString(p.parsePDF(ctx, path))
			continue
		}
		fmt.Fprintf(&b, "\n[FILE] %s", e.Name())
	}
	return b.String(), nil
}

func (p *Parser) parsePDF(ctx context.Context, path string) string {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	texts, err := p.reader.PageTexts(ctx, path)
	if err != nil {
		return p.pdfError(name, err)
	}
	images, err := p.reader.Images(ctx, path)
	if err != nil {
		return p.pdfError(name, err)
	}

	var b strings.Builder
	for i, txt := range texts {
		txt = strings.TrimSpace(txt)
		if txt == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\n# [PDF:%s] Page %d\n%s", name, i+1, txt)
	}

	if len(images) == 0 {
		return b.String()
	}

	assets := filepath.Join(filepath.Dir(path), stem+"_assets")
	// G301: Use 0700 for directories
	if err := os.MkdirAll(assets, 0700); err != nil {
		return p.pdfError(name, err)
	}

	perPage := map[int]int{}
	for _, img := range images {
		perPage[img.Page]++
		idx := perPage[img.Page]
		ext := img.Ext
		if ext == "" {
			ext = "png"
		}
		out := filepath.Join(assets, fmt.Sprintf("%s_p%d_i%d.%s", stem, img.Page, idx, ext))
		if err := os.WriteFile(out, img.Data, 0600); err != nil {
			return p.pdfError(name, err)
		}

		mermaid := p.toMermaid(ctx, out)
		fmt.Fprintf(&b, "\n\n# [IMAGE:%s] Page %d Image %d\n```mermaid\n%s\n```", name, img.Page, idx, mermaid)
	}
	return b.String()
}

func (p *Parser) toMermaid(ctx context.Context, imagePath string) string {
	if p.converter == nil {
		return fmt.Sprintf("%%%% TODO: Convert diagram at %s to Mermaid\nflowchart TD\nA[Image: %s] --> B[Conversion pending]",
			imagePath, filepath.Base(imagePath))
	}
	mermaid, err := p.converter.Convert(ctx, imagePath)
	if err != nil {
		p.logger.Warn("diagram conversion failed", "image", imagePath, "error", err)
		return fmt.Sprintf("%%%% Conversion error %s: %v\nflowchart TD\nA --> B", errorType(err), err)
	}
	mermaid = strings.TrimSpace(mermaid)
	if mermaid == "" {
		return "flowchart TD\nA --> B"
	}
	return mermaid
}

func (p *Parser) pdfError(name string, err error) string {
	p.logger.Warn("failed to parse pdf", "file", name, "error", err)
	return fmt.Sprintf("\n[PDF ERROR] %s: %s: %v", name, errorType(err), err)
}

// errorType is the bare type name of err, e.g. "PathError".
func errorType(err error) string {
	t := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	return t
}
