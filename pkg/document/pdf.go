package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageImage is one embedded image of a PDF page.
type PageImage struct {
	// Page is 1-based.
	Page int
	// Ext is the file extension without the dot, e.g. "png".
	Ext  string
	Data []byte
}

// PDFReader extracts page text and embedded images from a PDF file.
type PDFReader interface {
	// PageTexts returns the plain text of every page in order.
	PageTexts(ctx context.Context, path string) ([]string, error)
	// Images returns embedded images in page order.
	Images(ctx context.Context, path string) ([]PageImage, error)
}

// LibReader reads text with ledongthuc/pdf and images with pdfcpu.
type LibReader struct{}

// NewLibReader returns the default PDFReader.
func NewLibReader() *LibReader {
	return &LibReader{}
}

func (LibReader) PageTexts(ctx context.Context, path string) (texts []string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	n := r.NumPage()
	texts = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func (LibReader) Images(ctx context.Context, path string) ([]PageImage, error) {
	// #nosec G304 -- path comes from a directory listing of the review folder
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var images []PageImage
	digest := func(img model.Image, _ bool, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("image %s on page %d: %w", img.Name, img.PageNr, err)
		}
		images = append(images, PageImage{
			Page: img.PageNr,
			Ext:  strings.ToLower(strings.TrimPrefix(img.FileType, ".")),
			Data: raw,
		})
		return nil
	}

	if err := api.ExtractImages(bytes.NewReader(data), nil, digest, nil); err != nil {
		return nil, err
	}
	return images, nil
}
