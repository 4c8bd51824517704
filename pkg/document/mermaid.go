package document

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
)

const mermaidSystemPrompt = "Convert architecture diagrams to VALID Mermaid only (no backticks/no prose). " +
	"Choose one type: flowchart TD | sequenceDiagram | classDiagram | erDiagram. " +
	"Preserve labels; concise IDs; include all edges."

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// MermaidConverter turns diagram images into Mermaid source with a
// vision-capable model.
type MermaidConverter struct {
	provider ai.Provider
	// WriteMMD stores the result as <image>.mmd next to the image.
	WriteMMD bool
	// Extra is appended to the user instruction.
	Extra string
}

// NewMermaidConverter creates a converter backed by provider.
func NewMermaidConverter(provider ai.Provider, writeMMD bool) *MermaidConverter {
	return &MermaidConverter{provider: provider, WriteMMD: writeMMD}
}

// Convert sends the image at imagePath to the model and returns the Mermaid
// source.
func (c *MermaidConverter) Convert(ctx context.Context, imagePath string) (string, error) {
	// #nosec G304 -- imagePath is an extracted asset inside the review folder
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", err
	}

	conv := ai.Conversation{
		ai.Text(ai.RoleSystem, mermaidSystemPrompt),
		{
			Role: ai.RoleUser,
			Content: []ai.ContentBlock{
				ai.TextBlock("Convert this diagram to Mermaid. " + c.Extra),
				ai.Image(DataURL(imagePath, data)),
			},
		},
	}

	text, err := ai.CallWith(ctx, c.provider, ai.CompletionRequest{
		Messages:    conv,
		Temperature: ai.Float(1),
	})
	if err != nil {
		return "", err
	}

	mermaid := ExtractMermaid(text)
	if c.WriteMMD && mermaid != "" {
		out := strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".mmd"
		if err := os.WriteFile(out, []byte(mermaid), 0600); err != nil {
			return mermaid, fmt.Errorf("failed to write %s: %w", out, err)
		}
	}
	return mermaid, nil
}

// DataURL encodes data as a base64 data: URL, with the MIME type taken
// from the file extension.
func DataURL(path string, data []byte) string {
	mime, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ExtractMermaid strips a surrounding code fence and its "mermaid" language
// tag. Text without a fence is only trimmed.
func ExtractMermaid(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimPrefix(t, "mermaid")
	t = strings.TrimLeft(t, " \t\r\n")
	if i := strings.LastIndex(t, "```"); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}
