package wiring

import (
	"net/http"
	"strings"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/config"
	infraai "github.com/felixgeelhaar/sdra/pkg/ai"
	domainai "github.com/felixgeelhaar/sdra/pkg/domain/ai"
)

// LoadProvider builds the provider for a "<provider>:<model>" spec.
func LoadProvider(cfg *config.Config, spec string, httpClient *http.Client) (domainai.Provider, error) {
	h, err := cfg.Handle(spec)
	if err != nil {
		return nil, err
	}
	return infraai.NewProvider(h, infraai.Options{HTTPClient: httpClient, Timeout: cfg.CallTimeout})
}

// LoadPanel builds every panel provider.
func LoadPanel(cfg *config.Config, httpClient *http.Client) ([]domainai.Provider, error) {
	handles, err := cfg.PanelHandles()
	if err != nil {
		return nil, err
	}
	panel := make([]domainai.Provider, 0, len(handles))
	for _, h := range handles {
		p, err := infraai.NewProvider(h, infraai.Options{HTTPClient: httpClient, Timeout: cfg.CallTimeout})
		if err != nil {
			return nil, err
		}
		panel = append(panel, p)
	}
	return panel, nil
}

const (
	dryRunMerged = `{"dry_run":true}`
	dryRunReport = "# Security Design Review (dry run)\n\nNo models were called. Run without --dry-run to perform the review.\n"
)

// DryRunPanel returns scripted stand-ins for the configured panel.
func DryRunPanel(cfg *config.Config) []domainai.Provider {
	specs := cfg.EffectivePanel()
	if len(specs) == 0 {
		specs = config.DefaultPanel
	}
	panel := make([]domainai.Provider, 0, len(specs))
	for _, spec := range specs {
		panel = append(panel, &infraai.MockProvider{
			Model:     spec,
			Responses: []string{`{"dry_run":true,"model":"` + spec + `"}`},
		})
	}
	return panel
}

// DryRunArbiter merges to a fixed document, accepts every merge and writes
// a placeholder report.
func DryRunArbiter(cfg *config.Config) domainai.Provider {
	return &infraai.MockProvider{
		Model: cfg.ArbitrationModel,
		Handler: func(req domainai.CompletionRequest) (string, error) {
			system := ""
			if len(req.Messages) > 0 {
				system = req.Messages[0].PlainText()
			}
			switch {
			case strings.Contains(system, "merge JSON documents"):
				return dryRunMerged, nil
			case strings.Contains(system, "reviewing a threat model"):
				return "None", nil
			default:
				return dryRunReport, nil
			}
		},
	}
}
