package config

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
)

// credentialOrder fixes the order of keys in the summary.
var credentialOrder = []string{"openai", "anthropic", "gemini", "deepseek", "groq"}

// Summary renders the effective settings with every key masked.
func (c *Config) Summary() string {
	var b strings.Builder
	b.WriteString("Credentials:\n")
	for _, name := range credentialOrder {
		info := providers[name]
		fmt.Fprintf(&b, "  %-18s %s\n", info.envKey, ai.MaskKey(info.credFunc(c.Credentials), info.maskLen))
	}

	b.WriteString("Settings:\n")
	panel := c.EffectivePanel()
	if len(panel) == 0 {
		fmt.Fprintf(&b, "  %-18s %s\n", "panel", "(none available)")
	} else {
		fmt.Fprintf(&b, "  %-18s %s\n", "panel", strings.Join(panel, ", "))
	}
	fmt.Fprintf(&b, "  %-18s %s\n", "arbitration_model", c.ArbitrationModel)
	fmt.Fprintf(&b, "  %-18s %s\n", "converter_model", c.ConverterModel)
	fmt.Fprintf(&b, "  %-18s %d\n", "max_rounds", c.MaxRounds)
	fmt.Fprintf(&b, "  %-18s %s\n", "call_timeout", c.CallTimeout)
	fmt.Fprintf(&b, "  %-18s %s\n", "artifacts_dir", c.ArtifactsDir)
	promptsDir := c.PromptsDir
	if promptsDir == "" {
		promptsDir = "(embedded)"
	}
	fmt.Fprintf(&b, "  %-18s %s\n", "prompts_dir", promptsDir)
	fmt.Fprintf(&b, "  %-18s %s\n", "prompt_version", c.PromptVersion)
	fmt.Fprintf(&b, "  %-18s %t\n", "write_mmd", c.WritesMMD())
	notify := c.NotifyURL
	if notify == "" {
		notify = "(disabled)"
	} else if c.Credentials.NotifySecret != "" {
		notify += " (signed)"
	}
	fmt.Fprintf(&b, "  %-18s %s\n", "notify_url", notify)
	return b.String()
}

// SummaryMap is Summary as data, for MCP and JSON output.
func (c *Config) SummaryMap() map[string]any {
	creds := map[string]string{}
	for _, name := range credentialOrder {
		info := providers[name]
		creds[info.envKey] = ai.MaskKey(info.credFunc(c.Credentials), info.maskLen)
	}
	return map[string]any{
		"credentials":       creds,
		"panel":             c.EffectivePanel(),
		"arbitration_model": c.ArbitrationModel,
		"converter_model":   c.ConverterModel,
		"max_rounds":        c.MaxRounds,
		"call_timeout":      c.CallTimeout.String(),
		"artifacts_dir":     c.ArtifactsDir,
		"prompts_dir":       c.PromptsDir,
		"prompt_version":    c.PromptVersion,
		"write_mmd":         c.WritesMMD(),
		"notify_url":        c.NotifyURL,
		"notify_signed":     c.Credentials.NotifySecret != "",
	}
}
