package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var jsonFormatOut string

var jsonFormatCmd = &cobra.Command{
	Use:   "json-format <file>",
	Short: "Pretty-print a JSON artifact and save the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		// #nosec G304 -- the file is named by the user
		raw, err := os.ReadFile(path)
		if err != nil {
			return NewCLIError(fmt.Sprintf("failed to read %s", path), "", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "File content (%d characters)\n", len(raw))

		trimmed := strings.TrimSpace(string(raw))
		looksJSON := strings.EqualFold(filepath.Ext(path), ".json") ||
			strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
		if !looksJSON {
			fmt.Fprintln(out, "Not a JSON document, nothing to format.")
			return nil
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, []byte(trimmed), "", "  "); err != nil {
			fmt.Fprintf(out, "Could not parse as JSON: %v\n", err)
			return nil
		}
		pretty.WriteByte('\n')

		fmt.Fprintln(out, pretty.String())
		if err := os.WriteFile(jsonFormatOut, pretty.Bytes(), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", jsonFormatOut, err)
		}
		fmt.Fprintf(out, "Formatted JSON saved to: %s\n", jsonFormatOut)
		return nil
	},
}

func init() {
	jsonFormatCmd.Flags().StringVar(&jsonFormatOut, "out", "parsedjson.txt", "Where to save the formatted JSON")
	RootCmd.AddCommand(jsonFormatCmd)
}
