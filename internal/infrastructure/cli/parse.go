package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/config"
	"github.com/felixgeelhaar/sdra/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/sdra/pkg/document"
)

var (
	parseModel    string
	parseFull     bool
	parseWriteMMD bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [folder]",
	Short: "Extract the design text of a folder without reviewing it",
	Long: `Parse extracts the text of every PDF in the folder, converts embedded
diagrams to Mermaid with the converter model and lists the other files.
It prints the first 1200 characters unless --full is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, err := folderArg(cmd, args)
		if err != nil {
			return MapError(err)
		}

		opts, err := serviceOptions()
		if err != nil {
			return err
		}
		flags := &config.Config{ConverterModel: parseModel}
		if cmd.Flags().Changed("write-mmd") {
			v := parseWriteMMD
			flags.WriteMMD = &v
		}
		opts.Flags = flags

		cfg, err := wiring.ResolveConfig(opts)
		if err != nil {
			return MapError(err)
		}
		parser, err := wiring.BuildParser(cfg, opts)
		if err != nil {
			return MapError(err)
		}

		text, err := parser.ParseFolder(cmd.Context(), folder)
		if err != nil {
			return MapError(err)
		}

		out := cmd.OutOrStdout()
		if parseFull {
			fmt.Fprintln(out, text)
			return nil
		}
		head, rest := document.Preview(text, document.PreviewLength)
		fmt.Fprintln(out, head)
		if rest > 0 {
			fmt.Fprintf(out, "\n... %d more characters (use --full to print everything)\n", rest)
		}
		return nil
	},
}

func init() {
	parseCmd.Flags().StringVar(&parseModel, "model", "", "Diagram converter model (default converter_model)")
	parseCmd.Flags().BoolVar(&parseFull, "full", false, "Print the full text instead of a preview")
	parseCmd.Flags().BoolVar(&parseWriteMMD, "write-mmd", true, "Save converted diagrams as .mmd files next to the images")
	RootCmd.AddCommand(parseCmd)
}
