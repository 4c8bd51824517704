package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/config"
	"github.com/felixgeelhaar/sdra/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
)

const jokePrompt = "Tell me a short, funny joke about security reviews."

var testLLMModel string

var testLLMCmd = &cobra.Command{
	Use:   "test-llm",
	Short: "Check a model's credentials with a one-line request",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := serviceOptions()
		if err != nil {
			return err
		}
		cfg, err := wiring.ResolveConfig(opts)
		if err != nil {
			return MapError(err)
		}

		h, err := cfg.Handle(testLLMModel)
		if err != nil {
			return MapError(err)
		}
		provider, err := wiring.LoadProvider(cfg, testLLMModel, opts.HTTPClient)
		if err != nil {
			return MapError(err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Using model=%s, key=%s\n", provider.ID(), h.ShortKey())

		reply, err := ai.Call(cmd.Context(), provider, ai.Conversation{ai.Text(ai.RoleUser, jokePrompt)})
		if err != nil {
			return NewCLIError("model call failed", "Check the key with 'sdra config show' and the model name", err)
		}
		fmt.Fprintf(out, "\nModel response:\n%s\n", reply)
		return nil
	},
}

func init() {
	testLLMCmd.Flags().StringVar(&testLLMModel, "model", config.DefaultConverterModel, "Model to call, as <provider>:<model>")
	RootCmd.AddCommand(testLLMCmd)
}
