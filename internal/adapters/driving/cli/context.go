package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var contextLimit int

var contextCmd = &cobra.Command{
	Use:   "context [query]",
	Short: "Print the prompt context for a question",
	Long: `Runs a hybrid search and prints the matching chunks formatted for
inclusion in a chat prompt, each prefixed with its source document.
Prints nothing when no chunk matches.`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	contextCmd.Flags().IntVarP(&contextLimit, "limit", "n", 5, "maximum number of chunks")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	if err := requireSearch(); err != nil {
		return err
	}

	text, err := searchService.GetContextForQuery(cmdContext(cmd), args[0], contextLimit)
	if err != nil {
		return fmt.Errorf("context lookup failed: %w", err)
	}
	if text != "" {
		cmd.Println(text)
	}
	return nil
}
