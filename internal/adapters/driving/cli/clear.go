package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every document and embedding",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}
	ctx := cmdContext(cmd)

	if !clearYes {
		stats, err := knowledgeService.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}
		cmd.Printf("This will delete %d documents and %d embeddings. Continue? [y/N]: ",
			stats.DocumentCount, stats.EmbeddingCount)
		answer := strings.ToLower(readLine(bufio.NewReader(cmd.InOrStdin())))
		if answer != "y" && answer != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := knowledgeService.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear knowledge base: %w", err)
	}
	cmd.Println("Knowledge base cleared.")
	return nil
}
