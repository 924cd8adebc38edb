package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	stats, err := knowledgeService.GetStats(cmdContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Println("Knowledge Base")
	cmd.Println("==============")
	cmd.Printf("  Documents:  %d\n", stats.DocumentCount)
	cmd.Printf("  Chunks:     %d\n", stats.TotalChunks)
	cmd.Printf("  Embeddings: %d\n", stats.EmbeddingCount)
	cmd.Printf("  Cached:     %d\n", stats.CacheSize)
	return nil
}
