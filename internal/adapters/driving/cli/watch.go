package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driving/watcher"
)

var (
	watchExisting   bool
	watchExtensions []string
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest text files as they appear in a directory",
	Long: `Watches a directory and adds new or modified .txt and .md files to the
knowledge base. Files matching an existing document by name or content are
skipped. Runs until interrupted.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationPingEmbedder: "true"},
	RunE:        runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "ingest files already in the directory first")
	watchCmd.Flags().StringSliceVar(&watchExtensions, "ext", nil, "file extensions to ingest (default .txt,.md)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}
	ctx := cmdContext(cmd)

	w, err := watcher.New(args[0], knowledgeService, watcher.WithExtensions(watchExtensions...))
	if err != nil {
		return err
	}
	defer w.Close()

	if watchExisting {
		results, err := w.Scan(ctx)
		for _, res := range results {
			printWatchResult(cmd, res)
		}
		if err != nil {
			return err
		}
	}

	results, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", w.Dir())

	for res := range results {
		printWatchResult(cmd, res)
	}
	return nil
}

func printWatchResult(cmd *cobra.Command, res watcher.Result) {
	switch res.Outcome {
	case watcher.OutcomeAdded:
		cmd.Printf("Added %s (%s)\n", res.Path, res.DocumentID)
	case watcher.OutcomeReplaced:
		cmd.Printf("Updated %s (%s)\n", res.Path, res.DocumentID)
	case watcher.OutcomeSkipped:
		if res.DocumentID != "" {
			cmd.Printf("Skipped %s: already stored as %s\n", res.Path, res.DocumentID)
		}
	case watcher.OutcomeFailed:
		cmd.PrintErrf("Failed %s: %v\n", res.Path, res.Err)
	}
}
