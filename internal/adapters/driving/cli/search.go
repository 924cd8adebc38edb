package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

var (
	searchLimit int
	searchMode  string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Ranks stored chunks against the query.

In hybrid mode (default) the score blends semantic similarity (70%) with
keyword overlap (30%). Vector mode ranks by semantic similarity only.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().StringVar(&searchMode, "mode", string(domain.SearchModeHybrid), "ranking mode: hybrid or vector")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchResultJSON is the --json form of a ranked chunk.
type searchResultJSON struct {
	DocumentID   string  `json:"document_id"`
	Source       string  `json:"source"`
	ChunkIndex   int     `json:"chunk_index"`
	Chunk        string  `json:"chunk"`
	Similarity   float64 `json:"similarity"`
	VectorScore  float64 `json:"vector_score"`
	LexicalScore float64 `json:"lexical_score"`
}

type searchOutputJSON struct {
	Query          string             `json:"query"`
	Results        []searchResultJSON `json:"results"`
	Sources        []string           `json:"sources"`
	Confidence     float64            `json:"confidence"`
	TotalDocuments int                `json:"total_documents"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireSearch(); err != nil {
		return err
	}

	mode := domain.SearchMode(searchMode)
	if !mode.IsValid() {
		return fmt.Errorf("%w: unknown mode %q (want hybrid or vector)", domain.ErrInvalidInput, searchMode)
	}

	rag, err := searchService.Search(cmdContext(cmd), args[0], domain.SearchOptions{
		TopK: searchLimit,
		Mode: mode,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, rag)
	}
	return outputSearchTable(cmd, rag)
}

func outputSearchJSON(cmd *cobra.Command, rag *domain.RAGContext) error {
	out := searchOutputJSON{
		Query:          rag.Query,
		Results:        make([]searchResultJSON, 0, len(rag.RelevantChunks)),
		Sources:        rag.SourceDocuments,
		Confidence:     rag.Confidence,
		TotalDocuments: rag.TotalDocuments,
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	for _, r := range rag.RelevantChunks {
		out.Results = append(out.Results, searchResultJSON{
			DocumentID:   r.DocumentID,
			Source:       r.Source,
			ChunkIndex:   r.ChunkIndex,
			Chunk:        r.Chunk,
			Similarity:   r.Similarity,
			VectorScore:  r.VectorScore,
			LexicalScore: r.LexicalScore,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, rag *domain.RAGContext) error {
	if len(rag.RelevantChunks) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range rag.RelevantChunks {
		// Format: [N] Source #chunk (score)
		cmd.Printf("  [%d] %s #%d (%.2f)\n", i+1, r.Source, r.ChunkIndex, r.Similarity)
		cmd.Printf("      %s\n", snippet(r.Chunk, 200))
		cmd.Println()
	}
	cmd.Printf("Confidence: %.2f across %d documents\n", rag.Confidence, rag.TotalDocuments)
	return nil
}

// snippet collapses whitespace and truncates s to at most n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
