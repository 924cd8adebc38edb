package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Manage stored documents",
	Long:    `List, view, remove, or re-embed documents in the knowledge base.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print document content",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentRemoveCmd = &cobra.Command{
	Use:   "remove [doc-id]",
	Short: "Remove a document and its embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentRemove,
}

var documentReembedCmd = &cobra.Command{
	Use:   "reembed [doc-id]",
	Short: "Recompute a document's embeddings",
	Long: `Re-embeds every chunk of a document with the configured provider,
replacing its stored embeddings. Use this after changing the embedding
model or when a document was added while the provider was unreachable.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentReembed,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentRemoveCmd)
	documentCmd.AddCommand(documentReembedCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	docs, err := knowledgeService.GetAllDocuments(cmdContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Name:     %s\n", docs[i].Name)
		if docs[i].Type != "" {
			cmd.Printf("    Type:     %s\n", docs[i].Type)
		}
		cmd.Printf("    Chunks:   %d\n", len(docs[i].Chunks))
		cmd.Printf("    Uploaded: %s\n", docs[i].UploadDate.Local().Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	doc, err := knowledgeService.GetDocument(cmdContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Name:     %s\n", doc.Name)
	if doc.Type != "" {
		cmd.Printf("  Type:     %s\n", doc.Type)
	}
	cmd.Printf("  Chunks:   %d\n", len(doc.Chunks))
	cmd.Printf("  Size:     %d bytes\n", len(doc.Content))
	cmd.Printf("  Uploaded: %s\n", doc.UploadDate.Local().Format("2006-01-02 15:04:05"))

	if len(doc.Metadata) > 0 {
		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		cmd.Println("\n  Metadata:")
		for _, k := range keys {
			cmd.Printf("    %s: %v\n", k, doc.Metadata[k])
		}
	}

	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	doc, err := knowledgeService.GetDocument(cmdContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}

	cmd.Println(doc.Content)
	return nil
}

func runDocumentRemove(cmd *cobra.Command, args []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	docID := args[0]
	if err := knowledgeService.RemoveDocument(cmdContext(cmd), docID); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}

	cmd.Printf("Document %s removed.\n", docID)
	return nil
}

func runDocumentReembed(cmd *cobra.Command, args []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	docID := args[0]
	cmd.Printf("Re-embedding document %s...\n", docID)

	n, err := knowledgeService.ReembedDocument(cmdContext(cmd), docID)
	if err != nil {
		return fmt.Errorf("failed to re-embed document: %w", err)
	}

	cmd.Printf("Document %s re-embedded (%d chunks).\n", docID, n)
	return nil
}
