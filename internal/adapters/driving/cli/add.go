package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/normalisers"
)

var (
	addName  string
	addType  string
	addMeta  []string
	addForce bool
	addRaw   bool
)

// fileNormaliser extracts document text from added files.
var fileNormaliser = normalisers.Default()

var addCmd = &cobra.Command{
	Use:   "add [file]...",
	Short: "Add documents to the knowledge base",
	Long: `Reads each file, splits it into chunks, embeds the chunks and stores
the result. A file whose name or content matches an existing document is
rejected unless --force is given.

Markdown, HTML, DOCX and EML files are converted to plain text first;
other UTF-8 files are read as-is. Use --raw to store the bytes unchanged.

If the embedding provider is unreachable the document is still stored and
can be embedded later with 'lexrag document reembed'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "document name (single file only, default file name)")
	addCmd.Flags().StringVarP(&addType, "type", "t", "", "document type, e.g. contract")
	addCmd.Flags().StringArrayVarP(&addMeta, "meta", "m", nil, "metadata key=value (repeatable)")
	addCmd.Flags().BoolVarP(&addForce, "force", "f", false, "add even if a matching document exists")
	addCmd.Flags().BoolVar(&addRaw, "raw", false, "store file contents without format conversion")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}
	if addName != "" && len(args) > 1 {
		return fmt.Errorf("%w: --name applies to a single file", domain.ErrInvalidInput)
	}

	meta, err := parseMeta(addMeta)
	if err != nil {
		return err
	}

	ctx := cmdContext(cmd)
	var errs []error
	for _, path := range args {
		id, err := addFile(cmd, path, meta)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		cmd.Printf("Added %s (%s)\n", path, id)
	}

	if stats, err := knowledgeService.GetStats(ctx); err == nil {
		cmd.Printf("Knowledge base: %d documents, %d chunks\n", stats.DocumentCount, stats.TotalChunks)
	}
	return errors.Join(errs...)
}

func addFile(cmd *cobra.Command, path string, meta map[string]any) (string, error) {
	ctx := cmdContext(cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	name := addName
	if name == "" {
		name = filepath.Base(path)
	}

	docMeta := make(map[string]any, len(meta)+3)
	content := string(data)
	if !addRaw {
		norm, err := fileNormaliser.Normalise(path, data)
		if err != nil {
			return "", err
		}
		content = norm.Content
		docMeta[domain.MetaFormat] = norm.Format
		if norm.Title != "" {
			docMeta[domain.MetaTitle] = norm.Title
		}
		for k, v := range norm.Metadata {
			docMeta[k] = v
		}
	}

	if !addForce {
		check, err := knowledgeService.CheckDuplicate(ctx, name, content)
		if err != nil {
			return "", fmt.Errorf("check duplicate: %w", err)
		}
		if check.Exists {
			return "", fmt.Errorf("%w: matches %s (%s) by %s; use --force to add anyway",
				domain.ErrAlreadyExists, check.Existing.Name, check.Existing.ID, check.MatchedBy)
		}
	}

	for k, v := range meta {
		docMeta[k] = v
	}
	if abs, err := filepath.Abs(path); err == nil {
		docMeta[domain.MetaPath] = abs
	}

	return knowledgeService.AddDocument(ctx, domain.NewDocument{
		Name:     name,
		Content:  content,
		Type:     addType,
		Metadata: docMeta,
	})
}

// parseMeta turns key=value pairs into a metadata map.
func parseMeta(pairs []string) (map[string]any, error) {
	meta := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: metadata %q must be key=value", domain.ErrInvalidInput, pair)
		}
		meta[key] = strings.TrimSpace(value)
	}
	return meta, nil
}
