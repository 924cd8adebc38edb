// Package watcher normalises and ingests files into the knowledge base as they appear
// in a directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
	"github.com/custodia-labs/lexrag/internal/normalisers"
)

// DocumentType is the type tag given to documents ingested by the watcher.
const DocumentType = "file"

// DefaultExtensions are the file extensions ingested when none are configured.
var DefaultExtensions = []string{".txt", ".md"}

// Outcome describes what happened to a single file event.
type Outcome string

const (
	// OutcomeAdded means the file was ingested.
	OutcomeAdded Outcome = "added"
	// OutcomeReplaced means the file changed since it was last ingested and
	// its stored document was replaced.
	OutcomeReplaced Outcome = "replaced"
	// OutcomeSkipped means a matching document already existed.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means reading or ingesting the file failed.
	OutcomeFailed Outcome = "failed"
)

// Result reports the handling of one file.
type Result struct {
	Path       string
	Outcome    Outcome
	DocumentID string
	Err        error
}

// Normaliser extracts text from a file's bytes.
type Normaliser interface {
	Normalise(name string, data []byte) (*driven.NormaliseResult, error)
}

// Watcher watches a single directory (non-recursively).
type Watcher struct {
	dir        string
	knowledge  driving.KnowledgeService
	normaliser Normaliser
	extensions map[string]bool

	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithExtensions replaces the set of ingested file extensions.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		if len(exts) == 0 {
			return
		}
		w.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			w.extensions[strings.ToLower(ext)] = true
		}
	}
}

// WithNormaliser sets how file bytes are turned into document text.
// Defaults to the built-in normaliser registry.
func WithNormaliser(n Normaliser) Option {
	return func(w *Watcher) {
		if n != nil {
			w.normaliser = n
		}
	}
}

// New creates a watcher for dir.
func New(dir string, knowledge driving.KnowledgeService, opts ...Option) (*Watcher, error) {
	if knowledge == nil {
		return nil, errors.New("knowledge service is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	w := &Watcher{dir: dir, knowledge: knowledge, normaliser: normalisers.Default()}
	WithExtensions(DefaultExtensions...)(w)
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Watch starts watching and returns a channel of results. The channel is
// closed when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Result, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.fsWatcher = fsw
	w.mu.Unlock()

	results := make(chan Result)
	go func() {
		defer close(results)
		defer fsw.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				path, ok := w.handleFsEvent(event)
				if !ok {
					continue
				}
				res := w.Ingest(ctx, path)
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher error: %v", err)
			}
		}
	}()

	logger.Info("Watching %s for %s files", w.dir, strings.Join(w.extensionList(), ", "))
	return results, nil
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsWatcher == nil {
		return nil
	}
	err := w.fsWatcher.Close()
	w.fsWatcher = nil
	return err
}

// Scan ingests the files already present in the directory.
func (w *Watcher) Scan(ctx context.Context) ([]Result, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read watch dir: %w", err)
	}

	var results []Result
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		path := filepath.Join(w.dir, entry.Name())
		if _, ok := w.handleFsEvent(fsnotify.Event{Name: path, Op: fsnotify.Create}); !ok {
			continue
		}
		results = append(results, w.Ingest(ctx, path))
	}
	return results, nil
}

// Ingest reads path and adds it to the knowledge base unless a document with
// the same name or content already exists. A document previously ingested
// from path is replaced when the file's content has changed.
func (w *Watcher) Ingest(ctx context.Context, path string) Result {
	res := Result{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("read file: %w", err)
		return res
	}
	name := filepath.Base(path)
	if len(data) == 0 {
		// Created but not yet written; the write event follows.
		res.Outcome = OutcomeSkipped
		return res
	}

	norm, err := w.normaliser.Normalise(path, data)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("normalise: %w", err)
		return res
	}
	content := norm.Content
	if strings.TrimSpace(content) == "" {
		res.Outcome = OutcomeSkipped
		return res
	}

	check, err := w.knowledge.CheckDuplicate(ctx, name, content)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("check duplicate: %w", err)
		return res
	}
	outcome := OutcomeAdded
	if check.Exists {
		if !isStale(check, path, content) {
			logger.Debug("Skipping %s: matches %s by %s", name, check.Existing.ID, check.MatchedBy)
			res.Outcome, res.DocumentID = OutcomeSkipped, check.Existing.ID
			return res
		}
		if err := w.knowledge.RemoveDocument(ctx, check.Existing.ID); err != nil {
			res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("remove stale document: %w", err)
			return res
		}
		logger.Debug("Replacing %s: content of %s changed", check.Existing.ID, path)
		outcome = OutcomeReplaced
	}

	id, err := w.knowledge.AddDocument(ctx, domain.NewDocument{
		Name:     name,
		Content:  content,
		Type:     DocumentType,
		Metadata: documentMetadata(path, norm),
	})
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("add document: %w", err)
		return res
	}
	res.Outcome, res.DocumentID = outcome, id
	return res
}

// isStale reports whether a name match is an earlier ingest of this same
// file whose content has since changed, as when a file is written in parts.
func isStale(check *domain.DuplicateCheck, path, content string) bool {
	if check.MatchedBy != "name" || check.Existing == nil {
		return false
	}
	stored, _ := check.Existing.Metadata[domain.MetaPath].(string)
	return stored == path && check.Existing.Content != content
}

// handleFsEvent returns the path to ingest for create and write events on
// visible regular files with a watched extension. Only the part of the path
// below the watched directory is checked for hidden elements.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	rel, err := filepath.Rel(w.dir, event.Name)
	if err != nil {
		rel = filepath.Base(event.Name)
	}
	if isHidden(rel) {
		return "", false
	}
	if !w.extensions[strings.ToLower(filepath.Ext(event.Name))] {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}

// documentMetadata records where a file came from and how it was read.
func documentMetadata(path string, norm *driven.NormaliseResult) map[string]any {
	meta := make(map[string]any, len(norm.Metadata)+3)
	for k, v := range norm.Metadata {
		meta[k] = v
	}
	meta[domain.MetaPath] = path
	meta[domain.MetaFormat] = norm.Format
	if norm.Title != "" {
		meta[domain.MetaTitle] = norm.Title
	}
	return meta
}

func (w *Watcher) extensionList() []string {
	exts := make([]string, 0, len(w.extensions))
	for ext := range w.extensions {
		exts = append(exts, ext)
	}
	return exts
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
