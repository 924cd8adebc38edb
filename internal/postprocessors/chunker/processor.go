// Package chunker splits document text into sentence-bounded chunks sized
// for embedding and retrieval.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// DefaultChunkSize is the default target chunk length in characters.
const DefaultChunkSize = 500

// Verify interface compliance.
var _ driven.Chunker = (*Processor)(nil)

// Processor groups sentences into chunks of roughly chunkSize characters.
type Processor struct {
	chunkSize int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "sentence-chunker"
}

// ChunkSize returns the configured target size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Chunk splits content into chunks. A non-positive targetSize uses the
// processor's configured size.
func (p *Processor) Chunk(content string, targetSize int) []string {
	if targetSize <= 0 {
		targetSize = p.chunkSize
	}
	return Chunk(content, targetSize)
}

// Chunk greedily packs sentences into chunks of at most targetSize
// characters. A chunk only exceeds targetSize when it holds a single
// sentence longer than the target. Each chunk is a trimmed slice of
// content, so the whitespace between its sentences is kept as written.
// Blank content yields no chunks.
func Chunk(content string, targetSize int) []string {
	if targetSize <= 0 {
		targetSize = DefaultChunkSize
	}

	spans := sentenceSpans(content)
	if len(spans) == 0 {
		return nil
	}

	chunks := make([]string, 0, len(spans))
	first, last := spans[0], spans[0]
	for _, sp := range spans[1:] {
		if sp.runeEnd-first.runeStart > targetSize {
			chunks = append(chunks, content[first.start:last.end])
			first = sp
		}
		last = sp
	}
	return append(chunks, content[first.start:last.end])
}

// SplitSentences returns the trimmed, non-empty sentences of content.
// A sentence ends with one or more of '.', '!' or '?'; trailing text without
// a terminator forms a final sentence.
func SplitSentences(content string) []string {
	spans := sentenceSpans(content)
	if len(spans) == 0 {
		return nil
	}
	sentences := make([]string, len(spans))
	for i, sp := range spans {
		sentences[i] = content[sp.start:sp.end]
	}
	return sentences
}

// span locates a trimmed sentence in its source, in bytes and in runes.
type span struct {
	start, end         int
	runeStart, runeEnd int
}

func sentenceSpans(content string) []span {
	var spans []span
	// Rune position of byte offset pos, advanced as spans are emitted.
	pos, runes := 0, 0
	emit := func(start, end int) {
		raw := content[start:end]
		trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)
		start += len(raw) - len(trimmed)
		trimmed = strings.TrimRightFunc(trimmed, unicode.IsSpace)
		if trimmed == "" {
			return
		}
		end = start + len(trimmed)
		runeStart := runes + utf8.RuneCountInString(content[pos:start])
		pos, runes = end, runeStart+utf8.RuneCountInString(trimmed)
		spans = append(spans, span{
			start:     start,
			end:       end,
			runeStart: runeStart,
			runeEnd:   runes,
		})
	}

	start := 0
	inTerminator := false
	for i, r := range content {
		terminal := r == '.' || r == '!' || r == '?'
		if inTerminator && !terminal {
			emit(start, i)
			start = i
		}
		inTerminator = terminal
	}
	emit(start, len(content))

	return spans
}
