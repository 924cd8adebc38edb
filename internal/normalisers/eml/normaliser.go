// Package eml normalises RFC 5322 email messages. The plain text body is
// preferred over HTML and the From, To, Date and Subject headers are kept
// at the top of the content so they are searchable.
package eml

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/normalisers/html"
	"github.com/custodia-labs/lexrag/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EML documents.
type Normaliser struct{}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Format returns "eml".
func (n *Normaliser) Format() string {
	return "eml"
}

// Extensions returns the extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".eml"}
}

// Normalise extracts the headers and body of a message.
func (n *Normaliser) Normalise(name string, data []byte) (*driven.NormaliseResult, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not an email message", domain.ErrInvalidInput, name)
	}

	headers := []struct{ key, value string }{
		{"From", decodeHeader(msg.Header.Get("From"))},
		{"To", decodeHeader(msg.Header.Get("To"))},
		{"Date", msg.Header.Get("Date")},
		{"Subject", decodeHeader(msg.Header.Get("Subject"))},
	}

	body, err := extractBody(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, name, err)
	}

	var content strings.Builder
	meta := make(map[string]any)
	for _, h := range headers {
		if h.value == "" {
			continue
		}
		fmt.Fprintf(&content, "%s: %s\n", h.key, h.value)
		meta[strings.ToLower(h.key)] = h.value
	}
	content.WriteString("\n")
	content.WriteString(body)

	title := decodeHeader(msg.Header.Get("Subject"))
	if title == "" {
		title = plaintext.TitleFromName(name)
	}

	return &driven.NormaliseResult{
		Content:  strings.TrimSpace(content.String()),
		Title:    title,
		Format:   n.Format(),
		Metadata: meta,
	}, nil
}

// decodeHeader decodes RFC 2047 encoded words, returning the raw header on failure.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

func extractBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", readErr
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(msg.Body, params["boundary"]), nil
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", err
	}
	if mediaType == "text/html" {
		return html.StripTags(string(body)), nil
	}
	return string(body), nil
}

// extractMultipartBody joins the text/plain parts, falling back to the
// HTML parts when a message has no plain text alternative.
func extractMultipartBody(r io.Reader, boundary string) string {
	if boundary == "" {
		return ""
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		mediaType, params, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}

		content, readErr := io.ReadAll(part)
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			htmlParts = append(htmlParts, html.StripTags(string(content)))
		case strings.HasPrefix(mediaType, "multipart/"):
			if nested := extractMultipartBody(bytes.NewReader(content), params["boundary"]); nested != "" {
				textParts = append(textParts, nested)
			}
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n")
	}
	return strings.Join(htmlParts, "\n")
}
