package refstore

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

const maxPreviewLen = 200

var (
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	markdownHeading   = regexp.MustCompile(`(?m)^#{1,6}\s.+\n`)
)

// generatePreview renders a ≤200-char preview, truncated with a "..."
// suffix, per spec.md §4.3.
func generatePreview(content []byte, ct ContentType) string {
	switch ct {
	case ContentHTML:
		stripped := tagPattern.ReplaceAllString(string(content), " ")
		stripped = whitespacePattern.ReplaceAllString(stripped, " ")
		return truncate(strings.TrimSpace(stripped))
	case ContentJSON:
		var v interface{}
		if err := json.Unmarshal(content, &v); err != nil {
			return truncate(string(content))
		}
		compact, err := json.Marshal(v)
		if err != nil {
			return truncate(string(content))
		}
		return truncate(string(compact))
	case ContentBinary:
		if len(content) == 0 {
			return "[Binary content]"
		}
		return truncate(string(content))
	default: // text, markdown
		if len(content) == 0 {
			return ""
		}
		return truncate(string(content))
	}
}

// truncate clips s to maxPreviewLen bytes, appending "..." whenever s is
// maxPreviewLen bytes or longer.
func truncate(s string) string {
	if len(s) < maxPreviewLen {
		return s
	}
	return s[:maxPreviewLen] + "..."
}

// detectContentType infers a ContentType from the caller-supplied MIME type
// or, failing that, sniffs the content bytes, per spec.md §4.3's decision
// table.
func detectContentType(content []byte, mimeType string) ContentType {
	switch {
	case strings.Contains(mimeType, "text/html"):
		return ContentHTML
	case strings.Contains(mimeType, "text/markdown"):
		return ContentMarkdown
	case strings.Contains(mimeType, "application/json"):
		return ContentJSON
	}

	trimmed := bytes.TrimSpace(content)
	switch {
	case len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '['):
		return ContentJSON
	case bytes.Contains(trimmed, []byte("<html>")) || bytes.Contains(trimmed, []byte("<!DOCTYPE")):
		return ContentHTML
	case markdownHeading.Match(trimmed):
		return ContentMarkdown
	}

	if mimeType != "" && !strings.HasPrefix(mimeType, "text/") {
		return ContentBinary
	}
	return ContentText
}
