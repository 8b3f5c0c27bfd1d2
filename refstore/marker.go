package refstore

import "regexp"

// refURIPattern matches the `ref://<43-char-url-safe>` grammar.
var refURIPattern = regexp.MustCompile(`ref://([A-Za-z0-9_-]{43})`)

// bareIDPattern matches a standalone 43-char id appearing as its own word.
var bareIDPattern = regexp.MustCompile(`(^|\s)([A-Za-z0-9_-]{43})(\s|$)`)

// ExtractReferenceID finds a reference id embedded in s, recognizing both
// the `ref://` prefixed form and a bare standalone 43-char id, per spec.md
// §6/§9 (the spec explicitly fixes both forms rather than accepting
// ambiguously shorter ids).
func ExtractReferenceID(s string) (string, bool) {
	if m := refURIPattern.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if m := bareIDPattern.FindStringSubmatch(s); m != nil {
		return m[2], true
	}
	return "", false
}

// ReplaceReferences finds every reference id in s — both the `ref://`
// prefixed form and a bare standalone 43-char id — and replaces each
// occurrence with replace(id), leaving the surrounding text untouched.
func ReplaceReferences(s string, replace func(id string) string) string {
	s = refURIPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := refURIPattern.FindStringSubmatch(m)
		return replace(sub[1])
	})
	return bareIDPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := bareIDPattern.FindStringSubmatch(m)
		return sub[1] + replace(sub[2]) + sub[3]
	})
}

// Marker is the lightweight content-reference marker embedded in tool
// responses in place of oversized payloads, per spec.md §4.10/§6.
type Marker struct {
	Type        string `json:"type"`
	ReferenceID string `json:"referenceId"`
	Preview     string `json:"preview"`
	Size        int    `json:"size"`
	ContentType string `json:"contentType"`
	Format      string `json:"format"`
	IsReference bool   `json:"_isReference"`
}

// NewMarker builds the marker for a stored reference.
func NewMarker(ref *Reference) Marker {
	return Marker{
		Type:        "content_reference",
		ReferenceID: ref.ReferenceID,
		Preview:     ref.Preview,
		Size:        ref.Metadata.SizeBytes,
		ContentType: string(ref.Metadata.ContentType),
		Format:      ref.Format(),
		IsReference: true,
	}
}
