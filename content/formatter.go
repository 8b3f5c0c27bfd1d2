package content

import "encoding/json"

// Formatter renders fixed human-readable templates for known tool-response
// shapes, falling back to passthrough for anything else, per spec.md §4.10.
type Formatter struct{}

// NewFormatter constructs a Formatter. It carries no state.
func NewFormatter() *Formatter { return &Formatter{} }

type inscriptionBlock struct {
	TopicID     string `json:"topicId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HRL         string `json:"hrl"`
	CDNURL      string `json:"cdnUrl"`
	Creator     string `json:"creator"`
}

type hashLinkShape struct {
	Success       bool              `json:"success"`
	Type          string            `json:"type"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	TopicID       string            `json:"topicId"`
	HRL           string            `json:"hrl"`
	CDNURL        string            `json:"cdnUrl"`
	Creator       string            `json:"creator"`
	HashLinkBlock *inscriptionBlock `json:"hashLinkBlock"`
	Inscription   *inscriptionBlock `json:"inscription"`
}

// FormatResponse attempts to JSON-decode raw; on success, renders the
// matching fixed template if raw's shape is recognized, else returns raw
// unchanged. Invalid JSON is returned unchanged (passthrough).
func (f *Formatter) FormatResponse(raw string) string {
	var shape hashLinkShape
	if err := json.Unmarshal([]byte(raw), &shape); err != nil {
		return raw
	}
	if !isRecognizedShape(shape) {
		return raw
	}
	return renderTemplate(shape)
}

func isRecognizedShape(s hashLinkShape) bool {
	if !s.Success {
		return false
	}
	if s.Type != "inscription" {
		return false
	}
	return s.HashLinkBlock != nil || s.Inscription != nil
}

// renderTemplate builds the fixed status-line + bolded-name + field listing
// template; inscription values override hashLinkBlock attributes when both
// are present, per spec.md §4.10.
func renderTemplate(s hashLinkShape) string {
	merged := mergeBlocks(s.HashLinkBlock, s.Inscription)

	title := "Interactive content created successfully!"
	if s.Inscription != nil {
		title = "Inscription Complete"
	}
	out := "✅ " + title + "\n"

	name := firstNonEmpty(merged.Name, s.Name)
	if name != "" {
		out += "**" + name + "**\n"
	}
	desc := firstNonEmpty(merged.Description, s.Description)
	if desc != "" {
		out += desc + "\n"
	}

	topicID := firstNonEmpty(merged.TopicID, s.TopicID)
	if topicID != "" {
		out += "Topic ID: " + topicID + "\n"
	}
	hrl := firstNonEmpty(merged.HRL, s.HRL)
	if hrl != "" {
		out += "HRL: " + hrl + "\n"
	}
	cdn := firstNonEmpty(merged.CDNURL, s.CDNURL)
	if cdn != "" {
		out += "CDN URL: " + cdn + "\n"
	}
	creator := firstNonEmpty(merged.Creator, s.Creator)
	if creator != "" {
		out += "Creator: " + creator + "\n"
	}
	return out
}

// mergeBlocks folds hashLinkBlock (base) and inscription (override) into one
// set of template attributes, inscription winning field-by-field.
func mergeBlocks(block, inscription *inscriptionBlock) inscriptionBlock {
	var merged inscriptionBlock
	if block != nil {
		merged = *block
	}
	if inscription != nil {
		if inscription.TopicID != "" {
			merged.TopicID = inscription.TopicID
		}
		if inscription.Name != "" {
			merged.Name = inscription.Name
		}
		if inscription.Description != "" {
			merged.Description = inscription.Description
		}
		if inscription.HRL != "" {
			merged.HRL = inscription.HRL
		}
		if inscription.CDNURL != "" {
			merged.CDNURL = inscription.CDNURL
		}
		if inscription.Creator != "" {
			merged.Creator = inscription.Creator
		}
	}
	return merged
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ExtractHashLinkBlock reports whether raw decodes to JSON carrying a
// hashLinkBlock, surfacing it as metadata the executor propagates on the
// step's Observation, per spec.md §4.9 step 5.
func ExtractHashLinkBlock(raw string) (map[string]interface{}, bool) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false
	}
	block, ok := doc["hashLinkBlock"]
	if !ok {
		return nil, false
	}
	m, ok := block.(map[string]interface{})
	if !ok {
		return nil, false
	}
	return map[string]interface{}{"hashLinkBlock": m}, true
}
