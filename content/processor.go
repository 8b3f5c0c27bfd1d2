// Package content implements the MCP Content Processor & Response Formatter
// (C10): rewriting oversized tool-response content items into references,
// and rendering fixed human-readable templates for known response shapes.
package content

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/viant/mcp-protocol/extension"
	yaml "gopkg.in/yaml.v3"

	"github.com/viant/formflow/refstore"
)

var logger = log.New(log.Writer(), "[content] ", log.LstdFlags)

// contentKinds are the MCP content-item "type" values the processor scans
// for, mirroring the wire vocabulary service_adapter.go projects reflection
// types into.
var contentKinds = map[string]bool{"text": true, "image": true, "resource": true}

// ReferenceMarker is the lightweight stand-in a tool response carries in
// place of an oversized content item. It embeds the store's own marker
// shape and adds a retrieval hint specific to in-flight tool responses.
type ReferenceMarker struct {
	refstore.Marker
	// Hint is a short YAML document telling the caller how to retrieve the
	// rest of the content via the reference id.
	Hint string `json:"hint,omitempty"`
}

// Processor scans tool responses recursively and offloads oversized content
// items to a reference store.
type Processor struct {
	store *refstore.Store
}

// NewProcessor builds a Processor backed by store.
func NewProcessor(store *refstore.Store) *Processor {
	return &Processor{store: store}
}

// Rewrite deep-clones raw (a parsed MCP tool response, typically
// `{content:[...]}`), replacing any text/image/resource item whose payload
// exceeds the store's threshold with a content_reference marker. Failure to
// store any one item is appended to errs and does not abort the remaining
// items, per spec.md §4.10.
func (p *Processor) Rewrite(raw interface{}, serverName, toolName string) (rewritten interface{}, errs []error) {
	clone := deepClone(raw)
	p.walk(clone, serverName, toolName, &errs)
	return clone, errs
}

func (p *Processor) walk(node interface{}, serverName, toolName string, errs *[]error) {
	switch v := node.(type) {
	case map[string]interface{}:
		if p.maybeReplaceItem(v, serverName, toolName, errs) {
			return
		}
		for _, child := range v {
			p.walk(child, serverName, toolName, errs)
		}
	case []interface{}:
		for i, child := range v {
			if m, ok := child.(map[string]interface{}); ok {
				if p.maybeReplaceItem(m, serverName, toolName, errs) {
					v[i] = m
					continue
				}
			}
			p.walk(child, serverName, toolName, errs)
		}
	}
}

// maybeReplaceItem tests whether item is a content item (has a recognized
// "type" plus an inline payload field) and, if oversized, replaces its
// payload fields in place with a reference marker. Returns true if item was
// recognized as a content item (handled, whether or not it was replaced).
func (p *Processor) maybeReplaceItem(item map[string]interface{}, serverName, toolName string, errs *[]error) bool {
	kind, _ := item["type"].(string)
	if !contentKinds[kind] {
		return false
	}

	payload, field := extractPayload(item, kind)
	if payload == "" {
		return true
	}

	ref, err := p.store.StoreContentIfLarge([]byte(payload), refstore.Metadata{
		Source: refstore.SourceMCPTool,
		Tags:   []string{"mcp_response", serverName, toolName},
	})
	if err != nil {
		logger.Printf("error: failed to store content item for %s/%s: %v", serverName, toolName, err)
		*errs = append(*errs, fmt.Errorf("content: store item (%s): %w", kind, err))
		return true
	}
	if ref == nil {
		return true
	}

	returned := len(ref.Preview)
	remaining := ref.Metadata.SizeBytes - returned
	if remaining < 0 {
		remaining = 0
	}
	hint, err := buildOverflowHint(ref.ReferenceID, &extension.Continuation{
		Returned:  returned,
		Remaining: remaining,
	})
	if err != nil {
		logger.Printf("warn: failed to build overflow hint for %s: %v", ref.ReferenceID, err)
	}

	marker := ReferenceMarker{Marker: refstore.NewMarker(ref), Hint: hint}
	item[field] = markerToMap(marker)
	return true
}

// buildOverflowHint renders a short YAML document telling the caller how to
// retrieve the full oversized content item by resolving its reference id
// through the reference store, carrying the reference id plus the
// returned/remaining byte counts.
func buildOverflowHint(referenceID string, cont *extension.Continuation) (string, error) {
	doc := map[string]interface{}{
		"overflow":  true,
		"messageId": strings.TrimSpace(referenceID),
	}
	if cont != nil {
		if cont.Returned > 0 {
			doc["returned"] = cont.Returned
		}
		if cont.Remaining > 0 {
			doc["remaining"] = cont.Remaining
		}
	}
	doc["hint"] = "Resolve ref://<messageId> through the reference store to read the full content."

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func extractPayload(item map[string]interface{}, kind string) (string, string) {
	switch kind {
	case "text":
		if s, ok := item["text"].(string); ok {
			return s, "text"
		}
	case "image":
		if s, ok := item["data"].(string); ok {
			return s, "data"
		}
	case "resource":
		if s, ok := item["blob"].(string); ok {
			return s, "blob"
		}
		if s, ok := item["text"].(string); ok {
			return s, "text"
		}
	}
	return "", ""
}

// markerToMap round-trips a ReferenceMarker through JSON so it sits in the
// response tree using the same generic map shape as the rest of the
// deep-cloned document.
func markerToMap(m ReferenceMarker) map[string]interface{} {
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	_ = json.Unmarshal(b, &out)
	return out
}

// deepClone round-trips node through JSON to produce an independent copy;
// mutation in walk never touches the caller's original structure.
func deepClone(node interface{}) interface{} {
	b, err := json.Marshal(node)
	if err != nil {
		return node
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return node
	}
	return out
}
