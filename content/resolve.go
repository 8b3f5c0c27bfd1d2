package content

import (
	"fmt"

	"github.com/viant/formflow/refstore"
)

// ResolveReferences scans text for embedded reference ids and replaces each
// one with its resolved content, or, when resolution fails, with a compact
// unavailable/error marker plus a recovery hint, per spec.md §7.
func (p *Processor) ResolveReferences(text string) string {
	return refstore.ReplaceReferences(text, func(id string) string {
		res := p.store.ResolveReference(id)
		if res.Success {
			return string(res.Content)
		}
		return substituteUnresolvedReference(id, res)
	})
}

// substituteUnresolvedReference renders spec.md §7's fixed, user-visible
// stand-in for a reference that could not be resolved: a "❌ Reference
// unavailable" marker for terminal lifecycle failures (not_found, expired,
// corrupted), or a "⚠️ Reference error" marker carrying the underlying
// message for anything else, followed by a recovery hint drawn from the
// store's suggested actions.
func substituteUnresolvedReference(referenceID string, res refstore.ResolveResult) string {
	prefix := referenceID
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}

	var marker string
	switch res.ErrorType {
	case refstore.ErrNotFound, refstore.ErrExpired, refstore.ErrCorrupted:
		marker = fmt.Sprintf("❌ Reference unavailable: %s...", prefix)
	default:
		marker = fmt.Sprintf("⚠️ Reference error: %s", res.Error)
	}

	if hint := recoveryHint(res); hint != "" {
		marker += "\n" + hint
	}
	return marker
}

func recoveryHint(res refstore.ResolveResult) string {
	if len(res.SuggestedActions) == 0 {
		return ""
	}
	hint := "Suggested: " + res.SuggestedActions[0]
	for _, action := range res.SuggestedActions[1:] {
		hint += "; " + action
	}
	return hint
}
