package fieldtype

import "regexp"

// registerDefaults installs the default pattern table named in spec.md
// §4.5: numeric (supply/amount/time/limit), currency, percentage, boolean
// (freeze/flags), textarea (memo/description), arrays, objects, select
// (type/kind/status). Priority range 5–15.
func registerDefaults(r *Registry) {
	r.Register("currency", Regex{regexp.MustCompile(`(?i)(price|cost|fee|balance|amount)$`)}, "currency", 15)
	r.Register("percentage", Regex{regexp.MustCompile(`(?i)(percent|rate|ratio)$`)}, "percentage", 14)
	r.Register("numeric-suffix", Regex{regexp.MustCompile(`(?i)(supply|amount|time|limit)$`)}, "number", 12)
	r.Register("boolean-flags", Regex{regexp.MustCompile(`(?i)(freeze|flags?|enabled|active)$`)}, "checkbox", 11)
	r.Register("textarea", Regex{regexp.MustCompile(`(?i)(memo|description|notes?|comment)$`)}, "textarea", 10)
	r.Register("array", Regex{regexp.MustCompile(`(?i)(list|items|tags|ids)$`)}, "array", 8)
	r.Register("object", Regex{regexp.MustCompile(`(?i)(metadata|attributes|config|options)$`)}, "object", 7)
	r.Register("select", Regex{regexp.MustCompile(`(?i)(type|kind|status|category)$`)}, "select", 6)
	r.Register("file", Regex{regexp.MustCompile(`(?i)(file|attachment|upload)$`)}, "file", 9)
}
