// Package guidance implements the Field Guidance Registry (C6): a priority-
// and pattern-based resolver that merges static per-tool configuration with
// dynamic providers to produce field-level suggestions, help text,
// validation rules, and type overrides.
package guidance

import (
	"log"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var logger = log.New(log.Writer(), "[guidance] ", log.LstdFlags)

const enabledEnvVar = "CA_FORM_GUIDANCE_ENABLED"

// FieldGuidance is the per-field guidance payload, per spec.md §3.
type FieldGuidance struct {
	Suggestions        []string
	PredefinedOptions   []string
	Warnings            []string
	ValidationRules     *ValidationRules
	FieldTypeOverride   string
	ContextualHelpText  string
}

// ValidationRules carries pattern-based validation for a field's value.
type ValidationRules struct {
	RejectPatterns         []string
	RequireSpecificTerms   []string
	ForbidTechnicalTerms   []string
	MinNonTechnicalWords   int
}

// GlobalGuidance is per-tool guidance not tied to a single field.
type GlobalGuidance struct {
	Warnings         []string
	QualityStandards []string
}

// ValidationResult is returned by ValidateFieldValue.
type ValidationResult struct {
	IsValid  bool
	Warnings []string
	Errors   []string
}

// ToolConfiguration is a static, registered configuration for tools whose
// name matches Pattern.
type ToolConfiguration struct {
	ToolPattern    string // substring or /regex/
	Fields         map[string]FieldGuidance
	GlobalGuidance *GlobalGuidance
}

// Provider supplies dynamic field guidance for a tool/field pair.
type Provider func(toolName, fieldName string) (*FieldGuidance, error)

// GlobalProvider supplies dynamic global guidance for a tool.
type GlobalProvider func(toolName string) (*GlobalGuidance, error)

type providerRegistration struct {
	ID         string
	Priority   int
	Pattern    string
	Provider   Provider
	GlobalProv GlobalProvider
	Order      int
}

// Registry holds static tool configurations and provider registrations.
type Registry struct {
	mu         sync.RWMutex
	configs    []ToolConfiguration
	providers  []providerRegistration
	regSeq     int
}

// New creates an empty guidance registry.
func New() *Registry {
	return &Registry{}
}

// RegisterToolConfiguration appends a static configuration.
func (r *Registry) RegisterToolConfiguration(cfg ToolConfiguration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
}

// ProviderOptions configures a provider registration's id/priority.
type ProviderOptions struct {
	ID       string
	Priority int
}

// ErrDuplicateProviderID mirrors spec.md §4.6's `DUPLICATE_PROVIDER_ID`
// error kind.
const ErrDuplicateProviderID = "duplicate_provider_id"

// RegisterToolProvider registers a dynamic field-guidance provider matched
// against tool names by pattern, returning its (possibly generated) id, or
// an error whose message starts with ErrDuplicateProviderID if the id
// collides.
func (r *Registry) RegisterToolProvider(pattern string, provider Provider, opts ProviderOptions) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	for _, p := range r.providers {
		if p.ID == id {
			return "", errDuplicateProviderID(id)
		}
	}
	r.regSeq++
	r.providers = append(r.providers, providerRegistration{
		ID: id, Priority: opts.Priority, Pattern: pattern, Provider: provider, Order: r.regSeq,
	})
	return id, nil
}

// RegisterGlobalProvider registers a dynamic global-guidance provider.
func (r *Registry) RegisterGlobalProvider(pattern string, provider GlobalProvider, opts ProviderOptions) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	for _, p := range r.providers {
		if p.ID == id {
			return "", errDuplicateProviderID(id)
		}
	}
	r.regSeq++
	r.providers = append(r.providers, providerRegistration{
		ID: id, Priority: opts.Priority, Pattern: pattern, GlobalProv: provider, Order: r.regSeq,
	})
	return id, nil
}

type duplicateProviderErr struct{ id string }

func (e duplicateProviderErr) Error() string { return ErrDuplicateProviderID + ": " + e.id }

func errDuplicateProviderID(id string) error { return duplicateProviderErr{id: id} }

// UnregisterProvider removes a provider registration by id.
func (r *Registry) UnregisterProvider(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.providers[:0]
	for _, p := range r.providers {
		if p.ID != id {
			out = append(out, p)
		}
	}
	r.providers = out
}

// ProviderInfo is the listing shape returned by ListProviders.
type ProviderInfo struct {
	ID       string
	Priority int
	Pattern  string
}

// ListProviders returns every registered provider's id/priority/pattern.
func (r *Registry) ListProviders() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ProviderInfo, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, ProviderInfo{ID: p.ID, Priority: p.Priority, Pattern: p.Pattern})
	}
	return out
}

// Clear removes every static configuration and provider.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = nil
	r.providers = nil
	r.regSeq = 0
}

func guidanceEnabled() bool {
	v := strings.TrimSpace(os.Getenv(enabledEnvVar))
	return v != "false"
}

func patternMatches(pattern, toolName string) bool {
	if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") && len(pattern) > 1 {
		re, err := regexp.Compile(pattern[1 : len(pattern)-1])
		if err != nil {
			return false
		}
		return re.MatchString(toolName)
	}
	return strings.Contains(strings.ToLower(toolName), strings.ToLower(pattern))
}

// GetFieldGuidance resolves field-level guidance for toolName/fieldName,
// folding matching providers (highest priority first, most-recently
// registered breaking ties) over a static base, per spec.md §4.6. Returns
// nil when CA_FORM_GUIDANCE_ENABLED=false or nothing matches.
func (r *Registry) GetFieldGuidance(toolName, fieldName string) *FieldGuidance {
	if !guidanceEnabled() {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var base *FieldGuidance
	for _, cfg := range r.configs {
		if !patternMatches(cfg.ToolPattern, toolName) {
			continue
		}
		if fg, ok := cfg.Fields[fieldName]; ok {
			cp := fg
			base = &cp
		}
	}

	var matched []providerRegistration
	for _, p := range r.providers {
		if p.Provider == nil {
			continue
		}
		if patternMatches(p.Pattern, toolName) {
			matched = append(matched, p)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].Order > matched[j].Order
	})

	result := base
	// Fold lowest-priority first so the highest-priority provider's
	// non-empty fields win last, per spec.md §4.6.
	for i := len(matched) - 1; i >= 0; i-- {
		p := matched[i]
		fg, err := func() (fg *FieldGuidance, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Printf("warn: guidance provider %s panicked for %s/%s: %v", p.ID, toolName, fieldName, rec)
					fg, err = nil, nil
				}
			}()
			return p.Provider(toolName, fieldName)
		}()
		if err != nil {
			logger.Printf("warn: guidance provider %s failed for %s/%s: %v", p.ID, toolName, fieldName, err)
			continue
		}
		if fg == nil {
			continue
		}
		result = mergeFieldGuidance(result, fg)
	}
	return result
}

// mergeFieldGuidance overlays override onto base, per-key, where a zero
// value on override preserves the base value.
func mergeFieldGuidance(base, override *FieldGuidance) *FieldGuidance {
	out := FieldGuidance{}
	if base != nil {
		out = *base
	}
	if override == nil {
		return &out
	}
	if len(override.Suggestions) > 0 {
		out.Suggestions = override.Suggestions
	}
	if len(override.PredefinedOptions) > 0 {
		out.PredefinedOptions = override.PredefinedOptions
	}
	if len(override.Warnings) > 0 {
		out.Warnings = override.Warnings
	}
	if override.ValidationRules != nil {
		out.ValidationRules = override.ValidationRules
	}
	if override.FieldTypeOverride != "" {
		out.FieldTypeOverride = override.FieldTypeOverride
	}
	if override.ContextualHelpText != "" {
		out.ContextualHelpText = override.ContextualHelpText
	}
	return &out
}

// GetGlobalGuidance resolves per-tool global guidance, merging warnings and
// quality standards across matching static config and providers.
func (r *Registry) GetGlobalGuidance(toolName string) *GlobalGuidance {
	if !guidanceEnabled() {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := &GlobalGuidance{}
	any := false
	for _, cfg := range r.configs {
		if !patternMatches(cfg.ToolPattern, toolName) || cfg.GlobalGuidance == nil {
			continue
		}
		any = true
		out.Warnings = append(out.Warnings, cfg.GlobalGuidance.Warnings...)
		out.QualityStandards = append(out.QualityStandards, cfg.GlobalGuidance.QualityStandards...)
	}
	for _, p := range r.providers {
		if p.GlobalProv == nil || !patternMatches(p.Pattern, toolName) {
			continue
		}
		g, err := p.GlobalProv(toolName)
		if err != nil {
			logger.Printf("warn: global guidance provider %s failed for %s: %v", p.ID, toolName, err)
			continue
		}
		if g == nil {
			continue
		}
		any = true
		out.Warnings = append(out.Warnings, g.Warnings...)
		out.QualityStandards = append(out.QualityStandards, g.QualityStandards...)
	}
	if !any {
		return nil
	}
	return out
}

// ValidateFieldValue validates value against a field's guidance
// (non-string values pass trivially).
func (r *Registry) ValidateFieldValue(toolName, fieldName string, value interface{}) ValidationResult {
	s, ok := value.(string)
	if !ok {
		return ValidationResult{IsValid: true}
	}

	fg := r.GetFieldGuidance(toolName, fieldName)
	if fg == nil || fg.ValidationRules == nil {
		return ValidationResult{IsValid: true}
	}

	var warnings, errorsOut []string
	lower := strings.ToLower(s)
	rules := fg.ValidationRules

	for _, p := range rules.RejectPatterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			errorsOut = append(errorsOut, "value contains rejected pattern: "+p)
		}
	}
	for _, t := range rules.ForbidTechnicalTerms {
		if strings.Contains(lower, strings.ToLower(t)) {
			errorsOut = append(errorsOut, "value contains forbidden technical term: "+t)
		}
	}
	for _, t := range rules.RequireSpecificTerms {
		if !strings.Contains(lower, strings.ToLower(t)) {
			warnings = append(warnings, "value is missing suggested term: "+t)
		}
	}
	if rules.MinNonTechnicalWords > 0 {
		words := strings.Fields(s)
		if len(words) < rules.MinNonTechnicalWords {
			warnings = append(warnings, "value has fewer words than recommended")
		}
	}

	return ValidationResult{IsValid: len(errorsOut) == 0, Warnings: warnings, Errors: errorsOut}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide default registry, a convenience
// accessor rather than a mandatory singleton.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = New() })
	return defaultReg
}
