// Package tokens counts prompt tokens so oversized messages can be rejected
// before they reach the language model.
package tokens

import (
	"fmt"
	"strings"
)

// Counter counts tokens in plain text for a model.
type Counter interface {
	CountText(model, text string) (int, error)
	SupportsModel(model string) bool
}

// Registry picks the first registered counter that supports a model and
// falls back to the estimator otherwise.
type Registry struct {
	counters []Counter
	fallback Counter
}

// NewRegistry creates a registry with the tiktoken counter registered and the
// character estimator as fallback.
func NewRegistry() *Registry {
	r := &Registry{fallback: NewEstimator()}
	r.Register(NewOpenAICounter())
	return r
}

// Register adds a token counter to the registry.
func (r *Registry) Register(counter Counter) {
	r.counters = append(r.counters, counter)
}

// SetFallback sets the fallback counter for unsupported models.
func (r *Registry) SetFallback(counter Counter) {
	r.fallback = counter
}

// CountText counts tokens using the appropriate counter for the model.
func (r *Registry) CountText(model, text string) (int, error) {
	for _, counter := range r.counters {
		if counter.SupportsModel(model) {
			n, err := counter.CountText(model, text)
			if err == nil {
				return n, nil
			}
			break
		}
	}
	if r.fallback != nil {
		return r.fallback.CountText(model, text)
	}
	return 0, fmt.Errorf("no token counter available for model: %s", model)
}

// SupportsModel reports whether any counter, including the fallback, can
// handle model.
func (r *Registry) SupportsModel(model string) bool {
	if r.fallback != nil {
		return true
	}
	for _, counter := range r.counters {
		if counter.SupportsModel(model) {
			return true
		}
	}
	return false
}

// Estimator approximates token counts from character length.
type Estimator struct {
	CharsPerToken float64
}

// NewEstimator creates an estimator using the usual four characters per token.
func NewEstimator() *Estimator {
	return &Estimator{CharsPerToken: 4.0}
}

// CountText estimates the token count.
func (e *Estimator) CountText(_ string, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	n := int(float64(len(text)) / e.CharsPerToken)
	if n == 0 {
		n = 1
	}
	return n, nil
}

// SupportsModel returns true - estimator supports all models as a fallback.
func (e *Estimator) SupportsModel(string) bool {
	return true
}

// ModelMatcher helps match model names to provider patterns.
type ModelMatcher struct {
	prefixes []string
	exact    []string
}

// NewModelMatcher creates a new model matcher.
func NewModelMatcher(prefixes, exact []string) *ModelMatcher {
	return &ModelMatcher{
		prefixes: prefixes,
		exact:    exact,
	}
}

// Matches returns true if the model matches any pattern.
func (m *ModelMatcher) Matches(model string) bool {
	for _, e := range m.exact {
		if model == e {
			return true
		}
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}
