package model

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNoProvider is returned when no provider matches a model identifier.
var ErrNoProvider = errors.New("no provider for model")

// NormalizeName canonicalizes model identifiers. Gemini models are addressed
// with a "gemini/" provider prefix.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if strings.Contains(strings.ToLower(name), "gemini") && !strings.HasPrefix(name, "gemini/") {
		return "gemini/" + name
	}
	return name
}

// ProviderOf returns the provider prefix of a model identifier: the part
// before the first '/', or a well-known family name.
func ProviderOf(name string) string {
	name = NormalizeName(name)
	if prefix, _, ok := strings.Cut(name, "/"); ok {
		return prefix
	}

	lower := strings.ToLower(name)

	switch {
	case strings.HasPrefix(lower, "gpt"), strings.HasPrefix(lower, "o1"), strings.HasPrefix(lower, "o3"), strings.HasPrefix(lower, "o4"):
		return "openai"
	case strings.HasPrefix(lower, "claude"):
		return "anthropic"
	default:
		return ""
	}
}

// StripProvider removes the provider prefix from a model identifier.
func StripProvider(name string) string {
	if _, rest, ok := strings.Cut(name, "/"); ok {
		return rest
	}
	return name
}

// Router dispatches requests to the provider Model registered for the
// request's model identifier. It implements Model itself.
type Router struct {
	mu        sync.RWMutex
	providers map[string]Model
	fallback  Model
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{providers: make(map[string]Model)}
}

// Register binds a provider prefix ("openai", "anthropic", "gemini", "bedrock", ...) to m.
func (r *Router) Register(provider string, m Model) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[provider] = m
}

// SetFallback sets the Model used for identifiers without a matching provider.
func (r *Router) SetFallback(m Model) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fallback = m
}

// Providers lists registered provider prefixes.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.providers))
	for p := range r.providers {
		out = append(out, p)
	}
	sort.Strings(out)

	return out
}

// Resolve returns the Model serving name.
func (r *Router) Resolve(name string) (Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.providers[ProviderOf(name)]; ok {
		return m, nil
	}

	if r.fallback != nil {
		return r.fallback, nil
	}

	return nil, fmt.Errorf("%w %q", ErrNoProvider, name)
}

// Complete implements Model.
func (r *Router) Complete(ctx context.Context, req Request) (*Response, error) {
	req.Model = NormalizeName(req.Model)

	m, err := r.Resolve(req.Model)
	if err != nil {
		return nil, err
	}

	return m.Complete(ctx, req)
}

// Info implements Model.
func (r *Router) Info() Info { return Info{Name: "router", Provider: "router"} }
