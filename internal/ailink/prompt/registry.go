package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Registry provides access to prompt definitions by platform slug.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// InMemoryRegistry stores prompts by slug.
type InMemoryRegistry struct {
	prompts map[string]*Prompt
}

// NewRegistry builds a registry from prompts. Duplicate slugs are rejected.
func NewRegistry(prompts []*Prompt) (*InMemoryRegistry, error) {
	reg := &InMemoryRegistry{prompts: make(map[string]*Prompt, len(prompts))}
	for _, p := range prompts {
		if p == nil {
			continue
		}
		if _, ok := reg.prompts[p.Config.Slug]; ok {
			return nil, fmt.Errorf("duplicate prompt slug: %s", p.Config.Slug)
		}
		reg.prompts[p.Config.Slug] = p
	}
	return reg, nil
}

// Override replaces prompts whose slug matches one in overrides.
func (r *InMemoryRegistry) Override(overrides []*Prompt) {
	for _, p := range overrides {
		if p != nil {
			r.prompts[p.Config.Slug] = p
		}
	}
}

// Get returns the prompt for the slug.
func (r *InMemoryRegistry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	p, ok := r.prompts[slug]
	if !ok {
		return nil, fmt.Errorf("prompt %q not found", slug)
	}
	return p, nil
}

// List returns prompts sorted by slug.
func (r *InMemoryRegistry) List() []*Prompt {
	if r == nil {
		return nil
	}
	out := make([]*Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Config.Slug < out[j].Config.Slug })
	return out
}
