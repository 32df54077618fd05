package profile

import (
	"fmt"
	"sort"
	"strings"

	appErr "codesandbox/pkg/errors"

	"github.com/google/shlex"
)

// Repository resolves language ids into profiles.
type Repository interface {
	Get(language string) (LanguageProfile, error)
	List() []LanguageProfile
}

// Registry is an immutable in-memory Repository.
type Registry struct {
	profiles map[string]LanguageProfile
}

// NewRegistry validates profiles and builds a registry keyed by lower-case id.
func NewRegistry(profiles []LanguageProfile) (*Registry, error) {
	byID := make(map[string]LanguageProfile, len(profiles))
	for _, p := range profiles {
		id := normalize(p.ID)
		if id == "" {
			return nil, fmt.Errorf("language profile id is required")
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("duplicate language profile: %s", id)
		}
		if strings.TrimSpace(p.Extension) == "" {
			return nil, fmt.Errorf("language %s: extension is required", id)
		}
		if err := validateTemplate(p.RunCmd); err != nil {
			return nil, fmt.Errorf("language %s: run command: %w", id, err)
		}
		if p.CompileEnabled() {
			if err := validateTemplate(p.CompileCmd); err != nil {
				return nil, fmt.Errorf("language %s: compile command: %w", id, err)
			}
		}
		if p.UsesEntryPoint() && p.DefaultEntry == "" {
			return nil, fmt.Errorf("language %s: default entry point is required", id)
		}
		p.ID = id
		byID[id] = p
	}
	return &Registry{profiles: byID}, nil
}

// NewDefaultRegistry returns a registry holding DefaultProfiles.
func NewDefaultRegistry() *Registry {
	reg, err := NewRegistry(DefaultProfiles())
	if err != nil {
		panic(err)
	}
	return reg
}

// Get returns the profile for a language id. Matching is case-insensitive.
func (r *Registry) Get(language string) (LanguageProfile, error) {
	id := normalize(language)
	if id == "" {
		return LanguageProfile{}, appErr.ValidationError("language", "required")
	}
	p, ok := r.profiles[id]
	if !ok {
		return LanguageProfile{}, appErr.UnsupportedLanguage(language)
	}
	return p, nil
}

// List returns all profiles sorted by id.
func (r *Registry) List() []LanguageProfile {
	out := make([]LanguageProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Merge overlays overrides on top of base by id; overrides with new ids are appended.
func Merge(base, overrides []LanguageProfile) []LanguageProfile {
	out := make([]LanguageProfile, 0, len(base)+len(overrides))
	index := make(map[string]int, len(base))
	for _, p := range base {
		index[normalize(p.ID)] = len(out)
		out = append(out, p)
	}
	for _, p := range overrides {
		if i, ok := index[normalize(p.ID)]; ok {
			out[i] = p
			continue
		}
		index[normalize(p.ID)] = len(out)
		out = append(out, p)
	}
	return out
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func validateTemplate(tpl string) error {
	if strings.TrimSpace(tpl) == "" {
		return fmt.Errorf("template is empty")
	}
	fields, err := shlex.Split(tpl)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("template is empty")
	}
	return nil
}
