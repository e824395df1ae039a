package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEmptyLocaleScope indicates an explicit scope was supplied without any locale codes.
	ErrEmptyLocaleScope = errors.New("domain: locale scope requires at least one locale")
	// ErrUnknownLocale indicates a scoped locale is not part of the configured locale list.
	ErrUnknownLocale = errors.New("domain: unknown locale")
)

// LocaleScope identifies the locales a publish or unpublish action applies to.
// The zero value is invalid; use AllLocales or LocaleSet to construct scopes.
type LocaleScope struct {
	All     bool     `json:"all"`
	Locales []string `json:"locales,omitempty"`
}

// AllLocales returns a scope covering every configured locale.
func AllLocales() LocaleScope {
	return LocaleScope{All: true}
}

// LocaleSet returns a scope covering an explicit set of locale codes.
func LocaleSet(codes ...string) LocaleScope {
	return LocaleScope{Locales: codes}.Normalize()
}

// IsAll reports whether the scope covers every configured locale.
func (s LocaleScope) IsAll() bool {
	return s.All
}

// IsZero reports whether the scope carries neither the "all" marker nor locales.
func (s LocaleScope) IsZero() bool {
	return !s.All && len(s.Locales) == 0
}

// Includes reports whether the scope covers the supplied locale code.
func (s LocaleScope) Includes(code string) bool {
	if s.All {
		return true
	}
	code = normalizeLocale(code)
	for _, candidate := range s.Locales {
		if candidate == code {
			return true
		}
	}
	return false
}

// Normalize trims, lowercases, deduplicates, and sorts the locale codes so
// scopes compare deterministically. All-locale scopes drop any explicit list.
func (s LocaleScope) Normalize() LocaleScope {
	if s.All {
		return LocaleScope{All: true}
	}
	seen := make(map[string]struct{}, len(s.Locales))
	out := make([]string, 0, len(s.Locales))
	for _, code := range s.Locales {
		normalized := normalizeLocale(code)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	return LocaleScope{Locales: out}
}

// Resolve expands the scope against the configured locale list, returning the
// concrete locale codes the scope applies to.
func (s LocaleScope) Resolve(configured []string) []string {
	if s.All {
		out := make([]string, len(configured))
		copy(out, configured)
		return out
	}
	out := make([]string, len(s.Locales))
	copy(out, s.Locales)
	return out
}

// Validate checks the scope against the configured locale list. Explicit
// scopes must be non-empty and reference only configured locales.
func (s LocaleScope) Validate(configured []string) error {
	if s.All {
		return nil
	}
	if len(s.Locales) == 0 {
		return ErrEmptyLocaleScope
	}
	known := make(map[string]struct{}, len(configured))
	for _, code := range configured {
		known[normalizeLocale(code)] = struct{}{}
	}
	for _, code := range s.Locales {
		if _, ok := known[normalizeLocale(code)]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownLocale, code)
		}
	}
	return nil
}

// String renders the scope as the literal "all" or a comma separated locale list.
func (s LocaleScope) String() string {
	if s.All {
		return "all"
	}
	return strings.Join(s.Locales, ",")
}

func normalizeLocale(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
