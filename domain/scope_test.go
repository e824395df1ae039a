package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestLocaleScopeNormalize(t *testing.T) {
	scope := LocaleScope{Locales: []string{" ES ", "en", "es", "", "EN"}}.Normalize()
	if scope.IsAll() {
		t.Fatalf("expected explicit scope")
	}
	if !reflect.DeepEqual(scope.Locales, []string{"en", "es"}) {
		t.Fatalf("expected deduplicated sorted locales, got %v", scope.Locales)
	}

	all := AllLocales().Normalize()
	if !all.IsAll() || len(all.Locales) != 0 {
		t.Fatalf("expected all scope to drop explicit locales, got %v", all)
	}
}

func TestLocaleScopeIncludes(t *testing.T) {
	scope := LocaleSet("en", "es")
	if !scope.Includes("EN") {
		t.Fatalf("expected case-insensitive match")
	}
	if scope.Includes("fr") {
		t.Fatalf("did not expect fr in scope")
	}
	if !AllLocales().Includes("anything") {
		t.Fatalf("expected all scope to include every code")
	}
}

func TestLocaleScopeResolve(t *testing.T) {
	configured := []string{"en", "es", "fr"}
	if got := AllLocales().Resolve(configured); !reflect.DeepEqual(got, configured) {
		t.Fatalf("expected all scope to resolve to configured list, got %v", got)
	}
	if got := LocaleSet("es").Resolve(configured); !reflect.DeepEqual(got, []string{"es"}) {
		t.Fatalf("expected explicit scope to resolve to itself, got %v", got)
	}
}

func TestLocaleScopeValidate(t *testing.T) {
	configured := []string{"en", "es"}

	if err := AllLocales().Validate(configured); err != nil {
		t.Fatalf("all scope should always validate: %v", err)
	}
	if err := (LocaleScope{}).Validate(configured); !errors.Is(err, ErrEmptyLocaleScope) {
		t.Fatalf("expected ErrEmptyLocaleScope, got %v", err)
	}
	if err := LocaleSet("en", "fr").Validate(configured); !errors.Is(err, ErrUnknownLocale) {
		t.Fatalf("expected ErrUnknownLocale, got %v", err)
	}
	if err := LocaleSet("EN").Validate(configured); err != nil {
		t.Fatalf("expected case-insensitive validation, got %v", err)
	}
}
