package util

import "testing"

func TestCleanDir(t *testing.T) {
	cases := map[string]string{
		"data/cache/":  "data/cache",
		"data/cache//": "data/cache",
		"data/cache":   "data/cache",
		"/":            "/",
		"":             "",
	}
	for in, want := range cases {
		if got := CleanDir(in); got != want {
			t.Fatalf("CleanDir(%q)=%q want %q", in, got, want)
		}
	}
}

func TestStorageKeyStaysUnderDir(t *testing.T) {
	cases := map[string]string{
		"user":            "data/user",
		"users/1":         "data/users/1",
		"../../etc/pw":    "data/etc/pw",
		"/abs/key":        "data/abs/key",
		`win\style`:       "data/win/style",
		"a/./b//c":        "data/a/b/c",
		"":                "data",
		"a/../../../../b": "data/b",
	}
	for in, want := range cases {
		if got := StorageKey("data", in); got != want {
			t.Fatalf("StorageKey(%q)=%q want %q", in, got, want)
		}
	}
	if got := StorageKey("/", "k"); got != "/k" {
		t.Fatalf("root dir: got %q", got)
	}
}

func TestUnderPrefix(t *testing.T) {
	if !UnderPrefix("d/users/1", "d/users") {
		t.Fatalf("expected child to be under prefix")
	}
	if !UnderPrefix("d/users", "d/users") {
		t.Fatalf("expected prefix itself to match")
	}
	if UnderPrefix("d/usersX", "d/users") {
		t.Fatalf("sibling with common prefix must not match")
	}
	if !UnderPrefix("/k", "/") {
		t.Fatalf("root prefix must match everything below it")
	}
}

func TestEscapeGlob(t *testing.T) {
	cases := map[string]string{
		"cache/users":   "cache/users",
		"cache/*/?/[x]": `cache/\*/\?/\[x\]`,
		`a\b`:           `a\\b`,
	}
	for in, want := range cases {
		if got := EscapeGlob(in); got != want {
			t.Fatalf("EscapeGlob(%q)=%q want %q", in, got, want)
		}
	}
}
