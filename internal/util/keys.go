package util

import (
	"path"
	"strings"
)

// CleanDir strips trailing separators. The root "/" is kept as is.
func CleanDir(dir string) string {
	d := strings.TrimRight(dir, `/\`)
	if d == "" && dir != "" {
		return "/"
	}
	return d
}

// CleanKey normalises a user key into a slash-separated relative path that
// cannot climb above its parent ("a/../../b" -> "b").
func CleanKey(key string) string {
	k := path.Clean("/" + strings.ReplaceAll(key, `\`, "/"))
	return strings.TrimPrefix(k, "/")
}

// StorageKey joins dir and a normalised key. An empty key maps to dir itself.
func StorageKey(dir, key string) string {
	k := CleanKey(key)
	if k == "" {
		return dir
	}
	if strings.HasSuffix(dir, "/") {
		return dir + k
	}
	return dir + "/" + k
}

// UnderPrefix reports whether storage key k equals prefix or lies below it on a
// path-segment boundary ("a/b" is under "a", "ab" is not).
func UnderPrefix(k, prefix string) bool {
	if k == prefix {
		return true
	}
	p := prefix
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return strings.HasPrefix(k, p)
}

// EscapeGlob quotes the characters Redis SCAN MATCH treats specially.
func EscapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
