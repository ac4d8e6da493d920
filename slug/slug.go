package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxLength caps generated slugs for URL and storage-key use.
const maxLength = 100

var (
	nonSlugRe = regexp.MustCompile("[^a-z0-9-]+")
	hyphensRe = regexp.MustCompile("-+")
)

// Generate creates a URL-friendly slug from a string
func Generate(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	s = transliterate(s)

	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")

	s = nonSlugRe.ReplaceAllString(s, "")
	s = hyphensRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > maxLength {
		s = s[:maxLength]
		s = strings.TrimRight(s, "-")
	}

	return s
}

// GenerateWithFallback generates a slug, falling back to a default if the input produces an empty slug
func GenerateWithFallback(s, fallback string) string {
	slug := Generate(s)
	if slug == "" {
		return Generate(fallback)
	}
	return slug
}

// transliterate converts unicode characters to ASCII equivalents
func transliterate(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// isMn checks if a rune is a nonspacing mark (accents, diacritics)
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// FromURL derives a slug from the last path segment of a page URL.
// Query strings and trailing slashes are ignored.
func FromURL(url string) string {
	if idx := strings.Index(url, "?"); idx != -1 {
		url = url[:idx]
	}
	if idx := strings.Index(url, "#"); idx != -1 {
		url = url[:idx]
	}
	url = strings.TrimRight(url, "/")

	parts := strings.Split(url, "/")
	if len(parts) == 0 {
		return ""
	}
	return Generate(parts[len(parts)-1])
}

// Title reconstructs a human-readable title from a slug by replacing
// hyphens with spaces and capitalising each word. Lossy but good enough
// for link-target labels when no real title is available.
func Title(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// FromMediaURL generates a filename-safe slug from a media URL.
// The extension is dropped; callers re-attach one after sniffing the
// downloaded content type.
func FromMediaURL(url string) string {
	if idx := strings.Index(url, "?"); idx != -1 {
		url = url[:idx]
	}
	parts := strings.Split(url, "/")
	filename := parts[len(parts)-1]
	if idx := strings.LastIndex(filename, "."); idx != -1 {
		filename = filename[:idx]
	}
	return Generate(filename)
}
