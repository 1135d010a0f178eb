package models

import (
	"bytes"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // allow raw HTML passthrough in Markdown
	),
)

// RenderMarkdown converts markdown content to HTML. On conversion
// errors the original content is returned so pages never break.
func RenderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return content
	}
	return buf.String()
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes markup tags, leaving plain text.
func StripHTML(s string) string {
	return tagRe.ReplaceAllString(s, " ")
}

// WordCount counts whitespace-delimited tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// ReadingTime converts a word count to whole minutes at 200 wpm,
// rounded up. Non-empty text always reads as at least one minute.
func ReadingTime(words int) int {
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / 200))
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Ratio returns num/den as a percentage, 0 when the denominator is 0.
func Ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

// Truncate cuts plain text to at most n characters without splitting
// a word, trimming trailing whitespace.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

// MetaDescription picks the excerpt when present, otherwise the first
// 160 characters of the plain content with an ellipsis.
func MetaDescription(excerpt, plain string) string {
	if excerpt != "" {
		return Truncate(excerpt, 160)
	}
	if plain == "" {
		return ""
	}
	return Truncate(plain, 160) + "..."
}

// SiteName returns the configured site name used in derived meta titles.
func SiteName() string {
	if name := os.Getenv("SITE_NAME"); name != "" {
		return name
	}
	return "BetCompare Kenya"
}

// accented characters mapped to their plain ascii versions
var accentMap = map[rune]rune{
	'á': 'a', 'à': 'a', 'ã': 'a', 'â': 'a', 'ä': 'a', 'å': 'a', 'ā': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e', 'ē': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i', 'ī': 'i',
	'ó': 'o', 'ò': 'o', 'õ': 'o', 'ô': 'o', 'ö': 'o', 'ø': 'o', 'ō': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u', 'ū': 'u',
	'ç': 'c', 'ć': 'c', 'č': 'c',
	'ñ': 'n', 'ń': 'n',
	'ý': 'y', 'ÿ': 'y',
	'ß': 's',
	'Á': 'a', 'À': 'a', 'Ã': 'a', 'Â': 'a', 'Ä': 'a', 'Å': 'a', 'Ā': 'a',
	'É': 'e', 'È': 'e', 'Ê': 'e', 'Ë': 'e', 'Ē': 'e',
	'Í': 'i', 'Ì': 'i', 'Î': 'i', 'Ï': 'i', 'Ī': 'i',
	'Ó': 'o', 'Ò': 'o', 'Õ': 'o', 'Ô': 'o', 'Ö': 'o', 'Ø': 'o', 'Ō': 'o',
	'Ú': 'u', 'Ù': 'u', 'Û': 'u', 'Ü': 'u', 'Ū': 'u',
	'Ç': 'c', 'Ć': 'c', 'Č': 'c',
	'Ñ': 'n', 'Ń': 'n',
	'Ý': 'y', 'Ÿ': 'y',
}

// Slugify derives a URL-safe lowercase identifier from a name or
// title: accents transliterated, anything non-alphanumeric dropped,
// spaces collapsed to single hyphens. Deterministic, so re-deriving
// from an unchanged source yields the same slug.
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		if replacement, exists := accentMap[r]; exists {
			return replacement
		}
		return r
	}, slug)

	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		if r == ' ' {
			return '-'
		}
		return -1
	}, slug)

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return slug
}
