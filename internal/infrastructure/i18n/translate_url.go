package i18n

import "strings"

// TranslateURL returns the equivalent of path under the given language
// prefix. An existing supported language prefix is replaced; the default
// language produces an unprefixed path.
//
//	TranslateURL("/ru/pages/faq", "en", n) -> "/pages/faq"   (en default)
//	TranslateURL("/pages/faq", "ru", n)    -> "/ru/pages/faq"
func TranslateURL(path, lang string, n *Negotiator) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}

	// Strip an existing language prefix
	trimmed := path
	if first, rest, ok := splitFirstSegment(path); ok && n.IsSupported(first) {
		trimmed = rest
	}

	if lang == n.defaultLang || !n.IsSupported(lang) {
		return trimmed
	}
	if trimmed == "/" {
		return "/" + lang
	}
	return "/" + lang + trimmed
}

// splitFirstSegment splits "/ru/pages/faq" into ("ru", "/pages/faq")
func splitFirstSegment(path string) (string, string, bool) {
	rest := strings.TrimPrefix(path, "/")
	if rest == "" {
		return "", "/", false
	}
	first, tail, found := strings.Cut(rest, "/")
	if !found {
		return first, "/", true
	}
	return first, "/" + tail, true
}
