package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Negotiator picks the best supported language for a request. Precedence:
// explicit cookie override, then the Accept-Language header, then the
// configured default.
type Negotiator struct {
	matcher     language.Matcher
	supported   []string
	defaultLang string
}

// NewNegotiator builds a Negotiator for the supported language codes. The
// default language must be first in the matcher so it wins ties.
func NewNegotiator(defaultLang string, supported []string) (*Negotiator, error) {
	ordered := make([]string, 0, len(supported)+1)
	ordered = append(ordered, defaultLang)
	for _, lang := range supported {
		if lang != defaultLang {
			ordered = append(ordered, lang)
		}
	}

	tags := make([]language.Tag, 0, len(ordered))
	for _, lang := range ordered {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return &Negotiator{
		matcher:     language.NewMatcher(tags),
		supported:   ordered,
		defaultLang: defaultLang,
	}, nil
}

// Negotiate resolves the request language from the cookie value and the
// Accept-Language header. The returned code is always one of the supported
// languages.
func (n *Negotiator) Negotiate(cookieValue, acceptLanguage string) string {
	if lang, ok := n.exactSupported(cookieValue); ok {
		return lang
	}

	if acceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil {
			_, index, conf := n.matcher.Match(tags...)
			if conf > language.No && index < len(n.supported) {
				return n.supported[index]
			}
		}
	}

	return n.defaultLang
}

// IsSupported reports whether the code matches a supported language exactly
func (n *Negotiator) IsSupported(lang string) bool {
	_, ok := n.exactSupported(lang)
	return ok
}

// Supported returns the supported language codes with the default first
func (n *Negotiator) Supported() []string {
	return n.supported
}

func (n *Negotiator) exactSupported(lang string) (string, bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "", false
	}
	for _, s := range n.supported {
		if strings.EqualFold(s, lang) {
			return s, true
		}
	}
	return "", false
}
