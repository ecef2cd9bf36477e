// Package locale resolves the active language from the URL path prefix and
// remembers a visitor's choice.
package locale

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// Default has no path prefix.
	Default = "en"

	CookieName   = "lw_lang"
	cookieMaxAge = 365 * 24 * time.Hour
)

type Language struct {
	Code       string
	Name       string
	NativeName string
	Flag       string
	RTL        bool
	Tag        language.Tag
}

// Languages is the selector order.
var Languages = []Language{
	{Code: "en", Name: "English", NativeName: "English", Flag: "🇺🇸", Tag: language.English},
	{Code: "ko", Name: "Korean", NativeName: "한국어", Flag: "🇰🇷", Tag: language.Korean},
	{Code: "ja", Name: "Japanese", NativeName: "日本語", Flag: "🇯🇵", Tag: language.Japanese},
	{Code: "zh", Name: "Chinese", NativeName: "中文", Flag: "🇨🇳", Tag: language.Chinese},
	{Code: "he", Name: "Hebrew", NativeName: "עברית", Flag: "🇮🇱", RTL: true, Tag: language.Hebrew},
	{Code: "ar", Name: "Arabic", NativeName: "العربية", Flag: "🇸🇦", RTL: true, Tag: language.Arabic},
}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, 0, len(Languages))
	for _, l := range Languages {
		tags = append(tags, l.Tag)
	}
	return language.NewMatcher(tags)
}()

// Lookup finds a supported language by its exact code.
func Lookup(code string) (Language, bool) {
	for _, l := range Languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// Get returns the language for code, or the default language.
func Get(code string) Language {
	if l, ok := Lookup(code); ok {
		return l
	}
	l, _ := Lookup(Default)
	return l
}

// ParseCode maps a BCP 47 value such as "ko-KR" or "zh-Hant" onto a
// supported code. ok is false when nothing matches.
func ParseCode(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if l, ok := Lookup(strings.ToLower(value)); ok {
		return l.Code, true
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "", false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "", false
	}
	return Languages[idx].Code, true
}

// Dir is the html dir attribute for code.
func Dir(code string) string {
	if Get(code).RTL {
		return "rtl"
	}
	return "ltr"
}

// FormatCount renders n with the locale's thousands separators.
func FormatCount(code string, n int64) string {
	return message.NewPrinter(Get(code).Tag).Sprintf("%d", n)
}

// FromPath splits a leading locale segment off path. Paths without one
// belong to the default locale; prefixed reports whether a segment was found.
func FromPath(path string) (code, rest string, prefixed bool) {
	trimmed := strings.TrimPrefix(path, "/")
	segment, remainder, _ := strings.Cut(trimmed, "/")
	if _, ok := Lookup(segment); !ok {
		return Default, path, false
	}
	return segment, "/" + remainder, true
}

// WithLocale rewrites path so it carries code, replacing any existing locale
// segment. The default locale is written without a prefix.
func WithLocale(path, code string) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	_, rest, _ := FromPath(path)
	if code == Default || code == "" {
		return rest
	}
	if rest == "/" {
		return "/" + code
	}
	return "/" + code + rest
}

// Href prefixes an absolute site path for code.
func Href(code, path string) string {
	return WithLocale(path, code)
}

type contextKey struct{}

func WithContext(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, contextKey{}, code)
}

// FromContext returns the active locale, or Default when none was set.
func FromContext(ctx context.Context) string {
	if code, ok := ctx.Value(contextKey{}).(string); ok && code != "" {
		return code
	}
	return Default
}

// FromCookie returns the stored preference when it is a supported code.
func FromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	return ParseCode(cookie.Value)
}

// SetCookie persists the choice for a year.
func SetCookie(w http.ResponseWriter, code string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    code,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
