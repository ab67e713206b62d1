package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultCode is used when nothing better can be determined.
const DefaultCode = "en"

type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"nativeName"`
	RTL        bool   `json:"rtl"`
	Region     string `json:"region"`
	Flag       string `json:"flag"`
}

// Direction returns the text direction for this language.
func (l Language) Direction() string {
	if l.RTL {
		return "rtl"
	}
	return "ltr"
}

var supported = []Language{
	{Code: "en", Name: "English", NativeName: "English", Region: "Global", Flag: "🇺🇸"},
	{Code: "es", Name: "Spanish", NativeName: "Español", Region: "Latin America", Flag: "🇪🇸"},
	{Code: "fr", Name: "French", NativeName: "Français", Region: "Africa/Europe", Flag: "🇫🇷"},
	{Code: "ar", Name: "Arabic", NativeName: "العربية", RTL: true, Region: "MENA", Flag: "🇸🇦"},
	{Code: "pt", Name: "Portuguese", NativeName: "Português", Region: "Brazil/Africa", Flag: "🇵🇹"},

	{Code: "sw", Name: "Swahili", NativeName: "Kiswahili", Region: "East Africa", Flag: "🇰🇪"},
	{Code: "ha", Name: "Hausa", NativeName: "Harshen Hausa", Region: "West Africa", Flag: "🇳🇬"},
	{Code: "yo", Name: "Yoruba", NativeName: "Yorùbá", Region: "West Africa", Flag: "🇳🇬"},
	{Code: "ig", Name: "Igbo", NativeName: "Asụsụ Igbo", Region: "West Africa", Flag: "🇳🇬"},
	{Code: "am", Name: "Amharic", NativeName: "አማርኛ", Region: "Ethiopia", Flag: "🇪🇹"},

	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी", Region: "India", Flag: "🇮🇳"},
	{Code: "bn", Name: "Bengali", NativeName: "বাংলা", Region: "Bangladesh/India", Flag: "🇧🇩"},
	{Code: "ur", Name: "Urdu", NativeName: "اردو", RTL: true, Region: "Pakistan/India", Flag: "🇵🇰"},
	{Code: "ta", Name: "Tamil", NativeName: "தமிழ்", Region: "South India/Sri Lanka", Flag: "🇮🇳"},
	{Code: "te", Name: "Telugu", NativeName: "తెలుగు", Region: "South India", Flag: "🇮🇳"},

	{Code: "id", Name: "Indonesian", NativeName: "Bahasa Indonesia", Region: "Indonesia", Flag: "🇮🇩"},
	{Code: "ms", Name: "Malay", NativeName: "Bahasa Melayu", Region: "Malaysia", Flag: "🇲🇾"},
	{Code: "th", Name: "Thai", NativeName: "ไทย", Region: "Thailand", Flag: "🇹🇭"},
	{Code: "vi", Name: "Vietnamese", NativeName: "Tiếng Việt", Region: "Vietnam", Flag: "🇻🇳"},
	{Code: "tl", Name: "Filipino", NativeName: "Filipino", Region: "Philippines", Flag: "🇵🇭"},

	{Code: "qu", Name: "Quechua", NativeName: "Runasimi", Region: "Andes", Flag: "🇵🇪"},
	{Code: "gn", Name: "Guarani", NativeName: "Avañe'ẽ", Region: "Paraguay", Flag: "🇵🇾"},

	{Code: "tr", Name: "Turkish", NativeName: "Türkçe", Region: "Turkey", Flag: "🇹🇷"},
	{Code: "fa", Name: "Persian", NativeName: "فارسی", RTL: true, Region: "Iran/Afghanistan", Flag: "🇮🇷"},
	{Code: "ps", Name: "Pashto", NativeName: "پښتو", RTL: true, Region: "Afghanistan/Pakistan", Flag: "🇦🇫"},
	{Code: "so", Name: "Somali", NativeName: "Soomaali", Region: "Horn of Africa", Flag: "🇸🇴"},
}

var byCode = func() map[string]Language {
	m := make(map[string]Language, len(supported))
	for _, l := range supported {
		m[l.Code] = l
	}
	return m
}()

var matcher = func() language.Matcher {
	tags := make([]language.Tag, 0, len(supported))
	for _, l := range supported {
		tags = append(tags, language.Make(l.Code))
	}
	return language.NewMatcher(tags)
}()

// All returns a copy of the catalog in display order.
func All() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

func Lookup(code string) (Language, bool) {
	l, ok := byCode[normalizeCode(code)]
	return l, ok
}

// ByRegion returns catalog entries whose region contains the given text.
func ByRegion(region string) []Language {
	var out []Language
	for _, l := range supported {
		if strings.Contains(l.Region, region) {
			out = append(out, l)
		}
	}
	return out
}

// IsRTL reports whether the code selects a right-to-left language.
// Unknown codes are left-to-right.
func IsRTL(code string) bool {
	l, ok := Lookup(code)
	return ok && l.RTL
}

func Direction(code string) string {
	if IsRTL(code) {
		return "rtl"
	}
	return "ltr"
}

// DisplayName returns the English name used in prompts, or the code itself.
func DisplayName(code string) string {
	if l, ok := Lookup(code); ok {
		return l.Name
	}
	return strings.TrimSpace(code)
}

// Resolve returns the supported code for code, or fallback when unsupported.
func Resolve(code, fallback string) string {
	if l, ok := Lookup(code); ok {
		return l.Code
	}
	if l, ok := Lookup(fallback); ok {
		return l.Code
	}
	return DefaultCode
}

// Detect picks the best supported code for an Accept-Language header value.
func Detect(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultCode
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(supported) {
		return DefaultCode
	}
	return supported[idx].Code
}

// normalizeCode reduces "pt-BR" or "PT_br" to "pt".
func normalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}
