package locale

var speechTags = map[string]string{
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"ar": "ar-SA",
	"pt": "pt-BR",
	"sw": "sw-KE",
	"ha": "ha-NG",
	"hi": "hi-IN",
	"bn": "bn-BD",
	"ur": "ur-PK",
	"ta": "ta-IN",
	"te": "te-IN",
	"id": "id-ID",
	"ms": "ms-MY",
	"th": "th-TH",
	"vi": "vi-VN",
	"tl": "tl-PH",
	"tr": "tr-TR",
	"fa": "fa-IR",
}

// SpeechTag maps a locale code to the BCP 47 tag used for speech
// synthesis. Languages without a voice mapping fall back to en-US.
func SpeechTag(code string) string {
	if tag, ok := speechTags[normalizeCode(code)]; ok {
		return tag
	}
	return "en-US"
}
