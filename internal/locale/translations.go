package locale

// Message keys shared by notices and the presentation layer.
const (
	KeyAppTitle            = "appTitle"
	KeyMedicalDisclaimer   = "medicalDisclaimerText"
	KeyAnalyzing           = "analyzing"
	KeySuccess             = "success"
	KeyError               = "error"
	KeyEmptySymptoms       = "emptySymptoms"
	KeyFileTooLarge        = "fileTooLarge"
	KeyUnsupportedFile     = "unsupportedFile"
	KeyAnalysisFailed      = "analysisFailed"
	KeyLabAnalysisFailed   = "labAnalysisFailed"
	KeyBusy                = "busy"
	KeyConsultationSuccess = "consultationSuccess"
	KeyLabSuccess          = "labSuccess"
	KeyNoRecords           = "noRecords"
	KeySupportedFormats    = "supportedFormats"
)

var translations = map[string]map[string]string{
	"en": {
		KeyAppTitle:            "MedCare-AI",
		KeyMedicalDisclaimer:   "This tool provides preliminary guidance only and does not replace a qualified health worker.",
		KeyAnalyzing:           "Analyzing...",
		KeySuccess:             "Success",
		KeyError:               "Error",
		KeyEmptySymptoms:       "Please describe your symptoms first",
		KeyFileTooLarge:        "File size must be under 10MB",
		KeyUnsupportedFile:     "Please upload an image (JPG, PNG, GIF) or PDF file",
		KeyAnalysisFailed:      "Unable to analyze symptoms. Please try again.",
		KeyLabAnalysisFailed:   "Failed to analyze the lab result. Please try again.",
		KeyBusy:                "An analysis is already in progress. Please wait.",
		KeyConsultationSuccess: "Success! Review your preliminary assessment below.",
		KeyLabSuccess:          "Lab result analyzed! Review the interpretation below.",
		KeyNoRecords:           "Your consultation history will appear here.",
		KeySupportedFormats:    "Supported formats: PDF, JPG, PNG, GIF",
	},
	"es": {
		KeyAppTitle:            "MedCare-AI",
		KeyMedicalDisclaimer:   "Esta herramienta ofrece orientación preliminar y no reemplaza a un profesional de salud.",
		KeyAnalyzing:           "Analizando...",
		KeySuccess:             "Éxito",
		KeyError:               "Error",
		KeyEmptySymptoms:       "Por favor describa sus síntomas primero",
		KeyFileTooLarge:        "El archivo debe pesar menos de 10MB",
		KeyUnsupportedFile:     "Suba una imagen (JPG, PNG, GIF) o un archivo PDF",
		KeyAnalysisFailed:      "No se pudieron analizar los síntomas. Inténtelo de nuevo.",
		KeyConsultationSuccess: "¡Éxito! Revise su evaluación preliminar abajo.",
		KeySupportedFormats:    "Formatos compatibles: PDF, JPG, PNG",
	},
	"fr": {
		KeyAppTitle:            "MedCare-AI",
		KeyAnalyzing:           "Analyse en cours...",
		KeySuccess:             "Succès",
		KeyError:               "Erreur",
		KeyEmptySymptoms:       "Veuillez d'abord décrire vos symptômes",
		KeyFileTooLarge:        "Le fichier doit faire moins de 10 Mo",
		KeyAnalysisFailed:      "Impossible d'analyser les symptômes. Veuillez réessayer.",
		KeyConsultationSuccess: "Succès ! Consultez votre évaluation préliminaire ci-dessous.",
		KeySupportedFormats:    "Formats pris en charge : PDF, JPG, PNG",
	},
	"ar": {
		KeyAppTitle:         "ميدكير-AI",
		KeyAnalyzing:        "جاري التحليل...",
		KeySuccess:          "نجح",
		KeyError:            "خطأ",
		KeyEmptySymptoms:    "يرجى وصف الأعراض أولاً",
		KeyAnalysisFailed:   "تعذر تحليل الأعراض. يرجى المحاولة مرة أخرى.",
		KeySupportedFormats: "الصيغ المدعومة: PDF، JPG، PNG",
	},
	"sw": {
		KeyAppTitle:         "MedCare-AI",
		KeyAnalyzing:        "Inachambuliwa...",
		KeySuccess:          "Imefanikiwa",
		KeyError:            "Hitilafu",
		KeyEmptySymptoms:    "Tafadhali eleza dalili zako kwanza",
		KeySupportedFormats: "Miundo inayotumika: PDF, JPG, PNG",
	},
	"hi": {
		KeyAppTitle:         "मेडकेयर-AI",
		KeyAnalyzing:        "विश्लेषण हो रहा है...",
		KeySuccess:          "सफलता",
		KeyError:            "त्रुटि",
		KeyEmptySymptoms:    "कृपया पहले अपने लक्षण बताएं",
		KeySupportedFormats: "समर्थित प्रारूप: PDF, JPG, PNG",
	},
}

// Translate returns the message for key in the given language, falling back
// to English per key, and to the key itself when English lacks it too.
func Translate(code, key string) string {
	if table, ok := translations[normalizeCode(code)]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := translations[DefaultCode][key]; ok {
		return msg
	}
	return key
}

// Table returns the full message table for a language with English
// fallbacks filled in.
func Table(code string) map[string]string {
	out := make(map[string]string, len(translations[DefaultCode]))
	for key := range translations[DefaultCode] {
		out[key] = Translate(code, key)
	}
	return out
}
