package lang

import "strings"

const (
	// Default — региональный код по умолчанию
	Default = "en-IN"

	// Auto — значение селектора языка "определить автоматически"
	Auto = "auto"
)

// таблица коротких кодов → полные региональные
var codeMap = map[string]string{
	"en":      "en-IN",
	"en-in":   "en-IN",
	"english": "en-IN",
	"hi":      "hi-IN",
	"hi-in":   "hi-IN",
	"hindi":   "hi-IN",
	"ta":      "ta-IN",
	"ta-in":   "ta-IN",
	"tamil":   "ta-IN",
	"bn":      "bn-IN",
	"bn-in":   "bn-IN",
	"bengali": "bn-IN",
	"te":      "te-IN",
	"te-in":   "te-IN",
	"telugu":  "te-IN",
	"mr":      "mr-IN",
	"mr-in":   "mr-IN",
	"marathi": "mr-IN",
}

// Normalize приводит произвольный языковой код к полному региональному.
// Пустой ввод и "auto" дают fallback; незнакомые BCP-47 коды вида xx-YY
// сохраняются с нормализованным регистром.
func Normalize(code, fallback string) string {
	raw := strings.TrimSpace(code)
	if raw == "" {
		return fallback
	}

	lowered := strings.ToLower(raw)
	if lowered == Auto {
		return fallback
	}
	if full, ok := codeMap[lowered]; ok {
		return full
	}

	if i := strings.Index(raw, "-"); i >= 0 {
		return strings.ToLower(raw[:i]) + "-" + strings.ToUpper(raw[i+1:])
	}
	return fallback
}

// DetectByScript определяет язык по диапазону Unicode, когда внешний
// детектор недоступен.
func DetectByScript(text string) string {
	for _, ch := range text {
		switch {
		case ch >= 0x0900 && ch <= 0x097F: // деванагари
			return "hi-IN"
		case ch >= 0x0B80 && ch <= 0x0BFF: // тамильский
			return "ta-IN"
		case ch >= 0x0980 && ch <= 0x09FF: // бенгальский
			return "bn-IN"
		}
	}
	return Default
}
