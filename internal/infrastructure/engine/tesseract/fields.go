package tesseract

import (
	"regexp"
	"strings"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
)

// HeuristicFieldConfidence is assigned to regex-derived fields. It is a fixed
// heuristic value, deliberately kept apart from OCR-measured confidence: the
// two do not measure the same thing.
const HeuristicFieldConfidence = 75.0

type fieldPattern struct {
	key     string
	pattern *regexp.Regexp
}

// Labeled-field extractors approximating the cloud engine's forms output.
// Labels cover the onboarding document set in Portuguese and English.
// Separator whitespace is [ \t] on purpose: \s would let a greedy match jump
// past the newline and swallow the next line as the value.
var fieldPatterns = []fieldPattern{
	{"name", regexp.MustCompile(`(?im)^[ \t]*(?:nome(?:\s+completo)?|(?:full\s+)?name)[ \t]*[:\-][ \t]*(.+)$`)},
	{"document_number", regexp.MustCompile(`(?im)^[ \t]*(?:rg|cpf|documento|document(?:\s+(?:number|no\.?))?|id(?:\s+number)?)[ \t]*[:\-][ \t]*([\w./-]+)`)},
	{"date_of_birth", regexp.MustCompile(`(?im)^[ \t]*(?:data\s+de\s+nascimento|nascimento|date\s+of\s+birth|dob|birth\s*date)[ \t]*[:\-][ \t]*(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})`)},
	{"date", regexp.MustCompile(`(?im)^[ \t]*(?:data|date)[ \t]*[:\-][ \t]*(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})`)},
}

// extractFields scans plain OCR text for labeled fields. The local engine has
// no native forms concept, so this is a lower-fidelity substitute for the
// cloud engine's key/value graph.
func extractFields(text string) []domain.FormField {
	var fields []domain.FormField
	for _, fp := range fieldPatterns {
		match := fp.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		value := strings.TrimSpace(match[1])
		if value == "" {
			continue
		}
		fields = append(fields, domain.FormField{
			Key:                 fp.key,
			Value:               value,
			HeuristicConfidence: HeuristicFieldConfidence,
		})
	}
	return fields
}
