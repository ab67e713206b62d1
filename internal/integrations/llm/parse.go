package llm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ConsultationResult is the parsed model answer for a symptom description.
// Fields the model omitted keep their zero value.
type ConsultationResult struct {
	Analysis          string
	Confidence        int
	Recommendations   []string
	Severity          string
	Disclaimer        string
	ConfidenceClamped bool
}

type LabResult struct {
	Interpretation    string
	Findings          []string
	Recommendations   []string
	Urgency           string
	Confidence        int
	ConfidenceClamped bool
}

// ParseConsultation decodes a consultation reply. Anything that is not a
// JSON object, after stripping markdown fences, is ErrMalformedResponse.
func ParseConsultation(responseText string) (ConsultationResult, error) {
	obj, err := parseObject(responseText)
	if err != nil {
		return ConsultationResult{}, err
	}
	confidence, clamped := confidenceField(obj.Get("confidence"))
	return ConsultationResult{
		Analysis:          stringField(obj.Get("analysis")),
		Confidence:        confidence,
		Recommendations:   listField(obj.Get("recommendations")),
		Severity:          normalizeTag(obj.Get("severity")),
		Disclaimer:        stringField(obj.Get("disclaimer")),
		ConfidenceClamped: clamped,
	}, nil
}

func ParseLab(responseText string) (LabResult, error) {
	obj, err := parseObject(responseText)
	if err != nil {
		return LabResult{}, err
	}
	confidence, clamped := confidenceField(obj.Get("confidence"))
	return LabResult{
		Interpretation:    stringField(obj.Get("interpretation")),
		Findings:          listField(obj.Get("findings")),
		Recommendations:   listField(obj.Get("recommendations")),
		Urgency:           normalizeTag(obj.Get("urgency")),
		Confidence:        confidence,
		ConfidenceClamped: clamped,
	}, nil
}

func parseObject(responseText string) (gjson.Result, error) {
	text := stripFences(responseText)
	if text == "" {
		return gjson.Result{}, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if !gjson.Valid(text) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON (response: %s)", ErrMalformedResponse, truncate(text, 200))
	}
	obj := gjson.Parse(text)
	if !obj.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: expected a JSON object, got %s", ErrMalformedResponse, obj.Type)
	}
	return obj, nil
}

func stripFences(responseText string) string {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```JSON")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	return strings.TrimSpace(responseText)
}

func stringField(r gjson.Result) string {
	switch r.Type {
	case gjson.String, gjson.Number:
		return strings.TrimSpace(r.String())
	}
	return ""
}

// listField accepts an array of strings, or a single string as a one-item list.
func listField(r gjson.Result) []string {
	switch {
	case r.IsArray():
		var out []string
		for _, item := range r.Array() {
			if s := stringField(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case r.Type == gjson.String:
		if s := strings.TrimSpace(r.String()); s != "" {
			return []string{s}
		}
	}
	return nil
}

// confidenceField reads a number or numeric string ("80", "80%") and clamps
// it to [0,100]. The bool reports whether clamping changed the value.
func confidenceField(r gjson.Result) (int, bool) {
	var f float64
	switch r.Type {
	case gjson.Number:
		f = r.Float()
	case gjson.String:
		s := strings.TrimSuffix(strings.TrimSpace(r.String()), "%")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	// Range checks stay in float64 so huge values and infinities cannot
	// overflow the int conversion.
	switch {
	case f <= -0.5:
		return 0, true
	case f >= 100.5:
		return 100, true
	}
	return int(math.Round(f)), false
}

func normalizeTag(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(r.String()))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
