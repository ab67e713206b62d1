package llm

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseConsultationFeverHeadache(t *testing.T) {
	reply := "```json\n" + `{
  "analysis": "Likely a viral infection such as the flu.",
  "confidence": 80,
  "recommendations": ["Rest", "Drink fluids", "See a clinician if fever exceeds 3 days"],
  "severity": "moderate",
  "disclaimer": "This is preliminary guidance only."
}` + "\n```"

	got, err := ParseConsultation(reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Severity != "moderate" || got.Confidence != 80 || len(got.Recommendations) != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got.ConfidenceClamped {
		t.Fatal("confidence 80 should not be clamped")
	}
	if got.Disclaimer == "" || got.Analysis == "" {
		t.Fatalf("expected text fields, got %+v", got)
	}
}

func TestParseConsultationMissingFieldsStayZero(t *testing.T) {
	got, err := ParseConsultation(`{"analysis":"Could be a cold.","confidence":55}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Severity != "" {
		t.Fatalf("missing severity should stay empty, got %q", got.Severity)
	}
	if got.Recommendations != nil {
		t.Fatalf("missing recommendations should stay nil, got %v", got.Recommendations)
	}
}

func TestParseConsultationCoercion(t *testing.T) {
	got, err := ParseConsultation(`{"confidence":"72%","recommendations":"Rest at home","severity":" HIGH "}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Confidence != 72 {
		t.Fatalf("expected numeric string coercion, got %d", got.Confidence)
	}
	if !reflect.DeepEqual(got.Recommendations, []string{"Rest at home"}) {
		t.Fatalf("expected single string as list, got %v", got.Recommendations)
	}
	if got.Severity != "high" {
		t.Fatalf("expected normalized severity, got %q", got.Severity)
	}
}

func TestConfidenceClamping(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		clamped bool
	}{
		{`{"confidence":150}`, 100, true},
		{`{"confidence":-3}`, 0, true},
		{`{"confidence":99.6}`, 100, false},
		{`{"confidence":"abc"}`, 0, false},
		{`{"confidence":null}`, 0, false},
		{`{"confidence":true}`, 0, false},
		{`{"confidence":1e20}`, 100, true},
		{`{"confidence":1e400}`, 100, true},
		{`{"confidence":-1e400}`, 0, true},
		{`{"confidence":"Infinity"}`, 100, true},
		{`{"confidence":"80%"}`, 80, false},
		{`{"confidence":100.4}`, 100, false},
	}
	for _, tt := range tests {
		got, err := ParseConsultation(tt.raw)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.raw, err)
		}
		if got.Confidence != tt.want || got.ConfidenceClamped != tt.clamped {
			t.Fatalf("%s: got confidence=%d clamped=%v, want %d/%v", tt.raw, got.Confidence, got.ConfidenceClamped, tt.want, tt.clamped)
		}
	}
}

func TestUnknownSeverityPassesThrough(t *testing.T) {
	got, err := ParseConsultation(`{"severity":"Critical"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Severity != "critical" {
		t.Fatalf("expected unknown severity kept, got %q", got.Severity)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"I'm sorry, I can't help with that.",
		`{"analysis": "unterminated`,
		`["not", "an", "object"]`,
		"```json\n```",
		`"just a string"`,
	} {
		if _, err := ParseConsultation(raw); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("ParseConsultation(%q) error = %v, want ErrMalformedResponse", raw, err)
		}
		if _, err := ParseLab(raw); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("ParseLab(%q) error = %v, want ErrMalformedResponse", raw, err)
		}
	}
}

func TestParseLab(t *testing.T) {
	got, err := ParseLab(`{
  "interpretation": "Blood counts are usually compared to reference ranges.",
  "findings": ["Hemoglobin", "", "White cell count", 7],
  "urgency": "Attention",
  "confidence": 75,
  "recommendations": ["Share with a clinician"]
}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Urgency != "attention" || got.Confidence != 75 {
		t.Fatalf("unexpected result: %+v", got)
	}
	want := []string{"Hemoglobin", "White cell count", "7"}
	if !reflect.DeepEqual(got.Findings, want) {
		t.Fatalf("findings = %v, want %v", got.Findings, want)
	}
	if len(got.Recommendations) != 1 {
		t.Fatalf("unexpected recommendations: %v", got.Recommendations)
	}
}
