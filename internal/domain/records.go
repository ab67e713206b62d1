package domain

import (
	"strings"
	"time"
)

// Severity is the triage tag the model attaches to a consultation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityUrgent   Severity = "urgent"
)

func (s Severity) Known() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh, SeverityUrgent:
		return true
	}
	return false
}

// Elevated reports whether the record warrants a warning and clinician review.
func (s Severity) Elevated() bool {
	return s == SeverityHigh || s == SeverityUrgent
}

// Urgency is the triage tag the model attaches to a lab file.
type Urgency string

const (
	UrgencyNormal    Urgency = "normal"
	UrgencyAttention Urgency = "attention"
	UrgencyUrgent    Urgency = "urgent"
)

func (u Urgency) Known() bool {
	switch u {
	case UrgencyNormal, UrgencyAttention, UrgencyUrgent:
		return true
	}
	return false
}

func (u Urgency) Elevated() bool {
	return u == UrgencyAttention || u == UrgencyUrgent
}

type FileKind string

const (
	FileKindImage    FileKind = "image"
	FileKindDocument FileKind = "document"
)

// FileKindFor maps a MIME type to the stored file kind.
func FileKindFor(mimeType string) FileKind {
	if strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return FileKindImage
	}
	return FileKindDocument
}

type RecordKind string

const (
	KindConsultation RecordKind = "consultation"
	KindLab          RecordKind = "lab"
)

func ParseRecordKind(s string) (RecordKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "consultation", "consultations", "diagnosis", "symptoms":
		return KindConsultation, true
	case "lab", "labs", "lab-result", "lab-results":
		return KindLab, true
	}
	return "", false
}

// ConsultationRecord is one analyzed symptom description. Only Reviewed and
// ReviewerNote change after creation.
type ConsultationRecord struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	InputText    string    `json:"inputText"`
	Summary      string    `json:"summary"`
	Confidence   int       `json:"confidence"`
	Actions      []string  `json:"actions"`
	Severity     Severity  `json:"severity"`
	Disclaimer   string    `json:"disclaimer,omitempty"`
	Language     string    `json:"language,omitempty"`
	Reviewed     bool      `json:"reviewed"`
	ReviewerNote string    `json:"reviewerNote,omitempty"`
}

// LabRecord is one analyzed lab file upload.
type LabRecord struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	FileName        string    `json:"fileName"`
	FileKind        FileKind  `json:"fileKind"`
	MIMEType        string    `json:"mimeType,omitempty"`
	Interpretation  string    `json:"interpretation"`
	Findings        []string  `json:"findings"`
	Recommendations []string  `json:"recommendations,omitempty"`
	Urgency         Urgency   `json:"urgency"`
	Confidence      int       `json:"confidence"`
	Language        string    `json:"language,omitempty"`
	Reviewed        bool      `json:"reviewed"`
	ReviewerNote    string    `json:"reviewerNote,omitempty"`
}

// HistoryEntry is one row of the merged timeline. Exactly one of
// Consultation and Lab is set.
type HistoryEntry struct {
	Kind         RecordKind          `json:"kind"`
	ID           string              `json:"id"`
	CreatedAt    time.Time           `json:"createdAt"`
	Consultation *ConsultationRecord `json:"consultation,omitempty"`
	Lab          *LabRecord          `json:"lab,omitempty"`
}

func (e HistoryEntry) Reviewed() bool {
	switch {
	case e.Consultation != nil:
		return e.Consultation.Reviewed
	case e.Lab != nil:
		return e.Lab.Reviewed
	}
	return false
}

// Elevated reports whether the entry's triage tag calls for attention.
func (e HistoryEntry) Elevated() bool {
	switch {
	case e.Consultation != nil:
		return e.Consultation.Severity.Elevated()
	case e.Lab != nil:
		return e.Lab.Urgency.Elevated()
	}
	return false
}

// Tag returns the raw triage tag, severity or urgency.
func (e HistoryEntry) Tag() string {
	switch {
	case e.Consultation != nil:
		return string(e.Consultation.Severity)
	case e.Lab != nil:
		return string(e.Lab.Urgency)
	}
	return ""
}
