package view

import (
	"fmt"
	"sort"
	"time"

	"medcare/internal/domain"
)

// Style is the presentation hint for a triage tag.
type Style struct {
	Class   string `json:"class"`
	Warning bool   `json:"warning"`
}

const defaultStyleClass = "bg-green-500 text-white"

// SeverityStyle maps a severity to its badge style. Unknown and empty
// values get the default style.
func SeverityStyle(s domain.Severity) Style {
	switch s {
	case domain.SeverityUrgent:
		return Style{Class: "bg-destructive text-destructive-foreground", Warning: true}
	case domain.SeverityHigh:
		return Style{Class: "bg-orange-500 text-white", Warning: true}
	case domain.SeverityModerate:
		return Style{Class: "bg-yellow-500 text-white"}
	}
	return Style{Class: defaultStyleClass}
}

func UrgencyStyle(u domain.Urgency) Style {
	switch u {
	case domain.UrgencyUrgent:
		return Style{Class: "bg-destructive text-destructive-foreground", Warning: true}
	case domain.UrgencyAttention:
		return Style{Class: "bg-orange-500 text-white", Warning: true}
	}
	return Style{Class: defaultStyleClass}
}

type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// ConfidenceBand buckets a 0..100 confidence: >=80 high, >=60 medium.
func ConfidenceBand(confidence int) Band {
	switch {
	case confidence >= 80:
		return BandHigh
	case confidence >= 60:
		return BandMedium
	}
	return BandLow
}

// TimeAgo renders the coarsest whole unit between t and now.
func TimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	days := int(diff / (24 * time.Hour))
	hours := int(diff / time.Hour)
	minutes := int(diff / time.Minute)

	switch {
	case days > 0:
		return plural(days, "day") + " ago"
	case hours > 0:
		return plural(hours, "hour") + " ago"
	case minutes > 0:
		return plural(minutes, "minute") + " ago"
	}
	return "Just now"
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Timeline merges both record lists newest first. Ties keep consultations
// ahead of labs and the original list order otherwise.
func Timeline(consultations []domain.ConsultationRecord, labs []domain.LabRecord) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, 0, len(consultations)+len(labs))
	for i := range consultations {
		rec := consultations[i]
		out = append(out, domain.HistoryEntry{Kind: domain.KindConsultation, ID: rec.ID, CreatedAt: rec.CreatedAt, Consultation: &rec})
	}
	for i := range labs {
		rec := labs[i]
		out = append(out, domain.HistoryEntry{Kind: domain.KindLab, ID: rec.ID, CreatedAt: rec.CreatedAt, Lab: &rec})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type Stats struct {
	Total         int `json:"total"`
	Consultations int `json:"consultations"`
	Labs          int `json:"labs"`
	Reviewed      int `json:"reviewed"`
}

func StatsFor(entries []domain.HistoryEntry) Stats {
	var s Stats
	for _, e := range entries {
		s.Total++
		switch e.Kind {
		case domain.KindConsultation:
			s.Consultations++
		case domain.KindLab:
			s.Labs++
		}
		if e.Reviewed() {
			s.Reviewed++
		}
	}
	return s
}

// Pending returns elevated entries that nobody has reviewed, oldest first.
func Pending(entries []domain.HistoryEntry) []domain.HistoryEntry {
	var out []domain.HistoryEntry
	for _, e := range entries {
		if e.Elevated() && !e.Reviewed() {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Entry is one timeline row decorated for display.
type Entry struct {
	domain.HistoryEntry
	Style   Style  `json:"style"`
	Band    Band   `json:"confidenceBand"`
	TimeAgo string `json:"timeAgo"`
}

func Decorate(entries []domain.HistoryEntry, now time.Time) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		row := Entry{HistoryEntry: e, TimeAgo: TimeAgo(e.CreatedAt, now)}
		switch {
		case e.Consultation != nil:
			row.Style = SeverityStyle(e.Consultation.Severity)
			row.Band = ConfidenceBand(e.Consultation.Confidence)
		case e.Lab != nil:
			row.Style = UrgencyStyle(e.Lab.Urgency)
			row.Band = ConfidenceBand(e.Lab.Confidence)
		}
		out = append(out, row)
	}
	return out
}
