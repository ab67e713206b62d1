package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"medcare/internal/domain"
)

// Store is the typed view over one installation's slots. Read-modify-write
// of a slot is serialized so concurrent prepends and review updates do not
// lose writes. There is no transaction across slots.
type Store struct {
	backend      Backend
	installation string
	mu           sync.Mutex
}

// Open resolves the installation id and returns a Store bound to it. An
// empty configured id reuses the one saved on first start, or creates it.
func Open(ctx context.Context, backend Backend, configuredID string) (*Store, error) {
	id := strings.TrimSpace(configuredID)
	if id == "" {
		raw, found, err := backend.Get(ctx, globalScope, SlotInstallation)
		if err != nil {
			return nil, err
		}
		if found {
			id = strings.TrimSpace(string(raw))
		}
		if id == "" {
			id = uuid.NewString()
			if err := backend.Set(ctx, globalScope, SlotInstallation, []byte(id)); err != nil {
				return nil, fmt.Errorf("saving installation id: %w", err)
			}
		}
	}
	return &Store{backend: backend, installation: id}, nil
}

func (s *Store) InstallationID() string { return s.installation }

func (s *Store) Close() error { return s.backend.Close() }

// Load decodes the slot into dst. It reports false and leaves dst untouched
// when the slot was never written.
func (s *Store) Load(ctx context.Context, slot string, dst any) (bool, error) {
	raw, found, err := s.backend.Get(ctx, s.installation, slot)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decoding slot %s: %w", slot, err)
	}
	return true, nil
}

func (s *Store) Save(ctx context.Context, slot string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding slot %s: %w", slot, err)
	}
	return s.backend.Set(ctx, s.installation, slot, raw)
}

// Update runs fn on the current slot value under the store lock and writes
// the result back. Nothing is written when fn returns an error.
func Update[T any](ctx context.Context, s *Store, slot string, fn func(*T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current T
	if _, err := s.Load(ctx, slot, &current); err != nil {
		return err
	}
	if err := fn(&current); err != nil {
		return err
	}
	return s.Save(ctx, slot, current)
}

func (s *Store) Consultations(ctx context.Context) ([]domain.ConsultationRecord, error) {
	records := []domain.ConsultationRecord{}
	if _, err := s.Load(ctx, SlotConsultations, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.ConsultationRecord{}
	}
	return records, nil
}

// PrependConsultation puts rec at the head of the list, newest first.
func (s *Store) PrependConsultation(ctx context.Context, rec domain.ConsultationRecord) error {
	return Update(ctx, s, SlotConsultations, func(list *[]domain.ConsultationRecord) error {
		*list = append([]domain.ConsultationRecord{rec}, *list...)
		return nil
	})
}

func (s *Store) LabResults(ctx context.Context) ([]domain.LabRecord, error) {
	records := []domain.LabRecord{}
	if _, err := s.Load(ctx, SlotLabResults, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.LabRecord{}
	}
	return records, nil
}

func (s *Store) PrependLabResult(ctx context.Context, rec domain.LabRecord) error {
	return Update(ctx, s, SlotLabResults, func(list *[]domain.LabRecord) error {
		*list = append([]domain.LabRecord{rec}, *list...)
		return nil
	})
}

// Language returns the saved language code, or fallback on first access.
func (s *Store) Language(ctx context.Context, fallback string) (string, error) {
	var code string
	found, err := s.Load(ctx, SlotLanguage, &code)
	if err != nil {
		return "", err
	}
	if !found || code == "" {
		return fallback, nil
	}
	return code, nil
}

func (s *Store) SetLanguage(ctx context.Context, code string) error {
	return s.Save(ctx, SlotLanguage, code)
}

func (s *Store) Accessibility(ctx context.Context) (domain.AccessibilitySettings, error) {
	var settings domain.AccessibilitySettings
	if _, err := s.Load(ctx, SlotAccessibility, &settings); err != nil {
		return domain.AccessibilitySettings{}, err
	}
	return settings, nil
}

func (s *Store) SetAccessibility(ctx context.Context, settings domain.AccessibilitySettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Save(ctx, SlotAccessibility, settings)
}

// UpdateAccessibility merges a partial update over the saved settings.
func (s *Store) UpdateAccessibility(ctx context.Context, upd domain.AccessibilityUpdate) (domain.AccessibilitySettings, error) {
	var out domain.AccessibilitySettings
	err := Update(ctx, s, SlotAccessibility, func(cur *domain.AccessibilitySettings) error {
		*cur = cur.Apply(upd)
		out = *cur
		return nil
	})
	return out, err
}

// MarkReviewed flags one record as reviewed and stores the reviewer note.
// An empty note keeps any earlier note.
func (s *Store) MarkReviewed(ctx context.Context, kind domain.RecordKind, id, note string) (domain.HistoryEntry, error) {
	note = strings.TrimSpace(note)
	var entry domain.HistoryEntry

	switch kind {
	case domain.KindConsultation:
		err := Update(ctx, s, SlotConsultations, func(list *[]domain.ConsultationRecord) error {
			for i := range *list {
				rec := &(*list)[i]
				if rec.ID != id {
					continue
				}
				rec.Reviewed = true
				if note != "" {
					rec.ReviewerNote = note
				}
				copied := *rec
				entry = domain.HistoryEntry{Kind: kind, ID: rec.ID, CreatedAt: rec.CreatedAt, Consultation: &copied}
				return nil
			}
			return fmt.Errorf("consultation %s: %w", id, ErrNotFound)
		})
		return entry, err
	case domain.KindLab:
		err := Update(ctx, s, SlotLabResults, func(list *[]domain.LabRecord) error {
			for i := range *list {
				rec := &(*list)[i]
				if rec.ID != id {
					continue
				}
				rec.Reviewed = true
				if note != "" {
					rec.ReviewerNote = note
				}
				copied := *rec
				entry = domain.HistoryEntry{Kind: kind, ID: rec.ID, CreatedAt: rec.CreatedAt, Lab: &copied}
				return nil
			}
			return fmt.Errorf("lab result %s: %w", id, ErrNotFound)
		})
		return entry, err
	default:
		return entry, fmt.Errorf("unknown record kind %q", kind)
	}
}
