package license

import (
	"context"
	"strings"
	"time"

	"medcare/internal/logger"
	"medcare/internal/storage"
)

type Type string

const (
	Humanitarian Type = "humanitarian"
	Commercial   Type = "commercial"
)

type Info struct {
	Type         Type   `json:"type"`
	Valid        bool   `json:"isValid"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
	Organization string `json:"organization,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
}

// stored is the shape kept in the license slot.
type stored struct {
	Key          string    `json:"key"`
	Organization string    `json:"organization"`
	ContactEmail string    `json:"contactEmail"`
	ExpiresAt    string    `json:"expiresAt"`
	SetAt        time.Time `json:"setAt"`
}

const policy = "MedCare-AI is provided free for humanitarian, educational and non-commercial use. Commercial organizations must obtain a paid license."

type Manager struct {
	store *storage.Store
	log   *logger.Logger
	now   func() time.Time
}

func NewManager(store *storage.Store, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{store: store, log: log.With(logger.Fields{"component": "license"}), now: time.Now}
}

// Check returns the commercial license when one is stored and valid, and
// the humanitarian license otherwise. Storage errors fall back too.
func (m *Manager) Check(ctx context.Context) Info {
	var lic *stored
	if _, err := m.store.Load(ctx, storage.SlotLicense, &lic); err != nil {
		m.log.Warn("license slot unreadable, using humanitarian license", logger.Fields{"error": err.Error()})
		return humanitarian()
	}
	if lic == nil || !m.valid(*lic) {
		return humanitarian()
	}
	return Info{
		Type:         Commercial,
		Valid:        true,
		ExpiresAt:    lic.ExpiresAt,
		Organization: lic.Organization,
		ContactEmail: lic.ContactEmail,
	}
}

func humanitarian() Info {
	return Info{Type: Humanitarian, Valid: true}
}

func (m *Manager) valid(lic stored) bool {
	if strings.TrimSpace(lic.Key) == "" || strings.TrimSpace(lic.Organization) == "" || strings.TrimSpace(lic.ContactEmail) == "" {
		return false
	}
	expires, err := parseExpiry(lic.ExpiresAt)
	if err != nil {
		return false
	}
	return expires.After(m.now())
}

func parseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func (m *Manager) CommercialUseAllowed(ctx context.Context) bool {
	info := m.Check(ctx)
	return info.Type == Commercial && info.Valid
}

func (m *Manager) SetCommercial(ctx context.Context, key, organization, contactEmail, expiresAt string) error {
	return m.store.Save(ctx, storage.SlotLicense, stored{
		Key:          key,
		Organization: organization,
		ContactEmail: contactEmail,
		ExpiresAt:    expiresAt,
		SetAt:        m.now().UTC(),
	})
}

func (m *Manager) Remove(ctx context.Context) error {
	return m.store.Save(ctx, storage.SlotLicense, nil)
}

func (m *Manager) Policy() string { return policy }
