package speech

import (
	"context"
	"errors"
	"strings"

	"medcare/internal/domain"
	"medcare/internal/locale"
)

var ErrUnsupported = errors.New("speech synthesis not supported")

const (
	DefaultRate   = 0.8
	DefaultPitch  = 1.0
	DefaultVolume = 0.8
)

type Utterance struct {
	Text   string  `json:"text"`
	Lang   string  `json:"lang"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

// NewUtterance fills the default voice settings and the speech tag for a
// language code.
func NewUtterance(text, lang string) Utterance {
	return Utterance{
		Text:   strings.TrimSpace(text),
		Lang:   locale.SpeechTag(lang),
		Rate:   DefaultRate,
		Pitch:  DefaultPitch,
		Volume: DefaultVolume,
	}
}

// Synthesizer speaks text. Starting a new utterance cancels the one in
// progress.
type Synthesizer interface {
	Supported() bool
	Speak(ctx context.Context, u Utterance) error
}

// Unsupported is used where no speech engine is available.
type Unsupported struct{}

func (Unsupported) Supported() bool { return false }

func (Unsupported) Speak(context.Context, Utterance) error { return ErrUnsupported }

// ReadAloud speaks text only when the screen reader setting is on. It
// reports whether anything was spoken.
func ReadAloud(ctx context.Context, synth Synthesizer, settings domain.AccessibilitySettings, text, lang string) (bool, error) {
	if synth == nil || !settings.ScreenReaderEnabled {
		return false, nil
	}
	u := NewUtterance(text, lang)
	if u.Text == "" {
		return false, nil
	}
	if !synth.Supported() {
		return false, ErrUnsupported
	}
	if err := synth.Speak(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}
