package domain

type AccessibilitySettings struct {
	ScreenReaderEnabled    bool `json:"screenReaderEnabled"`
	HighContrastMode       bool `json:"highContrastMode"`
	LargeTextMode          bool `json:"largeTextMode"`
	VoiceNavigationEnabled bool `json:"voiceNavigationEnabled"`
	AutoReadContent        bool `json:"autoReadContent"`
	ReducedMotion          bool `json:"reducedMotion"`
}

// AccessibilityUpdate carries a partial update; nil fields keep their value.
type AccessibilityUpdate struct {
	ScreenReaderEnabled    *bool `json:"screenReaderEnabled,omitempty"`
	HighContrastMode       *bool `json:"highContrastMode,omitempty"`
	LargeTextMode          *bool `json:"largeTextMode,omitempty"`
	VoiceNavigationEnabled *bool `json:"voiceNavigationEnabled,omitempty"`
	AutoReadContent        *bool `json:"autoReadContent,omitempty"`
	ReducedMotion          *bool `json:"reducedMotion,omitempty"`
}

func (s AccessibilitySettings) Apply(u AccessibilityUpdate) AccessibilitySettings {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&s.ScreenReaderEnabled, u.ScreenReaderEnabled)
	set(&s.HighContrastMode, u.HighContrastMode)
	set(&s.LargeTextMode, u.LargeTextMode)
	set(&s.VoiceNavigationEnabled, u.VoiceNavigationEnabled)
	set(&s.AutoReadContent, u.AutoReadContent)
	set(&s.ReducedMotion, u.ReducedMotion)
	return s
}
