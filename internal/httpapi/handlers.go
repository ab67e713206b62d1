package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"medcare/internal/consult"
	"medcare/internal/domain"
	"medcare/internal/intake"
	"medcare/internal/integrations/llm"
	"medcare/internal/license"
	"medcare/internal/locale"
	"medcare/internal/logger"
	"medcare/internal/speech"
	"medcare/internal/storage"
	"medcare/internal/view"
)

// multipartOverhead is allowed on top of the file ceiling for form fields
// and boundaries.
const multipartOverhead = 1 << 20

type Handlers struct {
	log         *logger.Logger
	consult     *consult.Service
	store       *storage.Store
	synth       speech.Synthesizer
	license     *license.Manager
	defaultLang string
	maxUpload   int64
	now         func() time.Time
}

type Options struct {
	DefaultLanguage string
	MaxUploadBytes  int64
	Now             func() time.Time
}

func NewHandlers(log *logger.Logger, svc *consult.Service, store *storage.Store, synth speech.Synthesizer, lic *license.Manager, opts Options) *Handlers {
	if log == nil {
		log = logger.Discard()
	}
	if synth == nil {
		synth = speech.Unsupported{}
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = locale.DefaultCode
	}
	if opts.MaxUploadBytes <= 0 || opts.MaxUploadBytes > intake.MaxUploadBytes {
		opts.MaxUploadBytes = intake.MaxUploadBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handlers{
		log:         log.With(logger.Fields{"component": "http"}),
		consult:     svc,
		store:       store,
		synth:       synth,
		license:     lic,
		defaultLang: opts.DefaultLanguage,
		maxUpload:   opts.MaxUploadBytes,
		now:         opts.Now,
	}
}

type consultationRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type consultationResponse struct {
	Record         domain.ConsultationRecord `json:"record"`
	Notice         consult.Notice            `json:"notice"`
	Style          view.Style                `json:"style"`
	ConfidenceBand view.Band                 `json:"confidenceBand"`
}

type labResponse struct {
	Record         domain.LabRecord `json:"record"`
	Notice         consult.Notice   `json:"notice"`
	Style          view.Style       `json:"style"`
	ConfidenceBand view.Band        `json:"confidenceBand"`
}

func (h *Handlers) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	var req consultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, h.notice("error", locale.KeyError, h.activeLanguage(r, "")))
		return
	}
	lang := h.activeLanguage(r, req.Language)

	res, err := h.consult.AnalyzeSymptoms(r.Context(), req.Text, lang)
	if err != nil {
		writeError(w, statusFor(err), res.Notice)
		return
	}
	writeJSON(w, http.StatusCreated, consultationResponse{
		Record:         res.Record,
		Notice:         res.Notice,
		Style:          view.SeverityStyle(res.Record.Severity),
		ConfidenceBand: view.ConfidenceBand(res.Record.Confidence),
	})
}

func (h *Handlers) CreateLabResult(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		lang := h.activeLanguage(r, "")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, h.notice("error", locale.KeyFileTooLarge, lang))
			return
		}
		writeError(w, http.StatusBadRequest, h.notice("error", locale.KeyUnsupportedFile, lang))
		return
	}
	lang := h.activeLanguage(r, r.FormValue("language"))

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, h.notice("error", locale.KeyUnsupportedFile, lang))
		return
	}
	defer file.Close()

	// one byte past the ceiling is enough for the size check to reject
	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, h.notice("error", locale.KeyUnsupportedFile, lang))
		return
	}

	res, err := h.consult.AnalyzeLabFile(r.Context(), consult.LabUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, lang)
	if err != nil {
		writeError(w, statusFor(err), res.Notice)
		return
	}
	writeJSON(w, http.StatusCreated, labResponse{
		Record:         res.Record,
		Notice:         res.Notice,
		Style:          view.UrgencyStyle(res.Record.Urgency),
		ConfidenceBand: view.ConfidenceBand(res.Record.Confidence),
	})
}

func (h *Handlers) ListConsultations(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.Consultations(r.Context())
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) ListLabResults(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.LabResults(r.Context())
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type historyResponse struct {
	Entries    []view.Entry `json:"entries"`
	Stats      view.Stats   `json:"stats"`
	LastActive string       `json:"lastActivity,omitempty"`
	EmptyText  string       `json:"emptyText,omitempty"`
}

func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consultations, err := h.store.Consultations(ctx)
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}
	labs, err := h.store.LabResults(ctx)
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}

	now := h.now()
	timeline := view.Timeline(consultations, labs)
	resp := historyResponse{
		Entries: view.Decorate(timeline, now),
		Stats:   view.StatsFor(timeline),
	}
	if len(timeline) > 0 {
		resp.LastActive = view.TimeAgo(timeline[0].CreatedAt, now)
	} else {
		resp.EmptyText = locale.Translate(h.activeLanguage(r, ""), locale.KeyNoRecords)
	}
	writeJSON(w, http.StatusOK, resp)
}

type stateResponse struct {
	consult.Snapshot
	ActiveLanguage string `json:"activeLanguage"`
	Direction      string `json:"direction"`
}

func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	lang := h.activeLanguage(r, "")
	writeJSON(w, http.StatusOK, stateResponse{
		Snapshot:       h.consult.State(),
		ActiveLanguage: lang,
		Direction:      locale.Direction(lang),
	})
}

func (h *Handlers) DismissNotice(w http.ResponseWriter, r *http.Request) {
	h.consult.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

type languageResponse struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	SpeechTag string `json:"speechTag"`
}

func languageInfo(code string) languageResponse {
	return languageResponse{
		Code:      code,
		Name:      locale.DisplayName(code),
		Direction: locale.Direction(code),
		SpeechTag: locale.SpeechTag(code),
	}
}

func (h *Handlers) GetLanguage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, languageInfo(h.activeLanguage(r, "")))
}

func (h *Handlers) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, h.notice("error", locale.KeyError, h.activeLanguage(r, "")))
		return
	}
	lang, ok := locale.Lookup(req.Code)
	if !ok {
		writeError(w, http.StatusBadRequest, consult.Notice{
			Level:   "error",
			Key:     "unsupportedLanguage",
			Message: fmt.Sprintf("unsupported language %q", req.Code),
		})
		return
	}
	if err := h.store.SetLanguage(r.Context(), lang.Code); err != nil {
		h.storeFailure(w, r, err)
		return
	}
	h.log.Info("http language changed", logger.Fields{"code": lang.Code, "direction": lang.Direction()})
	writeJSON(w, http.StatusOK, languageInfo(lang.Code))
}

func (h *Handlers) GetAccessibility(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Accessibility(r.Context())
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handlers) PutAccessibility(w http.ResponseWriter, r *http.Request) {
	var settings domain.AccessibilitySettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, h.notice("error", locale.KeyError, h.activeLanguage(r, "")))
		return
	}
	if err := h.store.SetAccessibility(r.Context(), settings); err != nil {
		h.storeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handlers) PatchAccessibility(w http.ResponseWriter, r *http.Request) {
	var upd domain.AccessibilityUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, h.notice("error", locale.KeyError, h.activeLanguage(r, "")))
		return
	}
	settings, err := h.store.UpdateAccessibility(r.Context(), upd)
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handlers) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, locale.All())
}

func (h *Handlers) Translations(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	resolved := locale.Resolve(code, locale.DefaultCode)
	writeJSON(w, http.StatusOK, map[string]any{
		"code":      resolved,
		"direction": locale.Direction(resolved),
		"messages":  locale.Table(resolved),
	})
}

func (h *Handlers) Speak(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, h.notice("error", locale.KeyError, h.activeLanguage(r, "")))
		return
	}
	lang := h.activeLanguage(r, req.Language)
	settings, err := h.store.Accessibility(r.Context())
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}

	spoken, err := speech.ReadAloud(r.Context(), h.synth, settings, req.Text, lang)
	if errors.Is(err, speech.ErrUnsupported) {
		writeJSON(w, http.StatusOK, map[string]any{"spoken": false, "supported": false})
		return
	}
	if err != nil {
		h.log.Warn("http speech failed", logger.Fields{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, h.notice("error", locale.KeyError, lang))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"spoken": spoken, "supported": h.synth.Supported()})
}

func (h *Handlers) License(w http.ResponseWriter, r *http.Request) {
	if h.license == nil {
		writeJSON(w, http.StatusOK, map[string]any{"license": license.Info{Type: license.Humanitarian, Valid: true}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"license": h.license.Check(r.Context()),
		"policy":  h.license.Policy(),
	})
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// activeLanguage picks the explicit code, then the saved preference, then
// the Accept-Language header, then the configured default.
func (h *Handlers) activeLanguage(r *http.Request, explicit string) string {
	if l, ok := locale.Lookup(explicit); ok {
		return l.Code
	}
	fallback := h.defaultLang
	if header := strings.TrimSpace(r.Header.Get("Accept-Language")); header != "" {
		fallback = locale.Detect(header)
	}
	code, err := h.store.Language(r.Context(), fallback)
	if err != nil {
		h.log.Warn("http reading language preference failed", logger.Fields{"error": err.Error()})
		return fallback
	}
	return locale.Resolve(code, fallback)
}

func (h *Handlers) notice(level, key, lang string) consult.Notice {
	return consult.Notice{Level: level, Key: key, Message: locale.Translate(lang, key)}
}

func (h *Handlers) storeFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("http store access failed", logger.Fields{"path": r.URL.Path, "error": err.Error()})
	writeError(w, http.StatusInternalServerError, h.notice("error", locale.KeyError, h.defaultLang))
}

// statusFor maps a submission error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, intake.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, intake.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, intake.ErrEmptyInput), errors.Is(err, intake.ErrNoFile):
		return http.StatusBadRequest
	case errors.Is(err, consult.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, llm.ErrCallFailed), errors.Is(err, llm.ErrMalformedResponse):
		return http.StatusBadGateway
	}
	var rej *intake.RejectError
	if errors.As(err, &rej) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, n consult.Notice) {
	writeJSON(w, status, map[string]consult.Notice{"notice": n})
}
