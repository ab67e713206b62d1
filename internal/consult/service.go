package consult

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"medcare/internal/domain"
	"medcare/internal/intake"
	"medcare/internal/integrations/llm"
	"medcare/internal/locale"
	"medcare/internal/logger"
	"medcare/internal/prompt"
	"medcare/internal/storage"
)

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

var (
	// ErrBusy is returned while another submission is in flight.
	ErrBusy = errors.New("a submission is already in progress")
	// ErrPersist means the model answered but the record could not be saved.
	ErrPersist = errors.New("saving record failed")
)

// Notice is the one-shot message shown after a submission.
type Notice struct {
	Level   string `json:"level"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

func newNotice(level, key, lang string) Notice {
	return Notice{Level: level, Key: key, Message: locale.Translate(lang, key)}
}

// ReviewNotifier is told about records that need a clinician's attention.
type ReviewNotifier interface {
	NotifyReview(ctx context.Context, entry domain.HistoryEntry) error
}

// UsageRecorder records anonymous workflow events.
type UsageRecorder interface {
	Track(ctx context.Context, action string, data map[string]any)
}

type Snapshot struct {
	State    State   `json:"state"`
	Notice   *Notice `json:"notice,omitempty"`
	Language string  `json:"language,omitempty"`
	// Usage totals the tokens spent by every completed call since start.
	Usage llm.Usage `json:"usage"`
}

type ConsultationResult struct {
	Record domain.ConsultationRecord
	Notice Notice
	Usage  llm.Usage
}

type LabResult struct {
	Record domain.LabRecord
	Notice Notice
	Usage  llm.Usage
}

// LabUpload is an unvalidated file as received from the client.
type LabUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

type Options struct {
	MaxTokens      int
	MaxUploadBytes int64
	Notifier       ReviewNotifier
	Usage          UsageRecorder
	Now            func() time.Time
}

// Service runs one submission at a time: validate, build the prompt, call
// the model once, parse, then write the record in a single store call.
type Service struct {
	client    llm.Client
	store     *storage.Store
	log       *logger.Logger
	notifier  ReviewNotifier
	usage     UsageRecorder
	maxTokens int
	maxUpload int64
	now       func() time.Time

	mu       sync.Mutex
	state    State
	notice   *Notice
	language string
	spent    llm.Usage
}

func NewService(client llm.Client, store *storage.Store, log *logger.Logger, opts Options) *Service {
	if log == nil {
		log = logger.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = intake.MaxUploadBytes
	}
	return &Service{
		client:    client,
		store:     store,
		log:       log.With(logger.Fields{"component": "consult"}),
		notifier:  opts.Notifier,
		usage:     opts.Usage,
		maxTokens: opts.MaxTokens,
		maxUpload: opts.MaxUploadBytes,
		now:       opts.Now,
		state:     StateIdle,
	}
}

func (s *Service) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{State: s.state, Language: s.language, Usage: s.spent}
	if s.notice != nil {
		n := *s.notice
		snap.Notice = &n
	}
	return snap
}

// Dismiss clears a finished submission's notice and returns to idle.
func (s *Service) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitting {
		s.state = StateIdle
		s.notice = nil
	}
}

func (s *Service) begin(lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return ErrBusy
	}
	s.state = StateSubmitting
	s.notice = nil
	s.language = lang
	return nil
}

func (s *Service) addUsage(u llm.Usage) {
	s.mu.Lock()
	s.spent.Add(u)
	s.mu.Unlock()
}

// rejectNotice picks the notice for a validation failure. Rejections never
// touch the submission state.
func rejectNotice(err error, fallback, lang string) Notice {
	var rej *intake.RejectError
	if errors.As(err, &rej) {
		return newNotice("error", rej.NoticeKey, lang)
	}
	return newNotice("error", fallback, lang)
}

func (s *Service) finish(err error, n Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
	} else {
		s.state = StateSuccess
	}
	s.notice = &n
}

// AnalyzeSymptoms turns a free-text description into a saved consultation.
// The model call and the write use a context detached from ctx so a reply
// that arrives after the caller gave up is still saved.
func (s *Service) AnalyzeSymptoms(ctx context.Context, text, lang string) (ConsultationResult, error) {
	lang = locale.Resolve(lang, locale.DefaultCode)
	symptoms, err := intake.ValidateText(text)
	if err != nil {
		return ConsultationResult{Notice: rejectNotice(err, locale.KeyAnalysisFailed, lang)}, err
	}
	if err := s.begin(lang); err != nil {
		return ConsultationResult{Notice: newNotice("error", locale.KeyBusy, lang)}, err
	}

	res, err := s.analyzeSymptoms(ctx, symptoms, lang)
	s.finish(err, res.Notice)
	return res, err
}

func (s *Service) analyzeSymptoms(ctx context.Context, symptoms, lang string) (ConsultationResult, error) {
	fail := func(key string, err error) (ConsultationResult, error) {
		return ConsultationResult{Notice: newNotice("error", key, lang)}, err
	}

	p := prompt.Consultation(symptoms, lang)
	callCtx := context.WithoutCancel(ctx)
	s.log.Info("consult symptoms submitted", logger.Fields{"lang": lang, "chars": len(symptoms)})

	resp, err := s.client.Complete(callCtx, llm.Request{System: p.System, User: p.User, MaxTokens: s.maxTokens})
	if err != nil {
		s.log.Error("consult symptoms call failed", logger.Fields{"error": err.Error()})
		return fail(locale.KeyAnalysisFailed, err)
	}
	s.addUsage(resp.Usage)

	parsed, err := llm.ParseConsultation(resp.Text)
	if err != nil {
		s.log.Error("consult symptoms reply rejected", logger.Fields{"error": err.Error()})
		return fail(locale.KeyAnalysisFailed, err)
	}
	if parsed.ConfidenceClamped {
		s.log.Warn("consult confidence out of range, clamped", logger.Fields{"confidence": parsed.Confidence})
	}
	severity := domain.Severity(parsed.Severity)
	if !severity.Known() {
		s.log.Warn("consult unknown severity", logger.Fields{"severity": parsed.Severity})
	}

	rec := domain.ConsultationRecord{
		ID:         newRecordID(),
		CreatedAt:  s.now().UTC(),
		InputText:  symptoms,
		Summary:    parsed.Analysis,
		Confidence: parsed.Confidence,
		Actions:    parsed.Recommendations,
		Severity:   severity,
		Disclaimer: parsed.Disclaimer,
		Language:   lang,
	}
	if err := s.store.PrependConsultation(callCtx, rec); err != nil {
		s.log.Error("consult saving consultation failed", logger.Fields{"error": err.Error()})
		return fail(locale.KeyAnalysisFailed, fmt.Errorf("%w: %v", ErrPersist, err))
	}

	s.log.Info("consult consultation saved", logger.Fields{
		"id":         rec.ID,
		"severity":   rec.Severity,
		"confidence": rec.Confidence,
		"tokens":     resp.Usage.TotalTokens(),
	})
	s.track(callCtx, "consultation_completed", map[string]any{"severity": string(rec.Severity), "language": lang})
	if rec.Severity.Elevated() {
		s.notify(callCtx, domain.HistoryEntry{Kind: domain.KindConsultation, ID: rec.ID, CreatedAt: rec.CreatedAt, Consultation: &rec})
	}

	return ConsultationResult{
		Record: rec,
		Notice: newNotice("success", locale.KeyConsultationSuccess, lang),
		Usage:  resp.Usage,
	}, nil
}

// AnalyzeLabFile validates the upload and saves the model's interpretation.
// Rejected files never reach the model or the store.
func (s *Service) AnalyzeLabFile(ctx context.Context, upload LabUpload, lang string) (LabResult, error) {
	lang = locale.Resolve(lang, locale.DefaultCode)
	file, err := intake.ValidateUploadLimit(upload.Name, upload.ContentType, upload.Data, s.maxUpload)
	if err != nil {
		s.log.Info("consult lab file rejected", logger.Fields{"file": upload.Name, "reason": err.Error()})
		return LabResult{Notice: rejectNotice(err, locale.KeyLabAnalysisFailed, lang)}, err
	}
	if err := s.begin(lang); err != nil {
		return LabResult{Notice: newNotice("error", locale.KeyBusy, lang)}, err
	}

	res, err := s.analyzeLabFile(ctx, file, lang)
	s.finish(err, res.Notice)
	return res, err
}

func (s *Service) analyzeLabFile(ctx context.Context, file intake.Upload, lang string) (LabResult, error) {
	fail := func(key string, err error) (LabResult, error) {
		return LabResult{Notice: newNotice("error", key, lang)}, err
	}

	p := prompt.LabFile(file.Name, file.MIMEType, lang)
	callCtx := context.WithoutCancel(ctx)
	s.log.Info("consult lab file submitted", logger.Fields{"lang": lang, "file": file.Name, "type": file.MIMEType, "size": file.Size})

	resp, err := s.client.Complete(callCtx, llm.Request{System: p.System, User: p.User, MaxTokens: s.maxTokens})
	if err != nil {
		s.log.Error("consult lab call failed", logger.Fields{"error": err.Error()})
		return fail(locale.KeyLabAnalysisFailed, err)
	}
	s.addUsage(resp.Usage)

	parsed, err := llm.ParseLab(resp.Text)
	if err != nil {
		s.log.Error("consult lab reply rejected", logger.Fields{"error": err.Error()})
		return fail(locale.KeyLabAnalysisFailed, err)
	}
	if parsed.ConfidenceClamped {
		s.log.Warn("consult confidence out of range, clamped", logger.Fields{"confidence": parsed.Confidence})
	}
	urgency := domain.Urgency(parsed.Urgency)
	if !urgency.Known() {
		s.log.Warn("consult unknown urgency", logger.Fields{"urgency": parsed.Urgency})
	}

	rec := domain.LabRecord{
		ID:              newRecordID(),
		CreatedAt:       s.now().UTC(),
		FileName:        file.Name,
		FileKind:        file.Kind,
		MIMEType:        file.MIMEType,
		Interpretation:  parsed.Interpretation,
		Findings:        parsed.Findings,
		Recommendations: parsed.Recommendations,
		Urgency:         urgency,
		Confidence:      parsed.Confidence,
		Language:        lang,
	}
	if err := s.store.PrependLabResult(callCtx, rec); err != nil {
		s.log.Error("consult saving lab result failed", logger.Fields{"error": err.Error()})
		return fail(locale.KeyLabAnalysisFailed, fmt.Errorf("%w: %v", ErrPersist, err))
	}

	s.log.Info("consult lab result saved", logger.Fields{
		"id":         rec.ID,
		"urgency":    rec.Urgency,
		"confidence": rec.Confidence,
		"tokens":     resp.Usage.TotalTokens(),
	})
	s.track(callCtx, "lab_completed", map[string]any{"urgency": string(rec.Urgency), "kind": string(rec.FileKind)})
	if rec.Urgency.Elevated() {
		s.notify(callCtx, domain.HistoryEntry{Kind: domain.KindLab, ID: rec.ID, CreatedAt: rec.CreatedAt, Lab: &rec})
	}

	return LabResult{
		Record: rec,
		Notice: newNotice("success", locale.KeyLabSuccess, lang),
		Usage:  resp.Usage,
	}, nil
}

func (s *Service) notify(ctx context.Context, entry domain.HistoryEntry) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyReview(ctx, entry); err != nil {
		s.log.Warn("consult review notification failed", logger.Fields{"id": entry.ID, "error": err.Error()})
	}
}

func (s *Service) track(ctx context.Context, action string, data map[string]any) {
	if s.usage != nil {
		s.usage.Track(ctx, action, data)
	}
}

// newRecordID returns a time-ordered UUID.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
