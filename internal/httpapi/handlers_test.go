package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcare/internal/consult"
	"medcare/internal/domain"
	"medcare/internal/integrations/llm"
	"medcare/internal/license"
	"medcare/internal/logger"
	"medcare/internal/speech"
	"medcare/internal/storage"
)

type stubClient struct {
	text  string
	err   error
	calls int32
}

func (s *stubClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	atomic.AddInt32(&s.calls, 1)
	return llm.Response{Text: s.text}, s.err
}

type stubSynth struct {
	spoken []speech.Utterance
}

func (s *stubSynth) Supported() bool { return true }

func (s *stubSynth) Speak(ctx context.Context, u speech.Utterance) error {
	s.spoken = append(s.spoken, u)
	return nil
}

type testServer struct {
	router http.Handler
	store  *storage.Store
	client *stubClient
	synth  *stubSynth
}

var testNow = time.Date(2025, 5, 4, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, reply string) *testServer {
	t.Helper()
	b, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "http-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	st, err := storage.Open(context.Background(), b, "test")
	require.NoError(t, err)

	client := &stubClient{text: reply}
	synth := &stubSynth{}
	log := logger.Discard()
	svc := consult.NewService(client, st, log, consult.Options{Now: func() time.Time { return testNow.Add(-time.Hour) }})
	h := NewHandlers(log, svc, st, synth, license.NewManager(st, log), Options{Now: func() time.Time { return testNow }})
	return &testServer{router: NewRouter(h, log), store: st, client: client, synth: synth}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

const feverReply = `{"analysis":"Likely a viral infection.","confidence":80,"recommendations":["Rest","Fluids","See a clinic if it persists"],"severity":"moderate","disclaimer":"Preliminary guidance only."}`

func TestCreateConsultation(t *testing.T) {
	ts := newTestServer(t, feverReply)

	rec := ts.do(t, http.MethodPost, "/api/consultations", map[string]string{"text": "fever and headache for 2 days"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp consultationResponse
	decode(t, rec, &resp)
	assert.Equal(t, domain.SeverityModerate, resp.Record.Severity)
	assert.Equal(t, 80, resp.Record.Confidence)
	assert.Len(t, resp.Record.Actions, 3)
	assert.Equal(t, "high", string(resp.ConfidenceBand))
	assert.Equal(t, "success", resp.Notice.Level)

	list := ts.do(t, http.MethodGet, "/api/consultations", nil, nil)
	require.Equal(t, http.StatusOK, list.Code)
	var records []domain.ConsultationRecord
	decode(t, list, &records)
	require.Len(t, records, 1)
	assert.Equal(t, resp.Record.ID, records[0].ID)
}

func TestCreateConsultationErrors(t *testing.T) {
	ts := newTestServer(t, feverReply)

	rec := ts.do(t, http.MethodPost, "/api/consultations", map[string]string{"text": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]consult.Notice
	decode(t, rec, &body)
	assert.Equal(t, "Please describe your symptoms first", body["notice"].Message)
	assert.EqualValues(t, 0, atomic.LoadInt32(&ts.client.calls))

	ts.client.text = "not json at all"
	rec = ts.do(t, http.MethodPost, "/api/consultations", map[string]string{"text": "cough"}, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	ts.client.text = ""
	ts.client.err = llm.ErrCallFailed
	rec = ts.do(t, http.MethodPost, "/api/consultations", map[string]string{"text": "cough", "language": "es"}, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, "No se pudieron analizar los síntomas. Inténtelo de nuevo.", body["notice"].Message)

	req := httptest.NewRequest(http.MethodPost, "/api/consultations", strings.NewReader("{broken"))
	raw := httptest.NewRecorder()
	ts.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)

	records, err := ts.store.Consultations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func multipartUpload(t *testing.T, name, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("language", "en"))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func jpeg(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00})
	return data
}

func TestCreateLabResult(t *testing.T) {
	ts := newTestServer(t, `{"interpretation":"Compare values with reference ranges.","findings":["Hemoglobin"],"urgency":"normal","confidence":75}`)

	body, ct := multipartUpload(t, "cbc.jpg", "image/jpeg", jpeg(4096))
	req := httptest.NewRequest(http.MethodPost, "/api/lab-results", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp labResponse
	decode(t, rec, &resp)
	assert.Equal(t, "cbc.jpg", resp.Record.FileName)
	assert.Equal(t, domain.FileKindImage, resp.Record.FileKind)
	assert.Equal(t, domain.UrgencyNormal, resp.Record.Urgency)
}

func TestCreateLabResultRejectsOversizedJPEG(t *testing.T) {
	ts := newTestServer(t, `{}`)

	body, ct := multipartUpload(t, "xray.jpg", "image/jpeg", jpeg(12*1024*1024))
	req := httptest.NewRequest(http.MethodPost, "/api/lab-results", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var resp map[string]consult.Notice
	decode(t, rec, &resp)
	assert.Equal(t, "File size must be under 10MB", resp["notice"].Message)
	assert.EqualValues(t, 0, atomic.LoadInt32(&ts.client.calls))

	labs, err := ts.store.LabResults(context.Background())
	require.NoError(t, err)
	assert.Empty(t, labs)
}

func TestCreateLabResultUnsupportedType(t *testing.T) {
	ts := newTestServer(t, `{}`)

	body, ct := multipartUpload(t, "notes.txt", "text/plain", []byte("hemoglobin 13.5 g/dL"))
	req := httptest.NewRequest(http.MethodPost, "/api/lab-results", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHistoryAndStats(t *testing.T) {
	ts := newTestServer(t, feverReply)
	ctx := context.Background()
	require.NoError(t, ts.store.PrependLabResult(ctx, domain.LabRecord{ID: "lab-1", CreatedAt: testNow.Add(-3 * time.Hour), Urgency: domain.UrgencyUrgent, Reviewed: true}))

	rec := ts.do(t, http.MethodGet, "/api/history", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var empty historyResponse
	decode(t, rec, &empty)
	assert.Equal(t, 1, empty.Stats.Total)

	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/consultations", map[string]string{"text": "fever"}, nil).Code)

	rec = ts.do(t, http.MethodGet, "/api/history", nil, nil)
	var hist historyResponse
	decode(t, rec, &hist)
	require.Len(t, hist.Entries, 2)
	assert.Equal(t, domain.KindConsultation, hist.Entries[0].Kind)
	assert.Equal(t, "1 hour ago", hist.Entries[0].TimeAgo)
	assert.Equal(t, "lab-1", hist.Entries[1].ID)
	assert.True(t, hist.Entries[1].Style.Warning)
	assert.Equal(t, 2, hist.Stats.Total)
	assert.Equal(t, 1, hist.Stats.Reviewed)
	assert.Equal(t, "1 hour ago", hist.LastActive)
}

func TestHistoryEmpty(t *testing.T) {
	ts := newTestServer(t, feverReply)
	rec := ts.do(t, http.MethodGet, "/api/history", nil, nil)
	var hist historyResponse
	decode(t, rec, &hist)
	assert.Empty(t, hist.Entries)
	assert.Equal(t, "Your consultation history will appear here.", hist.EmptyText)
}

func TestLanguageSettings(t *testing.T) {
	ts := newTestServer(t, feverReply)

	rec := ts.do(t, http.MethodGet, "/api/settings/language", nil, map[string]string{"Accept-Language": "fr-CA,fr;q=0.9"})
	var lang languageResponse
	decode(t, rec, &lang)
	assert.Equal(t, "fr", lang.Code)

	rec = ts.do(t, http.MethodPut, "/api/settings/language", map[string]string{"code": "ar"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &lang)
	assert.Equal(t, "rtl", lang.Direction)
	assert.Equal(t, "ar-SA", lang.SpeechTag)

	rec = ts.do(t, http.MethodPut, "/api/settings/language", map[string]string{"code": "en"}, nil)
	decode(t, rec, &lang)
	assert.Equal(t, "ltr", lang.Direction)

	rec = ts.do(t, http.MethodPut, "/api/settings/language", map[string]string{"code": "klingon"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the saved preference wins over the header
	rec = ts.do(t, http.MethodGet, "/api/state", nil, map[string]string{"Accept-Language": "fr"})
	var state stateResponse
	decode(t, rec, &state)
	assert.Equal(t, "en", state.ActiveLanguage)
	assert.Equal(t, consult.StateIdle, state.State)
}

func TestAccessibilitySettings(t *testing.T) {
	ts := newTestServer(t, feverReply)

	rec := ts.do(t, http.MethodPatch, "/api/settings/accessibility", map[string]bool{"highContrastMode": true}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var settings domain.AccessibilitySettings
	decode(t, rec, &settings)
	assert.True(t, settings.HighContrastMode)
	assert.False(t, settings.LargeTextMode)

	rec = ts.do(t, http.MethodPatch, "/api/settings/accessibility", map[string]bool{"largeTextMode": true}, nil)
	decode(t, rec, &settings)
	assert.True(t, settings.HighContrastMode)
	assert.True(t, settings.LargeTextMode)

	rec = ts.do(t, http.MethodPut, "/api/settings/accessibility", domain.AccessibilitySettings{ReducedMotion: true}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/settings/accessibility", nil, nil)
	decode(t, rec, &settings)
	assert.Equal(t, domain.AccessibilitySettings{ReducedMotion: true}, settings)
}

func TestSpeakHonorsScreenReader(t *testing.T) {
	ts := newTestServer(t, feverReply)

	rec := ts.do(t, http.MethodPost, "/api/speak", map[string]string{"text": "Rest and drink fluids"}, nil)
	var resp map[string]bool
	decode(t, rec, &resp)
	assert.False(t, resp["spoken"])
	assert.Empty(t, ts.synth.spoken)

	ts.do(t, http.MethodPatch, "/api/settings/accessibility", map[string]bool{"screenReaderEnabled": true}, nil)
	rec = ts.do(t, http.MethodPost, "/api/speak", map[string]string{"text": "Pumzika", "language": "sw"}, nil)
	decode(t, rec, &resp)
	assert.True(t, resp["spoken"])
	require.Len(t, ts.synth.spoken, 1)
	assert.Equal(t, "sw-KE", ts.synth.spoken[0].Lang)
	assert.Equal(t, 0.8, ts.synth.spoken[0].Rate)
}

func TestCatalogRoutes(t *testing.T) {
	ts := newTestServer(t, feverReply)

	rec := ts.do(t, http.MethodGet, "/api/languages", nil, nil)
	var langs []map[string]any
	decode(t, rec, &langs)
	assert.Len(t, langs, 26)

	rec = ts.do(t, http.MethodGet, "/api/translations/ar", nil, nil)
	var tr struct {
		Code      string            `json:"code"`
		Direction string            `json:"direction"`
		Messages  map[string]string `json:"messages"`
	}
	decode(t, rec, &tr)
	assert.Equal(t, "rtl", tr.Direction)
	assert.Equal(t, "خطأ", tr.Messages["error"])
	assert.Equal(t, "File size must be under 10MB", tr.Messages["fileTooLarge"])

	rec = ts.do(t, http.MethodGet, "/api/license", nil, nil)
	var lic struct {
		License license.Info `json:"license"`
		Policy  string       `json:"policy"`
	}
	decode(t, rec, &lic)
	assert.Equal(t, license.Humanitarian, lic.License.Type)
	assert.NotEmpty(t, lic.Policy)

	rec = ts.do(t, http.MethodGet, "/healthCheck", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, "/api/consultations", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(consult.ErrBusy))
	assert.Equal(t, http.StatusInternalServerError, statusFor(consult.ErrPersist))
}
