package intake

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"medcare/internal/domain"
	"medcare/internal/locale"
)

// MaxUploadBytes is the largest lab file accepted.
const MaxUploadBytes = 10 * 1024 * 1024

var (
	ErrEmptyInput      = errors.New("empty symptom description")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoFile          = errors.New("no file")
)

// AllowedTypes lists the lab file content types we forward.
var AllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "application/pdf"}

// RejectError is returned for input that never reaches the model. NoticeKey
// selects the user-facing message in the translation table.
type RejectError struct {
	Err       error
	NoticeKey string
	Detail    string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Detail)
}

func (e *RejectError) Unwrap() error { return e.Err }

// Notice returns the localized message for the rejection.
func (e *RejectError) Notice(lang string) string {
	return locale.Translate(lang, e.NoticeKey)
}

func reject(err error, key, detail string) *RejectError {
	return &RejectError{Err: err, NoticeKey: key, Detail: detail}
}

// Upload is a validated lab file ready for prompting.
type Upload struct {
	Name     string
	MIMEType string
	Kind     domain.FileKind
	Size     int64
	Data     []byte
}

// ValidateText trims the description and rejects empty input.
func ValidateText(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", reject(ErrEmptyInput, locale.KeyEmptySymptoms, "")
	}
	return trimmed, nil
}

// ValidateUpload checks size first and then the sniffed content type. The
// declared type only counts when the bytes say nothing specific.
func ValidateUpload(name, declaredType string, data []byte) (Upload, error) {
	return ValidateUploadLimit(name, declaredType, data, MaxUploadBytes)
}

// ValidateUploadLimit is ValidateUpload with a lower configured ceiling.
// Limits above MaxUploadBytes are capped.
func ValidateUploadLimit(name, declaredType string, data []byte, limit int64) (Upload, error) {
	if limit <= 0 || limit > MaxUploadBytes {
		limit = MaxUploadBytes
	}
	size := int64(len(data))
	if size == 0 {
		return Upload{}, reject(ErrNoFile, locale.KeyUnsupportedFile, "empty upload")
	}
	if size > limit {
		return Upload{}, reject(ErrFileTooLarge, locale.KeyFileTooLarge, fmt.Sprintf("%d bytes exceeds %d", size, limit))
	}

	contentType := DetectType(data, declaredType)
	if !Allowed(contentType) {
		return Upload{}, reject(ErrUnsupportedType, locale.KeyUnsupportedFile, contentType)
	}

	return Upload{
		Name:     cleanName(name),
		MIMEType: contentType,
		Kind:     domain.FileKindFor(contentType),
		Size:     size,
		Data:     data,
	}, nil
}

// DetectType sniffs data and falls back to the declared type when the
// sniffer only finds a generic binary stream.
func DetectType(data []byte, declaredType string) string {
	detected := mimetype.Detect(data)
	if detected.Is("application/octet-stream") {
		if declared := baseType(declaredType); declared != "" {
			return declared
		}
	}
	return baseType(detected.String())
}

func Allowed(contentType string) bool {
	ct := baseType(contentType)
	for _, allowed := range AllowedTypes {
		if ct == allowed {
			return true
		}
	}
	return false
}

func baseType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}
	return mt
}

func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
