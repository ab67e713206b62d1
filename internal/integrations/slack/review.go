package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medcare/internal/domain"
	"medcare/internal/logger"
	"medcare/internal/storage"
	"medcare/internal/view"
)

const (
	pendingListLimit = 10
	digestListLimit  = 5
	summaryPreview   = 160
)

var errReviewUsage = errors.New("usage: /review <consultation|lab> <id> [note]")

// Reviewer posts elevated records for clinician review and applies the
// reviewers' decisions back to the store.
type Reviewer struct {
	msg       Messenger
	store     *storage.Store
	channelID string
	log       *logger.Logger
	now       func() time.Time
}

func NewReviewer(msg Messenger, store *storage.Store, channelID string, log *logger.Logger) *Reviewer {
	return &Reviewer{
		msg:       msg,
		store:     store,
		channelID: channelID,
		log:       log.With(logger.Fields{"component": "slack-review"}),
		now:       time.Now,
	}
}

// NotifyReview posts one elevated record to the review channel.
func (r *Reviewer) NotifyReview(ctx context.Context, entry domain.HistoryEntry) error {
	if r.channelID == "" {
		return nil
	}
	if err := r.msg.PostText(r.channelID, FormatReviewRequest(entry)); err != nil {
		return fmt.Errorf("post review request %s/%s: %w", entry.Kind, entry.ID, err)
	}
	r.log.Info("Review requested", logger.Fields{"kind": entry.Kind, "id": entry.ID, "tag": entry.Tag()})
	return nil
}

// HandleCommand runs one slash command and returns the reply for the caller.
// Unknown commands return an empty reply.
func (r *Reviewer) HandleCommand(ctx context.Context, cmd, userID, text string) string {
	switch cmd {
	case "/review":
		return r.handleReview(ctx, userID, text)
	case "/pending":
		reply, err := r.PendingText(ctx, pendingListLimit)
		if err != nil {
			r.log.Error("Pending list failed", logger.Fields{"error": err.Error()})
			return "Could not load pending reviews. Please try again."
		}
		return reply
	case "/review-help":
		return helpText()
	}
	return ""
}

func (r *Reviewer) handleReview(ctx context.Context, userID, text string) string {
	kind, id, note, err := ParseReviewArgs(text)
	if err != nil {
		return err.Error()
	}

	entry, err := r.store.MarkReviewed(ctx, kind, id, note)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Sprintf("No %s record with id `%s`.", kind, id)
	}
	if err != nil {
		r.log.Error("Mark reviewed failed", logger.Fields{"kind": kind, "id": id, "error": err.Error()})
		return "Could not save the review. Please try again."
	}

	name := r.msg.UserName(userID)
	r.log.Info("Record reviewed", logger.Fields{"kind": kind, "id": id, "reviewer": name, "has_note": note != ""})

	if r.channelID != "" {
		announce := fmt.Sprintf(":white_check_mark: %s `%s` reviewed by %s", kind, id, name)
		if note != "" {
			announce += fmt.Sprintf("\n> %s", note)
		}
		if err := r.msg.PostText(r.channelID, announce); err != nil {
			r.log.Warn("Review announcement failed", logger.Fields{"error": err.Error()})
		}
	}

	reply := fmt.Sprintf("Marked %s `%s` as reviewed.", entry.Kind, entry.ID)
	if note != "" {
		reply += " Note saved."
	}
	return reply
}

// ParseReviewArgs splits "/review" text into kind, record id and optional
// free-text note.
func ParseReviewArgs(text string) (domain.RecordKind, string, string, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "", "", "", errReviewUsage
	}
	kind, ok := domain.ParseRecordKind(fields[0])
	if !ok {
		return "", "", "", fmt.Errorf("unknown record kind %q; %w", fields[0], errReviewUsage)
	}
	id := strings.Trim(fields[1], "`")

	// Keep the note as typed, including its inner spacing.
	note := strings.TrimSpace(text)
	note = strings.TrimSpace(strings.TrimPrefix(note, fields[0]))
	note = strings.TrimSpace(strings.TrimPrefix(note, fields[1]))
	return kind, id, note, nil
}

// PendingText lists unreviewed elevated records, oldest first.
func (r *Reviewer) PendingText(ctx context.Context, limit int) (string, error) {
	pending, err := r.pending(ctx)
	if err != nil {
		return "", err
	}
	return FormatPending(pending, r.now(), limit), nil
}

func (r *Reviewer) pending(ctx context.Context) ([]domain.HistoryEntry, error) {
	consultations, err := r.store.Consultations(ctx)
	if err != nil {
		return nil, err
	}
	labs, err := r.store.LabResults(ctx)
	if err != nil {
		return nil, err
	}
	return view.Pending(view.Timeline(consultations, labs)), nil
}

// PostDigest posts the pending count and the oldest pending items. Nothing is
// posted when the queue is empty.
func (r *Reviewer) PostDigest(ctx context.Context) error {
	if r.channelID == "" {
		return nil
	}
	pending, err := r.pending(ctx)
	if err != nil {
		return fmt.Errorf("load pending reviews: %w", err)
	}
	if len(pending) == 0 {
		r.log.Info("Review digest skipped, queue empty")
		return nil
	}
	text := fmt.Sprintf(":clipboard: *Review digest*\n%s", FormatPending(pending, r.now(), digestListLimit))
	if err := r.msg.PostText(r.channelID, text); err != nil {
		return fmt.Errorf("post review digest: %w", err)
	}
	r.log.Info("Review digest posted", logger.Fields{"pending": len(pending)})
	return nil
}

// FormatReviewRequest renders the channel message for an elevated record.
func FormatReviewRequest(entry domain.HistoryEntry) string {
	var b strings.Builder
	icon := ":warning:"
	if strings.EqualFold(entry.Tag(), "urgent") {
		icon = ":rotating_light:"
	}

	switch {
	case entry.Consultation != nil:
		c := entry.Consultation
		fmt.Fprintf(&b, "%s *%s consultation needs review*\n", icon, titleTag(entry.Tag()))
		fmt.Fprintf(&b, "ID: `%s` | Confidence: %d%% | Language: %s\n", c.ID, c.Confidence, orDash(c.Language))
		fmt.Fprintf(&b, "> %s\n", preview(c.Summary))
	case entry.Lab != nil:
		l := entry.Lab
		fmt.Fprintf(&b, "%s *Lab result flagged %s*\n", icon, strings.ToLower(entry.Tag()))
		fmt.Fprintf(&b, "ID: `%s` | File: %s | Confidence: %d%%\n", l.ID, l.FileName, l.Confidence)
		fmt.Fprintf(&b, "> %s\n", preview(l.Interpretation))
	}
	fmt.Fprintf(&b, "Reply with `/review %s %s <note>` once checked.", entry.Kind, entry.ID)
	return b.String()
}

// FormatPending renders up to limit pending entries with a total count.
func FormatPending(pending []domain.HistoryEntry, now time.Time, limit int) string {
	if len(pending) == 0 {
		return "No records are waiting for review."
	}
	var b strings.Builder
	if len(pending) == 1 {
		b.WriteString("1 record is waiting for review:\n")
	} else {
		fmt.Fprintf(&b, "%d records are waiting for review:\n", len(pending))
	}
	for i, e := range pending {
		if limit > 0 && i >= limit {
			fmt.Fprintf(&b, "...and %d more", len(pending)-limit)
			break
		}
		fmt.Fprintf(&b, "• %s `%s` (%s, %s)\n", e.Kind, e.ID, e.Tag(), strings.ToLower(view.TimeAgo(e.CreatedAt, now)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func helpText() string {
	return "*MedCare review commands*\n" +
		"• `/pending` lists elevated records nobody has reviewed yet\n" +
		"• `/review <consultation|lab> <id> [note]` marks a record reviewed and saves your note"
}

func titleTag(tag string) string {
	if tag == "" {
		return "Flagged"
	}
	r := []rune(strings.ToLower(tag))
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= summaryPreview {
		return s
	}
	return string(r[:summaryPreview-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
