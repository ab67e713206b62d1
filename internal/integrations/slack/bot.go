package slackbot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"medcare/internal/logger"
)

// StartSlackBot connects over Socket Mode and serves review commands until
// ctx is cancelled.
func StartSlackBot(ctx context.Context, api *slack.Client, r *Reviewer, log *logger.Logger) error {
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Info("Slash command received", logger.Fields{"command": cmd.Command, "user": cmd.UserID, "channel": cmd.ChannelID})
				go handleSlashCommand(ctx, r, cmd)
			case socketmode.EventTypeEventsAPI:
				client.Ack(*evt.Request)
				event, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				go handleEventsAPI(r, event)
			case socketmode.EventTypeConnectionError:
				log.Warn("Slack connection error, retrying")
			}
		}
	}()

	log.Info("Slack review bot connected via Socket Mode")
	return client.RunContext(ctx)
}

func handleSlashCommand(ctx context.Context, r *Reviewer, cmd slack.SlashCommand) {
	reply := r.HandleCommand(ctx, cmd.Command, cmd.UserID, cmd.Text)
	if reply == "" {
		return
	}
	if err := r.msg.PostEphemeralText(cmd.ChannelID, cmd.UserID, reply); err != nil {
		r.log.Error("Slash command reply failed", logger.Fields{"command": cmd.Command, "error": err.Error()})
	}
}

func handleEventsAPI(r *Reviewer, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MemberJoinedChannelEvent:
		r.welcome(ev.Channel, ev.User)
	}
}

// welcome greets a new member of the review channel with the command list.
func (r *Reviewer) welcome(channelID, userID string) {
	if r.channelID == "" || channelID != r.channelID {
		return
	}
	text := fmt.Sprintf("Welcome %s! Elevated consultations and lab results land here for review.\n\n%s",
		r.msg.UserName(userID), helpText())
	if err := r.msg.PostText(channelID, text); err != nil {
		r.log.Warn("Welcome message failed", logger.Fields{"error": err.Error()})
	}
}

// StartReviewDigest schedules PostDigest on a standard 5-field cron
// expression evaluated in loc. An empty schedule disables the digest and
// returns a nil scheduler.
func StartReviewDigest(schedule string, loc *time.Location, r *Reviewer) (*cron.Cron, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		r.log.Info("Review digest disabled (review_digest_schedule not set)")
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid review_digest_schedule %q: %w", schedule, err)
	}

	c := cron.New(cron.WithLocation(loc), cron.WithParser(parser))
	c.Schedule(sched, cron.FuncJob(func() {
		if err := r.PostDigest(context.Background()); err != nil {
			r.log.Error("Review digest failed", logger.Fields{"error": err.Error()})
		}
	}))
	c.Start()

	next := sched.Next(time.Now().In(loc))
	r.log.Info("Review digest scheduled", logger.Fields{"cron": schedule, "next": next.Format("Mon Jan 2 15:04")})
	return c, nil
}
