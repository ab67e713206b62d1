package slackbot

import (
	"github.com/slack-go/slack"
)

// Messenger is the part of the Slack Web API the review bot needs.
type Messenger interface {
	PostText(channelID, text string) error
	PostEphemeralText(channelID, userID, text string) error
	UserName(userID string) string
}

type apiMessenger struct {
	api   *slack.Client
	users *userDirectory
}

func NewMessenger(api *slack.Client) Messenger {
	return &apiMessenger{api: api, users: newUserDirectory(api.GetUserInfo)}
}

func (m *apiMessenger) PostText(channelID, text string) error {
	_, _, err := m.api.PostMessage(channelID, slack.MsgOptionText(text, false))
	return err
}

func (m *apiMessenger) PostEphemeralText(channelID, userID, text string) error {
	_, err := m.api.PostEphemeral(channelID, userID, slack.MsgOptionText(text, false))
	return err
}

func (m *apiMessenger) UserName(userID string) string {
	return m.users.Name(userID)
}
