package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Sink delivers composed messages. Implementations are best-effort; callers
// log failures and drop the message.
type Sink interface {
	SendToChannel(ctx context.Context, channelID string, msg Message) error
	SendDirect(ctx context.Context, userID string, msg Message) error
}

// SlackSink sends messages through the Slack Web API.
type SlackSink struct {
	client *slack.Client
}

// NewSlackSink creates a sink on top of an authenticated Slack client.
func NewSlackSink(client *slack.Client) *SlackSink {
	return &SlackSink{client: client}
}

// SendToChannel posts the message to a channel.
func (s *SlackSink) SendToChannel(ctx context.Context, channelID string, msg Message) error {
	_, _, err := s.client.PostMessageContext(ctx, channelID, msgOptions(msg)...)
	if err != nil {
		return fmt.Errorf("failed to post to channel %s: %w", channelID, err)
	}
	return nil
}

// SendDirect opens a direct message conversation with the user and posts the
// message there. The conversation is resolved on every send on purpose; IDs
// are not cached across cycles.
func (s *SlackSink) SendDirect(ctx context.Context, userID string, msg Message) error {
	channel, _, _, err := s.client.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return fmt.Errorf("failed to open dm channel for user %s: %w", userID, err)
	}

	_, _, err = s.client.PostMessageContext(ctx, channel.ID, msgOptions(msg)...)
	if err != nil {
		return fmt.Errorf("failed to post to dm channel %s: %w", channel.ID, err)
	}
	return nil
}

func msgOptions(msg Message) []slack.MsgOption {
	options := []slack.MsgOption{
		slack.MsgOptionAttachments(Attachment(msg)),
		slack.MsgOptionAsUser(false),
	}
	if msg.Text != "" {
		options = append(options, slack.MsgOptionText(msg.Text, false))
	}
	return options
}

// Attachment renders the message as a Slack attachment.
func Attachment(msg Message) slack.Attachment {
	var fields []slack.AttachmentField
	if msg.OnlineLink != "" {
		fields = append(fields, slack.AttachmentField{Title: "Online", Value: msg.OnlineLink})
	}
	if msg.Room != "" {
		fields = append(fields, slack.AttachmentField{Title: "Raum", Value: msg.Room})
	}
	if msg.Note != "" {
		fields = append(fields, slack.AttachmentField{Title: "Bemerkung", Value: msg.Note})
	}
	return slack.Attachment{
		Color:  msg.Color,
		Title:  msg.Title,
		Text:   msg.Description,
		Fields: fields,
	}
}

// MemberLookup resolves Slack usergroup membership, used to assign a
// subscriber's group on first contact.
type MemberLookup interface {
	UsergroupMembers(ctx context.Context, usergroupID string) ([]string, error)
}

// UsergroupMembers returns the user IDs of a Slack usergroup.
func (s *SlackSink) UsergroupMembers(ctx context.Context, usergroupID string) ([]string, error) {
	members, err := s.client.GetUserGroupMembersContext(ctx, usergroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members of usergroup %s: %w", usergroupID, err)
	}
	return members, nil
}
