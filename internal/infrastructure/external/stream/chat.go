package stream

import (
	"context"
	"fmt"
	"net/http"
)

// ChatUser is the provider-side identity a message is posted under
type ChatUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// ChatMessage is one channel message
type ChatMessage struct {
	Text string   `json:"text"`
	User ChatUser `json:"user"`
}

type queryChannelResponse struct {
	Messages []struct {
		Text string `json:"text"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"messages"`
}

// RecentMessages returns up to limit of the latest messages in a messaging
// channel, oldest first.
func (c *Client) RecentMessages(ctx context.Context, channelID string, limit int) ([]ChatMessage, error) {
	endpoint := fmt.Sprintf("%s/channels/messaging/%s/query", c.chatBaseURL, channelID)
	body := map[string]interface{}{
		"state":    true,
		"messages": map[string]int{"limit": limit},
	}

	var resp queryChannelResponse
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, fmt.Errorf("query channel %s: %w", channelID, err)
	}

	messages := make([]ChatMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		messages = append(messages, ChatMessage{
			Text: m.Text,
			User: ChatUser{ID: m.User.ID},
		})
	}
	return messages, nil
}

// UpsertUser creates or updates a chat user so replies always carry the
// agent's current display identity.
func (c *Client) UpsertUser(ctx context.Context, user ChatUser) error {
	endpoint := fmt.Sprintf("%s/users", c.chatBaseURL)
	body := map[string]interface{}{
		"users": map[string]ChatUser{user.ID: user},
	}
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return fmt.Errorf("upsert chat user %s: %w", user.ID, err)
	}
	return nil
}

// SendMessage posts a message into a messaging channel
func (c *Client) SendMessage(ctx context.Context, channelID string, message ChatMessage) error {
	endpoint := fmt.Sprintf("%s/channels/messaging/%s/message", c.chatBaseURL, channelID)
	body := map[string]interface{}{
		"message": map[string]interface{}{
			"text":    message.Text,
			"user_id": message.User.ID,
		},
	}
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return fmt.Errorf("send message to channel %s: %w", channelID, err)
	}
	return nil
}
