package stream

import (
	"context"
	"fmt"
	"net/http"
)

const defaultCallType = "default"

// EndCall ends the provider-side call for a meeting. Ending an already-ended
// call is accepted by the provider, so this is safe on duplicate deliveries.
func (c *Client) EndCall(ctx context.Context, meetingID string) error {
	endpoint := fmt.Sprintf("%s/video/call/%s/%s/mark_ended", c.videoBaseURL, defaultCallType, meetingID)
	if err := c.doJSON(ctx, http.MethodPost, endpoint, map[string]interface{}{}, nil); err != nil {
		return fmt.Errorf("end call %s: %w", meetingID, err)
	}
	return nil
}

// ConnectAgent opens an AI participant in the call, configured with the
// agent's instructions. The meeting must not be left active without this
// participant, so callers treat failure as fatal for the event.
func (c *Client) ConnectAgent(ctx context.Context, meetingID, agentUserID, instructions string) error {
	endpoint := fmt.Sprintf("%s/video/call/%s/%s/agents", c.videoBaseURL, defaultCallType, meetingID)
	body := map[string]interface{}{
		"agent_user_id": agentUserID,
		"session": map[string]string{
			"instructions": instructions,
		},
	}
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return fmt.Errorf("connect agent %s to call %s: %w", agentUserID, meetingID, err)
	}
	return nil
}
