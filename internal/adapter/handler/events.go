package handler

import (
	"fmt"
	"strings"

	"github.com/derricker/meetai/internal/domain/entities"
)

// EventType tags an inbound webhook payload. The set of handled kinds is
// closed; anything else is acknowledged and ignored so the provider can grow
// its schema without breaking us.
type EventType string

const (
	EventCallSessionStarted         EventType = "call.session_started"
	EventCallSessionParticipantLeft EventType = "call.session_participant_left"
	EventCallSessionEnded           EventType = "call.session_ended"
	EventCallTranscriptionReady     EventType = "call.transcription_ready"
	EventCallRecordingReady         EventType = "call.recording_ready"
	EventMessageNew                 EventType = "message.new"
)

// eventEnvelope is the minimally-typed wrapper every payload shares
type eventEnvelope struct {
	Type EventType `json:"type"`
}

// callCustom carries the meeting id the application attached at call creation
type callCustom struct {
	MeetingID string `json:"meetingId"`
}

// callSessionStartedEvent covers call.session_started and call.session_ended,
// which both address the meeting through the call's custom data.
type callSessionStartedEvent struct {
	Call struct {
		Custom callCustom `json:"custom"`
	} `json:"call"`
}

// callCIDEvent covers events that address the call by its cid ("type:id")
type callCIDEvent struct {
	CallCID string `json:"call_cid"`
}

// callTranscriptionReadyEvent carries the transcript artifact location
type callTranscriptionReadyEvent struct {
	CallCID           string `json:"call_cid"`
	CallTranscription struct {
		URL string `json:"url"`
	} `json:"call_transcription"`
}

// callRecordingReadyEvent carries the recording artifact location
type callRecordingReadyEvent struct {
	CallCID       string `json:"call_cid"`
	CallRecording struct {
		URL string `json:"url"`
	} `json:"call_recording"`
}

// messageNewEvent is the chat provider's new-message notification
type messageNewEvent struct {
	User *struct {
		ID string `json:"id" validate:"required"`
	} `json:"user" validate:"required"`
	ChannelID string `json:"channel_id" validate:"required"`
	Message   *struct {
		Text string `json:"text" validate:"required"`
	} `json:"message" validate:"required"`
}

// meetingIDFromCID extracts the meeting id from a "type:id" call cid
func meetingIDFromCID(cid string) (string, error) {
	parts := strings.SplitN(cid, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("%w: malformed call_cid %q", entities.ErrMissingMeetingID, cid)
	}
	return parts[1], nil
}
