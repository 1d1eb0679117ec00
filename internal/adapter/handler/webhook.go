package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/derricker/meetai/internal/domain/entities"
	chatUsecase "github.com/derricker/meetai/internal/usecase/chat"
	meetingUsecase "github.com/derricker/meetai/internal/usecase/meeting"
)

// Signature and API-key headers the provider attaches to every delivery
const (
	HeaderSignature = "X-Signature"
	HeaderAPIKey    = "X-Api-Key"
)

// SignatureVerifier authenticates a raw webhook body against its signature
type SignatureVerifier interface {
	VerifyWebhook(payload []byte, signature string) bool
}

// WebhookHandler authenticates provider webhooks and dispatches them by
// event type. Dispatch goes through a closed table built at construction, so
// adding an event kind means adding exactly one route entry and one method.
type WebhookHandler struct {
	verifier SignatureVerifier
	meetings meetingUsecase.Service
	chat     chatUsecase.Service
	logger   *zap.Logger
	routes   map[EventType]func(echo.Context, []byte) error
}

// NewWebhookHandler creates a webhook handler
func NewWebhookHandler(
	verifier SignatureVerifier,
	meetings meetingUsecase.Service,
	chat chatUsecase.Service,
	logger *zap.Logger,
) *WebhookHandler {
	h := &WebhookHandler{
		verifier: verifier,
		meetings: meetings,
		chat:     chat,
		logger:   logger,
	}
	h.routes = map[EventType]func(echo.Context, []byte) error{
		EventCallSessionStarted:         h.handleSessionStarted,
		EventCallSessionParticipantLeft: h.handleParticipantLeft,
		EventCallSessionEnded:           h.handleSessionEnded,
		EventCallTranscriptionReady:     h.handleTranscriptionReady,
		EventCallRecordingReady:         h.handleRecordingReady,
		EventMessageNew:                 h.handleMessageNew,
	}
	return h
}

// Handle processes POST /webhook. Header checks fail closed before the body
// is read; signature verification happens before any parsing.
func (h *WebhookHandler) Handle(c echo.Context) error {
	signature := c.Request().Header.Get(HeaderSignature)
	apiKey := c.Request().Header.Get(HeaderAPIKey)
	if signature == "" || apiKey == "" {
		return HandleError(h.logger, c, http.StatusBadRequest, "missing signature or api key", nil)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return HandleError(h.logger, c, http.StatusBadRequest, "failed to read body", err)
	}

	if !h.verifier.VerifyWebhook(body, signature) {
		return HandleError(h.logger, c, http.StatusUnauthorized, "invalid signature", nil)
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return HandleError(h.logger, c, http.StatusBadRequest, "invalid JSON", err)
	}
	if envelope.Type == "" {
		return HandleError(h.logger, c, http.StatusBadRequest, "missing event type", nil)
	}

	handle, known := h.routes[envelope.Type]
	if !known {
		// Deliberate forward compatibility: unknown kinds are acknowledged
		// so the provider can add events without breaking deliveries.
		h.logger.Debug("ignoring unhandled webhook event",
			zap.String("type", string(envelope.Type)))
		return HandleSuccess(c, map[string]string{"status": "ok"})
	}

	return handle(c, body)
}

func (h *WebhookHandler) handleSessionStarted(c echo.Context, body []byte) error {
	var event callSessionStartedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return HandleError(h.logger, c, http.StatusBadRequest, "invalid payload", err)
	}

	meetingID := event.Call.Custom.MeetingID
	if meetingID == "" {
		return HandleError(h.logger, c, http.StatusBadRequest, "missing meeting id", entities.ErrMissingMeetingID)
	}

	if err := h.meetings.StartSession(c.Request().Context(), meetingID); err != nil {
		return HandleDomainError(h.logger, c, err)
	}
	return HandleSuccess(c, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleParticipantLeft(c echo.Context, body []byte) error {
	var event callCIDEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return HandleError(h.logger, c, http.StatusBadRequest, "invalid payload", err)
	}

	meetingID, err := meetingIDFromCID(event.CallCID)
	if err != nil {
		return HandleDomainError(h.logger, c, err)
	}

	if err := h.meetings.ParticipantLeft(c.Request().Context(), meetingID); err != nil {
		return HandleDomainError(h.logger, c, err)
	}
	return HandleSuccess(c, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleSessionEnded(c echo.Context, body []byte) error {
	var event callSessionStartedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return HandleError(h.logger, c, http.StatusBadRequest, "invalid payload", err)
	}

	meetingID := event.Call.Custom.MeetingID
	if meetingID == "" {
		return HandleError(h.logger, c, http.StatusBadRequest, "missing meeting id", entities.ErrMissingMeetingID)
	}

	if err := h.meetings.EndSession(c.Request().Context(), meetingID); err != nil {
		return HandleDomainError(h.logger, c, err)
	}
	return HandleSuccess(c, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleTranscriptionReady(c echo.Context, body []byte) error {
	var event callTranscriptionReadyEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return HandleError(h.logger, c, http.StatusBadRequest, "invalid payload", err)
	}

	meetingID, err := meetingIDFromCID(event.CallCID)
	if err != nil {
		return HandleDomainError(h.logger, c, err)
	}

	if err := h.meetings.TranscriptionReady(c.Request().Context(), meetingID, event.CallTranscription.URL); err != nil {
		return HandleDomainError(h.logger, c, err)
	}
	return HandleSuccess(c, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleRecordingReady(c echo.Context, body []byte) error {
	var event callRecordingReadyEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return HandleError(h.logger, c, http.StatusBadRequest, "invalid payload", err)
	}

	meetingID, err := meetingIDFromCID(event.CallCID)
	if err != nil {
		return HandleDomainError(h.logger, c, err)
	}

	if err := h.meetings.RecordingReady(c.Request().Context(), meetingID, event.CallRecording.URL); err != nil {
		return HandleDomainError(h.logger, c, err)
	}
	return HandleSuccess(c, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleMessageNew(c echo.Context, body []byte) error {
	var event messageNewEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return HandleError(h.logger, c, http.StatusBadRequest, "invalid payload", err)
	}
	if err := c.Validate(&event); err != nil {
		return HandleError(h.logger, c, http.StatusBadRequest, "missing required fields", err)
	}

	msg := chatUsecase.NewMessage{
		UserID:    event.User.ID,
		ChannelID: event.ChannelID,
		Text:      event.Message.Text,
	}
	if err := h.chat.HandleNewMessage(c.Request().Context(), msg); err != nil {
		return HandleDomainError(h.logger, c, err)
	}
	return HandleSuccess(c, map[string]string{"status": "ok"})
}
