package chat

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/derricker/meetai/internal/domain/entities"
	"github.com/derricker/meetai/internal/domain/repositories"
	"github.com/derricker/meetai/internal/infrastructure/external/stream"
	"github.com/derricker/meetai/pkg/ai"
)

const historyLimit = 5

const replyInstructionsTemplate = `You are an AI assistant helping the user revisit a recently completed meeting.
Below is a summary of the meeting, generated from the transcript:

%s

The following are your original instructions from the live meeting assistant. Please continue to follow these behavioral guidelines as you assist the user:

%s

The user may ask questions about the meeting, request clarifications, or ask for follow-up actions.
Always base your responses on the meeting summary above.

You also have access to the recent conversation history between you and the user. Use the context of previous messages to provide relevant, coherent, and helpful answers. If the user's question refers to something discussed earlier, be sure to take that into account and maintain continuity in the conversation.

If the summary does not contain enough information to answer a question, politely let the user know.

Be concise, helpful, and focus on providing accurate information from the meeting and the ongoing conversation.`

// ChatProvider abstracts the chat provider operations the auto-reply needs
type ChatProvider interface {
	RecentMessages(ctx context.Context, channelID string, limit int) ([]stream.ChatMessage, error)
	UpsertUser(ctx context.Context, user stream.ChatUser) error
	SendMessage(ctx context.Context, channelID string, message stream.ChatMessage) error
}

// LLM abstracts the completion service
type LLM interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// NewMessage is the inbound message.new payload the service acts on
type NewMessage struct {
	UserID    string
	ChannelID string
	Text      string
}

// Service generates agent replies to chat messages in completed meetings
type Service interface {
	HandleNewMessage(ctx context.Context, msg NewMessage) error
}

type service struct {
	meetings repositories.MeetingRepository
	agents   repositories.AgentRepository
	chat     ChatProvider
	llm      LLM
	logger   *zap.Logger
}

// NewService constructs the chat auto-reply service
func NewService(
	meetings repositories.MeetingRepository,
	agents repositories.AgentRepository,
	chat ChatProvider,
	llm LLM,
	logger *zap.Logger,
) Service {
	return &service{
		meetings: meetings,
		agents:   agents,
		chat:     chat,
		llm:      llm,
		logger:   logger,
	}
}

// HandleNewMessage builds the reply context and posts an assistant reply in
// the channel. The channel id is the meeting id; only completed meetings get
// replies, and messages authored by the agent itself are ignored to prevent
// reply loops.
func (s *service) HandleNewMessage(ctx context.Context, msg NewMessage) error {
	m, err := s.meetings.FindByID(ctx, msg.ChannelID)
	if err != nil {
		return err
	}
	if !m.IsCompleted() {
		return fmt.Errorf("%w: meeting %s is not completed", entities.ErrMeetingNotFound, m.ID)
	}

	agent, err := s.agents.FindByID(ctx, m.AgentID)
	if err != nil {
		return err
	}

	if msg.UserID == agent.ID {
		return nil
	}

	var summary string
	if m.Summary != nil {
		summary = *m.Summary
	}
	instructions := fmt.Sprintf(replyInstructionsTemplate, summary, agent.Instructions)

	history, err := s.chat.RecentMessages(ctx, msg.ChannelID, historyLimit)
	if err != nil {
		return err
	}

	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: instructions})
	for _, prev := range history {
		if strings.TrimSpace(prev.Text) == "" {
			continue
		}
		role := "user"
		if prev.User.ID == agent.ID {
			role = "assistant"
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: prev.Text})
	}
	messages = append(messages, ai.ChatMessage{Role: "user", Content: msg.Text})

	reply, err := s.llm.Complete(ctx, messages)
	if err != nil {
		if errors.Is(err, ai.ErrEmptyCompletion) {
			return entities.ErrEmptyCompletion
		}
		return fmt.Errorf("generate reply: %w", err)
	}

	agentUser := stream.ChatUser{
		ID:    agent.ID,
		Name:  agent.Name,
		Image: avatarURL(agent.Name),
	}
	if err := s.chat.UpsertUser(ctx, agentUser); err != nil {
		return err
	}

	if err := s.chat.SendMessage(ctx, msg.ChannelID, stream.ChatMessage{
		Text: reply,
		User: agentUser,
	}); err != nil {
		return err
	}

	s.logger.Info("agent reply posted",
		zap.String("meeting_id", m.ID),
		zap.String("agent_id", agent.ID))
	return nil
}

// avatarURL returns a deterministic avatar for an agent, seeded by its name
func avatarURL(seed string) string {
	return "https://api.dicebear.com/9.x/bottts-neutral/svg?seed=" + url.QueryEscape(seed)
}
