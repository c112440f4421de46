package chat

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"edujourney/internal/api"
	"edujourney/internal/journey"
)

const (
	SenderUser = "user"
	SenderBot  = "bot"

	NoResponseText = "Sorry, the AI gave no response. Please try again or contact support if the problem persists."
	ErrorText      = "Sorry, something went wrong while processing your message. Please try again."

	noResponseMarker = "AI gave no response"
	errorMarker      = "something went wrong"
)

// Store keeps the assistant's sessions and the message list of the current
// session. Sends are optimistic: the user's text shows immediately under a
// temporary id and is swapped for the server copy when it arrives.
type Store struct {
	backend Backend
	now     func() time.Time

	mu       sync.Mutex
	sessions []api.ChatSession
	current  *api.ChatSession
	messages []api.ChatMessage
	loading  bool
	err      string
}

func NewStore(backend Backend, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{backend: backend, now: now}
}

type Snapshot struct {
	Sessions []api.ChatSession
	Current  *api.ChatSession
	Messages []api.ChatMessage
	Loading  bool
	Err      string
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Sessions: append([]api.ChatSession(nil), s.sessions...),
		Messages: append([]api.ChatMessage(nil), s.messages...),
		Loading:  s.loading,
		Err:      s.err,
	}
	if s.current != nil {
		cur := *s.current
		snap.Current = &cur
	}
	return snap
}

// Open starts a fresh session for the subject and level and makes it
// current.
func (s *Store) Open(ctx context.Context, subjectID, levelID journey.ID) (api.ChatSession, error) {
	s.setLoading()
	session, err := s.backend.CreateChatSession(ctx, subjectID, levelID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = api.ErrorMessage(err, "Failed to create session")
		return api.ChatSession{}, err
	}
	s.sessions = append(s.sessions, session)
	s.current = &session
	s.messages = nil
	return session, nil
}

func (s *Store) LoadSessions(ctx context.Context) error {
	s.setLoading()
	sessions, err := s.backend.ChatSessions(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = api.ErrorMessage(err, "Failed to load sessions")
		return err
	}
	s.sessions = sessions
	return nil
}

// Select switches to an existing session and loads its history.
func (s *Store) Select(ctx context.Context, session api.ChatSession) error {
	s.mu.Lock()
	s.current = &session
	s.mu.Unlock()
	s.setLoading()
	msgs, err := s.backend.ChatMessages(ctx, session.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = api.ErrorMessage(err, "Failed to load messages")
		return err
	}
	s.messages = msgs
	return nil
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

// Send posts text to the current session. Failures are also reported inline
// as a bot message, at most once per distinct text.
func (s *Store) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return errors.New("no chat session selected")
	}
	sessionID := s.current.ID
	temp := api.ChatMessage{
		ID:        journey.ID("temp-" + uuid.NewString()),
		SessionID: sessionID,
		Sender:    SenderUser,
		Message:   text,
		CreatedAt: s.now().UTC().Format(time.RFC3339Nano),
	}
	s.messages = append(s.messages, temp)
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	reply, err := s.backend.SendChatMessage(ctx, sessionID, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err == nil {
		s.messages = Reconcile(s.messages, temp.ID, reply, s.now())
		return nil
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Rejected() {
		msg := apiErr.Message
		if msg == "" {
			msg = ErrorText
		}
		s.messages = appendBotOnce(s.messages, sessionID, msg, msg, s.now())
		return err
	}
	s.err = err.Error()
	s.messages = appendBotOnce(s.messages, sessionID, ErrorText, errorMarker, s.now())
	return err
}

func (s *Store) setLoading() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

// Reconcile merges a send result into msgs. The temporary user message is
// replaced by the server's copy when one came back. The bot reply is added
// unless it is already present; an empty reply adds a single notice.
func Reconcile(msgs []api.ChatMessage, tempID journey.ID, reply api.ChatReply, now time.Time) []api.ChatMessage {
	out := append([]api.ChatMessage(nil), msgs...)
	if reply.UserMessage != nil {
		for i := range out {
			if out[i].ID == tempID {
				out[i] = *reply.UserMessage
			}
		}
	}
	bot := reply.Bot()
	if bot == nil {
		return appendBotOnce(out, sessionOf(out, tempID, reply), NoResponseText, noResponseMarker, now)
	}
	for _, m := range out {
		if sameBotMessage(m, *bot) {
			return out
		}
	}
	return append(out, *bot)
}

func sameBotMessage(existing, reply api.ChatMessage) bool {
	if existing.ID != "" && existing.ID == reply.ID {
		return true
	}
	if existing.Sender != SenderBot || existing.Message != reply.Message {
		return false
	}
	a, okA := parseTime(existing.CreatedAt)
	b, okB := parseTime(reply.CreatedAt)
	if !okA || !okB {
		return false
	}
	return math.Abs(float64(a.Sub(b))) < float64(time.Second)
}

func appendBotOnce(msgs []api.ChatMessage, sessionID journey.ID, text, marker string, now time.Time) []api.ChatMessage {
	for _, m := range msgs {
		if m.Sender == SenderBot && strings.Contains(m.Message, marker) {
			return msgs
		}
	}
	return append(msgs, api.ChatMessage{
		ID:        journey.ID("local-" + uuid.NewString()),
		SessionID: sessionID,
		Sender:    SenderBot,
		Message:   text,
		CreatedAt: now.UTC().Format(time.RFC3339Nano),
	})
}

func sessionOf(msgs []api.ChatMessage, tempID journey.ID, reply api.ChatReply) journey.ID {
	if reply.UserMessage != nil && reply.UserMessage.SessionID != "" {
		return reply.UserMessage.SessionID
	}
	for _, m := range msgs {
		if m.ID == tempID {
			return m.SessionID
		}
	}
	return ""
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
