package bot

import (
	"sync"

	"github.com/nikishkaa/docx-bot/internal/model"
)

// Mode is what a chat's next free-text message means.
type Mode int

const (
	ModeIdle Mode = iota
	ModeChooseCategory
	ModeChooseSubcategory
	ModeSearch
	ModeAIChat
)

func (m Mode) String() string {
	switch m {
	case ModeChooseCategory:
		return "choose_category"
	case ModeChooseSubcategory:
		return "choose_subcategory"
	case ModeSearch:
		return "search"
	case ModeAIChat:
		return "ai_chat"
	default:
		return "idle"
	}
}

// PendingUpload is a document received but not yet filed.
type PendingUpload struct {
	FileID   string
	Name     string
	Size     int64
	Category string
}

// Session is the ephemeral state of one chat.
type Session struct {
	ChatID int64
	Mode   Mode

	Pending *PendingUpload

	// Scope the user is browsing; file buttons resolve against it.
	BrowseCategory    string
	BrowseSubcategory string

	// Last search results by name; file buttons resolve against these first.
	Results map[string]model.StoredFile
}

// Sessions holds every chat's Session. Entries live until the chat returns to the main menu.
type Sessions struct {
	mu sync.Mutex
	m  map[int64]*Session
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[int64]*Session)}
}

// Get returns the chat's session, creating it on first use.
func (s *Sessions) Get(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[chatID]
	if !ok {
		sess = &Session{ChatID: chatID}
		s.m[chatID] = sess
	}
	return sess
}

// Peek returns the chat's session without creating one.
func (s *Sessions) Peek(chatID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[chatID]
	return sess, ok
}

// Reset forgets the chat's session.
func (s *Sessions) Reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
