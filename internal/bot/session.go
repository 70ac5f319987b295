package bot

import "sync"

// maxTrackedChoices bounds how many messages keep their category choices.
const maxTrackedChoices = 50

// Session is the per-chat conversation state.
type Session struct {
	mu sync.Mutex
	// editing is the message whose thought gets the next plain text as
	// its category, 0 when not editing.
	editing int
	choices map[int][]string
	order   []int
}

func (s *Session) startEditing(messageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = messageID
}

// takeEditing returns and clears the message being edited.
func (s *Session) takeEditing() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.editing
	s.editing = 0
	return id
}

func (s *Session) setChoices(messageID int, choices []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.choices[messageID]; !ok {
		s.order = append(s.order, messageID)
	}
	s.choices[messageID] = choices
	for len(s.order) > maxTrackedChoices {
		delete(s.choices, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Session) choicesFor(messageID int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.choices[messageID]
}

func (s *Session) dropChoices(messageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.choices[messageID]; !ok {
		return
	}
	delete(s.choices, messageID)
	for i, id := range s.order {
		if id == messageID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

type sessions struct {
	mu    sync.Mutex
	chats map[int64]*Session
}

func newSessions() *sessions {
	return &sessions{chats: make(map[int64]*Session)}
}

func (s *sessions) get(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.chats[chatID]
	if !ok {
		sess = &Session{choices: make(map[int][]string)}
		s.chats[chatID] = sess
	}
	return sess
}
