package store

import (
	"sync"

	"asksource-be/internal/entity"
	"asksource-be/pkg/apperror"
	"asksource-be/pkg/chat/dispatch"

	"github.com/google/uuid"
)

// Snapshot is an immutable view of the session. A new Snapshot is built on every
// mutation; holders of an older one never observe later changes.
type Snapshot struct {
	Version       uint64
	Conversations []entity.Conversation
	ActiveID      uuid.UUID
	Project       string
	Search        dispatch.Params
	Draft         string
}

func (s *Snapshot) index(id uuid.UUID) int {
	for i := range s.Conversations {
		if s.Conversations[i].Id == id {
			return i
		}
	}
	return -1
}

// Conversation returns a copy of the conversation with the given id.
func (s *Snapshot) Conversation(id uuid.UUID) (entity.Conversation, bool) {
	i := s.index(id)
	if i < 0 {
		return entity.Conversation{}, false
	}
	return s.Conversations[i].Clone(), true
}

func (s *Snapshot) Active() (entity.Conversation, bool) {
	if s.ActiveID == uuid.Nil {
		return entity.Conversation{}, false
	}
	return s.Conversation(s.ActiveID)
}

// Store is the in-memory working copy of the user's conversations plus the
// prompt-box state (project, search selection, draft). It performs no I/O.
//
// Watchers run synchronously, in mutation order, after every change. They may
// read the store but must not mutate it.
type Store struct {
	notifyMu sync.Mutex
	mu       sync.RWMutex
	snap     *Snapshot
	watchers map[int]func(*Snapshot)
	nextID   int
}

// New returns an empty store with the hybrid strategy selected.
func New() *Store {
	return &Store{
		snap: &Snapshot{
			Conversations: []entity.Conversation{},
			Search:        dispatch.Params{Strategy: dispatch.StrategyHybrid},
		},
		watchers: make(map[int]func(*Snapshot)),
	}
}

func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Watch registers fn for every future snapshot and returns a function that removes it.
func (s *Store) Watch(fn func(*Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// update applies fn to a shallow copy of the current snapshot and publishes the result.
// fn must copy any slice it changes.
func (s *Store) update(fn func(next *Snapshot) error) error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next := *s.snap
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	next.Version++
	s.snap = &next
	watchers := make([]func(*Snapshot), 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()

	for _, w := range watchers {
		w(&next)
	}
	return nil
}

func (s *Store) ActiveConversation() (entity.Conversation, bool) {
	return s.Snapshot().Active()
}

// SetActiveConversation selects id; uuid.Nil clears the selection.
func (s *Store) SetActiveConversation(id uuid.UUID) error {
	return s.update(func(next *Snapshot) error {
		if id != uuid.Nil && next.index(id) < 0 {
			return apperror.Newf(apperror.KindNotFound, "conversation %s not found", id)
		}
		next.ActiveID = id
		return nil
	})
}

func (s *Store) AppendTurn(conversationID uuid.UUID, turn entity.Turn) error {
	return s.update(func(next *Snapshot) error {
		i := next.index(conversationID)
		if i < 0 {
			return apperror.Newf(apperror.KindNotFound, "conversation %s not found", conversationID)
		}
		conversations := copyConversations(next.Conversations)
		conv := conversations[i]
		turns := make([]entity.Turn, len(conv.Turns), len(conv.Turns)+1)
		copy(turns, conv.Turns)
		turn.ConversationId = conversationID
		conv.Turns = append(turns, turn)
		conversations[i] = conv
		next.Conversations = conversations
		return nil
	})
}

// AppendTurnAfter appends turn only while previousID is still the conversation's last
// turn. It fails with NotFound otherwise, leaving the conversation unchanged.
func (s *Store) AppendTurnAfter(conversationID, previousID uuid.UUID, turn entity.Turn) error {
	return s.update(func(next *Snapshot) error {
		i := next.index(conversationID)
		if i < 0 {
			return apperror.Newf(apperror.KindNotFound, "conversation %s not found", conversationID)
		}
		if !endsWith(next.Conversations[i], previousID) {
			return apperror.Newf(apperror.KindNotFound, "turn %s is no longer the last turn of %s", previousID, conversationID)
		}
		conversations := copyConversations(next.Conversations)
		conv := conversations[i]
		turns := make([]entity.Turn, len(conv.Turns), len(conv.Turns)+1)
		copy(turns, conv.Turns)
		turn.ConversationId = conversationID
		conv.Turns = append(turns, turn)
		conversations[i] = conv
		next.Conversations = conversations
		return nil
	})
}

// RemoveTurnIfLast pops the conversation's last turn only when its id is turnID.
// It reports whether a turn was removed; a conversation refreshed in the meantime
// keeps all of its turns.
func (s *Store) RemoveTurnIfLast(conversationID, turnID uuid.UUID) (bool, error) {
	removed := false
	err := s.update(func(next *Snapshot) error {
		i := next.index(conversationID)
		if i < 0 {
			return apperror.Newf(apperror.KindNotFound, "conversation %s not found", conversationID)
		}
		conv := next.Conversations[i]
		if !endsWith(conv, turnID) {
			return errUnchanged
		}
		conversations := copyConversations(next.Conversations)
		turns := make([]entity.Turn, len(conv.Turns)-1)
		copy(turns, conv.Turns)
		conv.Turns = turns
		conversations[i] = conv
		next.Conversations = conversations
		removed = true
		return nil
	})
	if err == errUnchanged {
		return false, nil
	}
	return removed, err
}

// RemoveLastTurn pops the most recent turn of the conversation and returns it.
func (s *Store) RemoveLastTurn(conversationID uuid.UUID) (entity.Turn, error) {
	var removed entity.Turn
	err := s.update(func(next *Snapshot) error {
		i := next.index(conversationID)
		if i < 0 {
			return apperror.Newf(apperror.KindNotFound, "conversation %s not found", conversationID)
		}
		conv := next.Conversations[i]
		if len(conv.Turns) == 0 {
			return apperror.Newf(apperror.KindNotFound, "conversation %s has no turns", conversationID)
		}
		conversations := copyConversations(next.Conversations)
		removed = conv.Turns[len(conv.Turns)-1]
		turns := make([]entity.Turn, len(conv.Turns)-1)
		copy(turns, conv.Turns)
		conv.Turns = turns
		conversations[i] = conv
		next.Conversations = conversations
		return nil
	})
	return removed, err
}

// ReplaceConversations swaps in list. The active selection survives only if its
// conversation is still present.
func (s *Store) ReplaceConversations(list []entity.Conversation) {
	_ = s.update(func(next *Snapshot) error {
		conversations := make([]entity.Conversation, len(list))
		for i := range list {
			conversations[i] = list[i].Clone()
		}
		next.Conversations = conversations
		if next.index(next.ActiveID) < 0 {
			next.ActiveID = uuid.Nil
		}
		return nil
	})
}

func (s *Store) Project() string {
	return s.Snapshot().Project
}

func (s *Store) SelectProject(projectID string) {
	_ = s.update(func(next *Snapshot) error {
		next.Project = projectID
		return nil
	})
}

func (s *Store) Search() dispatch.Params {
	return s.Snapshot().Search
}

func (s *Store) SetSearch(params dispatch.Params) {
	_ = s.update(func(next *Snapshot) error {
		next.Search = params
		return nil
	})
}

func (s *Store) Draft() string {
	return s.Snapshot().Draft
}

func (s *Store) SetDraft(text string) {
	_ = s.update(func(next *Snapshot) error {
		next.Draft = text
		return nil
	})
}

// errUnchanged aborts an update without publishing a snapshot.
var errUnchanged = apperror.New(apperror.KindNotFound, "unchanged")

func endsWith(conv entity.Conversation, turnID uuid.UUID) bool {
	n := len(conv.Turns)
	return turnID != uuid.Nil && n > 0 && conv.Turns[n-1].Id == turnID
}

func copyConversations(in []entity.Conversation) []entity.Conversation {
	out := make([]entity.Conversation, len(in))
	copy(out, in)
	return out
}
