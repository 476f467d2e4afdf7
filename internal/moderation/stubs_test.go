package moderation

import (
	"context"
	"sync"
	"time"

	"github.com/stagelink/modgate/internal/db"
	apperrors "github.com/stagelink/modgate/internal/errors"
)

// memStore is an in-memory stand-in for the sqlite client, shared by the
// ledger, gate, and pipeline tests.
type memStore struct {
	mu            sync.Mutex
	strikes       map[string]*db.StrikeRecord
	flags         []*db.MessageFlag
	messages      []*db.Message
	conversations map[string]*db.Conversation

	incrementErr error
	flagErr      error
	messageErr   error
}

func newMemStore() *memStore {
	return &memStore{
		strikes:       map[string]*db.StrikeRecord{},
		conversations: map[string]*db.Conversation{},
	}
}

func (s *memStore) addConversation(id, artistID, clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[id] = &db.Conversation{ID: id, ArtistID: artistID, ClientID: clientID, CreatedAt: time.Now()}
}

func (s *memStore) IncrementStrike(_ context.Context, userID string, at time.Time) (*db.StrikeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incrementErr != nil {
		return nil, s.incrementErr
	}
	record, ok := s.strikes[userID]
	if !ok {
		record = &db.StrikeRecord{UserID: userID}
		s.strikes[userID] = record
	}
	record.StrikeCount++
	atCopy := at
	record.LastStrikeAt = &atCopy
	snapshot := *record
	return &snapshot, nil
}

func (s *memStore) ApplySuspension(_ context.Context, userID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.strikes[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	untilCopy := until
	record.IsSuspended = true
	record.SuspensionUntil = &untilCopy
	return nil
}

func (s *memStore) ClearSuspension(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.strikes[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	record.IsSuspended = false
	record.SuspensionUntil = nil
	return nil
}

func (s *memStore) GetStrikeRecord(_ context.Context, userID string) (*db.StrikeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.strikes[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	snapshot := *record
	return &snapshot, nil
}

func (s *memStore) CreateMessageFlag(_ context.Context, flag *db.MessageFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flagErr != nil {
		return s.flagErr
	}
	s.flags = append(s.flags, flag)
	return nil
}

func (s *memStore) GetConversation(_ context.Context, id string) (*db.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation, ok := s.conversations[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return conversation, nil
}

func (s *memStore) CreateMessage(_ context.Context, message *db.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messageErr != nil {
		return s.messageErr
	}
	s.messages = append(s.messages, message)
	return nil
}

func (s *memStore) flagCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flags)
}

func (s *memStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// fakeClassifier returns queued verdicts or a fixed error, and counts calls.
type fakeClassifier struct {
	mu       sync.Mutex
	verdicts []*Verdict
	err      error
	calls    int
}

func (f *fakeClassifier) Classify(_ context.Context, _ string) (*Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.verdicts) == 0 {
		return &Verdict{ViolationType: ViolationNone, Confidence: 1}, nil
	}
	verdict := f.verdicts[0]
	if len(f.verdicts) > 1 {
		f.verdicts = f.verdicts[1:]
	}
	return verdict, nil
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type capturedPublisher struct {
	mu        sync.Mutex
	published []*db.Message
}

func (p *capturedPublisher) PublishMessageSent(message *db.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, message)
}

func (p *capturedPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}
