package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotCached is returned by a SessionStore that does not hold the
// session. The manager then rebuilds it from the database.
var ErrSessionNotCached = errors.New("quiz session not cached")

// SessionStore caches live sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, quizID uuid.UUID) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, quizID uuid.UUID) error
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[uuid.UUID]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[uuid.UUID]memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, quizID uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[quizID]
	if !ok || s.now().After(e.expiresAt) {
		delete(s.sessions, quizID)
		return nil, ErrSessionNotCached
	}
	cp := e.session
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.sessions {
		if now.After(e.expiresAt) {
			delete(s.sessions, id)
		}
	}
	s.sessions[sess.QuizID] = memoryEntry{session: *sess, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, quizID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, quizID)
	return nil
}

const sessionKeyPrefix = "quiz:session:"

// RedisStore shares sessions between server instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, quizID uuid.UUID) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+quizID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotCached
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+sess.QuizID.String(), data, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, quizID uuid.UUID) error {
	return s.client.Del(ctx, sessionKeyPrefix+quizID.String()).Err()
}
