package quiz

import (
	"context"
	"testing"
	"time"

	"radbank/backend/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() *Session {
	deadline := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	return &Session{
		QuizID:         uuid.New(),
		UserID:         uuid.New(),
		State:          StateInProgress,
		TotalQuestions: 2,
		Questions: []models.Question{
			{QuestionText: "Which sequence?", Category: models.CategoryBrain, Difficulty: models.DifficultyEasy, Type: models.TypeOther},
		},
		CurrentIndex: 1,
		ExpiresAt:    &deadline,
	}
}

func TestMemoryStoreExpiresEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return now }

	sess := sampleSession()
	require.NoError(t, s.Save(ctx, sess))

	got, err := s.Get(ctx, sess.QuizID)
	require.NoError(t, err)
	assert.Equal(t, sess.CurrentIndex, got.CurrentIndex)

	// Callers get a copy.
	got.CurrentIndex = 9
	again, err := s.Get(ctx, sess.QuizID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.CurrentIndex)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, sess.QuizID)
	assert.ErrorIs(t, err, ErrSessionNotCached)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	sess := sampleSession()
	require.NoError(t, s.Save(ctx, sess))
	require.NoError(t, s.Delete(ctx, sess.QuizID))

	_, err := s.Get(ctx, sess.QuizID)
	assert.ErrorIs(t, err, ErrSessionNotCached)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewRedisStore(client, time.Minute)
	sess := sampleSession()

	_, err := s.Get(ctx, sess.QuizID)
	assert.ErrorIs(t, err, ErrSessionNotCached)

	require.NoError(t, s.Save(ctx, sess))
	assert.True(t, mr.Exists(sessionKeyPrefix+sess.QuizID.String()))

	got, err := s.Get(ctx, sess.QuizID)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, StateInProgress, got.State)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, "Which sequence?", got.Questions[0].QuestionText)
	assert.True(t, sess.ExpiresAt.Equal(*got.ExpiresAt))

	mr.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, sess.QuizID)
	assert.ErrorIs(t, err, ErrSessionNotCached)

	require.NoError(t, s.Save(ctx, sess))
	require.NoError(t, s.Delete(ctx, sess.QuizID))
	_, err = s.Get(ctx, sess.QuizID)
	assert.ErrorIs(t, err, ErrSessionNotCached)
}
