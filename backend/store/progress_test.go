package store

import (
	"context"
	"testing"
	"time"

	"radbank/backend/models"
	"radbank/backend/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordUpsertsOneRowPerPair(t *testing.T) {
	db := testutil.OpenDB(t)
	s := NewProgressStore(db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "resident@example.com", models.RoleUser)
	q := testutil.SeedQuestion(t, db, testutil.QuestionSpec{})

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return clock }

	outcomes := []bool{true, false, true, false}
	var last *models.UserProgress
	for i, correct := range outcomes {
		clock = clock.Add(time.Duration(i+1) * time.Minute)
		p, err := s.Record(ctx, user.ID, q.ID, correct)
		require.NoError(t, err)
		last = p
	}

	var rows []models.UserProgress
	require.NoError(t, db.Where("user_id = ? AND question_id = ?", user.ID, q.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsCorrect)
	assert.True(t, rows[0].LastAttemptedAt.Equal(clock))
	assert.Equal(t, rows[0].ID, last.ID)
	assert.False(t, last.IsCorrect)
}

func TestRecordKeepsPairsSeparate(t *testing.T) {
	db := testutil.OpenDB(t)
	s := NewProgressStore(db)
	ctx := context.Background()

	a := testutil.SeedUser(t, db, "a@example.com", models.RoleUser)
	b := testutil.SeedUser(t, db, "b@example.com", models.RoleUser)
	q := testutil.SeedQuestion(t, db, testutil.QuestionSpec{})

	_, err := s.Record(ctx, a.ID, q.ID, true)
	require.NoError(t, err)
	_, err = s.Record(ctx, b.ID, q.ID, false)
	require.NoError(t, err)

	var count int64
	db.Model(&models.UserProgress{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestForUserJoinsQuestionFields(t *testing.T) {
	db := testutil.OpenDB(t)
	s := NewProgressStore(db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "r@example.com", models.RoleUser)
	brain := testutil.SeedQuestion(t, db, testutil.QuestionSpec{Category: models.CategoryBrain, Difficulty: models.DifficultyEasy})
	spine := testutil.SeedQuestion(t, db, testutil.QuestionSpec{Category: models.CategorySpine, Difficulty: models.DifficultyAdvanced})

	_, err := s.Record(ctx, user.ID, brain.ID, true)
	require.NoError(t, err)
	_, err = s.Record(ctx, user.ID, spine.ID, false)
	require.NoError(t, err)
	_, err = s.Record(ctx, uuid.New(), spine.ID, true)
	require.NoError(t, err)

	stats, err := s.ForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byQuestion := map[uuid.UUID]models.ProgressStat{}
	for _, st := range stats {
		byQuestion[st.QuestionID] = st
	}
	assert.Equal(t, models.CategoryBrain, byQuestion[brain.ID].Category)
	assert.True(t, byQuestion[brain.ID].IsCorrect)
	assert.Equal(t, models.DifficultyAdvanced, byQuestion[spine.ID].Difficulty)
	assert.False(t, byQuestion[spine.ID].IsCorrect)
}
