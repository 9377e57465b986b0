package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"radbank/backend/models"
	"radbank/backend/store"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type QuestionSource interface {
	Fetch(ctx context.Context, f store.QuestionFilter) ([]models.Question, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, a *models.QuizAttempt) error
	Get(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error)
	SetQuestions(ctx context.Context, id uuid.UUID, ids []uuid.UUID) error
	Finish(ctx context.Context, id uuid.UUID, status models.AttemptStatus) (bool, error)
	RecordAnswer(ctx context.Context, userID uuid.UUID, qq *models.QuizQuestion) (*models.QuizQuestion, bool, error)
	Questions(ctx context.Context, quizID uuid.UUID) ([]models.QuizQuestion, error)
}

type ProgressSource interface {
	ForUser(ctx context.Context, userID uuid.UUID) ([]models.ProgressStat, error)
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithShuffle replaces the random permutation applied to loaded questions.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(m *Manager) { m.shuffle = shuffle }
}

// WithTimerRunner controls how countdowns are driven. The default runs each
// timer on its own goroutine with a one second ticker.
func WithTimerRunner(run func(*Timer)) Option {
	return func(m *Manager) { m.runTimer = run }
}

const lockStripes = 64

// Manager runs quiz sessions. Calls for the same quiz are serialized; calls
// for different quizzes proceed independently.
type Manager struct {
	questions QuestionSource
	attempts  AttemptRepository
	progress  ProgressSource
	sessions  SessionStore
	logger    *log.Logger

	now      func() time.Time
	shuffle  func(n int, swap func(i, j int))
	runTimer func(*Timer)

	stripes [lockStripes]sync.Mutex

	mu     sync.Mutex
	timers map[uuid.UUID]*Timer
	closed bool
}

func NewManager(questions QuestionSource, attempts AttemptRepository, progress ProgressSource, sessions SessionStore, logger *log.Logger, opts ...Option) *Manager {
	m := &Manager{
		questions: questions,
		attempts:  attempts,
		progress:  progress,
		sessions:  sessions,
		logger:    logger,
		now:       time.Now,
		shuffle:   rand.Shuffle,
		runTimer:  func(t *Timer) { go t.Run(context.Background()) },
		timers:    make(map[uuid.UUID]*Timer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) lock(quizID uuid.UUID) *sync.Mutex {
	return &m.stripes[int(quizID[0])%lockStripes]
}

// Start creates an attempt, samples its questions and puts it in progress.
// When loading fails the attempt is marked failed and the returned error
// wraps ErrSessionFailed. Fewer matching questions than requested is not an
// error; none at all completes the session immediately.
func (m *Manager) Start(ctx context.Context, userID uuid.UUID, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	attempt := &models.QuizAttempt{
		UserID:         userID,
		TotalQuestions: cfg.TotalQuestions,
		IsTimed:        cfg.IsTimed,
		Filters:        datatypes.NewJSONType(cfg.snapshot()),
		QuestionIDs:    datatypes.JSONSlice[uuid.UUID]{},
		Status:         models.AttemptInProgress,
	}
	if cfg.IsTimed {
		limit := cfg.TimeLimit
		deadline := m.now().UTC().Add(time.Duration(limit) * time.Minute)
		attempt.TimeLimit = &limit
		attempt.ExpiresAt = &deadline
	}
	if err := m.attempts.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionFailed, err)
	}

	sess := &Session{
		QuizID:         attempt.ID,
		UserID:         userID,
		State:          StateCreated,
		TotalQuestions: cfg.TotalQuestions,
		ExpiresAt:      attempt.ExpiresAt,
	}

	lock := m.lock(sess.QuizID)
	lock.Lock()
	defer lock.Unlock()

	sess.State = StateLoading
	questions, err := m.load(ctx, userID, cfg)
	if err == nil {
		err = m.attempts.SetQuestions(ctx, sess.QuizID, questionIDs(questions))
	}
	if err != nil {
		sess.State = StateFailed
		if _, ferr := m.attempts.Finish(ctx, sess.QuizID, models.AttemptFailed); ferr != nil {
			m.logger.Printf("quiz %s: mark failed: %v", sess.QuizID, ferr)
		}
		m.save(ctx, sess)
		return sess, fmt.Errorf("%w: %w", ErrSessionFailed, err)
	}

	sess.Questions = questions
	sess.State = StateInProgress
	if len(questions) == 0 {
		m.complete(ctx, sess)
		return sess, nil
	}
	m.save(ctx, sess)

	if cfg.IsTimed {
		m.startTimer(sess.QuizID, NewTimer(cfg.TimeLimit, m.expireFunc(sess.QuizID)))
	}
	return sess, nil
}

// load fetches, filters by previous outcomes, shuffles and truncates.
func (m *Manager) load(ctx context.Context, userID uuid.UUID, cfg Config) ([]models.Question, error) {
	questions, err := m.questions.Fetch(ctx, cfg.filter())
	if err != nil {
		return nil, err
	}

	if !cfg.IncludePreviouslyCorrect || !cfg.IncludePreviouslyIncorrect {
		stats, err := m.progress.ForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		last := make(map[uuid.UUID]bool, len(stats))
		for _, s := range stats {
			last[s.QuestionID] = s.IsCorrect
		}

		kept := questions[:0]
		for _, q := range questions {
			correct, seen := last[q.ID]
			if seen && correct && !cfg.IncludePreviouslyCorrect {
				continue
			}
			if seen && !correct && !cfg.IncludePreviouslyIncorrect {
				continue
			}
			kept = append(kept, q)
		}
		questions = kept
	}

	m.shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	if len(questions) > cfg.TotalQuestions {
		questions = questions[:cfg.TotalQuestions]
	}
	return questions, nil
}

// Get returns the session of quizID for its owner. A session whose deadline
// has passed is completed first.
func (m *Manager) Get(ctx context.Context, userID, quizID uuid.UUID) (*Session, error) {
	lock := m.lock(quizID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.owned(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	m.expireIfDue(ctx, sess)
	m.track(sess)
	return sess, nil
}

// AnswerResult describes one recorded answer.
type AnswerResult struct {
	Record          *models.QuizQuestion
	Correct         bool
	CorrectAnswerID uuid.UUID
	Explanation     string
	Duplicate       bool
	Session         *Session
}

// Answer records answerID for the current question and advances the
// session. Correctness is the stored flag of the chosen answer.
func (m *Manager) Answer(ctx context.Context, userID, quizID, questionID, answerID uuid.UUID) (*AnswerResult, error) {
	lock := m.lock(quizID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.owned(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	m.expireIfDue(ctx, sess)

	q, ok := sess.Current()
	if !ok {
		return nil, ErrSessionClosed
	}
	if q.ID != questionID {
		return nil, store.ValidationErrors{{Field: "question_id", Message: "is not the current question"}}
	}
	answer, ok := q.Answer(answerID)
	if !ok {
		return nil, store.ValidationErrors{{Field: "answer_id", Message: "does not belong to the current question"}}
	}

	correct := answer.IsCorrect
	rec, duplicate, err := m.attempts.RecordAnswer(ctx, userID, &models.QuizQuestion{
		QuizID:       quizID,
		QuestionID:   q.ID,
		Position:     sess.CurrentIndex,
		UserAnswerID: &answer.ID,
		IsCorrect:    &correct,
	})
	if err != nil {
		return nil, err
	}
	if duplicate && rec.IsCorrect != nil {
		correct = *rec.IsCorrect
	}

	sess.CurrentIndex++
	if sess.CurrentIndex >= len(sess.Questions) {
		m.complete(ctx, sess)
	} else {
		m.save(ctx, sess)
		m.track(sess)
	}

	correctID, _ := q.CorrectAnswerID()
	return &AnswerResult{
		Record:          rec,
		Correct:         correct,
		CorrectAnswerID: correctID,
		Explanation:     q.Explanation,
		Duplicate:       duplicate,
		Session:         sess,
	}, nil
}

// Expire force-completes an in-progress session. It reports whether this
// call made the transition.
func (m *Manager) Expire(ctx context.Context, quizID uuid.UUID) (bool, error) {
	lock := m.lock(quizID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.session(ctx, quizID)
	if err != nil {
		return false, err
	}
	if sess.State != StateInProgress {
		return false, nil
	}
	m.complete(ctx, sess)
	return true, nil
}

// Close stops every running countdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}

func (m *Manager) owned(ctx context.Context, userID, quizID uuid.UUID) (*Session, error) {
	sess, err := m.session(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, &store.AuthorizationError{Action: "access this quiz"}
	}
	return sess, nil
}

func (m *Manager) session(ctx context.Context, quizID uuid.UUID) (*Session, error) {
	sess, err := m.sessions.Get(ctx, quizID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotCached) {
		m.logger.Printf("quiz %s: session cache: %v", quizID, err)
	}
	return m.restore(ctx, quizID)
}

// restore rebuilds a session from the attempt row, its stored question order
// and the answers recorded so far.
func (m *Manager) restore(ctx context.Context, quizID uuid.UUID) (*Session, error) {
	attempt, err := m.attempts.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		QuizID:         attempt.ID,
		UserID:         attempt.UserID,
		TotalQuestions: attempt.TotalQuestions,
		ExpiresAt:      attempt.ExpiresAt,
	}
	switch attempt.Status {
	case models.AttemptCompleted:
		sess.State = StateCompleted
	case models.AttemptFailed:
		sess.State = StateFailed
	default:
		sess.State = StateInProgress
	}

	ids := []uuid.UUID(attempt.QuestionIDs)
	if len(ids) > 0 {
		fetched, err := m.questions.Fetch(ctx, store.QuestionFilter{IDs: ids})
		if err != nil {
			return nil, err
		}
		byID := make(map[uuid.UUID]models.Question, len(fetched))
		for _, q := range fetched {
			byID[q.ID] = q
		}
		for _, id := range ids {
			if q, ok := byID[id]; ok {
				sess.Questions = append(sess.Questions, q)
			}
		}
	}

	answered, err := m.attempts.Questions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	done := make(map[uuid.UUID]bool, len(answered))
	for _, a := range answered {
		done[a.QuestionID] = true
	}
	for sess.CurrentIndex < len(sess.Questions) && done[sess.Questions[sess.CurrentIndex].ID] {
		sess.CurrentIndex++
	}

	if sess.State == StateInProgress && sess.CurrentIndex >= len(sess.Questions) {
		m.complete(ctx, sess)
		return sess, nil
	}
	m.save(ctx, sess)
	return sess, nil
}

func (m *Manager) expireIfDue(ctx context.Context, sess *Session) {
	if sess.State == StateInProgress && sess.pastDeadline(m.now()) {
		m.complete(ctx, sess)
	}
}

func (m *Manager) complete(ctx context.Context, sess *Session) {
	if sess.State.Terminal() {
		return
	}
	sess.State = StateCompleted
	if _, err := m.attempts.Finish(ctx, sess.QuizID, models.AttemptCompleted); err != nil {
		m.logger.Printf("quiz %s: mark completed: %v", sess.QuizID, err)
	}
	m.stopTimer(sess.QuizID)
	m.save(ctx, sess)
}

func (m *Manager) save(ctx context.Context, sess *Session) {
	if err := m.sessions.Save(ctx, sess); err != nil {
		m.logger.Printf("quiz %s: cache session: %v", sess.QuizID, err)
	}
}

// track resumes the countdown of a timed session this process is not yet
// timing, e.g. after a restart or when another instance started it.
func (m *Manager) track(sess *Session) {
	if sess.State != StateInProgress {
		return
	}
	remaining, timed := sess.RemainingSeconds(m.now())
	if !timed || remaining <= 0 {
		return
	}
	m.startTimer(sess.QuizID, NewTimerSeconds(remaining, m.expireFunc(sess.QuizID)))
}

func (m *Manager) startTimer(quizID uuid.UUID, t *Timer) {
	m.mu.Lock()
	if m.closed || m.timers[quizID] != nil {
		m.mu.Unlock()
		return
	}
	m.timers[quizID] = t
	m.mu.Unlock()

	m.runTimer(t)
}

func (m *Manager) stopTimer(quizID uuid.UUID) {
	m.mu.Lock()
	t := m.timers[quizID]
	delete(m.timers, quizID)
	m.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}

func (m *Manager) timer(quizID uuid.UUID) *Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timers[quizID]
}

func (m *Manager) expireFunc(quizID uuid.UUID) func() {
	return func() {
		if _, err := m.Expire(context.Background(), quizID); err != nil {
			m.logger.Printf("quiz %s: expire: %v", quizID, err)
		}
	}
}

func questionIDs(questions []models.Question) []uuid.UUID {
	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}
