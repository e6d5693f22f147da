package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"testwise-backend/internal/models"
)

// Default completed-attempt limit for final tests. Hinted tests are
// unlimited unless the test sets its own limit.
const defaultFinalAttempts = 3

type AttemptStore interface {
	TestStore
	CreateAttempt(ctx context.Context, a *models.TestAttempt) error
	GetAttempt(ctx context.Context, id uuid.UUID) (*models.TestAttempt, error)
	CountAttempts(ctx context.Context, userID, testID uuid.UUID) (int, error)
	CountCompletedAttempts(ctx context.Context, userID, testID uuid.UUID) (int, error)
	ActiveAttempt(ctx context.Context, userID, testID uuid.UUID) (*models.TestAttempt, error)
	ExpireAttempt(ctx context.Context, id uuid.UUID) error
	CompleteAttempt(ctx context.Context, id uuid.UUID, score float64, timeSpent int, answers []byte) (bool, error)
}

type QuestionStore interface {
	ListAnswerable(ctx context.Context, testID uuid.UUID) ([]*models.Question, error)
}

type AttemptService struct {
	tests     AttemptStore
	questions QuestionStore
	progress  *ProgressService
	events    EventPublisher

	// injectable for tests
	now func() time.Time
	rng *rand.Rand
}

func NewAttemptService(tests AttemptStore, questions QuestionStore, progress *ProgressService, events EventPublisher) *AttemptService {
	return &AttemptService{
		tests:     tests,
		questions: questions,
		progress:  progress,
		events:    events,
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start opens a test attempt for a student. An unexpired in-progress attempt
// is resumed instead of starting a new one; an expired one is closed without
// a score first. Option order is shuffled per attempt and the shuffle is
// recorded on the attempt so grading matches exactly what was shown.
func (s *AttemptService) Start(ctx context.Context, userID, testID uuid.UUID) (*models.StartTestResponse, error) {
	test, err := s.tests.GetTest(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Test not found"}
		}
		return nil, err
	}

	available, err := s.progress.CheckTestAvailability(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, &ValidationError{Fields: map[string]string{"test": "Test is not yet available. Complete the required material first."}}
	}

	if limit := attemptLimit(test); limit > 0 {
		completed, err := s.tests.CountCompletedAttempts(ctx, userID, testID)
		if err != nil {
			return nil, err
		}
		if completed >= limit {
			return nil, &AttemptLimitError{Message: "Maximum number of attempts reached"}
		}
	}

	questions, err := s.questions.ListAnswerable(ctx, testID)
	if err != nil {
		return nil, err
	}

	active, err := s.tests.ActiveAttempt(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		if !s.attemptExpired(active, test) {
			return s.resumeResponse(active, test, questions)
		}
		if err := s.tests.ExpireAttempt(ctx, active.ID); err != nil {
			return nil, err
		}
	}

	if len(questions) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"test": "Test has no answerable questions"}}
	}

	config, err := s.randomize(questions)
	if err != nil {
		return nil, err
	}

	count, err := s.tests.CountAttempts(ctx, userID, testID)
	if err != nil {
		return nil, err
	}

	attempt := &models.TestAttempt{
		UserID:           userID,
		TestID:           testID,
		AttemptNumber:    count + 1,
		RandomizedConfig: config,
	}
	if err := s.tests.CreateAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	return &models.StartTestResponse{
		AttemptID:     attempt.ID,
		TestID:        testID,
		Questions:     attemptQuestions(config, questions),
		StartTime:     attempt.StartedAt,
		Duration:      test.Duration,
		AttemptNumber: attempt.AttemptNumber,
	}, nil
}

// Submit grades an attempt against its recorded shuffle and finalizes it.
// The underlying update is conditional, so a concurrent duplicate submit
// loses and gets a conflict instead of overwriting the score.
func (s *AttemptService) Submit(ctx context.Context, userID, attemptID uuid.UUID, req models.SubmitTestRequest) (*models.SubmitTestResponse, error) {
	attempt, err := s.tests.GetAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Attempt not found"}
		}
		return nil, err
	}

	if attempt.UserID != userID {
		return nil, &ForbiddenError{Message: "Attempt belongs to another user"}
	}
	if attempt.CompletedAt != nil {
		return nil, &ConflictError{Message: "Attempt has already been submitted"}
	}

	correct, total := s.grade(attempt.RandomizedConfig, req.Answers)

	score := 0.0
	if total > 0 {
		score = round2(float64(correct) / float64(total) * 100)
	}

	timeSpent := 0
	if req.TimeSpent != nil {
		timeSpent = *req.TimeSpent
	} else {
		timeSpent = int(s.now().Sub(attempt.StartedAt).Seconds())
	}

	answersJSON, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, err
	}

	ok, err := s.tests.CompleteAttempt(ctx, attemptID, score, timeSpent, answersJSON)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ConflictError{Message: "Attempt has already been submitted"}
	}

	attempt, err = s.tests.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	// A scored final can unlock the section, so recompute the parent chain.
	// The attempt is already finalized at this point; a recalc failure only
	// leaves the percentages stale until the next recompute.
	if test, err := s.tests.GetTest(ctx, attempt.TestID); err != nil {
		log.Printf("Progress recalc skipped for attempt %s: %v", attempt.ID, err)
	} else if test.SectionID != nil {
		if _, err := s.progress.CalculateSectionProgress(ctx, userID, *test.SectionID, true); err != nil {
			log.Printf("Section progress recalc failed for attempt %s: %v", attempt.ID, err)
		}
	} else if test.TopicID != nil {
		if _, err := s.progress.CalculateTopicProgress(ctx, userID, *test.TopicID, true); err != nil {
			log.Printf("Topic progress recalc failed for attempt %s: %v", attempt.ID, err)
		}
	}

	if s.events != nil {
		s.events.Publish(ctx, attemptScoredEvent(userID, map[string]any{
			"attempt_id": attempt.ID,
			"test_id":    attempt.TestID,
			"score":      score,
		}))
	}

	return &models.SubmitTestResponse{
		Attempt:        attempt,
		CorrectCount:   correct,
		TotalQuestions: total,
	}, nil
}

func (s *AttemptService) attemptExpired(attempt *models.TestAttempt, test *models.Test) bool {
	if test.Duration == nil {
		return false
	}
	deadline := attempt.StartedAt.Add(time.Duration(*test.Duration) * time.Minute)
	return s.now().After(deadline)
}

func (s *AttemptService) resumeResponse(attempt *models.TestAttempt, test *models.Test, questions []*models.Question) (*models.StartTestResponse, error) {
	if attempt.RandomizedConfig == nil {
		return nil, errors.New("attempt has no randomized config")
	}
	return &models.StartTestResponse{
		AttemptID:     attempt.ID,
		TestID:        attempt.TestID,
		Questions:     attemptQuestions(attempt.RandomizedConfig, questions),
		StartTime:     attempt.StartedAt,
		Duration:      test.Duration,
		AttemptNumber: attempt.AttemptNumber,
	}, nil
}

// randomize builds the per-attempt snapshot: shuffled options with the
// correct index remapped to its new position, plus a shuffled question order.
func (s *AttemptService) randomize(questions []*models.Question) (*models.RandomizedConfig, error) {
	config := &models.RandomizedConfig{
		Questions: make(map[string]models.RandomizedQuestion, len(questions)),
		Order:     make([]uuid.UUID, len(questions)),
	}

	for _, q := range questions {
		rq := models.RandomizedQuestion{
			Type:           q.Type,
			OriginalAnswer: q.CorrectAnswer,
		}

		switch q.Type {
		case models.QuestionSingleChoice:
			var origIdx int
			if err := json.Unmarshal(q.CorrectAnswer, &origIdx); err != nil || origIdx < 0 || origIdx >= len(q.Options) {
				return nil, malformedAnswerKey(q.ID)
			}
			perm := s.rng.Perm(len(q.Options))
			rq.Options = make([]string, len(q.Options))
			for newPos, oldPos := range perm {
				rq.Options[newPos] = q.Options[oldPos]
				if oldPos == origIdx {
					idx := newPos
					rq.CorrectIndex = &idx
				}
			}
		case models.QuestionMultipleChoice:
			var origIdxs []int
			if err := json.Unmarshal(q.CorrectAnswer, &origIdxs); err != nil || len(origIdxs) == 0 {
				return nil, malformedAnswerKey(q.ID)
			}
			origSet := make(map[int]bool, len(origIdxs))
			for _, i := range origIdxs {
				if i < 0 || i >= len(q.Options) {
					return nil, malformedAnswerKey(q.ID)
				}
				origSet[i] = true
			}
			perm := s.rng.Perm(len(q.Options))
			rq.Options = make([]string, len(q.Options))
			for newPos, oldPos := range perm {
				rq.Options[newPos] = q.Options[oldPos]
				if origSet[oldPos] {
					rq.CorrectIndices = append(rq.CorrectIndices, newPos)
				}
			}
			sort.Ints(rq.CorrectIndices)
		case models.QuestionOpenText:
			// Nothing to shuffle; grading compares against the original answer.
		}

		config.Questions[q.ID.String()] = rq
	}

	for i, q := range questions {
		config.Order[i] = q.ID
	}
	s.rng.Shuffle(len(config.Order), func(i, j int) {
		config.Order[i], config.Order[j] = config.Order[j], config.Order[i]
	})

	return config, nil
}

func (s *AttemptService) grade(config *models.RandomizedConfig, answers map[string]json.RawMessage) (correct, total int) {
	if config == nil {
		return 0, 0
	}
	total = len(config.Questions)

	for qid, rq := range config.Questions {
		raw, ok := answers[qid]
		if !ok {
			continue
		}

		switch rq.Type {
		case models.QuestionSingleChoice:
			var given int
			if err := json.Unmarshal(raw, &given); err != nil {
				continue
			}
			if rq.CorrectIndex != nil && given == *rq.CorrectIndex {
				correct++
			}
		case models.QuestionMultipleChoice:
			var given []int
			if err := json.Unmarshal(raw, &given); err != nil {
				continue
			}
			sort.Ints(given)
			if equalInts(given, rq.CorrectIndices) {
				correct++
			}
		case models.QuestionOpenText:
			var given, expected string
			if err := json.Unmarshal(raw, &given); err != nil {
				continue
			}
			if err := json.Unmarshal(rq.OriginalAnswer, &expected); err != nil {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(expected)) {
				correct++
			}
		}
	}
	return correct, total
}

// attemptQuestions assembles the student-facing question list in the
// recorded order, with the recorded option shuffle and no correct answers.
func attemptQuestions(config *models.RandomizedConfig, questions []*models.Question) []models.AttemptQuestion {
	byID := make(map[uuid.UUID]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	out := make([]models.AttemptQuestion, 0, len(config.Order))
	for _, id := range config.Order {
		q, ok := byID[id]
		if !ok {
			continue
		}
		rq := config.Questions[id.String()]
		options := rq.Options
		if options == nil {
			options = q.Options
		}
		out = append(out, models.AttemptQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Options: options,
			Hint:    q.Hint,
			Image:   q.Image,
		})
	}
	return out
}

func attemptLimit(test *models.Test) int {
	if test.MaxAttempts != nil {
		return *test.MaxAttempts
	}
	if test.Type == models.TestHinted {
		return 0
	}
	return defaultFinalAttempts
}

// Answer keys are checked on create and update, but rows written before that
// check (or edited in the database) can still be malformed.
func malformedAnswerKey(questionID uuid.UUID) error {
	return &ValidationError{Fields: map[string]string{
		"test": "Question " + questionID.String() + " has a malformed answer key",
	}}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type AttemptLimitError struct{ Message string }

func (e *AttemptLimitError) Error() string { return e.Message }
