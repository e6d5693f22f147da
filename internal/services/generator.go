package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"testwise-backend/internal/models"
)

const (
	defaultHintedQuestions = 10
	defaultHintedDuration  = 15
	defaultFinalQuestions  = 10
	defaultFinalDuration   = 20
	defaultGlobalQuestions = 30
	defaultGlobalDuration  = 40
)

type GeneratorQuestionStore interface {
	ListBySection(ctx context.Context, sectionID uuid.UUID, isFinal bool) ([]*models.Question, error)
	ListFinalByTopic(ctx context.Context, topicID uuid.UUID) ([]*models.Question, error)
	CloneForTest(ctx context.Context, testID uuid.UUID, questions []*models.Question) error
}

type GeneratorTestStore interface {
	CreateTest(ctx context.Context, t *models.Test) error
}

// GeneratorService assembles tests from a question bank. Generated tests own
// copies of the sampled questions, so later edits to the bank never change a
// test that students may already be taking.
type GeneratorService struct {
	topics    TopicStore
	sections  SectionStore
	questions GeneratorQuestionStore
	tests     GeneratorTestStore

	rng *rand.Rand
}

func NewGeneratorService(topics TopicStore, sections SectionStore, questions GeneratorQuestionStore, tests GeneratorTestStore) *GeneratorService {
	return &GeneratorService{
		topics:    topics,
		sections:  sections,
		questions: questions,
		tests:     tests,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *GeneratorService) GenerateHintedTest(ctx context.Context, sectionID uuid.UUID, req models.GenerateTestRequest) (*models.Test, error) {
	section, err := s.sections.GetSection(ctx, sectionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Section not found"}
		}
		return nil, err
	}

	pool, err := s.questions.ListBySection(ctx, sectionID, false)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"section": "Section has no practice questions to generate from"}}
	}

	title := fmt.Sprintf("Practice test: %s", section.Title)
	test := s.buildTest(req, models.TestHinted, title, defaultHintedDuration)
	test.SectionID = &sectionID

	return s.createWithQuestions(ctx, test, pool, numQuestions(req, defaultHintedQuestions))
}

func (s *GeneratorService) GenerateSectionFinalTest(ctx context.Context, sectionID uuid.UUID, req models.GenerateTestRequest) (*models.Test, error) {
	section, err := s.sections.GetSection(ctx, sectionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Section not found"}
		}
		return nil, err
	}

	pool, err := s.questions.ListBySection(ctx, sectionID, true)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"section": "Section has no final questions to generate from"}}
	}

	title := fmt.Sprintf("Final test: %s", section.Title)
	test := s.buildTest(req, models.TestSectionFinal, title, defaultFinalDuration)
	test.SectionID = &sectionID

	return s.createWithQuestions(ctx, test, pool, numQuestions(req, defaultFinalQuestions))
}

func (s *GeneratorService) GenerateGlobalFinalTest(ctx context.Context, topicID uuid.UUID, req models.GenerateTestRequest) (*models.Test, error) {
	topic, err := s.topics.GetTopic(ctx, topicID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Topic not found"}
		}
		return nil, err
	}

	pool, err := s.questions.ListFinalByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"topic": "Topic has no final questions to generate from"}}
	}

	title := fmt.Sprintf("Global final: %s", topic.Title)
	test := s.buildTest(req, models.TestGlobalFinal, title, defaultGlobalDuration)
	test.TopicID = &topicID

	return s.createWithQuestions(ctx, test, pool, numQuestions(req, defaultGlobalQuestions))
}

func (s *GeneratorService) buildTest(req models.GenerateTestRequest, testType models.TestType, defaultTitle string, defaultDuration int) *models.Test {
	title := defaultTitle
	if req.Title != nil && *req.Title != "" {
		title = *req.Title
	}
	duration := defaultDuration
	if req.Duration != nil && *req.Duration > 0 {
		duration = *req.Duration
	}
	return &models.Test{
		Title:    title,
		Type:     testType,
		Duration: &duration,
	}
}

func (s *GeneratorService) createWithQuestions(ctx context.Context, test *models.Test, pool []*models.Question, n int) (*models.Test, error) {
	sample := s.sample(pool, n)

	if err := s.tests.CreateTest(ctx, test); err != nil {
		return nil, err
	}
	if err := s.questions.CloneForTest(ctx, test.ID, sample); err != nil {
		return nil, err
	}
	return test, nil
}

// sample picks up to n questions without replacement.
func (s *GeneratorService) sample(pool []*models.Question, n int) []*models.Question {
	if n >= len(pool) {
		out := make([]*models.Question, len(pool))
		copy(out, pool)
		return out
	}
	perm := s.rng.Perm(len(pool))
	out := make([]*models.Question, n)
	for i := 0; i < n; i++ {
		out[i] = pool[perm[i]]
	}
	return out
}

func numQuestions(req models.GenerateTestRequest, fallback int) int {
	if req.NumQuestions != nil && *req.NumQuestions > 0 {
		return *req.NumQuestions
	}
	return fallback
}
