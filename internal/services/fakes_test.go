package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"testwise-backend/internal/models"
)

// memStore is an in-memory stand-in for the repositories, enough to drive
// the progress engine, attempt lifecycle and generators in tests.
type memStore struct {
	clock time.Time

	topics      map[uuid.UUID]*models.Topic
	sections    map[uuid.UUID]*models.Section
	subsections map[uuid.UUID]*models.Subsection
	tests       map[uuid.UUID]*models.Test
	questions   map[uuid.UUID]*models.Question
	attempts    map[uuid.UUID]*models.TestAttempt

	topicProgress      map[[2]uuid.UUID]*models.TopicProgress
	sectionProgress    map[[2]uuid.UUID]*models.SectionProgress
	subsectionProgress map[[2]uuid.UUID]*models.SubsectionProgress
}

func newMemStore() *memStore {
	return &memStore{
		clock:              time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		topics:             make(map[uuid.UUID]*models.Topic),
		sections:           make(map[uuid.UUID]*models.Section),
		subsections:        make(map[uuid.UUID]*models.Subsection),
		tests:              make(map[uuid.UUID]*models.Test),
		questions:          make(map[uuid.UUID]*models.Question),
		attempts:           make(map[uuid.UUID]*models.TestAttempt),
		topicProgress:      make(map[[2]uuid.UUID]*models.TopicProgress),
		sectionProgress:    make(map[[2]uuid.UUID]*models.SectionProgress),
		subsectionProgress: make(map[[2]uuid.UUID]*models.SubsectionProgress),
	}
}

// Seed helpers

func (m *memStore) addTopic(title string) uuid.UUID {
	id := uuid.New()
	m.topics[id] = &models.Topic{ID: id, Title: title}
	return id
}

func (m *memStore) addSection(topicID uuid.UUID, title string) uuid.UUID {
	id := uuid.New()
	m.sections[id] = &models.Section{ID: id, TopicID: topicID, Title: title}
	return id
}

func (m *memStore) addSubsection(sectionID uuid.UUID) uuid.UUID {
	id := uuid.New()
	m.subsections[id] = &models.Subsection{ID: id, SectionID: sectionID, Title: "sub", Type: models.SubsectionText}
	return id
}

func (m *memStore) addTest(t *models.Test) uuid.UUID {
	t.ID = uuid.New()
	m.tests[t.ID] = t
	return t.ID
}

func (m *memStore) addQuestion(q *models.Question) uuid.UUID {
	q.ID = uuid.New()
	m.questions[q.ID] = q
	return q.ID
}

// TopicStore

func (m *memStore) GetTopic(ctx context.Context, id uuid.UUID) (*models.Topic, error) {
	t, ok := m.topics[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memStore) SectionIDs(ctx context.Context, topicID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, s := range m.sections {
		if s.TopicID == topicID && !s.IsArchived {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SectionStore

func (m *memStore) GetSection(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	s, ok := m.sections[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

// SubsectionStore

func (m *memStore) GetSubsection(ctx context.Context, id uuid.UUID) (*models.Subsection, error) {
	s, ok := m.subsections[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (m *memStore) CountBySection(ctx context.Context, sectionID uuid.UUID) (int, error) {
	count := 0
	for _, s := range m.subsections {
		if s.SectionID == sectionID && !s.IsArchived {
			count++
		}
	}
	return count, nil
}

// TestStore

func (m *memStore) GetTest(ctx context.Context, id uuid.UUID) (*models.Test, error) {
	t, ok := m.tests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memStore) ListSectionFinals(ctx context.Context, sectionID uuid.UUID) ([]*models.Test, error) {
	var out []*models.Test
	for _, t := range m.tests {
		if t.Type == models.TestSectionFinal && !t.IsArchived && t.SectionID != nil && *t.SectionID == sectionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) BestCompletedScore(ctx context.Context, userID uuid.UUID, testIDs []uuid.UUID) (*float64, error) {
	ids := make(map[uuid.UUID]bool, len(testIDs))
	for _, id := range testIDs {
		ids[id] = true
	}
	var best *float64
	for _, a := range m.attempts {
		if a.UserID != userID || !ids[a.TestID] || a.CompletedAt == nil || a.Score == nil {
			continue
		}
		if best == nil || *a.Score > *best {
			score := *a.Score
			best = &score
		}
	}
	return best, nil
}

func (m *memStore) ListAttempts(ctx context.Context, userID *uuid.UUID, testID *uuid.UUID) ([]*models.TestAttempt, error) {
	var out []*models.TestAttempt
	for _, a := range m.attempts {
		if userID != nil && a.UserID != *userID {
			continue
		}
		if testID != nil && a.TestID != *testID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// AttemptStore

func (m *memStore) CreateAttempt(ctx context.Context, a *models.TestAttempt) error {
	a.ID = uuid.New()
	a.Status = models.AttemptInProgress
	a.StartedAt = m.clock
	m.attempts[a.ID] = a
	return nil
}

func (m *memStore) GetAttempt(ctx context.Context, id uuid.UUID) (*models.TestAttempt, error) {
	a, ok := m.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (m *memStore) CountAttempts(ctx context.Context, userID, testID uuid.UUID) (int, error) {
	count := 0
	for _, a := range m.attempts {
		if a.UserID == userID && a.TestID == testID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) CountCompletedAttempts(ctx context.Context, userID, testID uuid.UUID) (int, error) {
	count := 0
	for _, a := range m.attempts {
		if a.UserID == userID && a.TestID == testID && a.CompletedAt != nil {
			count++
		}
	}
	return count, nil
}

func (m *memStore) ActiveAttempt(ctx context.Context, userID, testID uuid.UUID) (*models.TestAttempt, error) {
	for _, a := range m.attempts {
		if a.UserID == userID && a.TestID == testID && a.CompletedAt == nil {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memStore) ExpireAttempt(ctx context.Context, id uuid.UUID) error {
	a, ok := m.attempts[id]
	if ok && a.CompletedAt == nil {
		now := m.clock
		a.Status = models.AttemptCompleted
		a.CompletedAt = &now
	}
	return nil
}

func (m *memStore) CompleteAttempt(ctx context.Context, id uuid.UUID, score float64, timeSpent int, answers []byte) (bool, error) {
	a, ok := m.attempts[id]
	if !ok || a.CompletedAt != nil {
		return false, nil
	}
	now := m.clock
	a.Status = models.AttemptCompleted
	a.Score = &score
	a.TimeSpent = &timeSpent
	a.Answers = answers
	a.CompletedAt = &now
	return true, nil
}

// ProgressStore

func (m *memStore) EnsureTopicProgress(ctx context.Context, userID, topicID uuid.UUID) (*models.TopicProgress, error) {
	key := [2]uuid.UUID{userID, topicID}
	if p, ok := m.topicProgress[key]; ok {
		return p, nil
	}
	p := &models.TopicProgress{ID: uuid.New(), UserID: userID, TopicID: topicID, Status: models.ProgressStarted, LastAccessed: m.clock, CreatedAt: m.clock}
	m.topicProgress[key] = p
	return p, nil
}

func (m *memStore) EnsureSectionProgress(ctx context.Context, userID, sectionID uuid.UUID) (*models.SectionProgress, error) {
	key := [2]uuid.UUID{userID, sectionID}
	if p, ok := m.sectionProgress[key]; ok {
		return p, nil
	}
	p := &models.SectionProgress{ID: uuid.New(), UserID: userID, SectionID: sectionID, Status: models.ProgressStarted, LastAccessed: m.clock, CreatedAt: m.clock}
	m.sectionProgress[key] = p
	return p, nil
}

func (m *memStore) EnsureSubsectionProgress(ctx context.Context, userID, subsectionID uuid.UUID) (*models.SubsectionProgress, error) {
	key := [2]uuid.UUID{userID, subsectionID}
	if p, ok := m.subsectionProgress[key]; ok {
		return p, nil
	}
	p := &models.SubsectionProgress{ID: uuid.New(), UserID: userID, SubsectionID: subsectionID, CreatedAt: m.clock}
	m.subsectionProgress[key] = p
	return p, nil
}

func (m *memStore) SaveSectionProgress(ctx context.Context, userID, sectionID uuid.UUID, percentage float64, status models.ProgressStatus) error {
	p, _ := m.EnsureSectionProgress(ctx, userID, sectionID)
	p.CompletionPercentage = percentage
	p.Status = status
	p.LastAccessed = m.clock
	return nil
}

func (m *memStore) SaveTopicProgress(ctx context.Context, userID, topicID uuid.UUID, percentage float64, status models.ProgressStatus) error {
	p, _ := m.EnsureTopicProgress(ctx, userID, topicID)
	p.CompletionPercentage = percentage
	p.Status = status
	p.LastAccessed = m.clock
	return nil
}

func (m *memStore) MarkSubsectionViewed(ctx context.Context, userID, subsectionID uuid.UUID) (bool, error) {
	p, _ := m.EnsureSubsectionProgress(ctx, userID, subsectionID)
	if p.IsViewed {
		return false, nil
	}
	now := m.clock
	p.IsViewed = true
	p.ViewedAt = &now
	return true, nil
}

func (m *memStore) CountViewed(ctx context.Context, userID, sectionID uuid.UUID) (int, error) {
	count := 0
	for key, p := range m.subsectionProgress {
		if key[0] != userID || !p.IsViewed {
			continue
		}
		if sub, ok := m.subsections[p.SubsectionID]; ok && sub.SectionID == sectionID && !sub.IsArchived {
			count++
		}
	}
	return count, nil
}

func (m *memStore) SectionPercentages(ctx context.Context, userID uuid.UUID, sectionIDs []uuid.UUID) (map[uuid.UUID]float64, error) {
	out := make(map[uuid.UUID]float64)
	for _, id := range sectionIDs {
		if p, ok := m.sectionProgress[[2]uuid.UUID{userID, id}]; ok {
			out[id] = p.CompletionPercentage
		}
	}
	return out, nil
}

func (m *memStore) ListTopicProgress(ctx context.Context, userID *uuid.UUID) ([]*models.TopicProgress, error) {
	var out []*models.TopicProgress
	for key, p := range m.topicProgress {
		if userID == nil || key[0] == *userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListSectionProgress(ctx context.Context, userID *uuid.UUID) ([]*models.SectionProgress, error) {
	var out []*models.SectionProgress
	for key, p := range m.sectionProgress {
		if userID == nil || key[0] == *userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListSubsectionProgress(ctx context.Context, userID *uuid.UUID) ([]*models.SubsectionProgress, error) {
	var out []*models.SubsectionProgress
	for key, p := range m.subsectionProgress {
		if userID == nil || key[0] == *userID {
			out = append(out, p)
		}
	}
	return out, nil
}

// QuestionStore / GeneratorQuestionStore

func (m *memStore) ListAnswerable(ctx context.Context, testID uuid.UUID) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range m.questions {
		if q.TestID == nil || *q.TestID != testID || q.IsArchived {
			continue
		}
		if len(q.CorrectAnswer) == 0 || string(q.CorrectAnswer) == "null" {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (m *memStore) ListBySection(ctx context.Context, sectionID uuid.UUID, isFinal bool) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range m.questions {
		if q.SectionID == sectionID && q.TestID == nil && q.IsFinal == isFinal && !q.IsArchived {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memStore) ListFinalByTopic(ctx context.Context, topicID uuid.UUID) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range m.questions {
		if q.TestID != nil || !q.IsFinal || q.IsArchived {
			continue
		}
		if sec, ok := m.sections[q.SectionID]; ok && sec.TopicID == topicID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memStore) CloneForTest(ctx context.Context, testID uuid.UUID, questions []*models.Question) error {
	for _, src := range questions {
		clone := *src
		clone.ID = uuid.New()
		clone.TestID = &testID
		m.questions[clone.ID] = &clone
	}
	return nil
}

// GeneratorTestStore

func (m *memStore) CreateTest(ctx context.Context, t *models.Test) error {
	t.ID = uuid.New()
	m.tests[t.ID] = t
	return nil
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	events []models.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event models.Event) {
	p.events = append(p.events, event)
}

func rawJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
