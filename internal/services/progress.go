package services

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"testwise-backend/internal/models"
)

// Progress thresholds. A section with a passed final counts as fully done;
// an unpassed final caps the section at the availability gate.
const (
	PassThreshold         = 60.0
	AvailabilityThreshold = 90.0
	CompletedThreshold    = 99.9
)

// Stores the progress engine reads from. Declared here so the engine can be
// exercised against in-memory fakes.

type TopicStore interface {
	GetTopic(ctx context.Context, id uuid.UUID) (*models.Topic, error)
	SectionIDs(ctx context.Context, topicID uuid.UUID) ([]uuid.UUID, error)
}

type SectionStore interface {
	GetSection(ctx context.Context, id uuid.UUID) (*models.Section, error)
}

type SubsectionStore interface {
	GetSubsection(ctx context.Context, id uuid.UUID) (*models.Subsection, error)
	CountBySection(ctx context.Context, sectionID uuid.UUID) (int, error)
}

type TestStore interface {
	GetTest(ctx context.Context, id uuid.UUID) (*models.Test, error)
	ListSectionFinals(ctx context.Context, sectionID uuid.UUID) ([]*models.Test, error)
	BestCompletedScore(ctx context.Context, userID uuid.UUID, testIDs []uuid.UUID) (*float64, error)
	ListAttempts(ctx context.Context, userID *uuid.UUID, testID *uuid.UUID) ([]*models.TestAttempt, error)
}

type ProgressStore interface {
	EnsureTopicProgress(ctx context.Context, userID, topicID uuid.UUID) (*models.TopicProgress, error)
	EnsureSectionProgress(ctx context.Context, userID, sectionID uuid.UUID) (*models.SectionProgress, error)
	EnsureSubsectionProgress(ctx context.Context, userID, subsectionID uuid.UUID) (*models.SubsectionProgress, error)
	SaveSectionProgress(ctx context.Context, userID, sectionID uuid.UUID, percentage float64, status models.ProgressStatus) error
	SaveTopicProgress(ctx context.Context, userID, topicID uuid.UUID, percentage float64, status models.ProgressStatus) error
	MarkSubsectionViewed(ctx context.Context, userID, subsectionID uuid.UUID) (bool, error)
	CountViewed(ctx context.Context, userID, sectionID uuid.UUID) (int, error)
	SectionPercentages(ctx context.Context, userID uuid.UUID, sectionIDs []uuid.UUID) (map[uuid.UUID]float64, error)
	ListTopicProgress(ctx context.Context, userID *uuid.UUID) ([]*models.TopicProgress, error)
	ListSectionProgress(ctx context.Context, userID *uuid.UUID) ([]*models.SectionProgress, error)
	ListSubsectionProgress(ctx context.Context, userID *uuid.UUID) ([]*models.SubsectionProgress, error)
}

type ProgressService struct {
	topics      TopicStore
	sections    SectionStore
	subsections SubsectionStore
	tests       TestStore
	progress    ProgressStore
	events      EventPublisher
}

func NewProgressService(topics TopicStore, sections SectionStore, subsections SubsectionStore, tests TestStore, progress ProgressStore, events EventPublisher) *ProgressService {
	return &ProgressService{
		topics:      topics,
		sections:    sections,
		subsections: subsections,
		tests:       tests,
		progress:    progress,
		events:      events,
	}
}

// CalculateSectionProgress computes the section completion percentage for a
// user: the viewed-subsection ratio, gated by the section's final tests. A
// passed final (best completed score >= 60) lifts the section to 100; an
// unpassed final caps it at 90. With persist set the result is written back
// and the parent topic is recalculated too.
func (s *ProgressService) CalculateSectionProgress(ctx context.Context, userID, sectionID uuid.UUID, persist bool) (float64, error) {
	section, err := s.sections.GetSection(ctx, sectionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &NotFoundError{Message: "Section not found"}
		}
		return 0, err
	}

	total, err := s.subsections.CountBySection(ctx, sectionID)
	if err != nil {
		return 0, err
	}
	viewed, err := s.progress.CountViewed(ctx, userID, sectionID)
	if err != nil {
		return 0, err
	}

	// Empty sections count as fully viewed.
	ratio := 1.0
	if total > 0 {
		ratio = float64(viewed) / float64(total)
	}
	percentage := ratio * 100

	finals, err := s.tests.ListSectionFinals(ctx, sectionID)
	if err != nil {
		return 0, err
	}
	if len(finals) > 0 {
		ids := make([]uuid.UUID, len(finals))
		for i, t := range finals {
			ids[i] = t.ID
		}
		best, err := s.tests.BestCompletedScore(ctx, userID, ids)
		if err != nil {
			return 0, err
		}
		if best != nil && *best >= PassThreshold {
			percentage = 100.0
		} else {
			percentage = math.Min(percentage, AvailabilityThreshold)
		}
	}

	percentage = round2(percentage)

	if persist {
		status := models.ProgressInProgress
		if percentage >= CompletedThreshold {
			status = models.ProgressCompleted
		}
		if err := s.progress.SaveSectionProgress(ctx, userID, sectionID, percentage, status); err != nil {
			return 0, err
		}
		if _, err := s.CalculateTopicProgress(ctx, userID, section.TopicID, true); err != nil {
			return 0, err
		}
	}

	return percentage, nil
}

// CalculateTopicProgress averages section percentages over ALL of the topic's
// sections. Sections the user has never touched count as 0.
func (s *ProgressService) CalculateTopicProgress(ctx context.Context, userID, topicID uuid.UUID, persist bool) (float64, error) {
	if _, err := s.topics.GetTopic(ctx, topicID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &NotFoundError{Message: "Topic not found"}
		}
		return 0, err
	}

	sectionIDs, err := s.topics.SectionIDs(ctx, topicID)
	if err != nil {
		return 0, err
	}

	var percentage float64
	if len(sectionIDs) > 0 {
		known, err := s.progress.SectionPercentages(ctx, userID, sectionIDs)
		if err != nil {
			return 0, err
		}
		var sum float64
		for _, id := range sectionIDs {
			sum += known[id]
		}
		percentage = round2(sum / float64(len(sectionIDs)))
	}

	if persist {
		status := models.ProgressInProgress
		if percentage >= CompletedThreshold {
			status = models.ProgressCompleted
		}
		if err := s.progress.SaveTopicProgress(ctx, userID, topicID, percentage, status); err != nil {
			return 0, err
		}
	}

	return percentage, nil
}

// CheckTestAvailability decides whether the user may start a test. Hinted
// tests are always open; finals require the parent's progress to reach the
// availability threshold.
func (s *ProgressService) CheckTestAvailability(ctx context.Context, userID, testID uuid.UUID) (bool, error) {
	test, err := s.tests.GetTest(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, &NotFoundError{Message: "Test not found"}
		}
		return false, err
	}

	switch test.Type {
	case models.TestHinted:
		return true, nil
	case models.TestSectionFinal:
		if test.SectionID == nil {
			return false, &ValidationError{Fields: map[string]string{"test": "Section final test is not linked to a section"}}
		}
		pct, err := s.CalculateSectionProgress(ctx, userID, *test.SectionID, false)
		if err != nil {
			return false, err
		}
		return pct >= AvailabilityThreshold, nil
	case models.TestGlobalFinal:
		if test.TopicID == nil {
			return false, &ValidationError{Fields: map[string]string{"test": "Global final test is not linked to a topic"}}
		}
		pct, err := s.CalculateTopicProgress(ctx, userID, *test.TopicID, false)
		if err != nil {
			return false, err
		}
		return pct >= AvailabilityThreshold, nil
	default:
		return false, nil
	}
}

// MarkSubsectionViewed records the first view of a subsection and ripples the
// change up through section and topic progress. Re-viewing is a no-op.
func (s *ProgressService) MarkSubsectionViewed(ctx context.Context, userID, subsectionID uuid.UUID) (*models.SubsectionProgress, error) {
	sub, err := s.subsections.GetSubsection(ctx, subsectionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Subsection not found"}
		}
		return nil, err
	}

	changed, err := s.progress.MarkSubsectionViewed(ctx, userID, subsectionID)
	if err != nil {
		return nil, err
	}

	if changed {
		pct, err := s.CalculateSectionProgress(ctx, userID, sub.SectionID, true)
		if err != nil {
			return nil, err
		}
		if s.events != nil {
			s.events.Publish(ctx, progressUpdatedEvent(userID, map[string]any{
				"subsection_id":    subsectionID,
				"section_id":       sub.SectionID,
				"section_progress": pct,
			}))
		}
	}

	return s.progress.EnsureSubsectionProgress(ctx, userID, subsectionID)
}

// UserProfile aggregates everything we track about one learner.
func (s *ProgressService) UserProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	topics, err := s.progress.ListTopicProgress(ctx, &userID)
	if err != nil {
		return nil, err
	}
	sections, err := s.progress.ListSectionProgress(ctx, &userID)
	if err != nil {
		return nil, err
	}
	subsections, err := s.progress.ListSubsectionProgress(ctx, &userID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.tests.ListAttempts(ctx, &userID, nil)
	if err != nil {
		return nil, err
	}

	profile := &models.UserProfile{
		Topics:       topics,
		Sections:     sections,
		Subsections:  subsections,
		TestAttempts: attempts,
	}

	if len(topics) > 0 {
		var sum float64
		for _, tp := range topics {
			sum += tp.CompletionPercentage
		}
		overall := round2(sum / float64(len(topics)))
		profile.OverallCompletion = &overall
	}

	return profile, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
