package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"testwise-backend/internal/models"
)

func newGeneratorService(store *memStore) *GeneratorService {
	return NewGeneratorService(store, store, store, store)
}

func seedQuestionBank(store *memStore, sectionID uuid.UUID, practice, final int) {
	for i := 0; i < practice; i++ {
		store.addQuestion(&models.Question{
			SectionID:     sectionID,
			Text:          "practice",
			Type:          models.QuestionSingleChoice,
			Options:       []string{"a", "b"},
			CorrectAnswer: rawJSON(0),
		})
	}
	for i := 0; i < final; i++ {
		store.addQuestion(&models.Question{
			SectionID:     sectionID,
			Text:          "final",
			Type:          models.QuestionSingleChoice,
			Options:       []string{"a", "b"},
			CorrectAnswer: rawJSON(1),
			IsFinal:       true,
		})
	}
}

func clonesFor(store *memStore, testID uuid.UUID) []*models.Question {
	var out []*models.Question
	for _, q := range store.questions {
		if q.TestID != nil && *q.TestID == testID {
			out = append(out, q)
		}
	}
	return out
}

func TestGenerateHintedTest(t *testing.T) {
	store := newMemStore()
	svc := newGeneratorService(store)

	topicID := store.addTopic("Algebra")
	sectionID := store.addSection(topicID, "Linear equations")
	seedQuestionBank(store, sectionID, 20, 5)

	test, err := svc.GenerateHintedTest(context.Background(), sectionID, models.GenerateTestRequest{})
	if err != nil {
		t.Fatalf("GenerateHintedTest: %v", err)
	}
	if test.Type != models.TestHinted {
		t.Fatalf("expected hinted type, got %s", test.Type)
	}
	if test.SectionID == nil || *test.SectionID != sectionID {
		t.Fatalf("expected test linked to section")
	}
	if test.Duration == nil || *test.Duration != 15 {
		t.Fatalf("expected default duration 15, got %v", test.Duration)
	}

	clones := clonesFor(store, test.ID)
	if len(clones) != 10 {
		t.Fatalf("expected 10 sampled questions, got %d", len(clones))
	}
	for _, q := range clones {
		if q.IsFinal {
			t.Fatalf("hinted test sampled a final question")
		}
	}
}

func TestGenerateHintedTestSmallBank(t *testing.T) {
	store := newMemStore()
	svc := newGeneratorService(store)

	topicID := store.addTopic("Algebra")
	sectionID := store.addSection(topicID, "Short")
	seedQuestionBank(store, sectionID, 4, 0)

	test, err := svc.GenerateHintedTest(context.Background(), sectionID, models.GenerateTestRequest{})
	if err != nil {
		t.Fatalf("GenerateHintedTest: %v", err)
	}
	if got := len(clonesFor(store, test.ID)); got != 4 {
		t.Fatalf("expected whole bank when smaller than sample size, got %d", got)
	}
}

func TestGenerateHintedTestEmptyBank(t *testing.T) {
	store := newMemStore()
	svc := newGeneratorService(store)

	topicID := store.addTopic("Algebra")
	sectionID := store.addSection(topicID, "Empty")

	_, err := svc.GenerateHintedTest(context.Background(), sectionID, models.GenerateTestRequest{})
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected validation error for empty bank, got %v", err)
	}
}

func TestGenerateSectionFinalTest(t *testing.T) {
	store := newMemStore()
	svc := newGeneratorService(store)

	topicID := store.addTopic("Algebra")
	sectionID := store.addSection(topicID, "Linear equations")
	seedQuestionBank(store, sectionID, 20, 8)

	test, err := svc.GenerateSectionFinalTest(context.Background(), sectionID, models.GenerateTestRequest{})
	if err != nil {
		t.Fatalf("GenerateSectionFinalTest: %v", err)
	}
	if test.Type != models.TestSectionFinal {
		t.Fatalf("expected section final type, got %s", test.Type)
	}
	if test.Duration == nil || *test.Duration != 20 {
		t.Fatalf("expected default duration 20, got %v", test.Duration)
	}

	clones := clonesFor(store, test.ID)
	if len(clones) != 8 {
		t.Fatalf("expected all 8 final questions, got %d", len(clones))
	}
	for _, q := range clones {
		if !q.IsFinal {
			t.Fatalf("section final sampled a practice question")
		}
	}
}

func TestGenerateGlobalFinalTest(t *testing.T) {
	store := newMemStore()
	svc := newGeneratorService(store)

	topicID := store.addTopic("Algebra")
	sectionA := store.addSection(topicID, "A")
	sectionB := store.addSection(topicID, "B")
	seedQuestionBank(store, sectionA, 5, 20)
	seedQuestionBank(store, sectionB, 5, 20)

	test, err := svc.GenerateGlobalFinalTest(context.Background(), topicID, models.GenerateTestRequest{})
	if err != nil {
		t.Fatalf("GenerateGlobalFinalTest: %v", err)
	}
	if test.Type != models.TestGlobalFinal {
		t.Fatalf("expected global final type, got %s", test.Type)
	}
	if test.TopicID == nil || *test.TopicID != topicID {
		t.Fatalf("expected test linked to topic")
	}
	if test.Duration == nil || *test.Duration != 40 {
		t.Fatalf("expected default duration 40, got %v", test.Duration)
	}
	if got := len(clonesFor(store, test.ID)); got != 30 {
		t.Fatalf("expected 30 sampled questions, got %d", got)
	}
}

func TestGenerateGlobalFinalTestUnknownTopic(t *testing.T) {
	store := newMemStore()
	svc := newGeneratorService(store)

	_, err := svc.GenerateGlobalFinalTest(context.Background(), uuid.New(), models.GenerateTestRequest{})
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestGeneratedQuestionsAreCopies(t *testing.T) {
	store := newMemStore()
	svc := newGeneratorService(store)

	topicID := store.addTopic("Algebra")
	sectionID := store.addSection(topicID, "S")
	srcID := store.addQuestion(&models.Question{
		SectionID:     sectionID,
		Text:          "original",
		Type:          models.QuestionSingleChoice,
		Options:       []string{"a", "b"},
		CorrectAnswer: rawJSON(0),
	})

	test, err := svc.GenerateHintedTest(context.Background(), sectionID, models.GenerateTestRequest{})
	if err != nil {
		t.Fatalf("GenerateHintedTest: %v", err)
	}

	// Editing the bank question must not change the generated test.
	store.questions[srcID].Text = "edited"

	clones := clonesFor(store, test.ID)
	if len(clones) != 1 {
		t.Fatalf("expected 1 clone, got %d", len(clones))
	}
	if clones[0].ID == srcID {
		t.Fatalf("clone reuses the source question id")
	}
	if clones[0].Text != "original" {
		t.Fatalf("clone changed with the source question: %q", clones[0].Text)
	}
}

func TestGenerateRespectsRequestOverrides(t *testing.T) {
	store := newMemStore()
	svc := newGeneratorService(store)

	topicID := store.addTopic("Algebra")
	sectionID := store.addSection(topicID, "S")
	seedQuestionBank(store, sectionID, 20, 0)

	title := "Warm-up quiz"
	n := 5
	duration := 7
	test, err := svc.GenerateHintedTest(context.Background(), sectionID, models.GenerateTestRequest{
		Title:        &title,
		NumQuestions: &n,
		Duration:     &duration,
	})
	if err != nil {
		t.Fatalf("GenerateHintedTest: %v", err)
	}
	if test.Title != title {
		t.Fatalf("expected custom title, got %q", test.Title)
	}
	if *test.Duration != duration {
		t.Fatalf("expected custom duration, got %d", *test.Duration)
	}
	if got := len(clonesFor(store, test.ID)); got != n {
		t.Fatalf("expected %d questions, got %d", n, got)
	}
}
