package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"betting-assessment-service/internal/app"
	"betting-assessment-service/internal/domain"
	"betting-assessment-service/internal/infra/memory"
)

func TestCreateJoinPlayAndReport(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)

	created, err := service.CreateAssessment(ctx, domain.CreateRequest{
		Name:          "Fractions",
		Questions:     sampleRows(),
		WinMultiplier: 1.5,
		TotalDuration: 600,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.QuestionCount != 2 || created.InitialCoins != 1000 || created.TotalDuration != 600 {
		t.Fatalf("unexpected create result %+v", created)
	}

	joined, err := service.Join(ctx, created.StudentCode, "Alice")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}

	cq, err := service.CurrentQuestion(ctx, created.StudentCode, joined.StudentID)
	if err != nil {
		t.Fatalf("current question failed: %v", err)
	}
	if cq.Complete || cq.QuestionNumber != 1 || cq.TotalQuestions != 2 || cq.Question == nil {
		t.Fatalf("unexpected current question %+v", cq)
	}

	res, err := service.Submit(ctx, created.StudentCode, joined.StudentID, domain.Submission{
		Bets:      map[domain.OptionID]int{domain.OptionA: 100},
		TimeTaken: 12,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.NewTotal != 900 || res.IsLastQuestion {
		t.Fatalf("expected 900 coins mid-assessment, got %+v", res)
	}

	res, err = service.Submit(ctx, created.StudentCode, joined.StudentID, domain.Submission{Skipped: true, TimeTaken: 3})
	if err != nil {
		t.Fatalf("skip failed: %v", err)
	}
	if res.NewTotal != 850 || !res.IsLastQuestion || res.RemainingTime != 585 {
		t.Fatalf("expected 850 coins on last question, got %+v", res)
	}

	cq, err = service.CurrentQuestion(ctx, created.StudentCode, joined.StudentID)
	if err != nil {
		t.Fatalf("current question failed: %v", err)
	}
	if !cq.Complete || cq.Reason != domain.ReasonFinished {
		t.Fatalf("expected finished, got %+v", cq)
	}

	sr, err := service.StudentReport(ctx, created.StudentCode, joined.StudentID)
	if err != nil {
		t.Fatalf("student report failed: %v", err)
	}
	if sr.Correct != 0 || sr.Skipped != 1 || sr.Accuracy != 0 || sr.FinalCoins != 850 {
		t.Fatalf("unexpected student report %+v", sr)
	}

	if _, err := service.TeacherReport(ctx, created.StudentCode); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden with student code, got %v", err)
	}
	tr, err := service.TeacherReport(ctx, created.TeacherCode)
	if err != nil {
		t.Fatalf("teacher report failed: %v", err)
	}
	if tr.ClassStats.CompletedStudents != 1 || tr.ClassStats.AvgCoins != 850 {
		t.Fatalf("unexpected class stats %+v", tr.ClassStats)
	}
}

func TestCurrentQuestionIsPure(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)
	created, joined := createAndJoin(t, service, "Alice")

	for i := 0; i < 5; i++ {
		cq, err := service.CurrentQuestion(ctx, created.StudentCode, joined.StudentID)
		if err != nil {
			t.Fatalf("current question failed: %v", err)
		}
		if cq.QuestionNumber != 1 || cq.CurrentCoins != 1000 || cq.RemainingTime != joined.RemainingTime {
			t.Fatalf("poll %d mutated state: %+v", i, cq)
		}
	}
}

func TestSubmitErrors(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)

	if _, err := service.Submit(ctx, "NOPE", "x", domain.Submission{}); !errors.Is(err, domain.ErrAssessmentNotFound) {
		t.Fatalf("expected assessment not found, got %v", err)
	}

	created, joined := createAndJoin(t, service, "Alice")
	if _, err := service.Submit(ctx, created.StudentCode, "ghost", domain.Submission{}); !errors.Is(err, domain.ErrStudentNotFound) {
		t.Fatalf("expected student not found, got %v", err)
	}

	_, err := service.Submit(ctx, created.StudentCode, joined.StudentID, domain.Submission{
		Bets:      map[domain.OptionID]int{domain.OptionA: 1001},
		TimeTaken: 30,
	})
	if !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Fatalf("expected insufficient coins, got %v", err)
	}
	cq, _ := service.CurrentQuestion(ctx, created.StudentCode, joined.StudentID)
	if cq.CurrentCoins != 1000 || cq.QuestionNumber != 1 || cq.RemainingTime != joined.RemainingTime {
		t.Fatalf("rejected submit must not change the session, got %+v", cq)
	}
}

func TestJoinWithTeacherCodeAndCheckCode(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)
	created, _ := createAndJoin(t, service, "Alice")

	if _, err := service.Join(ctx, created.TeacherCode, "Bob"); !errors.Is(err, domain.ErrIsTeacherCode) {
		t.Fatalf("expected teacher code rejection, got %v", err)
	}

	info, err := service.CheckCode(ctx, created.TeacherCode)
	if err != nil || !info.IsTeacher {
		t.Fatalf("expected teacher info, got %+v %v", info, err)
	}
	info, err = service.CheckCode(ctx, created.StudentCode)
	if err != nil || info.IsTeacher || info.QuestionCount != 2 {
		t.Fatalf("expected student info, got %+v %v", info, err)
	}
	if _, err := service.CheckCode(ctx, "ZZZZZZ"); !errors.Is(err, domain.ErrAssessmentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if service.ActiveAssessments() != 1 {
		t.Fatalf("expected one active assessment, got %d", service.ActiveAssessments())
	}
}

func TestCreateFromQuestionSet(t *testing.T) {
	ctx := context.Background()

	if _, err := newTestService(nil).CreateAssessment(ctx, domain.CreateRequest{QuestionSetID: "set-1"}); !errors.Is(err, domain.ErrPersistenceDisabled) {
		t.Fatalf("expected persistence disabled, got %v", err)
	}

	sets := memory.NewQuestionSetRepository(memory.NewStaticQuestionSetLoader(map[string][]domain.QuestionRow{
		"set-1": sampleRows(),
	}), 0)
	service := newTestService(sets)

	created, err := service.CreateAssessment(ctx, domain.CreateRequest{QuestionSetID: "set-1"})
	if err != nil {
		t.Fatalf("create from set failed: %v", err)
	}
	if created.QuestionCount != 2 || created.AssessmentName != "Assessment" {
		t.Fatalf("unexpected create result %+v", created)
	}
	if _, err := service.CreateAssessment(ctx, domain.CreateRequest{QuestionSetID: "missing"}); !errors.Is(err, domain.ErrQuestionSetNotFound) {
		t.Fatalf("expected question set not found, got %v", err)
	}
}

func TestConcurrentSubmitsNeverDoubleSpend(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)
	created, joined := createAndJoin(t, service, "Alice")

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Submit(ctx, created.StudentCode, joined.StudentID, domain.Submission{
				Bets: map[domain.OptionID]int{domain.OptionC: 600},
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// The first 600 loss leaves 400, so every later bet is rejected.
	if succeeded != 1 {
		t.Fatalf("expected exactly one settled bet, got %d", succeeded)
	}
	report, err := service.StudentReport(ctx, created.StudentCode, joined.StudentID)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if report.FinalCoins != 400 || len(report.Responses) != 1 {
		t.Fatalf("unexpected state after concurrent submits: coins=%d responses=%d", report.FinalCoins, len(report.Responses))
	}
}

func TestSubmitNotifiesObserver(t *testing.T) {
	ctx := context.Background()
	observer := &recordingObserver{}
	service := app.NewAssessmentService(app.NewRegistry(memory.NewAssessmentStore()), app.WithObserver(observer))
	created, joined := createAndJoin(t, service, "Alice")

	if _, err := service.Submit(ctx, created.StudentCode, joined.StudentID, domain.Submission{Skipped: true}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if len(observer.results) != 1 || observer.results[0].Outcome != domain.OutcomeSkipped {
		t.Fatalf("expected observer to see the skip, got %+v", observer.results)
	}
}

type recordingObserver struct {
	results []domain.SubmitResult
}

func (o *recordingObserver) ObserveSettlement(result domain.SubmitResult) {
	o.results = append(o.results, result)
}

func newTestService(sets app.QuestionSetRepository) *app.AssessmentService {
	registry := app.NewRegistry(memory.NewAssessmentStore())
	if sets == nil {
		return app.NewAssessmentService(registry)
	}
	return app.NewAssessmentService(registry, app.WithQuestionSets(sets))
}

func createAndJoin(t *testing.T, service *app.AssessmentService, name string) (domain.CreateResult, domain.JoinResult) {
	t.Helper()
	ctx := context.Background()
	created, err := service.CreateAssessment(ctx, domain.CreateRequest{Name: "Quiz", Questions: sampleRows()})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	joined, err := service.Join(ctx, created.StudentCode, name)
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	return created, joined
}

func sampleRows() []domain.QuestionRow {
	return []domain.QuestionRow{
		{
			Question:       "1/2 + 1/4?",
			OptionA:        "2/6",
			OptionB:        "3/4",
			OptionC:        "1/8",
			OptionD:        "1",
			CorrectAnswers: []domain.OptionID{domain.OptionB},
		},
		{
			Question:       "1/3 of 9?",
			OptionA:        "3",
			OptionB:        "6",
			OptionC:        "9",
			OptionD:        "1",
			CorrectAnswers: []domain.OptionID{domain.OptionA},
		},
	}
}
