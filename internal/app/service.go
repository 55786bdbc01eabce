package app

import (
	"context"
	"fmt"

	"betting-assessment-service/internal/domain"
	"betting-assessment-service/internal/report"
	"go.uber.org/zap"
)

// QuestionSetRepository loads previously imported question sets (from cache/backing store).
type QuestionSetRepository interface {
	GetQuestionSet(ctx context.Context, id string) ([]domain.QuestionRow, error)
}

// SettlementObserver is notified after every committed settlement.
type SettlementObserver interface {
	ObserveSettlement(result domain.SubmitResult)
}

// AssessmentService contains the assessment use cases consumed by transport.
type AssessmentService struct {
	registry     *Registry
	questionSets QuestionSetRepository
	observer     SettlementObserver
	log          *zap.Logger
}

// ServiceOption customises an AssessmentService.
type ServiceOption func(*AssessmentService)

// WithQuestionSets enables creating assessments from stored question sets.
func WithQuestionSets(repo QuestionSetRepository) ServiceOption {
	return func(s *AssessmentService) { s.questionSets = repo }
}

// WithObserver registers a settlement observer (metrics).
func WithObserver(o SettlementObserver) ServiceOption {
	return func(s *AssessmentService) { s.observer = o }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *AssessmentService) { s.log = l }
}

func NewAssessmentService(registry *Registry, opts ...ServiceOption) *AssessmentService {
	s := &AssessmentService{registry: registry, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAssessment builds a new assessment from inline rows or a stored question set.
func (s *AssessmentService) CreateAssessment(ctx context.Context, req domain.CreateRequest) (domain.CreateResult, error) {
	if len(req.Questions) == 0 && req.QuestionSetID != "" {
		if s.questionSets == nil {
			return domain.CreateResult{}, domain.ErrPersistenceDisabled
		}
		rows, err := s.questionSets.GetQuestionSet(ctx, req.QuestionSetID)
		if err != nil {
			return domain.CreateResult{}, fmt.Errorf("load question set %s: %w", req.QuestionSetID, err)
		}
		req.Questions = rows
	}

	a, err := s.registry.Create(ctx, req)
	if err != nil {
		return domain.CreateResult{}, err
	}
	s.log.Info("assessment created",
		zap.String("assessment_id", a.ID),
		zap.String("student_code", a.StudentCode),
		zap.Int("questions", a.Bank.Len()),
	)
	return domain.CreateResult{
		StudentCode:    a.StudentCode,
		TeacherCode:    a.TeacherCode,
		AssessmentName: a.Name,
		QuestionCount:  a.Bank.Len(),
		InitialCoins:   a.Settings.InitialCoins,
		WinMultiplier:  a.Settings.WinMultiplier,
		TimerSeconds:   a.Settings.TimerSeconds,
		TotalDuration:  a.Settings.TotalDuration,
	}, nil
}

// Join registers a student, or returns the existing session on rejoin.
func (s *AssessmentService) Join(_ context.Context, code, name string) (domain.JoinResult, error) {
	a, err := s.registry.Resolve(code)
	if err != nil {
		return domain.JoinResult{}, err
	}
	student, rejoined, err := s.registry.JoinStudent(a, code, name)
	if err != nil {
		return domain.JoinResult{}, err
	}
	snap := student.Snapshot()
	s.log.Info("student joined",
		zap.String("assessment_id", a.ID),
		zap.String("student_id", snap.ID),
		zap.Bool("rejoined", rejoined),
	)
	return domain.JoinResult{
		StudentID:       snap.ID,
		AssessmentName:  a.Name,
		QuestionCount:   a.Bank.Len(),
		InitialCoins:    a.Settings.InitialCoins,
		WinMultiplier:   a.Settings.WinMultiplier,
		TotalDuration:   a.Settings.TotalDuration,
		RemainingTime:   snap.RemainingTime,
		CurrentQuestion: snap.CurrentQuestionIndex,
		CurrentCoins:    snap.Coins,
		Rejoined:        rejoined,
	}, nil
}

// CheckCode tells the caller which role the code grants.
func (s *AssessmentService) CheckCode(_ context.Context, code string) (domain.CodeInfo, error) {
	a, err := s.registry.Resolve(code)
	if err != nil {
		return domain.CodeInfo{}, err
	}
	return domain.CodeInfo{
		IsTeacher:      s.registry.IsTeacherCode(a, code),
		AssessmentName: a.Name,
		QuestionCount:  a.Bank.Len(),
	}, nil
}

// CurrentQuestion is a pure read: polling never changes a session.
func (s *AssessmentService) CurrentQuestion(_ context.Context, code, studentID string) (domain.CurrentQuestion, error) {
	a, student, err := s.student(code, studentID)
	if err != nil {
		return domain.CurrentQuestion{}, err
	}
	snap := student.Snapshot()
	total := a.Bank.Len()
	if progress := snap.Progress(total); progress.Complete() {
		return domain.CurrentQuestion{
			Complete:      true,
			Reason:        progress.Reason,
			CurrentCoins:  snap.Coins,
			RemainingTime: snap.RemainingTime,
		}, nil
	}
	q, _ := a.Bank.Get(snap.CurrentQuestionIndex)
	view := domain.NewQuestionView(q)
	return domain.CurrentQuestion{
		QuestionNumber: snap.CurrentQuestionIndex + 1,
		TotalQuestions: total,
		Question:       &view,
		CurrentCoins:   snap.Coins,
		RemainingTime:  snap.RemainingTime,
	}, nil
}

// Submit settles a wager, skip or no-answer for the student's current question.
func (s *AssessmentService) Submit(_ context.Context, code, studentID string, sub domain.Submission) (domain.SubmitResult, error) {
	a, student, err := s.student(code, studentID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	result, err := student.submit(a.Bank, a.Settings, sub)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if result.TimeUp {
		s.log.Info("student ran out of time",
			zap.String("assessment_id", a.ID),
			zap.String("student_id", studentID),
		)
	}
	if s.observer != nil {
		s.observer.ObserveSettlement(result)
	}
	return result, nil
}

// StudentReport summarises one student's responses.
func (s *AssessmentService) StudentReport(_ context.Context, code, studentID string) (report.StudentReport, error) {
	a, err := s.registry.Resolve(code)
	if err != nil {
		return report.StudentReport{}, err
	}
	return report.ForStudent(a.Info(), a.Students(), studentID)
}

// TeacherReport summarises the class. Only the exact teacher code may read it.
func (s *AssessmentService) TeacherReport(_ context.Context, code string) (report.TeacherReport, error) {
	a, err := s.registry.Resolve(code)
	if err != nil {
		return report.TeacherReport{}, err
	}
	if !s.registry.IsTeacherCode(a, code) {
		return report.TeacherReport{}, domain.ErrForbidden
	}
	return report.ForTeacher(a.Info(), a.Students()), nil
}

// ActiveAssessments is the number of live assessments.
func (s *AssessmentService) ActiveAssessments() int {
	return s.registry.Count()
}

func (s *AssessmentService) student(code, studentID string) (*Assessment, *Student, error) {
	a, err := s.registry.Resolve(code)
	if err != nil {
		return nil, nil, err
	}
	student, ok := a.Student(studentID)
	if !ok {
		return nil, nil, domain.ErrStudentNotFound
	}
	return a, student, nil
}
