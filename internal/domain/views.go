package domain

import "time"

// QuestionView is a question as shown to students; correct answers are withheld.
type QuestionView struct {
	ID              int      `json:"id"`
	Text            string   `json:"text"`
	Image           string   `json:"questionImage,omitempty"`
	Options         []Option `json:"options"`
	MultipleCorrect bool     `json:"multipleCorrect"`
}

// NewQuestionView strips the answer key from q.
func NewQuestionView(q Question) QuestionView {
	options := make([]Option, len(q.Options))
	copy(options, q.Options)
	return QuestionView{
		ID:              q.ID,
		Text:            q.Text,
		Image:           q.Image,
		Options:         options,
		MultipleCorrect: q.MultipleCorrect,
	}
}

// CurrentQuestion answers a student's "what now?" poll.
type CurrentQuestion struct {
	Complete       bool             `json:"complete,omitempty"`
	Reason         CompletionReason `json:"reason,omitempty"`
	QuestionNumber int              `json:"questionNumber,omitempty"`
	TotalQuestions int              `json:"totalQuestions,omitempty"`
	Question       *QuestionView    `json:"question,omitempty"`
	CurrentCoins   int              `json:"currentCoins"`
	RemainingTime  int              `json:"remainingTime"`
}

// CreateRequest describes a new assessment.
type CreateRequest struct {
	Name          string        `json:"name"`
	Questions     []QuestionRow `json:"questions"`
	QuestionSetID string        `json:"questionSetId"`
	InitialCoins  int           `json:"initialCoins"`
	WinMultiplier float64       `json:"winMultiplier"`
	TimerSeconds  int           `json:"timerSeconds"`
	TotalDuration int           `json:"totalDuration"`
	StudentCode   string        `json:"studentCode"`
	TeacherCode   string        `json:"teacherCode"`
}

// CreateResult is returned to the teacher after creating an assessment.
type CreateResult struct {
	StudentCode    string  `json:"studentCode"`
	TeacherCode    string  `json:"teacherCode"`
	AssessmentName string  `json:"assessmentName"`
	QuestionCount  int     `json:"questionCount"`
	InitialCoins   int     `json:"initialCoins"`
	WinMultiplier  float64 `json:"winMultiplier"`
	TimerSeconds   int     `json:"timerSeconds"`
	TotalDuration  int     `json:"totalDuration"`
}

// JoinResult is returned to a student after joining (or rejoining).
type JoinResult struct {
	StudentID       string  `json:"studentId"`
	AssessmentName  string  `json:"assessmentName"`
	QuestionCount   int     `json:"questionCount"`
	InitialCoins    int     `json:"initialCoins"`
	WinMultiplier   float64 `json:"winMultiplier"`
	TotalDuration   int     `json:"totalDuration"`
	RemainingTime   int     `json:"remainingTime"`
	CurrentQuestion int     `json:"currentQuestion"`
	CurrentCoins    int     `json:"currentCoins"`
	Rejoined        bool    `json:"rejoined"`
}

// CodeInfo tells a client which role a code grants.
type CodeInfo struct {
	IsTeacher      bool   `json:"isTeacher"`
	AssessmentName string `json:"assessmentName"`
	QuestionCount  int    `json:"questionCount"`
}

// AssessmentInfo is the read-only header shared by reports.
type AssessmentInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	StudentCode string     `json:"studentCode"`
	CreatedAt   time.Time  `json:"createdAt"`
	Settings    Settings   `json:"settings"`
	Questions   []Question `json:"questions"`
}

// ImportedSet identifies a question set persisted by a bulk import.
type ImportedSet struct {
	ID          string  `json:"questionSetId"`
	QuestionIDs []int64 `json:"inserted"`
}
