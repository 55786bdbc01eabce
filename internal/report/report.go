// Package report derives student and class statistics from response logs.
// Nothing here mutates a session.
package report

import (
	"math"
	"sort"
	"strconv"
	"time"

	"betting-assessment-service/internal/domain"
	"betting-assessment-service/internal/scoring"
)

const (
	needsHelpKnowledgeScore = 40
	needsHelpAbstainShare   = 0.3
	misconceptionShare      = 0.3
)

// Rank is a 1-based leaderboard position; zero means unranked and
// marshals as "-".
type Rank int

func (r Rank) MarshalJSON() ([]byte, error) {
	if r <= 0 {
		return []byte(`"-"`), nil
	}
	return []byte(strconv.Itoa(int(r))), nil
}

func (r Rank) String() string {
	if r <= 0 {
		return "-"
	}
	return strconv.Itoa(int(r))
}

// StudentReport is the per-student summary.
type StudentReport struct {
	StudentName    string            `json:"studentName"`
	AssessmentName string            `json:"assessmentName"`
	Date           time.Time         `json:"date"`
	FinalCoins     int               `json:"finalCoins"`
	InitialCoins   int               `json:"initialCoins"`
	Rank           Rank              `json:"rank"`
	TotalStudents  int               `json:"totalStudents"`
	TotalQuestions int               `json:"totalQuestions"`
	Answered       int               `json:"answered"`
	Correct        int               `json:"correct"`
	Wrong          int               `json:"wrong"`
	Skipped        int               `json:"skipped"`
	NoAnswer       int               `json:"noAnswer"`
	Accuracy       int               `json:"accuracy"`
	AvgConfidence  int               `json:"avgConfidence"`
	AvgTime        int               `json:"avgTime"`
	KnowledgeScore int               `json:"knowledgeScore"`
	Persona        scoring.Persona   `json:"persona"`
	Responses      []domain.Response `json:"responses"`
	WrongQuestions []string          `json:"wrongQuestions"`
	WinMultiplier  float64           `json:"winMultiplier"`
	TotalDuration  int               `json:"totalDuration"`
}

// ClassStats are averages over students who answered every question.
type ClassStats struct {
	TotalStudents     int `json:"totalStudents"`
	CompletedStudents int `json:"completedStudents"`
	AvgCoins          int `json:"avgCoins"`
	AvgAccuracy       int `json:"avgAccuracy"`
	AvgKnowledgeScore int `json:"avgKnowledgeScore"`
}

// StudentStats is one row of the teacher's student table.
type StudentStats struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Coins             int               `json:"coins"`
	Completed         bool              `json:"completed"`
	QuestionsAnswered int               `json:"questionsAnswered"`
	Correct           int               `json:"correct"`
	Wrong             int               `json:"wrong"`
	Skipped           int               `json:"skipped"`
	NoAnswer          int               `json:"noAnswer"`
	Accuracy          int               `json:"accuracy"`
	AvgConfidence     int               `json:"avgConfidence"`
	KnowledgeScore    int               `json:"knowledgeScore"`
	Persona           scoring.Persona   `json:"persona"`
	Responses         []domain.Response `json:"responses"`
}

// QuestionAnalysis aggregates every response recorded at one question index.
type QuestionAnalysis struct {
	QuestionNumber     int                     `json:"questionNumber"`
	QuestionText       string                  `json:"questionText"`
	CorrectAnswers     []domain.OptionID       `json:"correctAnswers"`
	Attempted          int                     `json:"attempted"`
	Correct            int                     `json:"correct"`
	Skipped            int                     `json:"skipped"`
	Accuracy           int                     `json:"accuracy"`
	CommonWrongAnswers map[domain.OptionID]int `json:"commonWrongAnswers"`
	MisconceptionAlert bool                    `json:"misconceptionAlert"`
}

// TeacherReport is the class-level summary.
type TeacherReport struct {
	AssessmentName      string             `json:"assessmentName"`
	Date                time.Time          `json:"date"`
	Settings            domain.Settings    `json:"settings"`
	ClassStats          ClassStats         `json:"classStats"`
	StudentStats        []StudentStats     `json:"studentStats"`
	QuestionAnalysis    []QuestionAnalysis `json:"questionAnalysis"`
	StudentsNeedingHelp []string           `json:"studentsNeedingHelp"`
	Questions           []domain.Question  `json:"questions"`
}

type summary struct {
	answered       int
	correct        int
	skipped        int
	noAnswer       int
	accuracy       float64
	avgConfidence  float64
	avgTime        float64
	knowledgeScore int
	completed      bool
}

func summarize(s domain.StudentSession, totalQuestions int) summary {
	var (
		out        summary
		confidence float64
		bets       int
		timeTaken  int
	)
	for _, r := range s.Responses {
		timeTaken += r.TimeTaken
		if r.Correct {
			out.correct++
		}
		switch {
		case r.Skipped:
			out.skipped++
		case r.NoAnswer:
			out.noAnswer++
		default:
			out.answered++
		}
		if r.IsBet() {
			bets++
			confidence += r.ConfidencePercent
		}
	}
	if out.answered > 0 {
		out.accuracy = float64(out.correct) / float64(out.answered) * 100
	}
	if bets > 0 {
		out.avgConfidence = confidence / float64(bets)
	}
	if n := len(s.Responses); n > 0 {
		out.avgTime = float64(timeTaken) / float64(n)
	}
	out.knowledgeScore = scoring.KnowledgeScore(s.Responses, totalQuestions)
	out.completed = len(s.Responses) == totalQuestions
	return out
}

// ForStudent builds the report of the session with the given ID.
func ForStudent(info domain.AssessmentInfo, sessions []domain.StudentSession, studentID string) (StudentReport, error) {
	total := len(info.Questions)
	subject, ok := find(sessions, studentID)
	if !ok {
		return StudentReport{}, domain.ErrStudentNotFound
	}
	sum := summarize(subject, total)

	leaderboard := completedByCoins(sessions, total)
	var rank Rank
	for i, s := range leaderboard {
		if s.ID == studentID {
			rank = Rank(i + 1)
			break
		}
	}

	wrong := make([]string, 0)
	for _, r := range subject.Responses {
		if !r.Correct {
			wrong = append(wrong, r.QuestionText)
		}
	}

	return StudentReport{
		StudentName:    subject.Name,
		AssessmentName: info.Name,
		Date:           info.CreatedAt,
		FinalCoins:     subject.Coins,
		InitialCoins:   info.Settings.InitialCoins,
		Rank:           rank,
		TotalStudents:  len(leaderboard),
		TotalQuestions: total,
		Answered:       sum.answered,
		Correct:        sum.correct,
		Wrong:          sum.answered - sum.correct,
		Skipped:        sum.skipped,
		NoAnswer:       sum.noAnswer,
		Accuracy:       round(sum.accuracy),
		AvgConfidence:  round(sum.avgConfidence),
		AvgTime:        round(sum.avgTime),
		KnowledgeScore: sum.knowledgeScore,
		Persona:        scoring.ClassifyPersona(sum.accuracy, sum.avgConfidence),
		Responses:      subject.Responses,
		WrongQuestions: wrong,
		WinMultiplier:  info.Settings.WinMultiplier,
		TotalDuration:  info.Settings.TotalDuration,
	}, nil
}

// ForTeacher builds the class report. Callers must already have checked
// the teacher code.
func ForTeacher(info domain.AssessmentInfo, sessions []domain.StudentSession) TeacherReport {
	total := len(info.Questions)

	stats := make([]StudentStats, 0, len(sessions))
	var completed, coinSum, accuracySum, knowledgeSum int
	needsHelp := make([]string, 0)
	for _, s := range sessions {
		sum := summarize(s, total)
		row := StudentStats{
			ID:                s.ID,
			Name:              s.Name,
			Coins:             s.Coins,
			Completed:         sum.completed,
			QuestionsAnswered: len(s.Responses),
			Correct:           sum.correct,
			Wrong:             sum.answered - sum.correct,
			Skipped:           sum.skipped,
			NoAnswer:          sum.noAnswer,
			Accuracy:          round(sum.accuracy),
			AvgConfidence:     round(sum.avgConfidence),
			KnowledgeScore:    sum.knowledgeScore,
			Persona:           scoring.ClassifyPersona(sum.accuracy, sum.avgConfidence),
			Responses:         s.Responses,
		}
		stats = append(stats, row)
		if !row.Completed {
			continue
		}
		completed++
		coinSum += row.Coins
		accuracySum += row.Accuracy
		knowledgeSum += row.KnowledgeScore
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Coins > stats[j].Coins })
	for _, row := range stats {
		abstained := float64(row.Skipped + row.NoAnswer)
		if row.Completed && (row.KnowledgeScore < needsHelpKnowledgeScore || abstained > float64(total)*needsHelpAbstainShare) {
			needsHelp = append(needsHelp, row.Name)
		}
	}

	class := ClassStats{TotalStudents: len(sessions), CompletedStudents: completed}
	if completed > 0 {
		class.AvgCoins = round(float64(coinSum) / float64(completed))
		class.AvgAccuracy = round(float64(accuracySum) / float64(completed))
		class.AvgKnowledgeScore = round(float64(knowledgeSum) / float64(completed))
	}

	return TeacherReport{
		AssessmentName:      info.Name,
		Date:                info.CreatedAt,
		Settings:            info.Settings,
		ClassStats:          class,
		StudentStats:        stats,
		QuestionAnalysis:    analyzeQuestions(info.Questions, sessions),
		StudentsNeedingHelp: needsHelp,
		Questions:           info.Questions,
	}
}

// analyzeQuestions walks response index i of every session. The misconception
// threshold is relative to all joined students, not only those who reached
// the question.
func analyzeQuestions(questions []domain.Question, sessions []domain.StudentSession) []QuestionAnalysis {
	threshold := int(math.Ceil(float64(len(sessions)) * misconceptionShare))
	out := make([]QuestionAnalysis, 0, len(questions))
	for idx, q := range questions {
		qa := QuestionAnalysis{
			QuestionNumber:     idx + 1,
			QuestionText:       q.Text,
			CorrectAnswers:     q.CorrectAnswers,
			CommonWrongAnswers: make(map[domain.OptionID]int),
		}
		highConfidenceWrong := 0
		for _, s := range sessions {
			if idx >= len(s.Responses) {
				continue
			}
			r := s.Responses[idx]
			if r.Correct {
				qa.Correct++
			}
			if r.IsBet() {
				qa.Attempted++
			} else {
				qa.Skipped++
			}
			for id, result := range r.BetResults {
				if !result.Correct && result.Amount > 0 {
					qa.CommonWrongAnswers[id]++
				}
			}
			if !r.Correct && r.ConfidenceLevel == domain.ConfidenceHigh {
				highConfidenceWrong++
			}
		}
		if qa.Attempted > 0 {
			qa.Accuracy = round(float64(qa.Correct) / float64(qa.Attempted) * 100)
		}
		qa.MisconceptionAlert = len(sessions) > 0 && highConfidenceWrong >= threshold
		out = append(out, qa)
	}
	return out
}

func completedByCoins(sessions []domain.StudentSession, total int) []domain.StudentSession {
	out := make([]domain.StudentSession, 0, len(sessions))
	for _, s := range sessions {
		if len(s.Responses) == total {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Coins > out[j].Coins })
	return out
}

func find(sessions []domain.StudentSession, id string) (domain.StudentSession, bool) {
	for _, s := range sessions {
		if s.ID == id {
			return s, true
		}
	}
	return domain.StudentSession{}, false
}

// round matches half-up rounding for the non-negative values reported here.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
