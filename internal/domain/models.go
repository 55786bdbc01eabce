package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OptionID names one of the four answer slots of a question.
type OptionID string

const (
	OptionA OptionID = "A"
	OptionB OptionID = "B"
	OptionC OptionID = "C"
	OptionD OptionID = "D"
)

// OptionIDs lists the option slots in display (and settlement) order.
var OptionIDs = []OptionID{OptionA, OptionB, OptionC, OptionD}

// ParseOptionID normalises s and checks it names a known option.
func ParseOptionID(s string) (OptionID, error) {
	id := OptionID(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range OptionIDs {
		if id == known {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown option %q", s)
}

// ParseOptionList parses a comma separated list such as "A, c".
func ParseOptionList(raw string) ([]OptionID, error) {
	var out []OptionID
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := ParseOptionID(part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// Option is one answer choice of a question.
type Option struct {
	ID    OptionID `json:"id"`
	Text  string   `json:"text"`
	Image string   `json:"image,omitempty"`
}

// Question is an immutable multiple-choice question with four options.
type Question struct {
	ID              int        `json:"id"`
	Text            string     `json:"text"`
	Image           string     `json:"questionImage,omitempty"`
	Options         []Option   `json:"options"`
	CorrectAnswers  []OptionID `json:"correctAnswers"`
	MultipleCorrect bool       `json:"multipleCorrect"`
}

// IsCorrect reports whether id is in the question's correct-answer set.
func (q Question) IsCorrect(id OptionID) bool {
	for _, c := range q.CorrectAnswers {
		if c == id {
			return true
		}
	}
	return false
}

// QuestionRow is a validated upload row as produced by the upload collaborator.
type QuestionRow struct {
	Question        string     `json:"question"`
	QuestionImage   string     `json:"question_image,omitempty"`
	OptionA         string     `json:"option_a"`
	OptionAImage    string     `json:"option_a_image,omitempty"`
	OptionB         string     `json:"option_b"`
	OptionBImage    string     `json:"option_b_image,omitempty"`
	OptionC         string     `json:"option_c"`
	OptionCImage    string     `json:"option_c_image,omitempty"`
	OptionD         string     `json:"option_d"`
	OptionDImage    string     `json:"option_d_image,omitempty"`
	CorrectAnswers  []OptionID `json:"correct_answers"`
	MultipleCorrect bool       `json:"multiple_correct"`
}

// UnmarshalJSON accepts both the parsed shape (correct_answers list, boolean
// multiple_correct) and the raw spreadsheet shape (correct_answer "A,C",
// multiple_correct "yes"/"no").
func (r *QuestionRow) UnmarshalJSON(data []byte) error {
	type plain QuestionRow
	var aux struct {
		plain
		CorrectAnswers  json.RawMessage `json:"correct_answers"`
		CorrectAnswer   json.RawMessage `json:"correct_answer"`
		MultipleCorrect json.RawMessage `json:"multiple_correct"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = QuestionRow(aux.plain)

	raw := aux.CorrectAnswers
	if len(raw) == 0 || string(raw) == "null" {
		raw = aux.CorrectAnswer
	}
	answers, err := decodeAnswers(raw)
	if err != nil {
		return err
	}
	r.CorrectAnswers = answers

	multiple, err := decodeYesNo(aux.MultipleCorrect)
	if err != nil {
		return err
	}
	r.MultipleCorrect = multiple
	return nil
}

func decodeAnswers(raw json.RawMessage) ([]OptionID, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return ParseOptionList(strings.Join(list, ","))
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("correct answers: %w", err)
	}
	return ParseOptionList(single)
}

func decodeYesNo(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("multiple_correct: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true":
		return true, nil
	case "no", "false", "":
		return false, nil
	}
	return false, fmt.Errorf("multiple_correct: unexpected value %q", s)
}

// ToQuestion converts a row into the question stored at 1-based position id.
func (r QuestionRow) ToQuestion(id int) Question {
	answers := make([]OptionID, len(r.CorrectAnswers))
	copy(answers, r.CorrectAnswers)
	return Question{
		ID:    id,
		Text:  r.Question,
		Image: r.QuestionImage,
		Options: []Option{
			{ID: OptionA, Text: r.OptionA, Image: r.OptionAImage},
			{ID: OptionB, Text: r.OptionB, Image: r.OptionBImage},
			{ID: OptionC, Text: r.OptionC, Image: r.OptionCImage},
			{ID: OptionD, Text: r.OptionD, Image: r.OptionDImage},
		},
		CorrectAnswers:  answers,
		MultipleCorrect: r.MultipleCorrect,
	}
}

// Settings are the per-assessment game parameters.
type Settings struct {
	InitialCoins  int     `json:"initialCoins"`
	WinMultiplier float64 `json:"winMultiplier"`
	TotalDuration int     `json:"totalDuration"` // seconds
	TimerSeconds  int     `json:"timerSeconds,omitempty"`
}

// Outcome classifies a recorded response.
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeNoAnswer Outcome = "no_answer"
	OutcomeBet      Outcome = "bet"
)

// ConfidenceLevel is derived from the share of the balance staked.
type ConfidenceLevel string

const (
	ConfidenceNone ConfidenceLevel = "none"
	ConfidenceLow  ConfidenceLevel = "low"
	ConfidenceHigh ConfidenceLevel = "high"
)

// BetResult is the settlement of a single positive wager.
type BetResult struct {
	Amount  int  `json:"amount"`
	Correct bool `json:"correct"`
	Payout  int  `json:"payout,omitempty"`
	Profit  int  `json:"profit,omitempty"`
	Lost    int  `json:"lost,omitempty"`
}

// Response is the append-only record of one answered, skipped or unanswered question.
type Response struct {
	QuestionID        int                    `json:"questionId"`
	QuestionText      string                 `json:"questionText"`
	TimeTaken         int                    `json:"timeTaken"`
	CorrectAnswers    []OptionID             `json:"correctAnswers"`
	Outcome           Outcome                `json:"outcome"`
	Skipped           bool                   `json:"skipped"`
	NoAnswer          bool                   `json:"noAnswer"`
	Penalty           int                    `json:"penalty,omitempty"`
	Bets              map[OptionID]int       `json:"bets,omitempty"`
	BetResults        map[OptionID]BetResult `json:"betResults,omitempty"`
	CoinsReturned     int                    `json:"coinsReturned"`
	CoinsLost         int                    `json:"coinsLost"`
	NetChange         int                    `json:"netChange"`
	CoinsAfter        int                    `json:"coinsAfter"`
	Correct           bool                   `json:"correct"`
	ConfidenceLevel   ConfidenceLevel        `json:"confidenceLevel"`
	ConfidencePercent float64                `json:"confidencePercent"`
}

// IsBet reports whether the response settled a wager (as opposed to a skip).
func (r Response) IsBet() bool {
	return r.Outcome == OutcomeBet
}

// StudentSession is the per-student game state.
type StudentSession struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Coins                int        `json:"coins"`
	CurrentQuestionIndex int        `json:"currentQuestion"`
	RemainingTime        int        `json:"remainingTime"` // seconds
	Responses            []Response `json:"responses"`
	JoinedAt             time.Time  `json:"joinedAt"`
}

// Clone returns a copy whose response log can be appended to without
// affecting the receiver.
func (s StudentSession) Clone() StudentSession {
	out := s
	out.Responses = s.Responses[:len(s.Responses):len(s.Responses)]
	return out
}

// SessionState is the explicit lifecycle tag of a student session.
type SessionState string

const (
	StateInProgress SessionState = "in_progress"
	StateComplete   SessionState = "complete"
)

// CompletionReason explains why a session is complete.
type CompletionReason string

const (
	ReasonTimeUp   CompletionReason = "time_up"
	ReasonNoCoins  CompletionReason = "no_coins"
	ReasonFinished CompletionReason = "finished"
)

// Progress is the derived lifecycle state of a session.
type Progress struct {
	State  SessionState
	Reason CompletionReason
}

// Complete reports whether no more questions can be played.
func (p Progress) Complete() bool {
	return p.State == StateComplete
}

// Progress is the single completion predicate shared by every call site.
func (s StudentSession) Progress(totalQuestions int) Progress {
	switch {
	case s.RemainingTime <= 0:
		return Progress{State: StateComplete, Reason: ReasonTimeUp}
	case s.Coins <= 0:
		return Progress{State: StateComplete, Reason: ReasonNoCoins}
	case s.CurrentQuestionIndex >= totalQuestions:
		return Progress{State: StateComplete, Reason: ReasonFinished}
	}
	return Progress{State: StateInProgress}
}

// Submission is a validated answer request for the current question.
type Submission struct {
	Bets      map[OptionID]int
	Skipped   bool
	NoAnswer  bool
	TimeTaken int // seconds, client reported
}

// ParseBets converts a raw wager map, rejecting unknown options, negative
// amounts and keys that name the same option twice ("a" and "A").
func ParseBets(raw map[string]int) (map[OptionID]int, error) {
	bets := make(map[OptionID]int, len(raw))
	for key, amount := range raw {
		id, err := ParseOptionID(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBet, err)
		}
		if amount < 0 {
			return nil, fmt.Errorf("%w: negative amount %d on option %s", ErrInvalidBet, amount, id)
		}
		if _, dup := bets[id]; dup {
			return nil, fmt.Errorf("%w: option %s given more than once", ErrInvalidBet, id)
		}
		bets[id] = amount
	}
	return bets, nil
}

// Validate re-checks the invariants ParseBets enforces for submissions built in code.
func (s Submission) Validate() error {
	for id, amount := range s.Bets {
		if _, err := ParseOptionID(string(id)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBet, err)
		}
		if amount < 0 {
			return fmt.Errorf("%w: negative amount %d on option %s", ErrInvalidBet, amount, id)
		}
	}
	return nil
}

// Abstains reports whether the submission carries no wager.
func (s Submission) Abstains() bool {
	return s.Skipped || s.NoAnswer
}

// TotalBetWithin sums all wagers, giving up with ok=false as soon as the
// running total passes limit. The sum never exceeds limit, so it cannot wrap.
func (s Submission) TotalBetWithin(limit int) (total int, ok bool) {
	for _, amount := range s.Bets {
		if amount > limit-total {
			return 0, false
		}
		total += amount
	}
	return total, true
}

// SubmitResult is the outcome of a settlement as returned to clients.
type SubmitResult struct {
	*Response
	TimeUp         bool `json:"timeUp,omitempty"`
	NewTotal       int  `json:"newTotal"`
	IsLastQuestion bool `json:"isLastQuestion"`
	RemainingTime  int  `json:"remainingTime"`
}
