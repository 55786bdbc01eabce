package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseBetsRejectsUnknownAndNegative(t *testing.T) {
	bets, err := ParseBets(map[string]int{"a": 100, "B": 50})
	if err != nil {
		t.Fatalf("parse bets: %v", err)
	}
	if bets[OptionA] != 100 || bets[OptionB] != 50 {
		t.Fatalf("unexpected bets %+v", bets)
	}

	if _, err := ParseBets(map[string]int{"E": 10}); !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("expected invalid bet for unknown option, got %v", err)
	}
	if _, err := ParseBets(map[string]int{"A": -1}); !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("expected invalid bet for negative amount, got %v", err)
	}
	if !errors.Is(ErrInvalidBet, ErrInvalidInput) {
		t.Fatalf("expected invalid bet to be an invalid input error")
	}
}

func TestParseBetsRejectsDuplicateOptions(t *testing.T) {
	_, err := ParseBets(map[string]int{"a": 100, "A": 200})
	if !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("expected invalid bet for keys naming the same option, got %v", err)
	}
	_, err = ParseBets(map[string]int{" c": math.MaxInt, "C": math.MaxInt})
	if !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("expected invalid bet for duplicate huge stakes, got %v", err)
	}
}

func TestTotalBetWithin(t *testing.T) {
	cases := []struct {
		name  string
		bets  map[OptionID]int
		limit int
		total int
		ok    bool
	}{
		{"exact balance", map[OptionID]int{OptionA: 600, OptionB: 400}, 1000, 1000, true},
		{"over balance", map[OptionID]int{OptionA: 600, OptionB: 401}, 1000, 0, false},
		{"wrapping sum", map[OptionID]int{OptionA: math.MaxInt, OptionB: math.MaxInt}, 1000, 0, false},
		{"empty", nil, 1000, 0, true},
	}
	for _, tc := range cases {
		total, ok := Submission{Bets: tc.bets}.TotalBetWithin(tc.limit)
		if total != tc.total || ok != tc.ok {
			t.Fatalf("%s: got (%d, %v), want (%d, %v)", tc.name, total, ok, tc.total, tc.ok)
		}
	}
}

func TestQuestionRowAcceptsSpreadsheetShape(t *testing.T) {
	var row QuestionRow
	raw := `{"question":"Primary colours?","option_a":"Red","option_b":"Green","option_c":"Blue","option_d":"Pink","correct_answer":"a, c","multiple_correct":"yes"}`
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(row.CorrectAnswers) != 2 || row.CorrectAnswers[0] != OptionA || row.CorrectAnswers[1] != OptionC {
		t.Fatalf("unexpected answers %+v", row.CorrectAnswers)
	}
	if !row.MultipleCorrect || row.OptionC != "Blue" {
		t.Fatalf("unexpected row %+v", row)
	}

	var parsed QuestionRow
	raw = `{"question":"1+1?","option_a":"1","option_b":"2","option_c":"3","option_d":"4","correct_answers":["B"],"multiple_correct":false}`
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Fatalf("unmarshal parsed shape: %v", err)
	}
	if len(parsed.CorrectAnswers) != 1 || parsed.CorrectAnswers[0] != OptionB || parsed.MultipleCorrect {
		t.Fatalf("unexpected parsed row %+v", parsed)
	}
}

func TestProgressReasons(t *testing.T) {
	cases := []struct {
		name    string
		session StudentSession
		want    Progress
	}{
		{"in progress", StudentSession{Coins: 10, RemainingTime: 5, CurrentQuestionIndex: 1}, Progress{State: StateInProgress}},
		{"time up wins", StudentSession{Coins: 0, RemainingTime: 0, CurrentQuestionIndex: 3}, Progress{State: StateComplete, Reason: ReasonTimeUp}},
		{"broke", StudentSession{Coins: 0, RemainingTime: 5, CurrentQuestionIndex: 3}, Progress{State: StateComplete, Reason: ReasonNoCoins}},
		{"finished", StudentSession{Coins: 5, RemainingTime: 5, CurrentQuestionIndex: 3}, Progress{State: StateComplete, Reason: ReasonFinished}},
	}
	for _, tc := range cases {
		if got := tc.session.Progress(3); got != tc.want {
			t.Fatalf("%s: expected %+v, got %+v", tc.name, tc.want, got)
		}
	}
}

func TestCloneDoesNotShareAppends(t *testing.T) {
	base := StudentSession{Responses: make([]Response, 1, 4)}
	clone := base.Clone()
	clone.Responses = append(clone.Responses, Response{QuestionID: 2})
	extended := base.Responses[:2]
	if extended[1].QuestionID == 2 {
		t.Fatalf("clone append leaked into original backing array")
	}
}
