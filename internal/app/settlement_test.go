package app

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"betting-assessment-service/internal/domain"
)

func row(question string, correct ...domain.OptionID) domain.QuestionRow {
	return domain.QuestionRow{
		Question:        question,
		OptionA:         "a",
		OptionB:         "b",
		OptionC:         "c",
		OptionD:         "d",
		CorrectAnswers:  correct,
		MultipleCorrect: len(correct) > 1,
	}
}

func mustBank(t *testing.T, rows ...domain.QuestionRow) *domain.QuestionBank {
	t.Helper()
	bank, err := domain.NewQuestionBank(rows)
	if err != nil {
		t.Fatalf("bank: %v", err)
	}
	return bank
}

func freshSession(settings domain.Settings) domain.StudentSession {
	return domain.StudentSession{
		ID:            "s-1",
		Name:          "Ada",
		Coins:         settings.InitialCoins,
		RemainingTime: settings.TotalDuration,
		Responses:     []domain.Response{},
	}
}

func TestSettleDeductThenPay(t *testing.T) {
	bank := mustBank(t, row("q1", domain.OptionA), row("q2", domain.OptionB))
	settings := domain.Settings{InitialCoins: 1000, WinMultiplier: 2.0, TotalDuration: 120}

	next, res, err := Settle(freshSession(settings), bank, settings, domain.Submission{
		Bets:      map[domain.OptionID]int{domain.OptionA: 500, domain.OptionB: 300},
		TimeTaken: 5,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if next.Coins != 1200 || res.NewTotal != 1200 {
		t.Fatalf("expected 1200 coins, got %d/%d", next.Coins, res.NewTotal)
	}
	if res.NetChange != 200 || res.CoinsLost != 300 || res.CoinsReturned != 1000 {
		t.Fatalf("unexpected bookkeeping net=%d lost=%d returned=%d", res.NetChange, res.CoinsLost, res.CoinsReturned)
	}
	if !res.Correct || res.ConfidenceLevel != domain.ConfidenceHigh {
		t.Fatalf("unexpected verdict %+v", res.Response)
	}
	if got := res.BetResults[domain.OptionA]; got.Payout != 1000 || got.Profit != 500 {
		t.Fatalf("unexpected A result %+v", got)
	}
	if got := res.BetResults[domain.OptionB]; got.Correct || got.Lost != 300 {
		t.Fatalf("unexpected B result %+v", got)
	}
	if next.CurrentQuestionIndex != 1 || next.RemainingTime != 115 || res.IsLastQuestion {
		t.Fatalf("unexpected progress idx=%d time=%d last=%v", next.CurrentQuestionIndex, next.RemainingTime, res.IsLastQuestion)
	}
}

func TestSettleInsufficientCoinsLeavesSessionUntouched(t *testing.T) {
	bank := mustBank(t, row("q1", domain.OptionA))
	settings := domain.Settings{InitialCoins: 100, WinMultiplier: 2.0, TotalDuration: 60}
	session := freshSession(settings)

	next, _, err := Settle(session, bank, settings, domain.Submission{
		Bets:      map[domain.OptionID]int{domain.OptionA: 60, domain.OptionC: 41},
		TimeTaken: 10,
	})
	if !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Fatalf("expected ErrInsufficientCoins, got %v", err)
	}
	if !reflect.DeepEqual(next, session) {
		t.Fatalf("session changed on rejected submit: %+v", next)
	}
}

func TestSettleSkipAndNoAnswer(t *testing.T) {
	bank := mustBank(t, row("q1", domain.OptionA), row("q2", domain.OptionA), row("q3", domain.OptionA))
	settings := domain.Settings{InitialCoins: 1000, WinMultiplier: 2.0, TotalDuration: 90}
	session := freshSession(settings)

	session, res, err := Settle(session, bank, settings, domain.Submission{Skipped: true, TimeTaken: 3})
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if res.Penalty != 50 || session.Coins != 950 || res.Outcome != domain.OutcomeSkipped {
		t.Fatalf("unexpected skip result penalty=%d coins=%d outcome=%s", res.Penalty, session.Coins, res.Outcome)
	}
	if res.ConfidenceLevel != domain.ConfidenceNone || res.Correct {
		t.Fatalf("skip must be a non-correct, no-confidence response")
	}

	// Wagers on an abstaining submission are ignored.
	session, res, err = Settle(session, bank, settings, domain.Submission{
		NoAnswer: true,
		Bets:     map[domain.OptionID]int{domain.OptionA: 900},
	})
	if err != nil {
		t.Fatalf("no answer: %v", err)
	}
	if res.Outcome != domain.OutcomeNoAnswer || !res.NoAnswer || res.Skipped {
		t.Fatalf("unexpected no-answer flags %+v", res.Response)
	}
	if res.Bets != nil || session.Coins != 950-50 {
		t.Fatalf("expected bets ignored and 50 penalty, coins=%d bets=%v", session.Coins, res.Bets)
	}
}

func TestSettleTimeUpProcessesNoBet(t *testing.T) {
	bank := mustBank(t, row("q1", domain.OptionA), row("q2", domain.OptionA))
	settings := domain.Settings{InitialCoins: 1000, WinMultiplier: 2.0, TotalDuration: 30}

	next, res, err := Settle(freshSession(settings), bank, settings, domain.Submission{
		Bets:      map[domain.OptionID]int{domain.OptionA: 500},
		TimeTaken: 45,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !res.TimeUp || !res.IsLastQuestion || res.Response != nil {
		t.Fatalf("expected bare time-up result, got %+v", res)
	}
	if next.Coins != 1000 || next.RemainingTime != 0 || next.CurrentQuestionIndex != 2 || len(next.Responses) != 0 {
		t.Fatalf("unexpected session after time up %+v", next)
	}
	if p := next.Progress(bank.Len()); p.Reason != domain.ReasonTimeUp {
		t.Fatalf("expected time_up, got %s", p.Reason)
	}

	if _, _, err := Settle(next, bank, settings, domain.Submission{Skipped: true}); !errors.Is(err, domain.ErrNoMoreQuestions) {
		t.Fatalf("expected ErrNoMoreQuestions after time up, got %v", err)
	}
}

func TestSettleNegativeTimeIsClamped(t *testing.T) {
	bank := mustBank(t, row("q1", domain.OptionA), row("q2", domain.OptionA))
	settings := domain.Settings{InitialCoins: 1000, WinMultiplier: 2.0, TotalDuration: 30}

	next, res, err := Settle(freshSession(settings), bank, settings, domain.Submission{Skipped: true, TimeTaken: -50})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if next.RemainingTime != 30 || res.TimeTaken != 0 {
		t.Fatalf("expected clamp to zero elapsed, remaining=%d taken=%d", next.RemainingTime, res.TimeTaken)
	}
}

func TestSettleBrokeStudentIsForcedComplete(t *testing.T) {
	bank := mustBank(t, row("q1", domain.OptionA), row("q2", domain.OptionA), row("q3", domain.OptionA))
	settings := domain.Settings{InitialCoins: 200, WinMultiplier: 2.0, TotalDuration: 90}

	next, res, err := Settle(freshSession(settings), bank, settings, domain.Submission{
		Bets: map[domain.OptionID]int{domain.OptionD: 200},
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if next.Coins != 0 || next.CurrentQuestionIndex != 3 || !res.IsLastQuestion {
		t.Fatalf("expected forced completion, coins=%d idx=%d last=%v", next.Coins, next.CurrentQuestionIndex, res.IsLastQuestion)
	}
	if p := next.Progress(bank.Len()); p.Reason != domain.ReasonNoCoins {
		t.Fatalf("expected no_coins, got %s", p.Reason)
	}
}

func TestSettleInvalidBet(t *testing.T) {
	bank := mustBank(t, row("q1", domain.OptionA))
	settings := domain.Settings{InitialCoins: 100, WinMultiplier: 2.0, TotalDuration: 30}

	_, _, err := Settle(freshSession(settings), bank, settings, domain.Submission{
		Bets: map[domain.OptionID]int{"E": 10},
	})
	if !errors.Is(err, domain.ErrInvalidBet) || !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid bet, got %v", err)
	}
}

func TestSettleHostileWagersKeepCoinsNonNegative(t *testing.T) {
	bank := mustBank(t, row("q1", domain.OptionC), row("q2", domain.OptionA))
	settings := domain.Settings{InitialCoins: 1000, WinMultiplier: 2.0, TotalDuration: 60}

	cases := []struct {
		name string
		bets map[domain.OptionID]int
	}{
		{"wrapping total", map[domain.OptionID]int{domain.OptionA: math.MaxInt, domain.OptionB: math.MaxInt - 498, domain.OptionC: 500}},
		{"two max stakes", map[domain.OptionID]int{domain.OptionA: math.MaxInt, domain.OptionC: math.MaxInt}},
		{"single stake above balance", map[domain.OptionID]int{domain.OptionC: 1001}},
		{"sum one over balance", map[domain.OptionID]int{domain.OptionA: 500, domain.OptionC: 501}},
	}
	for _, tc := range cases {
		session := freshSession(settings)
		next, _, err := Settle(session, bank, settings, domain.Submission{Bets: tc.bets, TimeTaken: 1})
		if !errors.Is(err, domain.ErrInsufficientCoins) {
			t.Fatalf("%s: expected insufficient coins, got %v", tc.name, err)
		}
		if next.Coins != 1000 || next.CurrentQuestionIndex != 0 || next.RemainingTime != 60 {
			t.Fatalf("%s: rejected bet must leave session untouched, got %+v", tc.name, next)
		}
	}
}

func TestSettleExtremeMultiplierSaturates(t *testing.T) {
	bank := mustBank(t, row("q1", domain.OptionA), row("q2", domain.OptionA))
	settings := domain.Settings{InitialCoins: 1000, WinMultiplier: 1e19, TotalDuration: 60}

	next, res, err := Settle(freshSession(settings), bank, settings, domain.Submission{
		Bets: map[domain.OptionID]int{domain.OptionA: 1000},
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if next.Coins != math.MaxInt || res.NewTotal < 0 || res.CoinsReturned != math.MaxInt {
		t.Fatalf("expected saturated balance, got coins=%d returned=%d", next.Coins, res.CoinsReturned)
	}
}

func TestSettleTwoQuestionScenario(t *testing.T) {
	bank := mustBank(t, row("q1", domain.OptionB), row("q2", domain.OptionA))
	settings := domain.Settings{InitialCoins: 1000, WinMultiplier: 1.5, TotalDuration: 60}
	session := freshSession(settings)

	session, _, err := Settle(session, bank, settings, domain.Submission{Bets: map[domain.OptionID]int{domain.OptionA: 100}})
	if err != nil {
		t.Fatalf("q1: %v", err)
	}
	if session.Coins != 900 {
		t.Fatalf("expected 900 after losing bet, got %d", session.Coins)
	}
	session, res, err := Settle(session, bank, settings, domain.Submission{Skipped: true})
	if err != nil {
		t.Fatalf("q2: %v", err)
	}
	if session.Coins != 850 || !res.IsLastQuestion {
		t.Fatalf("expected 850 and last question, got %d last=%v", session.Coins, res.IsLastQuestion)
	}
	if len(session.Responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(session.Responses))
	}
}

func TestSettleMultipleCorrectFloorsPayout(t *testing.T) {
	bank := mustBank(t, row("q1", domain.OptionA, domain.OptionC))
	settings := domain.Settings{InitialCoins: 10, WinMultiplier: 1.5, TotalDuration: 30}

	next, res, err := Settle(freshSession(settings), bank, settings, domain.Submission{
		Bets: map[domain.OptionID]int{domain.OptionA: 3, domain.OptionC: 1},
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	// 10 - 4 + floor(4.5) + floor(1.5)
	if next.Coins != 11 || res.CoinsReturned != 5 || res.CoinsLost != 0 {
		t.Fatalf("unexpected floors coins=%d returned=%d", next.Coins, res.CoinsReturned)
	}
}
