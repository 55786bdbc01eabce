package app

import (
	"betting-assessment-service/internal/domain"
	"betting-assessment-service/internal/scoring"
)

// Settle resolves a submission for the session's current question.
//
// Settle never touches its input: it works on a clone and returns the session
// to commit. When err != nil the caller must keep the session it already has.
func Settle(session domain.StudentSession, bank *domain.QuestionBank, settings domain.Settings, sub domain.Submission) (domain.StudentSession, domain.SubmitResult, error) {
	total := bank.Len()
	if session.Progress(total).Complete() {
		return session, domain.SubmitResult{}, domain.ErrNoMoreQuestions
	}
	question, ok := bank.Get(session.CurrentQuestionIndex)
	if !ok {
		return session, domain.SubmitResult{}, domain.ErrNoMoreQuestions
	}
	if err := sub.Validate(); err != nil {
		return session, domain.SubmitResult{}, err
	}

	next := session.Clone()
	elapsed := max(0, sub.TimeTaken)
	next.RemainingTime = max(0, next.RemainingTime-elapsed)

	if next.RemainingTime == 0 {
		// Time ran out while answering; whatever was wagered is not processed.
		next.CurrentQuestionIndex = total
		return next, domain.SubmitResult{
			TimeUp:         true,
			NewTotal:       next.Coins,
			IsLastQuestion: true,
			RemainingTime:  0,
		}, nil
	}

	response := domain.Response{
		QuestionID:     question.ID,
		QuestionText:   question.Text,
		TimeTaken:      elapsed,
		CorrectAnswers: bank.CorrectAnswers(session.CurrentQuestionIndex),
	}

	if sub.Abstains() {
		settleAbstention(&next, &response, sub)
	} else if err := settleBets(&next, &response, question, settings.WinMultiplier, sub); err != nil {
		return session, domain.SubmitResult{}, err
	}

	next.Responses = append(next.Responses, response)
	next.CurrentQuestionIndex++

	progress := next.Progress(total)
	if progress.Reason == domain.ReasonNoCoins {
		next.CurrentQuestionIndex = total
	}

	return next, domain.SubmitResult{
		Response:       &response,
		NewTotal:       next.Coins,
		IsLastQuestion: progress.Complete(),
		RemainingTime:  next.RemainingTime,
	}, nil
}

func settleAbstention(next *domain.StudentSession, response *domain.Response, sub domain.Submission) {
	penalty := scoring.SkipPenalty(next.Coins)
	next.Coins = max(0, next.Coins-penalty)

	response.Outcome = domain.OutcomeNoAnswer
	if sub.Skipped {
		response.Outcome = domain.OutcomeSkipped
	}
	response.Skipped = sub.Skipped
	response.NoAnswer = !sub.Skipped
	response.Penalty = penalty
	response.NetChange = -penalty
	response.CoinsAfter = next.Coins
	response.Correct = false
	response.ConfidenceLevel = domain.ConfidenceNone
}

// settleBets applies the deduct-then-pay model: every stake leaves the balance
// first, then winning options pay floor(stake * multiplier) back.
func settleBets(next *domain.StudentSession, response *domain.Response, question domain.Question, multiplier float64, sub domain.Submission) error {
	totalBet, ok := sub.TotalBetWithin(next.Coins)
	if !ok {
		return domain.ErrInsufficientCoins
	}

	before := next.Coins
	confidence := scoring.ConfidencePercent(totalBet, before)

	bets := make(map[domain.OptionID]int, len(sub.Bets))
	results := make(map[domain.OptionID]domain.BetResult, len(sub.Bets))
	returned, lost := 0, 0

	next.Coins -= totalBet
	for _, id := range domain.OptionIDs {
		amount := sub.Bets[id]
		if amount <= 0 {
			continue
		}
		bets[id] = amount
		if question.IsCorrect(id) {
			payout := scoring.Payout(amount, multiplier)
			returned = scoring.SaturatingAdd(returned, payout)
			next.Coins = scoring.SaturatingAdd(next.Coins, payout)
			results[id] = domain.BetResult{Amount: amount, Correct: true, Payout: payout, Profit: payout - amount}
			continue
		}
		lost += amount
		results[id] = domain.BetResult{Amount: amount, Correct: false, Lost: amount}
	}

	response.Outcome = domain.OutcomeBet
	response.Bets = bets
	response.BetResults = results
	response.CoinsReturned = returned
	response.CoinsLost = lost
	response.NetChange = next.Coins - before
	response.CoinsAfter = next.Coins
	response.Correct = returned > 0
	response.ConfidenceLevel = scoring.Confidence(confidence)
	response.ConfidencePercent = confidence
	return nil
}
