package domain

// QuestionBank is the ordered, read-only question list of one assessment.
type QuestionBank struct {
	questions []Question
}

// NewQuestionBank builds a bank from validated rows; question IDs are 1-based positions.
func NewQuestionBank(rows []QuestionRow) (*QuestionBank, error) {
	if len(rows) == 0 {
		return nil, ErrNoQuestions
	}
	questions := make([]Question, len(rows))
	for i, row := range rows {
		questions[i] = row.ToQuestion(i + 1)
	}
	return &QuestionBank{questions: questions}, nil
}

// Get returns the question at index, or false when index is out of range.
func (b *QuestionBank) Get(index int) (Question, bool) {
	if index < 0 || index >= len(b.questions) {
		return Question{}, false
	}
	return b.questions[index], true
}

// Len is the number of questions.
func (b *QuestionBank) Len() int {
	return len(b.questions)
}

// CorrectAnswers returns a copy of the correct-answer set at index.
func (b *QuestionBank) CorrectAnswers(index int) []OptionID {
	q, ok := b.Get(index)
	if !ok {
		return nil
	}
	out := make([]OptionID, len(q.CorrectAnswers))
	copy(out, q.CorrectAnswers)
	return out
}

// All returns a copy of the question list.
func (b *QuestionBank) All() []Question {
	out := make([]Question, len(b.questions))
	copy(out, b.questions)
	return out
}
