package quiz

import (
	"math/rand/v2"

	"github.com/m3rciful/triviabot/internal/trivia"
)

// Poll is a quiz poll ready to be sent: plain-text question, shuffled options
// and the index of the correct one.
type Poll struct {
	Question      string
	Options       []string
	CorrectOption int
	Category      string
	Difficulty    string
}

// Shuffler permutes n elements through swap, as rand.Shuffle does.
type Shuffler func(n int, swap func(i, j int))

// Popper yields the next question of a session.
type Popper interface {
	Pop() (trivia.Question, bool)
}

// NextQuestion pops the most recently pooled question and turns it into a
// poll. It reports false when the pool is empty.
func NextQuestion(p Popper, shuffle Shuffler) (Poll, bool) {
	q, ok := p.Pop()
	if !ok {
		return Poll{}, false
	}
	return BuildPoll(q, shuffle), true
}

// BuildPoll decodes the question texts and shuffles the answers.
func BuildPoll(q trivia.Question, shuffle Shuffler) Poll {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	correct := trivia.PlainText(q.CorrectAnswer)
	options := make([]string, 0, len(q.IncorrectAnswers)+1)
	for _, a := range q.IncorrectAnswers {
		options = append(options, trivia.PlainText(a))
	}
	options = append(options, correct)
	shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	idx := 0
	for i, o := range options {
		if o == correct {
			idx = i
			break
		}
	}
	return Poll{
		Question:      trivia.PlainText(q.Question),
		Options:       options,
		CorrectOption: idx,
		Category:      trivia.PlainText(q.Category),
		Difficulty:    q.Difficulty,
	}
}
