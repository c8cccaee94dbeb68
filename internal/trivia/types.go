package trivia

import (
	"errors"
	"fmt"
	"strconv"
)

// Question is one trivia item as returned by the Open Trivia DB API.
type Question struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
}

// QuestionSet is a decoded API response.
type QuestionSet struct {
	ResponseCode int        `json:"response_code"`
	Results      []Question `json:"results"`
}

// ErrNoFreshQuestions reports a successful fetch that left the pool empty.
var ErrNoFreshQuestions = errors.New("trivia: no fresh questions")

// ResponseCodeError is returned when the API reports a non-zero response_code.
type ResponseCodeError struct {
	ResponseCode int
}

func (e *ResponseCodeError) Error() string {
	return fmt.Sprintf("trivia: api response_code %d", e.ResponseCode)
}

// Code exposes the API response code for handler summaries.
func (e *ResponseCodeError) Code() string {
	return "trivia_response_" + strconv.Itoa(e.ResponseCode)
}

// Pool receives fetched questions. Absorb appends every question whose text
// has not been processed yet and reports the pool size afterwards.
type Pool interface {
	Absorb(questions []Question) (added, size int)
}
