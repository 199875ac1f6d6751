package models

import (
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the supported difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// QuestionType tags are kept as plain strings so unknown tags can flow
// through to the generator, which has its own fallback for them.
type QuestionType = string

const (
	TypeMultipleChoice QuestionType = "multiple-choice"
	TypeTrueFalse      QuestionType = "true-false"
	TypeFillInBlank    QuestionType = "fill-in-blank"
)

// DefaultQuestionTypes is the selection offered by the upload page.
func DefaultQuestionTypes() []QuestionType {
	return []QuestionType{TypeMultipleChoice, TypeTrueFalse, TypeFillInBlank}
}

// QuestionRecord is a generated question before it is decorated into a card.
type QuestionRecord struct {
	Question    string
	Answer      string
	Explanation *string
}

// FlashCard is the entity handed to the study flow.
type FlashCard struct {
	ID           string          `json:"id"`
	Question     string          `json:"question"`
	Answer       string          `json:"answer"`
	Explanation  *string         `json:"explanation,omitempty"`
	Category     string          `json:"category"`
	Difficulty   Difficulty      `json:"difficulty"`
	IsCorrect    *bool           `json:"isCorrect,omitempty"`
	LastReviewed *time.Time      `json:"lastReviewed,omitempty"`
	Schedule     *ReviewSchedule `json:"schedule,omitempty"`
}

// Answered reports whether the card has been answered in its session.
func (c *FlashCard) Answered() bool {
	return c.IsCorrect != nil && c.LastReviewed != nil
}

// DocumentContent is the result of extracting text from one uploaded file.
type DocumentContent struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
	FileType string `json:"fileType"`
}

type GenerationRequest struct {
	Content       string         `json:"content"`
	NumQuestions  int            `json:"numQuestions"`
	Difficulty    Difficulty     `json:"difficulty"`
	QuestionTypes []QuestionType `json:"questionTypes"`
}

type GenerationResponse struct {
	Questions      []FlashCard `json:"questions"`
	TotalGenerated int         `json:"totalGenerated"`
}

// ReviewSchedule carries the FSRS memory state computed when a card is answered.
type ReviewSchedule struct {
	Due           time.Time `json:"due"`
	Stability     float64   `json:"stability"`
	Difficulty    float64   `json:"difficulty"`
	ElapsedDays   int       `json:"elapsedDays"`
	ScheduledDays int       `json:"scheduledDays"`
	Reps          int       `json:"reps"`
	Lapses        int       `json:"lapses"`
	State         int       `json:"state"`
	LastReview    time.Time `json:"lastReview"`
}

type StudyStats struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Total     int `json:"total"`
}

// StudySession is the server-held equivalent of the deck view state.
type StudySession struct {
	ID           string      `json:"id"`
	Cards        []FlashCard `json:"cards"`
	CurrentIndex int         `json:"currentIndex"`
	Stats        StudyStats  `json:"stats"`
	Progress     float64     `json:"progress"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// IsLastCard reports whether the cursor sits on the final card.
func (s *StudySession) IsLastCard() bool {
	return s.CurrentIndex >= len(s.Cards)-1
}

func (r *ReviewSchedule) ToFSRSCard() fsrs.Card {
	if r == nil {
		return fsrs.Card{State: fsrs.New}
	}
	return fsrs.Card{
		Due:           r.Due,
		Stability:     r.Stability,
		Difficulty:    r.Difficulty,
		ElapsedDays:   uint64(max(r.ElapsedDays, 0)),
		ScheduledDays: uint64(max(r.ScheduledDays, 0)),
		Reps:          uint64(max(r.Reps, 0)),
		Lapses:        uint64(max(r.Lapses, 0)),
		State:         fsrs.State(max(r.State, 0)),
		LastReview:    r.LastReview,
	}
}

func ScheduleFromFSRS(f fsrs.Card) *ReviewSchedule {
	return &ReviewSchedule{
		Due:           f.Due,
		Stability:     f.Stability,
		Difficulty:    f.Difficulty,
		ElapsedDays:   int(f.ElapsedDays),
		ScheduledDays: int(f.ScheduledDays),
		Reps:          int(f.Reps),
		Lapses:        int(f.Lapses),
		State:         int(f.State),
		LastReview:    f.LastReview,
	}
}
