package quiz

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"flash-quiz/internal/models"
)

// ErrInvalidArgument is returned for a negative count or an empty type list.
var ErrInvalidArgument = errors.New("invalid argument")

const minSentenceLength = 20

var (
	sentenceBoundary = regexp.MustCompile(`[.!?]+`)
	vocabularyWord   = regexp.MustCompile(`\w{4,}`)
)

// GenerateLocally derives exactly count questions from text without any
// external calls. Question types are taken from types in rotation. Output is
// fully determined by text, count and types.
func GenerateLocally(text string, count int, difficulty models.Difficulty, types []models.QuestionType) ([]models.QuestionRecord, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count must be non-negative, got %d", ErrInvalidArgument, count)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: at least one question type is required", ErrInvalidArgument)
	}

	sentences := sentencePool(text)
	vocabulary := vocabularyPool(text)

	out := make([]models.QuestionRecord, 0, count)
	for i := 0; i < count; i++ {
		var record models.QuestionRecord
		switch types[i%len(types)] {
		case models.TypeMultipleChoice:
			record = mainIdeaQuestionAt(sentences, i)
		case models.TypeTrueFalse:
			record = termQuestionAt(vocabulary, i)
		case models.TypeFillInBlank:
			record = blankQuestionAt(sentences, i)
		default:
			record = primaryTopicTemplate.record()
		}
		out = append(out, record)
	}
	return out, nil
}

// sentencePool keeps the trimmed fragments between terminators that are
// longer than minSentenceLength characters.
func sentencePool(text string) []string {
	var pool []string
	for _, fragment := range sentenceBoundary.Split(text, -1) {
		trimmed := strings.TrimSpace(fragment)
		if utf8.RuneCountInString(trimmed) > minSentenceLength {
			pool = append(pool, trimmed)
		}
	}
	return pool
}

// vocabularyPool lists distinct lowercase words of four or more word
// characters in first-seen order.
func vocabularyPool(text string) []string {
	seen := make(map[string]struct{})
	var pool []string
	for _, word := range vocabularyWord.FindAllString(strings.ToLower(text), -1) {
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		pool = append(pool, word)
	}
	return pool
}

func mainIdeaQuestionAt(sentences []string, i int) models.QuestionRecord {
	if len(sentences) == 0 {
		return primaryTopicTemplate.record()
	}
	return models.QuestionRecord{
		Question:    fmt.Sprintf(mainIdeaQuestion, sentences[i%len(sentences)]),
		Answer:      mainIdeaAnswer,
		Explanation: stringPtr(mainIdeaExplanation),
	}
}

// termQuestionAt always answers "True": the term comes from the document itself.
func termQuestionAt(vocabulary []string, i int) models.QuestionRecord {
	if len(vocabulary) == 0 {
		return trueFalseFallbackTemplate.record()
	}
	return models.QuestionRecord{
		Question:    fmt.Sprintf(termQuestion, vocabulary[i%len(vocabulary)]),
		Answer:      "True",
		Explanation: stringPtr(termExplanation),
	}
}

func blankQuestionAt(sentences []string, i int) models.QuestionRecord {
	if len(sentences) == 0 {
		return fillInBlankFallbackTemplate.record()
	}
	words := strings.Split(sentences[i%len(sentences)], " ")
	if len(words) <= 3 {
		return fillInBlankFallbackTemplate.record()
	}
	blank := len(words) / 2
	answer := words[blank]
	words[blank] = BlankPlaceholder
	return models.QuestionRecord{
		Question:    fmt.Sprintf(blankQuestion, strings.Join(words, " ")),
		Answer:      answer,
		Explanation: stringPtr(blankExplanation),
	}
}
