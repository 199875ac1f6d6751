package quiz

import (
	"fmt"
	"regexp"
	"strings"

	"flash-quiz/internal/models"
)

var (
	questionMarker = regexp.MustCompile(`Q\d+:`)
	answerPrefix   = regexp.MustCompile(`^A\d+:\s*`)
	explainPrefix  = regexp.MustCompile(`^E\d+:\s*`)
)

// ParseModelOutput turns numbered "Qn:/An:/En:" blocks into question records.
// At most expectedCount records are returned. When no block yields a record,
// expectedCount fallback records are returned instead and fellBack is true.
// A partial parse is returned as is, without padding.
func ParseModelOutput(raw string, expectedCount int) (records []models.QuestionRecord, fellBack bool) {
	if expectedCount < 0 {
		expectedCount = 0
	}

	blocks := questionMarker.Split(raw, -1)
	// blocks[0] is whatever preceded the first marker.
	for _, block := range blocks[1:] {
		if len(records) >= expectedCount {
			break
		}
		if strings.TrimSpace(block) == "" {
			continue
		}
		record, ok := parseBlock(block)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return FallbackQuestions(expectedCount), true
	}
	return records, false
}

func parseBlock(block string) (models.QuestionRecord, bool) {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return models.QuestionRecord{}, false
	}

	record := models.QuestionRecord{
		Question: lines[0],
		Answer:   strings.TrimSpace(answerPrefix.ReplaceAllString(lines[1], "")),
	}
	if len(lines) > 2 {
		if explanation := strings.TrimSpace(explainPrefix.ReplaceAllString(lines[2], "")); explanation != "" {
			record.Explanation = &explanation
		}
	}
	if record.Question == "" || record.Answer == "" {
		return models.QuestionRecord{}, false
	}
	return record, true
}

// FallbackQuestions cycles the canned pool, suffixing each question with its
// 1-indexed position so repeats stay distinguishable.
func FallbackQuestions(count int) []models.QuestionRecord {
	out := make([]models.QuestionRecord, 0, max(count, 0))
	for i := 0; i < count; i++ {
		record := fallbackPool[i%len(fallbackPool)].record()
		record.Question = fmt.Sprintf("%s (Question %d)", record.Question, i+1)
		out = append(out, record)
	}
	return out
}
