package quiz

import (
	"fmt"
	"time"

	"flash-quiz/internal/models"
)

// Decorate stamps batch metadata onto records without touching their text.
// IDs are unique within the batch only.
func Decorate(records []models.QuestionRecord, difficulty models.Difficulty, now time.Time) []models.FlashCard {
	stamp := now.UnixMilli()
	cards := make([]models.FlashCard, len(records))
	for i, record := range records {
		cards[i] = models.FlashCard{
			ID:          fmt.Sprintf("card-%d-%d", stamp, i),
			Question:    record.Question,
			Answer:      record.Answer,
			Explanation: record.Explanation,
			Category:    Category,
			Difficulty:  difficulty,
		}
	}
	return cards
}
