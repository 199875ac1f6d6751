package quiz

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedTime() time.Time {
	return time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)
}

func numberedBlocks(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "Q%d: Question number %d?\nA%d: Answer %d\nE%d: Because %d\n\n", i, i, i, i, i, i)
	}
	return b.String()
}

func TestParseModelOutputSingleBlock(t *testing.T) {
	records, fellBack := ParseModelOutput("Q1: What is X?\nA1: It is Y\nE1: because Z\n", 1)
	assert.False(t, fellBack)
	require.Len(t, records, 1)
	assert.Equal(t, "What is X?", records[0].Question)
	assert.Equal(t, "It is Y", records[0].Answer)
	require.NotNil(t, records[0].Explanation)
	assert.Equal(t, "because Z", *records[0].Explanation)
}

func TestParseModelOutputFallback(t *testing.T) {
	records, fellBack := ParseModelOutput("Sorry, I cannot help with that request.", 5)
	assert.True(t, fellBack)
	require.Len(t, records, 5)
	for i, r := range records {
		assert.True(t, strings.HasSuffix(r.Question, fmt.Sprintf(" (Question %d)", i+1)), r.Question)
		assert.Equal(t, fallbackPool[i%3].answer, r.Answer)
	}
	assert.Equal(t, records[0].Answer, records[3].Answer)
}

func TestParseModelOutputPartialIsNotPadded(t *testing.T) {
	records, fellBack := ParseModelOutput(numberedBlocks(2), 5)
	assert.False(t, fellBack)
	assert.Len(t, records, 2)
}

func TestParseModelOutputTruncates(t *testing.T) {
	records, fellBack := ParseModelOutput(numberedBlocks(10), 3)
	assert.False(t, fellBack)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("Question number %d?", i+1), r.Question)
	}
}

func TestParseModelOutputBlockRules(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		question    string
		answer      string
		explanation *string
	}{
		{
			name:     "No explanation",
			input:    "Q1: Capital of France?\nA1: Paris",
			question: "Capital of France?",
			answer:   "Paris",
		},
		{
			name:     "Preamble and blank lines",
			input:    "Here are your questions:\n\nQ1:\n\n  What is 2+2?  \n\n  A1:   4  \n",
			question: "What is 2+2?",
			answer:   "4",
		},
		{
			name:        "Unprefixed answer and explanation",
			input:       "Q12: Largest planet?\nJupiter\nIt is a gas giant.",
			question:    "Largest planet?",
			answer:      "Jupiter",
			explanation: stringPtr("It is a gas giant."),
		},
		{
			name:     "Empty explanation after prefix",
			input:    "Q1: Boiling point of water?\r\nA1: 100 C\r\nE1:\r\n",
			question: "Boiling point of water?",
			answer:   "100 C",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, fellBack := ParseModelOutput(tc.input, 5)
			require.False(t, fellBack)
			require.Len(t, records, 1)
			assert.Equal(t, tc.question, records[0].Question)
			assert.Equal(t, tc.answer, records[0].Answer)
			assert.Equal(t, tc.explanation, records[0].Explanation)
		})
	}
}

func TestParseModelOutputSkipsIncompleteBlocks(t *testing.T) {
	input := "Q1: Only a question\n\nQ2:   \nQ3: Real question?\nA3: Real answer\nQ4: A4:\nA4:\n"
	records, fellBack := ParseModelOutput(input, 5)
	assert.False(t, fellBack)
	require.Len(t, records, 1)
	assert.Equal(t, "Real question?", records[0].Question)
}

func TestParseModelOutputZeroExpected(t *testing.T) {
	// Nothing is collected before the count is reached, so the empty fallback applies.
	records, fellBack := ParseModelOutput(numberedBlocks(3), 0)
	assert.True(t, fellBack)
	assert.Empty(t, records)

	records, fellBack = ParseModelOutput("", 0)
	assert.True(t, fellBack)
	assert.Empty(t, records)
}

func TestFallbackQuestions(t *testing.T) {
	records := FallbackQuestions(4)
	require.Len(t, records, 4)
	assert.Equal(t, fallbackPool[0].question+" (Question 1)", records[0].Question)
	assert.Equal(t, fallbackPool[0].question+" (Question 4)", records[3].Question)
	assert.Equal(t, "content", records[2].Answer)
}
