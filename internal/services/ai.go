package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"flash-quiz/internal/models"
)

var (
	// ErrAIUnavailable is returned when the OpenAI integration is not configured.
	ErrAIUnavailable = errors.New("openai integration is not configured")
	// ErrProviderError wraps any failed or empty response from the model provider.
	ErrProviderError = errors.New("model provider error")
)

const (
	maxPromptContent = 3000
	modelTimeout     = 2 * time.Minute
)

const systemPrompt = "You are an expert educator who creates high-quality, objective questions for exam preparation. Generate questions that are clear, accurate, and test understanding of the material."

var difficultyDescriptions = map[models.Difficulty]string{
	models.DifficultyEasy:   "basic understanding and recall",
	models.DifficultyMedium: "comprehension and application",
	models.DifficultyHard:   "analysis, synthesis, and evaluation",
}

var typeDescriptions = map[models.QuestionType]string{
	models.TypeMultipleChoice: "multiple choice questions with 4 options (A, B, C, D)",
	models.TypeTrueFalse:      "true/false questions",
	models.TypeFillInBlank:    "fill-in-the-blank questions",
}

type AIService struct {
	client *openai.Client
	model  string
}

func NewAIService(apiKey string, model string, apiEndpoint string) *AIService {
	if apiKey == "" {
		return &AIService{}
	}

	cfg := openai.DefaultConfig(apiKey)
	if apiEndpoint != "" {
		cfg.BaseURL = apiEndpoint
	}
	return &AIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (s *AIService) disabled() bool {
	return s == nil || s.client == nil || s.model == ""
}

// Available reports whether model calls can be made.
func (s *AIService) Available() bool {
	return !s.disabled()
}

// BuildPrompt asks for count questions in the numbered Q/A/E layout that
// quiz.ParseModelOutput understands.
func BuildPrompt(content string, count int, difficulty models.Difficulty, types []models.QuestionType) string {
	selected := make([]string, 0, len(types))
	for _, t := range types {
		if desc, ok := typeDescriptions[t]; ok {
			selected = append(selected, desc)
		} else {
			selected = append(selected, t)
		}
	}

	runes := []rune(content)
	excerpt := content
	if len(runes) > maxPromptContent {
		excerpt = string(runes[:maxPromptContent]) + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following content, generate %d %s difficulty questions that test %s.\n\n",
		count, difficulty, difficultyDescriptions[difficulty])
	fmt.Fprintf(&b, "Question types to include: %s\n\n", strings.Join(selected, ", "))
	fmt.Fprintf(&b, "Content:\n%s\n\n", excerpt)
	b.WriteString(`Please format your response as follows:
Q1: [Question text]
A1: [Answer]
E1: [Brief explanation if helpful]

Q2: [Question text]
A2: [Answer]
E2: [Brief explanation if helpful]

And so on...

Make sure the questions are:
- Relevant to the content provided
- Clear and unambiguous
`)
	fmt.Fprintf(&b, "- Appropriate for %s difficulty level\n", difficulty)
	b.WriteString(`- Varied in question types as requested
- Educational and helpful for exam preparation`)
	return b.String()
}

// CallModel sends prompt to the chat completion endpoint and returns the raw
// text of the first choice.
func (s *AIService) CallModel(ctx context.Context, prompt string) (string, error) {
	if s.disabled() {
		return "", ErrAIUnavailable
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	}

	ctx, cancel := context.WithTimeout(ctx, modelTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: request chat completion: %v", ErrProviderError, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrProviderError)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty response", ErrProviderError)
	}
	return content, nil
}
