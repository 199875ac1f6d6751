package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"flash-quiz/internal/models"
	"flash-quiz/internal/quiz"
)

const (
	ModeLocal  = "local"
	ModeOpenAI = "openai"
)

// ProgressCallback is called during document processing to report progress
type ProgressCallback func(step, message string, current, total int)

// SourceFile is one uploaded document waiting to be extracted.
type SourceFile struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// DocumentsResult is the outcome of generating questions from uploaded files.
type DocumentsResult struct {
	Documents []models.DocumentContent `json:"documents"`
	Questions []models.FlashCard       `json:"questions"`
	Total     int                      `json:"totalGenerated"`
}

// QuestionService coordinates text extraction, question generation and card decoration.
type QuestionService struct {
	extractor *TextExtractor
	ai        *AIService
	mode      string
	now       func() time.Time
}

func NewQuestionService(extractor *TextExtractor, ai *AIService, mode string) *QuestionService {
	if mode == "" {
		mode = ModeLocal
	}
	return &QuestionService{
		extractor: extractor,
		ai:        ai,
		mode:      mode,
		now:       time.Now,
	}
}

// Mode returns the configured generation backend.
func (s *QuestionService) Mode() string {
	return s.mode
}

func (s *QuestionService) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
	return s.GenerateWithProgress(ctx, req, nil)
}

func (s *QuestionService) GenerateWithProgress(ctx context.Context, req models.GenerationRequest, progress ProgressCallback) (*models.GenerationResponse, error) {
	if err := validateGeneration(req); err != nil {
		return nil, err
	}

	if progress != nil {
		progress("generate", fmt.Sprintf("Generating %d questions", req.NumQuestions), 0, 100)
	}

	var (
		records []models.QuestionRecord
		err     error
	)
	switch s.mode {
	case ModeOpenAI:
		records, err = s.generateRemote(ctx, req)
	default:
		records, err = quiz.GenerateLocally(req.Content, req.NumQuestions, req.Difficulty, req.QuestionTypes)
	}
	if err != nil {
		return nil, err
	}

	cards := quiz.Decorate(records, req.Difficulty, s.now())
	log.Info().
		Str("mode", s.mode).
		Int("requested", req.NumQuestions).
		Int("generated", len(cards)).
		Msg("questions-generated")

	if progress != nil {
		progress("generate", fmt.Sprintf("Generated %d questions", len(cards)), 100, 100)
	}

	return &models.GenerationResponse{
		Questions:      cards,
		TotalGenerated: len(cards),
	}, nil
}

func (s *QuestionService) generateRemote(ctx context.Context, req models.GenerationRequest) ([]models.QuestionRecord, error) {
	if !s.ai.Available() {
		return nil, ErrAIUnavailable
	}
	prompt := BuildPrompt(req.Content, req.NumQuestions, req.Difficulty, req.QuestionTypes)
	raw, err := s.ai.CallModel(ctx, prompt)
	if err != nil {
		log.Err(err).Msg("model-call-failed")
		return nil, err
	}
	records, fellBack := quiz.ParseModelOutput(raw, req.NumQuestions)
	if fellBack {
		log.Warn().Int("expected", req.NumQuestions).Msg("model-output-unparseable-using-fallback")
	} else if len(records) < req.NumQuestions {
		log.Warn().Int("expected", req.NumQuestions).Int("parsed", len(records)).Msg("model-output-partial")
	}
	return records, nil
}

// GenerateFromDocuments extracts every file, joins the texts with blank lines
// and generates one batch of questions from the combined content.
func (s *QuestionService) GenerateFromDocuments(ctx context.Context, files []SourceFile, settings models.GenerationRequest, progress ProgressCallback) (*DocumentsResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", quiz.ErrInvalidArgument)
	}

	result := &DocumentsResult{}
	texts := make([]string, 0, len(files))
	for i, file := range files {
		if progress != nil {
			pct := 60 * i / len(files)
			progress("extract", fmt.Sprintf("Extracting text from %s", file.Name), pct, 100)
		}
		doc, err := s.extractFile(ctx, file)
		if err != nil {
			return result, fmt.Errorf("extract %s: %w", file.Name, err)
		}
		result.Documents = append(result.Documents, doc)
		texts = append(texts, doc.Text)
	}

	settings.Content = strings.Join(texts, "\n\n")
	if progress != nil {
		progress("generate", fmt.Sprintf("Generating %d questions", settings.NumQuestions), 60, 100)
	}

	resp, err := s.GenerateWithProgress(ctx, settings, nil)
	if err != nil {
		return result, err
	}
	result.Questions = resp.Questions
	result.Total = resp.TotalGenerated

	if progress != nil {
		progress("complete", "Processing complete", 100, 100)
	}
	return result, nil
}

func (s *QuestionService) extractFile(ctx context.Context, file SourceFile) (models.DocumentContent, error) {
	src, err := file.Open()
	if err != nil {
		return models.DocumentContent{Filename: file.Name, FileType: file.ContentType}, fmt.Errorf("open file %s: %w", file.Name, err)
	}
	defer src.Close()
	return s.extractor.ExtractDocument(ctx, file.Name, file.ContentType, src)
}

func validateGeneration(req models.GenerationRequest) error {
	if req.NumQuestions < 0 {
		return fmt.Errorf("%w: numQuestions must be non-negative", quiz.ErrInvalidArgument)
	}
	if len(req.QuestionTypes) == 0 {
		return fmt.Errorf("%w: at least one question type is required", quiz.ErrInvalidArgument)
	}
	if !req.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", quiz.ErrInvalidArgument, req.Difficulty)
	}
	return nil
}
