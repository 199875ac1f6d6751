package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"flash-quiz/internal/models"
	"flash-quiz/internal/quiz"
	"flash-quiz/internal/services"
)

const (
	maxMultipartMemory  = 8 << 20 // 8 MB
	defaultNumQuestions = 10

	msgRequired         = "Content and number of questions are required"
	msgGenerationFailed = "Failed to generate questions"
	msgNoAPIKey         = "OpenAI API key not configured"
)

type Server struct {
	mux            *http.ServeMux
	questions      *services.QuestionService
	extractor      *services.TextExtractor
	sessions       *services.SessionService
	jobs           *JobManager
	validate       *validator.Validate
	maxUploadBytes int64
	formMemory     int64
}

type generateRequest struct {
	Content       string                `json:"content" validate:"required"`
	NumQuestions  int                   `json:"numQuestions" validate:"gt=0"`
	Difficulty    models.Difficulty     `json:"difficulty" validate:"oneof=easy medium hard"`
	QuestionTypes []models.QuestionType `json:"questionTypes" validate:"min=1,dive,required"`
}

type jobSettings struct {
	NumQuestions  int                   `validate:"gt=0"`
	Difficulty    models.Difficulty     `validate:"oneof=easy medium hard"`
	QuestionTypes []models.QuestionType `validate:"min=1,dive,required"`
}

type createSessionRequest struct {
	Cards []models.FlashCard `json:"cards" validate:"min=1"`
}

type answerRequest struct {
	CardID  string `json:"cardId" validate:"required"`
	Correct *bool  `json:"correct" validate:"required"`
}

func NewServer(
	questions *services.QuestionService,
	extractor *services.TextExtractor,
	sessions *services.SessionService,
	maxUploadBytes int64,
) *Server {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	s := &Server{
		mux:            http.NewServeMux(),
		questions:      questions,
		extractor:      extractor,
		sessions:       sessions,
		jobs:           NewJobManager(),
		validate:       validate,
		maxUploadBytes: maxUploadBytes,
		formMemory:     maxMultipartMemory,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/generate-questions", s.handleGenerateQuestions)
	s.mux.HandleFunc("POST /api/documents/extract", s.handleExtractDocument)
	s.mux.HandleFunc("POST /api/documents/jobs", s.handleCreateJob)
	s.mux.HandleFunc("GET /api/documents/jobs/{id}", s.handleJobStatus)

	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/answer", s.handleAnswer)
	s.mux.HandleFunc("POST /api/sessions/{id}/next", s.sessionAction(s.sessions.Next))
	s.mux.HandleFunc("POST /api/sessions/{id}/previous", s.sessionAction(s.sessions.Previous))
	s.mux.HandleFunc("POST /api/sessions/{id}/reset", s.sessionAction(s.sessions.Reset))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mode":   s.questions.Mode(),
	})
}

func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var payload generateRequest
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	resp, err := s.questions.Generate(r.Context(), models.GenerationRequest{
		Content:       payload.Content,
		NumQuestions:  payload.NumQuestions,
		Difficulty:    payload.Difficulty,
		QuestionTypes: payload.QuestionTypes,
	})
	if err != nil {
		status, msg := errorResponse(err, msgGenerationFailed)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExtractDocument(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseMultipart(w, r)
	if !ok {
		return
	}
	defer form.RemoveAll()

	headers := form.File["file"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	header := headers[0]

	src, err := header.Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	defer src.Close()

	doc, err := s.extractor.ExtractDocument(r.Context(), header.Filename, header.Header.Get("Content-Type"), src)
	if err != nil {
		status, msg := errorResponse(err, "Failed to extract text")
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseMultipart(w, r)
	if !ok {
		return
	}

	settings, err := parseJobSettings(form)
	if err != nil {
		form.RemoveAll()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(settings); err != nil {
		form.RemoveAll()
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		form.RemoveAll()
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	// Uploads are buffered before responding: net/http removes the request's
	// multipart temp files once the handler returns.
	files, err := bufferUploads(headers)
	form.RemoveAll()
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	fileNames := make([]string, len(files))
	for i, file := range files {
		fileNames[i] = file.Name
	}
	jobID, snapshot := s.jobs.CreateJob(fileNames)
	log.Info().Str("jobId", jobID).Int("files", len(files)).Msg("job-created")

	for i := range files {
		open := files[i].Open
		files[i].Open = func() (io.ReadCloser, error) {
			s.jobs.MarkFileStarted(jobID, i)
			return open()
		}
	}

	go s.runJob(context.Background(), jobID, files, models.GenerationRequest{
		NumQuestions:  settings.NumQuestions,
		Difficulty:    settings.Difficulty,
		QuestionTypes: settings.QuestionTypes,
	})

	writeJSON(w, http.StatusAccepted, snapshot)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.GetJob(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) runJob(ctx context.Context, jobID string, files []services.SourceFile, settings models.GenerationRequest) {
	s.jobs.MarkProcessing(jobID)
	progress := func(step, message string, current, total int) {
		s.jobs.UpdateProgress(jobID, step, message, current, total)
	}

	result, err := s.questions.GenerateFromDocuments(ctx, files, settings, progress)
	extracted := 0
	if result != nil {
		extracted = len(result.Documents)
		for i, doc := range result.Documents {
			s.jobs.MarkFileExtracted(jobID, i, len(doc.Text))
		}
	}
	if err != nil {
		_, msg := errorResponse(err, msgGenerationFailed)
		if extracted < len(files) {
			s.jobs.MarkFileError(jobID, extracted, msg)
		}
		log.Err(err).Str("jobId", jobID).Msg("job-failed")
		s.jobs.MarkFailed(jobID, msg, result)
		return
	}

	log.Info().Str("jobId", jobID).Int("questions", result.Total).Msg("job-completed")
	s.jobs.MarkCompleted(jobID, result)
}

func bufferUploads(headers []*multipart.FileHeader) ([]services.SourceFile, error) {
	files := make([]services.SourceFile, len(headers))
	for i, header := range headers {
		src, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", header.Filename, err)
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", header.Filename, err)
		}
		files[i] = services.SourceFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(data)), nil
			},
		}
	}
	return files, nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload createSessionRequest
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	session, err := s.sessions.Create(payload.Cards)
	if err != nil {
		status, msg := errorResponse(err, "Failed to create session")
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(s.sessions.Get)(w, r)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.PathValue("id")); err != nil {
		status, msg := errorResponse(err, "Failed to delete session")
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var payload answerRequest
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	session, err := s.sessions.Answer(r.PathValue("id"), payload.CardID, *payload.Correct)
	if err != nil {
		status, msg := errorResponse(err, "Failed to record answer")
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) sessionAction(fn func(id string) (*models.StudySession, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := fn(r.PathValue("id"))
		if err != nil {
			status, msg := errorResponse(err, "Failed to update session")
			writeError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}
	if r.MultipartForm == nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}
	return r.MultipartForm, true
}

// parseJobSettings reads generation settings from the upload form. Missing
// values fall back to the upload page defaults.
func parseJobSettings(form *multipart.Form) (jobSettings, error) {
	settings := jobSettings{
		NumQuestions: defaultNumQuestions,
		Difficulty:   models.DifficultyMedium,
	}

	if raw := firstValue(form, "numQuestions"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return settings, errors.New("numQuestions must be a number")
		}
		settings.NumQuestions = n
	}
	if raw := firstValue(form, "difficulty"); raw != "" {
		settings.Difficulty = models.Difficulty(strings.ToLower(raw))
	}
	for _, raw := range form.Value["questionTypes"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				settings.QuestionTypes = append(settings.QuestionTypes, t)
			}
		}
	}
	if len(settings.QuestionTypes) == 0 {
		settings.QuestionTypes = models.DefaultQuestionTypes()
	}
	return settings, nil
}

func firstValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

// errorResponse maps service errors to a status code and a client-facing message.
func errorResponse(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, quiz.ErrInvalidArgument), errors.Is(err, services.ErrEmptyDeck):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, services.ErrCorruptFile):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, services.ErrCardNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrAIUnavailable):
		return http.StatusInternalServerError, msgNoAPIKey
	default:
		log.Err(err).Msg("request-failed")
		return http.StatusInternalServerError, fallback
	}
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid payload"
	}
	for _, fe := range fieldErrs {
		if fe.Field() == "content" || fe.Field() == "numQuestions" {
			return msgRequired
		}
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "min":
		return fe.Field() + " must not be empty"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	default:
		return fe.Field() + " is required"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
