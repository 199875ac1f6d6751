package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/namsral/flag"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"flash-quiz/internal/models"
	"flash-quiz/internal/services"
)

func main() {
	var filePath = flag.String("file", "", "Document to generate questions from (.txt, .md, .pdf, .docx)")
	var count = flag.Int("count", 10, "Number of questions to generate")
	var difficulty = flag.String("difficulty", "medium", "Question difficulty: easy, medium or hard")
	var types = flag.String("types", strings.Join(models.DefaultQuestionTypes(), ","), "Comma-separated question types")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: quizgen -file notes.pdf [-count 10] [-difficulty medium] [-types multiple-choice,true-false]")
		os.Exit(2)
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("read-file")
	}

	ctx := context.Background()
	name := filepath.Base(*filePath)
	text, err := services.NewTextExtractor().Extract(ctx, name, mime.TypeByExtension(filepath.Ext(name)), data)
	if err != nil {
		log.Fatal().Err(err).Str("file", name).Msg("extract-text")
	}

	questions := services.NewQuestionService(services.NewTextExtractor(), nil, services.ModeLocal)
	resp, err := questions.Generate(ctx, models.GenerationRequest{
		Content:       text,
		NumQuestions:  *count,
		Difficulty:    models.Difficulty(strings.ToLower(*difficulty)),
		QuestionTypes: splitTypes(*types),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("generate-questions")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp.Questions); err != nil {
		log.Fatal().Err(err).Msg("write-output")
	}
}

func splitTypes(raw string) []models.QuestionType {
	var out []models.QuestionType
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
