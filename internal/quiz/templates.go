package quiz

import "flash-quiz/internal/models"

// BlankPlaceholder replaces the removed word in fill-in-blank questions.
const BlankPlaceholder = "_____"

// Category is stamped on every generated card.
const Category = "Generated"

type template struct {
	question    string
	answer      string
	explanation string
}

func (t template) record() models.QuestionRecord {
	return models.QuestionRecord{
		Question:    t.question,
		Answer:      t.answer,
		Explanation: stringPtr(t.explanation),
	}
}

// fallbackPool is cycled by ParseModelOutput when nothing could be parsed.
var fallbackPool = [...]template{
	{
		question:    "What is the main topic discussed in the document?",
		answer:      "The document covers various topics that need to be identified based on the content.",
		explanation: "This is a general comprehension question to test understanding of the main subject matter.",
	},
	{
		question:    "True or False: The information in this document is relevant for exam preparation.",
		answer:      "True",
		explanation: "Documents uploaded for flash card generation are typically study materials.",
	},
	{
		question:    "Fill in the blank: The purpose of this document is to provide _____ for learning.",
		answer:      "content",
		explanation: "Documents serve as source material for generating educational questions.",
	},
}

var (
	primaryTopicTemplate = template{
		question:    "What is the primary topic discussed in this document?",
		answer:      "The document covers key concepts that should be reviewed for understanding.",
		explanation: "Identifying the primary topic is the first step in understanding any study material.",
	}
	trueFalseFallbackTemplate = template{
		question:    "True or False: This document contains information that is useful for exam preparation.",
		answer:      "True",
		explanation: "Documents uploaded for study are intended as preparation material.",
	}
	fillInBlankFallbackTemplate = template{
		question:    "Fill in the blank: The purpose of this document is to provide _____ for learning.",
		answer:      "content",
		explanation: "Documents serve as source material for generating educational questions.",
	}
)

const (
	mainIdeaQuestion    = "What is the main idea of the following statement: \"%s\"?"
	mainIdeaAnswer      = "The statement presents a key point from the document that should be understood in context."
	mainIdeaExplanation = "Restating the main idea of a statement in your own words tests comprehension of the material."

	termQuestion    = "True or False: The term \"%s\" is mentioned in this document."
	termExplanation = "This term appears in the source document."

	blankQuestion    = "Fill in the blank: \"%s\""
	blankExplanation = "The missing word completes the original statement from the document."
)

func stringPtr(s string) *string {
	return &s
}
