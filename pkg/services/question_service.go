package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"pdfdesk/pkg/auth"
	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/models"
	"pdfdesk/pkg/utils"
)

// Question fields accepted by Update
const (
	FieldText   = "text"
	FieldType   = "type"
	FieldAnswer = "answer"
)

// QuestionBoard keeps the questions attached to the document being read.
// They live in memory; Export produces the downloadable copy.
type QuestionBoard struct {
	mutex     sync.Mutex
	questions []models.Question
	counter   int
	notifier  auth.Notifier
}

// NewQuestionBoard creates a board seeded with the sample questions
func NewQuestionBoard(notifier auth.Notifier) *QuestionBoard {
	b := &QuestionBoard{notifier: notifierOrNop(notifier)}
	b.add(models.QuestionText, "What is the main topic of this document?")
	b.add(models.QuestionMultiple, "Which of the following is mentioned in the document?")
	return b
}

// List returns the questions in board order
func (b *QuestionBoard) List() []models.Question {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	out := make([]models.Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// Add appends a question. An empty text becomes "Question N".
func (b *QuestionBoard) Add(kind models.QuestionType, text string) (models.Question, error) {
	if kind == "" {
		kind = models.QuestionText
	}
	validator := errors.NewValidator()
	if result := validator.ValidateQuestion(string(kind), text); !result.IsValid {
		err := result.GetFirstError()
		err.Log()
		return models.Question{}, err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.add(kind, text), nil
}

func (b *QuestionBoard) add(kind models.QuestionType, text string) models.Question {
	b.counter++
	if strings.TrimSpace(text) == "" {
		text = fmt.Sprintf("Question %d", b.counter)
	}
	q := models.Question{ID: fmt.Sprintf("q%d", b.counter), Type: kind, Text: text}
	b.questions = append(b.questions, q)
	return q
}

// Update sets one field of the question with id
func (b *QuestionBoard) Update(id, field, value string) (models.Question, error) {
	validator := errors.NewValidator()
	switch field {
	case FieldType:
		if result := validator.ValidateQuestion(value, ""); !result.IsValid {
			return models.Question{}, result.GetFirstError()
		}
	case FieldText, FieldAnswer:
		if result := validator.ValidateQuestion(string(models.QuestionText), value); !result.IsValid {
			return models.Question{}, result.GetFirstError()
		}
	default:
		return models.Question{}, errors.New(errors.ErrTypeValidation, "QUESTION_FIELD_INVALID", "unknown question field").
			WithUserMessage("Field must be text, type or answer").
			WithContext("field", field)
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	for i := range b.questions {
		if b.questions[i].ID != id {
			continue
		}
		switch field {
		case FieldText:
			b.questions[i].Text = value
		case FieldType:
			b.questions[i].Type = models.QuestionType(value)
		case FieldAnswer:
			b.questions[i].Answer = value
		}
		return b.questions[i], nil
	}
	return models.Question{}, errors.ErrQuestionNotFound.WithContext("questionId", id)
}

// Remove drops the question with id
func (b *QuestionBoard) Remove(id string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for i, q := range b.questions {
		if q.ID == id {
			b.questions = append(b.questions[:i:i], b.questions[i+1:]...)
			b.notifier.Notify("Question removed", auth.SeverityInfo)
			return nil
		}
	}
	return errors.ErrQuestionNotFound.WithContext("questionId", id)
}

// Export renders the board as indented JSON and names the file after the
// document being read, or "document" when none is open
func (b *QuestionBoard) Export(documentName string) (filename string, data []byte, err error) {
	questions := b.List()
	if len(questions) == 0 {
		b.notifier.Notify("No questions to save", auth.SeverityWarning)
		return "", nil, errors.ErrNoQuestions
	}

	data, err = json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return "", nil, err
	}

	base := "document"
	if documentName != "" {
		base = utils.TrimPDFExtension(documentName)
	}
	b.notifier.Notify("Questions saved successfully!", auth.SeveritySuccess)
	return "questions-" + base + ".json", data, nil
}
