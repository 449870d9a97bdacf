package models

// QuestionType is one of the answer formats offered by the questions board
type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionMultiple QuestionType = "multiple"
	QuestionYesNo    QuestionType = "yesno"
)

// Question is a note attached to the document being read
type Question struct {
	ID     string       `json:"id"`
	Type   QuestionType `json:"type"`
	Text   string       `json:"text"`
	Answer string       `json:"answer"`
}
