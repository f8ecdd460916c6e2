package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StringSlice stores a list of strings as a JSON array in a CLOB column.
type StringSlice []string

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	jsonData, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(jsonData), nil
}

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	var bytesToParse []byte
	switch v := value.(type) {
	case []byte:
		bytesToParse = v
	case string:
		bytesToParse = []byte(v)
	default:
		return errors.New("StringSlice Scan: unsupported type " + fmt.Sprintf("%T", value))
	}

	if len(bytesToParse) == 0 || string(bytesToParse) == "null" {
		*s = StringSlice{}
		return nil
	}
	return json.Unmarshal(bytesToParse, s)
}

// Quiz is a row of the quizzes table.
type Quiz struct {
	ID          string         `db:"ID"`
	UserID      string         `db:"USER_ID"`
	Title       string         `db:"TITLE"`
	Description sql.NullString `db:"DESCRIPTION"` // Oracle stores '' as NULL
	VideoURL    string         `db:"VIDEO_URL"`
	CreatedAt   time.Time      `db:"CREATED_AT"`
	UpdatedAt   time.Time      `db:"UPDATED_AT"`
}

// QuizQuestion is a row of the quiz_questions table.
type QuizQuestion struct {
	ID              string      `db:"ID"`
	QuizID          string      `db:"QUIZ_ID"`
	Position        int         `db:"POSITION"`
	QuestionTitle   string      `db:"QUESTION_TITLE"`
	QuestionOptions StringSlice `db:"QUESTION_OPTIONS"`
	Answer          string      `db:"ANSWER"`
	CreatedAt       time.Time   `db:"CREATED_AT"`
	UpdatedAt       time.Time   `db:"UPDATED_AT"`
}
