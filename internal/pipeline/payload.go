package pipeline

import (
	"encoding/json"
	"strings"

	"tubequiz/internal/domain"
)

// ExtractJSONCandidate drops any prose before the first '{' and strips every
// backtick, which removes markdown code fences around the JSON.
func ExtractJSONCandidate(raw string) string {
	i := strings.IndexByte(raw, '{')
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(raw[i:], "`", ""))
}

// ParseQuizPayload decodes the model output into a generic JSON tree.
func ParseQuizPayload(raw string) (any, error) {
	var payload any
	if err := json.Unmarshal([]byte(ExtractJSONCandidate(raw)), &payload); err != nil {
		return nil, domain.NewQuizCreationError("Gemini returned invalid JSON", err)
	}
	return payload, nil
}

func invalid(message string) error {
	return domain.NewQuizCreationError(message, nil)
}

// ValidateQuizPayload checks the decoded tree and stops at the first
// violation. Only a payload that passes every rule is turned into a draft.
func ValidateQuizPayload(payload any) (*domain.QuizDraft, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, invalid("Invalid quiz payload type.")
	}

	for _, key := range []string{"title", "description", "questions"} {
		if _, ok := obj[key]; !ok {
			return nil, invalid("Gemini payload missing required keys.")
		}
	}

	rawQuestions, ok := obj["questions"].([]any)
	if !ok || len(rawQuestions) != domain.QuestionsPerQuiz {
		return nil, invalid("Gemini payload must contain exactly 10 questions.")
	}

	questions := make([]domain.QuestionDraft, 0, len(rawQuestions))
	for _, rq := range rawQuestions {
		q, err := validateQuestion(rq)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	title, ok := obj["title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		return nil, invalid("Quiz title must be a non-empty string.")
	}
	description, ok := obj["description"].(string)
	if !ok {
		return nil, invalid("Quiz description must be a string.")
	}

	return &domain.QuizDraft{
		Title:       title,
		Description: description,
		Questions:   questions,
	}, nil
}

func validateQuestion(raw any) (domain.QuestionDraft, error) {
	q, ok := raw.(map[string]any)
	if !ok {
		return domain.QuestionDraft{}, invalid("Invalid question payload.")
	}

	title, ok := q["question_title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		return domain.QuestionDraft{}, invalid("Each question must have a non-empty question_title.")
	}

	rawOptions, ok := q["question_options"].([]any)
	if !ok || len(rawOptions) != domain.OptionsPerQuestion {
		return domain.QuestionDraft{}, invalid("Each question must have exactly 4 options.")
	}

	options := make([]string, 0, len(rawOptions))
	for _, ro := range rawOptions {
		o, ok := ro.(string)
		if !ok || strings.TrimSpace(o) == "" {
			return domain.QuestionDraft{}, invalid("All options must be non-empty strings.")
		}
		options = append(options, o)
	}

	distinct := make(map[string]struct{}, len(options))
	for _, o := range options {
		distinct[o] = struct{}{}
	}
	if len(distinct) != domain.OptionsPerQuestion {
		return domain.QuestionDraft{}, invalid("Options must be distinct.")
	}

	answer, ok := q["answer"].(string)
	if !ok {
		return domain.QuestionDraft{}, invalid("Answer must be one of the options.")
	}
	if _, ok := distinct[answer]; !ok {
		return domain.QuestionDraft{}, invalid("Answer must be one of the options.")
	}

	return domain.QuestionDraft{
		QuestionTitle:   title,
		QuestionOptions: options,
		Answer:          answer,
	}, nil
}
