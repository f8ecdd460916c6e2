package validation

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"tubequiz/internal/domain"
	"tubequiz/internal/dto"
)

const (
	maxUsernameLength = 150
	minPasswordLength = 8
	maxTitleLength    = 255
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	ulidPattern     = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)
)

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCreateQuizRequest checks that url is present and an absolute http(s) URL.
// Whether it points at YouTube is decided by the pipeline.
func (v *Validator) ValidateCreateQuizRequest(req dto.CreateQuizRequest) domain.ValidationErrors {
	var errors domain.ValidationErrors

	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		return append(errors, domain.NewMissingFieldError("url"))
	}
	if !isAbsoluteHTTPURL(raw) {
		errors = append(errors, domain.NewFieldError("url", "Enter a valid URL."))
	}
	return errors
}

// ValidateRegisterRequest checks the registration form. Uniqueness checks
// need the database and are done by the auth service.
func (v *Validator) ValidateRegisterRequest(req dto.RegisterRequest) domain.ValidationErrors {
	var errors domain.ValidationErrors

	switch {
	case strings.TrimSpace(req.Username) == "":
		errors = append(errors, domain.NewMissingFieldError("username"))
	case len(req.Username) > maxUsernameLength:
		errors = append(errors, domain.NewFieldError("username", "Ensure this field has no more than 150 characters."))
	case !usernamePattern.MatchString(req.Username):
		errors = append(errors, domain.NewFieldError("username",
			"Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."))
	}

	switch {
	case strings.TrimSpace(req.Email) == "":
		errors = append(errors, domain.NewMissingFieldError("email"))
	case !emailPattern.MatchString(req.Email):
		errors = append(errors, domain.NewFieldError("email", "Enter a valid email address."))
	}

	if req.Password == "" {
		errors = append(errors, domain.NewMissingFieldError("password"))
	}
	if req.ConfirmedPassword == "" {
		errors = append(errors, domain.NewMissingFieldError("confirmed_password"))
	}
	if len(errors) > 0 {
		return errors
	}

	if req.Password != req.ConfirmedPassword {
		return append(errors, domain.NewFieldError("confirmed_password", "Passwords do not match."))
	}
	return append(errors, ValidatePassword(req.Password)...)
}

// ValidatePassword applies the password policy.
func ValidatePassword(password string) domain.ValidationErrors {
	var errors domain.ValidationErrors
	if len([]rune(password)) < minPasswordLength {
		errors = append(errors, domain.NewFieldError("password",
			"This password is too short. It must contain at least 8 characters."))
	}
	if isAllDigits(password) {
		errors = append(errors, domain.NewFieldError("password", "This password is entirely numeric."))
	}
	return errors
}

// ValidateQuizUpdate checks a PATCH (partial) or PUT (full) quiz update.
func (v *Validator) ValidateQuizUpdate(req dto.UpdateQuizRequest, partial bool) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if req.Title == nil {
		if !partial {
			errors = append(errors, domain.NewMissingFieldError("title"))
		}
	} else if strings.TrimSpace(*req.Title) == "" {
		errors = append(errors, domain.NewFieldError("title", "This field may not be blank."))
	} else if len([]rune(*req.Title)) > maxTitleLength {
		errors = append(errors, domain.NewFieldError("title", "Ensure this field has no more than 255 characters."))
	}

	if req.Description == nil && !partial {
		errors = append(errors, domain.NewMissingFieldError("description"))
	}
	return errors
}

// ValidateQuizID checks the format of a quiz id path parameter.
func (v *Validator) ValidateQuizID(id string) domain.ValidationErrors {
	if strings.TrimSpace(id) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("id")}
	}
	if !ulidPattern.MatchString(id) {
		return domain.ValidationErrors{domain.NewFieldError("id", "Invalid quiz id.")}
	}
	return nil
}

// UnexpectedFields returns the sorted keys of body that are not in allowed.
func UnexpectedFields(body map[string]any, allowed ...string) []string {
	permitted := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		permitted[a] = struct{}{}
	}
	var extra []string
	for k := range body {
		if _, ok := permitted[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
