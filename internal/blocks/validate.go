package blocks

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/smartblock/internal/apperr"
	"github.com/starford/smartblock/internal/models"
)

var blockIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidationResult reports whether a block may enter a document's block list.
// Warnings never affect IsValid.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidationError is returned by operations that refuse to produce an invalid block.
type ValidationError struct {
	BlockID string
	Errors  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("block %q: %s", e.BlockID, strings.Join(e.Errors, "; "))
}

// Unwrap lets callers match with errors.Is(err, apperr.ErrInvalidBlock).
func (e *ValidationError) Unwrap() error {
	return apperr.ErrInvalidBlock
}

// Validate checks b against the engine vocabulary and content bounds.
// It depends on nothing but b and the engine configuration.
func (e *Engine) Validate(b models.Block) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if err := validation.Validate(b.ID,
		validation.Required.Error("id is required"),
		validation.Match(blockIDRe).Error(fmt.Sprintf("id %q may only contain letters, digits, '_' and '-'", b.ID)),
	); err != nil {
		res.Errors = append(res.Errors, err.Error())
	}

	if err := validation.Validate(string(b.Type),
		validation.Required.Error("type is required"),
		validation.In(e.typeValues()...).Error(fmt.Sprintf("invalid type %q: must be one of %s", b.Type, strings.Join(e.typeList, ", "))),
	); err != nil {
		res.Errors = append(res.Errors, err.Error())
	}

	n := utf8.RuneCountInString(b.Content)
	if err := validation.Validate(b.Content,
		validation.Required.Error("content is required"),
		validation.By(notBlank),
		validation.RuneLength(e.minLen, e.maxLen).Error(
			fmt.Sprintf("content length %d outside allowed range [%d, %d]", n, e.minLen, e.maxLen)),
	); err != nil {
		res.Errors = append(res.Errors, err.Error())
	}

	for _, t := range b.Tags {
		if strings.ContainsFunc(t, isTagSeparator) {
			res.Errors = append(res.Errors, fmt.Sprintf("tag %q may not contain whitespace or ','", t))
		}
	}
	for i, line := range strings.Split(b.Content, "\n") {
		if isEndMarker(line) {
			res.Errors = append(res.Errors, fmt.Sprintf("block %q content line %d is an end marker", b.ID, i+1))
		}
	}

	if len(b.Tags) > maxTagsBeforeWarning {
		res.Warnings = append(res.Warnings, fmt.Sprintf("block has %d tags (more than %d)", len(b.Tags), maxTagsBeforeWarning))
	}
	if n > longContentWarningChars {
		res.Warnings = append(res.Warnings, fmt.Sprintf("content is %d characters (more than %d)", n, longContentWarningChars))
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

// check returns a *ValidationError when b is invalid or cannot be written
// back out. A start marker inside content parses as a nested block, so only
// blocks about to be generated are held to it.
func (e *Engine) check(b models.Block) error {
	v := e.Validate(b)
	for i, line := range strings.Split(b.Content, "\n") {
		if _, ok := parseStartMarker(line); ok {
			v.Errors = append(v.Errors, fmt.Sprintf("block %q content line %d is a start marker", b.ID, i+1))
		}
	}
	if len(v.Errors) > 0 {
		return &ValidationError{BlockID: b.ID, Errors: v.Errors}
	}
	return nil
}

func isTagSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

func (e *Engine) typeValues() []any {
	out := make([]any, len(e.typeList))
	for i, t := range e.typeList {
		out[i] = t
	}
	return out
}

var errBlankContent = errors.New("content is empty")

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errBlankContent
	}
	return nil
}
