// Package twoface делит ошибку на две половины: внутреннюю, которая может
// содержать чувствительные детали и только логируется, и внешнюю, которую видит
// пользователь.
package twoface

import (
	"errors"
	"fmt"
)

const defaultText = "Internal server error"

// ExternalError - то, что увидит пользователь.
type ExternalError struct {
	Cause Cause
	Text  string
}

func (e ExternalError) String() string {
	return fmt.Sprintf("%s: %s", e.Cause, e.Text)
}

// DefaultExternal - ServerError с максимально общим текстом.
func DefaultExternal() ExternalError {
	return ExternalError{Cause: ServerError, Text: defaultText}
}

// Error связывает внутреннюю ошибку с внешним описанием.
type Error struct {
	// Internal может содержать чувствительные данные, наружу не отдаётся.
	Internal error
	External ExternalError
}

// Error показывает только внешнюю половину.
func (e *Error) Error() string {
	return e.External.String()
}

func (e *Error) Unwrap() error {
	return e.Internal
}

// Describe явно классифицирует ошибку для пользователя.
func Describe(err error, external ExternalError) *Error {
	if err == nil {
		err = errors.New(external.Text)
	}
	return &Error{Internal: err, External: external}
}

// DescribeErr - Describe для вызовов вида (T, error).
func DescribeErr[T any](v T, err error, external ExternalError) (T, error) {
	if err != nil {
		return v, Describe(err, external)
	}
	return v, nil
}

// From оставляет уже описанную ошибку как есть, а любую другую оборачивает
// во внешнее описание по умолчанию.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var tf *Error
	if errors.As(err, &tf) {
		return tf
	}
	return &Error{Internal: err, External: DefaultExternal()}
}

// Errorf создаёт внутреннюю ошибку с внешним описанием по умолчанию.
func Errorf(format string, args ...any) *Error {
	return From(fmt.Errorf(format, args...))
}

// Invalid - короткая запись для ошибок валидации поля.
func Invalid(err error, text string) *Error {
	return Describe(err, ExternalError{Cause: UserInvalidField, Text: text})
}
