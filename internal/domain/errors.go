package domain

import (
	"errors"
	"fmt"
)

// Базовые виды ошибок, по ним хендлеры выбирают HTTP статус
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error связывает вид ошибки с сообщением, которое можно показать клиенту
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func NotFoundError(what string) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s not found", what)}
}

func ValidationError(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(message string, cause error) error {
	return &Error{Kind: ErrConflict, Message: message, Cause: cause}
}
