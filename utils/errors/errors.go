package errors

import (
	"strings"

	"github.com/diorder/diorder/constant"
)

type CustomError struct {
	errType constant.ErrorType
	fields  []string
}

func (c CustomError) Error() string {
	msg := constant.ErrorTypeMessage[c.errType]
	if len(c.fields) > 0 {
		msg += ": " + strings.Join(c.fields, ", ")
	}
	return msg
}

func (c CustomError) ErrorCode() string {
	return constant.ErrorTypeCode[c.errType]
}

func (c CustomError) ErrorHTTPCode() int {
	return constant.ErrorTypeHTTPCode[c.errType]
}

func (c CustomError) Type() constant.ErrorType {
	return c.errType
}

// Fields lists the offending fields of a validation error, empty otherwise.
func (c CustomError) Fields() []string {
	return c.fields
}

func SetCustomError(errorType constant.ErrorType) CustomError {
	return CustomError{
		errType: errorType,
	}
}

// SetFieldError builds a CustomError carrying the fields that failed, so the
// caller can surface every one of them at once.
func SetFieldError(errorType constant.ErrorType, fields ...string) CustomError {
	return CustomError{
		errType: errorType,
		fields:  fields,
	}
}
