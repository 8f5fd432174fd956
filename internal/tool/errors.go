package tool

import "fmt"

const (
	CodeValidation       = "VALIDATION"
	CodeDomainConversion = "DOMAIN_CONVERSION"
	CodeInvalidGeometry  = "INVALID_GEOMETRY"
	CodeLockedTool       = "LOCKED_TOOL"
	CodePersistence      = "PERSISTENCE"
	CodeNotFound         = "NOT_FOUND"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

// NewError constructs a CodedError with an optional cause.
func NewError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}
