package usecase

import (
	"errors"
	"fmt"

	"github.com/eladlevy/leadgate/internal/entity"
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DuplicateError carries the decision engine's verdict back to the caller:
// which rule fired and which existing lead it matched. It is not a failure of
// the pipeline, just a "do not create" outcome.
type DuplicateError struct {
	Reason  DuplicateReason
	Matched *entity.Lead
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate lead (%s), matches lead %s", e.Reason, e.Matched.ID)
}
