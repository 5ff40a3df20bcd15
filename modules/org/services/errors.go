package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
)

const (
	CodeInvalidRange            = "V_INVALID_RANGE"
	CodeInvalidOperation        = "V_INVALID_OPERATION"
	CodeDateOutsideOrgUnitRange = "V_DATE_OUTSIDE_ORG_UNIT_RANGE"
	CodeDateOutsideEmplRange    = "V_DATE_OUTSIDE_EMPL_RANGE"
	CodeStaleEdit               = "V_STALE_EDIT"
	CodeCannotMoveRootOrgUnit   = "V_CANNOT_MOVE_ROOT_ORG_UNIT"
	CodeOrgUnitMoveToChild      = "V_ORG_UNIT_MOVE_TO_CHILD"
	CodeOrgUnitInactiveAncestor = "V_ORG_UNIT_INACTIVE_ANCESTOR"
	CodeInvalidInactivationDate = "V_INVALID_INACTIVATION_DATE"
	CodeUnknownRoleType         = "V_UNKNOWN_ROLE_TYPE"
	CodeInvalidBody             = "V_INVALID_BODY"
	CodeNotFound                = "E_NOT_FOUND"
)

type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

var (
	ErrCycle            = errors.New("hierarchy cycle")
	ErrInactiveAncestor = errors.New("inactive ancestor")
)

// CycleError reports that the candidate parent lies below the unit being moved,
// or that the walk revisited a node or outgrew the depth bound.
type CycleError struct {
	UnitID uuid.UUID
	At     uuid.UUID
	Depth  int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("org unit %s reached again at %s (depth %d)", e.UnitID, e.At, e.Depth)
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

type InactiveAncestorError struct {
	AncestorID uuid.UUID
}

func (e *InactiveAncestorError) Error() string {
	return fmt.Sprintf("ancestor %s is not active", e.AncestorID)
}

func (e *InactiveAncestorError) Is(target error) bool { return target == ErrInactiveAncestor }

// StoreError marks a failure of the external store. The store's own error is
// kept as-is behind Unwrap.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func storeError(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return newServiceError(http.StatusNotFound, CodeNotFound, "not found", &StoreError{Op: op, Err: err})
	}
	return &StoreError{Op: op, Err: err}
}

// mapValidityError turns engine errors into service errors; anything else is returned untouched.
func mapValidityError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	switch {
	case errors.Is(err, validity.ErrStaleEdit):
		return newServiceError(http.StatusConflict, CodeStaleEdit, "registration changed since it was read", err)
	case errors.Is(err, validity.ErrInvalidOperation):
		return newServiceError(http.StatusUnprocessableEntity, CodeInvalidOperation, "operation not allowed", err)
	case errors.Is(err, validity.ErrInvalidRange):
		return newServiceError(http.StatusBadRequest, CodeInvalidRange, "invalid validity range", err)
	default:
		return err
	}
}

func invalidBody(message string, cause error) *ServiceError {
	return newServiceError(http.StatusBadRequest, CodeInvalidBody, message, cause)
}
