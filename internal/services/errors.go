package services

import (
	stderrors "errors"

	"github.com/abrezinsky/zoolo/internal/errors"
	"github.com/abrezinsky/zoolo/internal/repository"
)

// Service errors
var (
	ErrEmptyTicket        = errors.Validation("empty ticket")
	ErrInvalidAnimal      = errors.Validation("invalid animal")
	ErrAdminOnly          = errors.Unauthorized("operator access required")
	ErrAdminCannotSell    = errors.Unauthorized("operator accounts cannot sell tickets")
	ErrAgencyDisabled     = errors.Unauthorized("agency is disabled")
	ErrNotOwner           = errors.Unauthorized("ticket belongs to another agency")
	ErrInvalidCredentials = errors.Unauthorized("invalid username or password")
	ErrTicketNotFound     = errors.NotFound("ticket not found")
	ErrAgencyNotFound     = errors.NotFound("agency not found")
	ErrAlreadyPaid        = errors.Conflict("ticket already paid")
	ErrAlreadyVoided      = errors.Conflict("ticket already voided")
	ErrTicketVoided       = errors.Conflict("ticket is voided")
	ErrNoPrize            = errors.Conflict("ticket has no prize to pay")
	ErrUsernameTaken      = errors.Conflict("username already taken")
)

// notFound maps repository.ErrNotFound to the given service error and
// wraps anything else as internal.
func notFound(err error, mapped *errors.Error) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return mapped
	}
	return errors.Internal(err)
}
