package services

import (
	"errors"
	"fmt"

	"groupgames-service/internal/repositories"
)

// Error classes surfaced to the HTTP boundary. Concrete errors wrap one of these.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation error")
	ErrNotMember  = errors.New("not a group member")
)

// repoError translates repository sentinels into the service error classes.
func repoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrGroupNotFound):
		return fmt.Errorf("%w: group not found", ErrNotFound)
	case errors.Is(err, repositories.ErrGameNotFound):
		return fmt.Errorf("%w: game not found", ErrNotFound)
	case errors.Is(err, repositories.ErrUserNotFound):
		return fmt.Errorf("%w: user not found", ErrNotFound)
	case errors.Is(err, repositories.ErrGroupFull):
		return fmt.Errorf("%w: group is full", ErrConflict)
	case errors.Is(err, repositories.ErrAlreadyMember):
		return fmt.Errorf("%w: already a member of this group", ErrConflict)
	case errors.Is(err, repositories.ErrActiveGameExists):
		return fmt.Errorf("%w: group already has an active game", ErrConflict)
	default:
		return err
	}
}
