// Package service holds the booking, checkout, reconciliation and
// self-service logic.  Services depend on narrow store interfaces that the
// repository package satisfies; every error they return belongs to the
// apperr taxonomy.
package service

import (
	"errors"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/repository"
)

// storeErr converts a repository error into the apperr taxonomy.  what
// names the entity for not-found messages.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(what + " not found")
	case errors.Is(err, repository.ErrConflict):
		return &apperr.Error{Kind: apperr.KindConflict, Msg: what + " was modified concurrently", Err: err}
	case errors.Is(err, repository.ErrForbidden):
		return apperr.NotFound(what + " not found")
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Persistence("could not access "+what, err)
}
