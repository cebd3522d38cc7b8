package handlers

import (
	"errors"

	"github.com/spec-kit/loyalty-service/internal/service"
	apperrors "github.com/spec-kit/loyalty-service/pkg/util"
)

// mapServiceError translates service failures into domain errors.
func mapServiceError(err error) error {
	var persistErr *service.PersistenceError
	switch {
	case errors.As(err, &persistErr):
		return apperrors.NewServiceUnavailable("customer store unavailable", err)
	case errors.Is(err, service.ErrRunInProgress):
		return apperrors.NewConflict("daily run already in progress", nil)
	default:
		return apperrors.MapError(err)
	}
}
