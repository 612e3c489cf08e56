package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/realtime"
	"github.com/classtrack/classtrack-api/pkg/validation"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Grid cache keys.
const (
	gridCachePattern  = "grid:*"
	gridRoomsKey      = "grid:rooms"
	gridWindowsPrefix = "grid:windows:"
)

// gridWindowsMaxTTL bounds how long another instance's stale window list can survive.
const gridWindowsMaxTTL = 10 * time.Second

func validationError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, strings.Join(validation.Messages(err), "; "))
}

// requireManager rejects callers that may not change rooms or timetables.
func requireManager(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if !actor.Role.CanManageRooms() {
		return appErrors.Clone(appErrors.ErrForbidden, "only class representatives can perform this action")
	}
	if !actor.Branch.Valid() {
		return appErrors.Clone(appErrors.ErrForbidden, "profile has no valid branch")
	}
	return nil
}

func notifierOrNop(n realtime.Notifier) realtime.Notifier {
	if n == nil {
		return realtime.NopNotifier{}
	}
	return n
}
