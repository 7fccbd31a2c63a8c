package refresher

import (
	"context"
	"time"

	"github.com/esipilot/esikit/tokenstore"
)

// ScheduleState persists a schedule's next fire time, so a restarted
// process resumes the cadence instead of sweeping immediately.
type ScheduleState struct {
	Name      string    `gorm:"primaryKey"`
	NextRun   time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// Store is the slice of the credential store the refresher depends on.
// *tokenstore.Service satisfies it.
type Store interface {
	ExpiringWithin(ctx context.Context, window time.Duration) ([]tokenstore.TokenInfo, error)
	Refresh(ctx context.Context, characterID int64) (bool, error)
}
