package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/itmedclk/HealthNews/internal/ports"
)

// slotDecision is the outcome of the per-brand day check: either the
// brand is done for now (alreadyScheduled) or entries should be
// scanned for a post at target.
type slotDecision struct {
	target           time.Time
	immediate        bool
	alreadyScheduled bool
}

// daySlot computes the brand's target posting time for this run.
//
// Not posted today: the slot is today's configured hour:minute, or
// now when that time has already passed. Posted today with tomorrow
// already covered by a scheduled record: nothing to do. Otherwise the
// slot is tomorrow's configured hour:minute.
func daySlot(ctx context.Context, store ports.HistoryStore, brand string, now time.Time, hour, minute int) (slotDecision, error) {
	loc := now.Location()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	posted, err := store.PostedBetween(ctx, brand, dayStart, dayEnd)
	if err != nil {
		return slotDecision{}, fmt.Errorf("posted-today lookup: %w", err)
	}

	if !posted {
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
		if !target.After(now) {
			return slotDecision{target: now, immediate: true}, nil
		}
		return slotDecision{target: target}, nil
	}

	tomorrowEnd := dayEnd.AddDate(0, 0, 1)
	scheduled, err := store.ScheduledBetween(ctx, brand, dayEnd, tomorrowEnd)
	if err != nil {
		return slotDecision{}, fmt.Errorf("scheduled-tomorrow lookup: %w", err)
	}
	if scheduled {
		return slotDecision{alreadyScheduled: true}, nil
	}

	tomorrow := dayEnd
	target := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, minute, 0, 0, loc)
	return slotDecision{target: target}, nil
}
