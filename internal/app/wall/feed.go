// Package wall holds the prayer wall view model: the filtered feed, amen
// handling and burden submission.
package wall

import (
	"context"
	"sync"

	"github.com/yellowbridge/lamentwall/internal/contracts"
	"go.uber.org/zap"
)

// FilterAll lists every prayer type.
const FilterAll = "all"

// Filters is the display order of the filter tabs.
var Filters = append([]string{FilterAll}, contracts.PrayerTypes...)

// NormalizeFilter maps unknown values to FilterAll.
func NormalizeFilter(filter string) string {
	if filter == FilterAll || contracts.IsPrayerType(filter) {
		return filter
	}
	return FilterAll
}

// State is where a feed is in its load. Loading in flight is shown by the
// client's request indicator, so the server only sees the settled states.
type State string

const (
	StateIdle   State = "idle"
	StateLoaded State = "loaded"
	StateError  State = "error"
)

type API interface {
	ListPrayers(ctx context.Context, filter string, limit int) ([]contracts.Prayer, error)
	PrayerStats(ctx context.Context) (contracts.PrayerStats, error)
	SubmitPrayer(ctx context.Context, sub contracts.PrayerSubmission) (contracts.Prayer, error)
	Amen(ctx context.Context, prayerID int64) (contracts.AmenResult, error)
}

// Feed is one wall instance. List and stats are owned separately so a stats
// failure never hides the list and vice versa.
type Feed struct {
	Filter  string
	State   State
	Prayers []contracts.Prayer
	Stats   *contracts.PrayerStats

	ListErr  error
	StatsErr error
}

func NewFeed() *Feed {
	return &Feed{Filter: FilterAll, State: StateIdle}
}

// Empty is true only once a load succeeded with zero prayers.
func (f *Feed) Empty() bool {
	return f.State == StateLoaded && len(f.Prayers) == 0
}

// Load fetches the list for filter and the stats concurrently.
func (f *Feed) Load(ctx context.Context, api API, log *zap.Logger, filter string) {
	f.Filter = NormalizeFilter(filter)

	var (
		wg       sync.WaitGroup
		prayers  []contracts.Prayer
		stats    contracts.PrayerStats
		listErr  error
		statsErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		prayers, listErr = api.ListPrayers(ctx, f.Filter, 0)
	}()
	go func() {
		defer wg.Done()
		stats, statsErr = api.PrayerStats(ctx)
	}()
	wg.Wait()

	f.ListErr, f.StatsErr = listErr, statsErr
	if statsErr != nil {
		log.Warn("load prayer stats failed", zap.Error(statsErr))
	} else {
		f.Stats = &stats
	}
	if listErr != nil {
		log.Warn("load prayers failed", zap.String("filter", f.Filter), zap.Error(listErr))
		f.State = StateError
		return
	}
	f.Prayers = prayers
	f.State = StateLoaded
}
