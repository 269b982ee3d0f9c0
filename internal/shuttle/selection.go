package shuttle

import "time"

// TempResource identifies the "ride now" resource used for temporary codes
// when no scheduled departure falls inside the acceptance window.
type TempResource struct {
	ID   int
	Name string
}

// DefaultTempResources picks the first resource of each direction.
var DefaultTempResources = map[Direction]TempResource{
	ToYanyuan:   {ID: 2, Name: "新校区→燕园校区"},
	ToChangping: {ID: 5, Name: "燕园校区→新校区"},
}

// SelectConfig carries everything SelectBus needs besides the catalog itself,
// so the decision stays a pure function of its arguments.
type SelectConfig struct {
	Timing TimingConfig

	// TempResources overrides the per-direction "ride now" resource.
	// Nil falls back to DefaultTempResources.
	TempResources map[Direction]TempResource
}

func (c SelectConfig) tempFor(d Direction) TempResource {
	if t, ok := c.TempResources[d]; ok {
		return t
	}
	return DefaultTempResources[d]
}

// SelectionResult is the selector's decision. A zero ResourceID means no bus
// is available in the requested direction at all; IsTemp means no scheduled
// departure qualified and a temporary code should be requested instead.
type SelectionResult struct {
	ResourceID   int
	ResourceName string
	PeriodID     int
	StartTime    string
	IsTemp       bool
}

// NoBus reports the canonical no-bus-available sentinel.
func (r SelectionResult) NoBus() bool { return r.ResourceID == 0 }

// SelectBus picks the departure to ride for the requested direction.
//
// A period qualifies when its start time is within
// [-PrevInterval, +NextInterval] minutes of now. Among qualifying periods the
// soonest upcoming one wins (smallest non-negative delta); if every qualifying
// period already departed, the most recent one wins (largest negative delta),
// since a bus that just left can still be signed into. Ties keep the first
// period seen, in resource declaration order.
//
// With qualifying periods absent but the direction served, the result is the
// temporary "ride now" resource with the current time as its start. With no
// resource serving the direction at all, the zero-id sentinel is returned.
func SelectBus(resources []BusResource, dir Direction, now time.Time, cfg SelectConfig) SelectionResult {
	var filtered []BusResource
	for _, r := range resources {
		if d, ok := DirectionOf(r.ID); ok && d == dir {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 {
		return SelectionResult{}
	}

	nowMin := now.Hour()*60 + now.Minute()
	var (
		best      BusResource
		bestP     Period
		bestDelta int
		found     bool
	)
	for _, r := range filtered {
		for _, p := range r.Periods {
			start, err := ParseClock(p.StartTime)
			if err != nil {
				continue
			}
			delta := start - nowMin
			if delta < -cfg.Timing.PrevInterval || delta > cfg.Timing.NextInterval {
				continue
			}
			if !found || betterDelta(delta, bestDelta) {
				best, bestP, bestDelta, found = r, p, delta, true
			}
		}
	}
	if found {
		return SelectionResult{
			ResourceID:   best.ID,
			ResourceName: best.Name,
			PeriodID:     bestP.ID,
			StartTime:    bestP.StartTime,
		}
	}

	temp := cfg.tempFor(dir)
	return SelectionResult{
		ResourceID:   temp.ID,
		ResourceName: temp.Name,
		StartTime:    now.Format("15:04"),
		IsTemp:       true,
	}
}

// betterDelta reports whether a strictly beats b: any upcoming departure beats
// any departed one, sooner beats later among upcoming, and more recent beats
// older among departed. Equal deltas are not "better", keeping first-seen.
func betterDelta(a, b int) bool {
	switch {
	case a >= 0 && b >= 0:
		return a < b
	case a >= 0:
		return true
	case b >= 0:
		return false
	default:
		return a > b
	}
}
