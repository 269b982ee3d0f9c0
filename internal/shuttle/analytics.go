package shuttle

import (
	"sort"
	"strings"
	"time"
)

const (
	appointmentLayout = "2006-01-02 15:04"
	signLayout        = "2006-01-02 15:04:05"

	hourMin = 5
	hourMax = 23

	// Sign-in deltas outside the trimmed range are clamped to bounds widened
	// by this many minutes on each side.
	deltaPad = 2
)

// HourlyCount is the per-hour ride count split by inferred direction.
type HourlyCount struct {
	Hour        int
	ToYanyuan   int
	ToChangping int
}

// DeltaBucket counts rides whose sign-in happened Minutes after (negative:
// before) the appointment time.
type DeltaBucket struct {
	Minutes int
	Count   int
}

// RouteCount is the ride count of one named route.
type RouteCount struct {
	Name  string
	Count int
}

// Analytics is recomputed wholesale from a record list on every call.
type Analytics struct {
	ValidRides   int
	CalendarDays []time.Time // distinct ride days, ascending
	Hourly       []HourlyCount
	SignInDeltas []DeltaBucket
	DeltaRange   [2]int // inclusive bounds of the sign-in delta axis
	NoShowRate   float64
	Routes       []RouteCount
}

// RouteToChangping infers the direction from the order of the campus glyphs
// in the route name: 燕 before 新 reads "from Yanyuan", so the ride heads to
// Changping. A missing glyph sorts last.
func RouteToChangping(routeName string) bool {
	yan := glyphIndex(routeName, "燕")
	xin := glyphIndex(routeName, "新")
	return yan < xin
}

func glyphIndex(s, glyph string) int {
	if i := strings.Index(s, glyph); i >= 0 {
		return i
	}
	return len(s)
}

// Analyze derives the ride-history aggregates. Pure: same input, same output,
// and the input slice is never modified.
func Analyze(records []RideRecord) Analytics {
	var (
		valid      int
		noShows    int
		routes     = map[string]int{}
		hourly     = map[int]*HourlyCount{}
		daySet     = map[time.Time]struct{}{}
		signDeltas []int
	)

	for _, r := range records {
		if r.StatusName == StatusCancelled {
			continue
		}
		valid++
		routes[r.ResourceName]++
		if r.StatusName == StatusBooked {
			noShows++
		}

		appt, apptErr := time.Parse(appointmentLayout, strings.TrimSpace(r.AppointmentTime))
		if apptErr == nil {
			h := appt.Hour()
			if h >= hourMin && h <= hourMax {
				hc := hourly[h]
				if hc == nil {
					hc = &HourlyCount{Hour: h}
					hourly[h] = hc
				}
				if RouteToChangping(r.ResourceName) {
					hc.ToChangping++
				} else {
					hc.ToYanyuan++
				}
			}
			daySet[appt.Truncate(24*time.Hour)] = struct{}{}
		}

		if r.SignTime != "" && apptErr == nil {
			if sign, err := time.Parse(signLayout, r.SignTime); err == nil {
				signDeltas = append(signDeltas, int(sign.Sub(appt).Minutes()))
			}
		}
	}

	a := Analytics{ValidRides: valid}

	for day := range daySet {
		a.CalendarDays = append(a.CalendarDays, day)
	}
	sort.Slice(a.CalendarDays, func(i, j int) bool { return a.CalendarDays[i].Before(a.CalendarDays[j]) })

	a.Hourly = make([]HourlyCount, 0, hourMax-hourMin+1)
	for h := hourMin; h <= hourMax; h++ {
		if hc := hourly[h]; hc != nil {
			a.Hourly = append(a.Hourly, *hc)
		} else {
			a.Hourly = append(a.Hourly, HourlyCount{Hour: h})
		}
	}

	a.SignInDeltas, a.DeltaRange = bucketDeltas(signDeltas)

	if valid > 0 {
		a.NoShowRate = float64(noShows) / float64(valid)
	}

	for name, n := range routes {
		a.Routes = append(a.Routes, RouteCount{Name: name, Count: n})
	}
	sort.Slice(a.Routes, func(i, j int) bool {
		if a.Routes[i].Count != a.Routes[j].Count {
			return a.Routes[i].Count > a.Routes[j].Count
		}
		return a.Routes[i].Name < a.Routes[j].Name
	})

	return a
}

// bucketDeltas trims the deltas to the central ~95% by sorted index,
// symmetrizes the bounds around zero using the larger absolute bound, pads
// both ends, and clamps out-of-range values onto the bounds.
func bucketDeltas(deltas []int) ([]DeltaBucket, [2]int) {
	if len(deltas) == 0 {
		return nil, [2]int{}
	}

	sorted := append([]int(nil), deltas...)
	sort.Ints(sorted)
	lower := sorted[int(float64(len(sorted))*0.025)]
	upper := sorted[int(float64(len(sorted))*0.975)]

	bound := maxInt(absInt(lower), absInt(upper)) + deltaPad
	lo, hi := -bound, bound

	counts := map[int]int{}
	for _, d := range deltas {
		if d < lo {
			d = lo
		}
		if d > hi {
			d = hi
		}
		counts[d]++
	}

	buckets := make([]DeltaBucket, 0, len(counts))
	for m, n := range counts {
		buckets = append(buckets, DeltaBucket{Minutes: m, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Minutes < buckets[j].Minutes })
	return buckets, [2]int{lo, hi}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
