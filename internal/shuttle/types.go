package shuttle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Direction of travel between the two campuses.
type Direction string

const (
	ToYanyuan   Direction = "to_yanyuan"
	ToChangping Direction = "to_changping"
)

func (d Direction) Opposite() Direction {
	if d == ToYanyuan {
		return ToChangping
	}
	return ToYanyuan
}

// Resource ids are fixed per direction on the portal side.
var directionByResource = map[int]Direction{
	2: ToYanyuan,
	4: ToYanyuan,
	5: ToChangping,
	6: ToChangping,
	7: ToChangping,
}

// DirectionOf maps a portal resource id to its travel direction.
func DirectionOf(resourceID int) (Direction, bool) {
	d, ok := directionByResource[resourceID]
	return d, ok
}

// Period is one departure slot of a shuttle resource.
type Period struct {
	ID        int
	StartTime string // HH:MM
	IsTemp    bool
}

// BusResource is one shuttle line with its departure slots for the day.
type BusResource struct {
	ID      int
	Name    string
	Periods []Period
}

// TimingConfig bounds the acceptance window around "now" and carries the
// clock time that flips the default direction.
type TimingConfig struct {
	PrevInterval int    // minutes of trailing grace after a departure
	NextInterval int    // minutes of lead before a departure
	CriticalTime string // HH:MM; before it the default direction is ToYanyuan
}

// DefaultDirection returns the direction to use when the caller did not
// choose one: ToYanyuan before the critical time, ToChangping at or after.
func (c TimingConfig) DefaultDirection(now time.Time) Direction {
	crit, err := ParseClock(c.CriticalTime)
	if err != nil {
		crit = 14 * 60
	}
	if now.Hour()*60+now.Minute() < crit {
		return ToYanyuan
	}
	return ToChangping
}

// ParseClock converts an HH:MM string to minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h*60 + m, nil
}

// Ride history status names as the portal returns them.
const (
	StatusBooked    = "已预约"
	StatusSignedIn  = "已签到"
	StatusCancelled = "已撤销"
)

// RideRecord is one historical reservation as returned by the portal.
// Records are read-only; a refresh replaces the whole list.
type RideRecord struct {
	AppID             int64
	AppointmentDataID int64
	ResourceID        int
	ResourceName      string
	PeriodText        string
	CreatorName       string
	Department        string
	StatusName        string
	AppointmentTime   string // yyyy-MM-dd HH:mm
	SignTime          string // yyyy-MM-dd HH:mm:ss, empty if never signed in
}
