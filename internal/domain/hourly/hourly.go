package hourly

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"vendibook/internal/domain/shared/daterange"
)

const HoursPerDay = 24

var (
	ErrInvalidWindow   = errors.New("hourly: window must satisfy 0 <= start < end <= 24")
	ErrInvalidDuration = errors.New("hourly: min hours must be positive and not exceed max hours")
)

// Window is a half-open block of bookable hours [StartHour, EndHour) within one day.
type Window struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

func NewWindow(start, end int) (Window, error) {
	w := Window{StartHour: start, EndHour: end}
	if !w.Valid() {
		return Window{}, ErrInvalidWindow
	}
	return w, nil
}

func (w Window) Valid() bool {
	return w.StartHour >= 0 && w.StartHour < w.EndHour && w.EndHour <= HoursPerDay
}

func (w Window) Hours() int {
	return w.EndHour - w.StartHour
}

func (w Window) Overlaps(other Window) bool {
	return w.StartHour < other.EndHour && other.StartHour < w.EndHour
}

func (w Window) ContainsHour(hour int) bool {
	return hour >= w.StartHour && hour < w.EndHour
}

func (w Window) Covers(other Window) bool {
	return other.StartHour >= w.StartHour && other.EndHour <= w.EndHour
}

// On converts the window to instants on date d.
func (w Window) On(d daterange.Date) daterange.TimeRange {
	return daterange.TimeRange{Start: d.At(w.StartHour), End: d.At(w.EndHour)}
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s", FormatHour(w.StartHour), FormatHour(w.EndHour))
}

// Settings is a listing's hourly configuration.
type Settings struct {
	MinHours  int                         `json:"min_hours"`
	MaxHours  int                         `json:"max_hours"`
	Weekly    map[time.Weekday][]Window   `json:"weekly,omitempty"`
	Overrides map[daterange.Date][]Window `json:"overrides,omitempty"`
}

func (s Settings) Validate() error {
	if s.MinHours < 0 || (s.MaxHours > 0 && s.MaxHours < s.MinHours) {
		return ErrInvalidDuration
	}
	return nil
}

// Bounds returns the effective min and max booking length. A max of zero means
// the window end is the only limit.
func (s Settings) Bounds() (int, int) {
	minHours := s.MinHours
	if minHours < 1 {
		minHours = 1
	}
	maxHours := s.MaxHours
	if maxHours <= 0 {
		maxHours = HoursPerDay
	}
	if maxHours < minHours {
		maxHours = minHours
	}
	return minHours, maxHours
}

// WindowsForDate returns the normalized windows for d. A per-date override
// replaces the weekday default, including an empty override that closes the day.
func (s Settings) WindowsForDate(d daterange.Date) []Window {
	if windows, ok := s.Overrides[d]; ok {
		return Normalize(windows)
	}
	return Normalize(s.Weekly[d.Weekday()])
}

// Clone deep-copies the maps.
func (s Settings) Clone() Settings {
	out := Settings{MinHours: s.MinHours, MaxHours: s.MaxHours}
	if s.Weekly != nil {
		out.Weekly = make(map[time.Weekday][]Window, len(s.Weekly))
		for k, v := range s.Weekly {
			out.Weekly[k] = append([]Window(nil), v...)
		}
	}
	if s.Overrides != nil {
		out.Overrides = make(map[daterange.Date][]Window, len(s.Overrides))
		for k, v := range s.Overrides {
			out.Overrides[k] = append([]Window(nil), v...)
		}
	}
	return out
}

// Normalize drops invalid windows, sorts, and merges overlapping or touching ones.
func Normalize(windows []Window) []Window {
	valid := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.Valid() {
			valid = append(valid, w)
		}
	}
	sort.Slice(valid, func(i, j int) bool {
		if valid[i].StartHour == valid[j].StartHour {
			return valid[i].EndHour < valid[j].EndHour
		}
		return valid[i].StartHour < valid[j].StartHour
	})
	merged := make([]Window, 0, len(valid))
	for _, w := range valid {
		if n := len(merged); n > 0 && w.StartHour <= merged[n-1].EndHour {
			if w.EndHour > merged[n-1].EndHour {
				merged[n-1].EndHour = w.EndHour
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// FreeWindows subtracts booked hours from the open windows.
func FreeWindows(windows, booked []Window) []Window {
	free := Normalize(windows)
	for _, b := range Normalize(booked) {
		next := make([]Window, 0, len(free)+1)
		for _, w := range free {
			if !w.Overlaps(b) {
				next = append(next, w)
				continue
			}
			if b.StartHour > w.StartHour {
				next = append(next, Window{StartHour: w.StartHour, EndHour: b.StartHour})
			}
			if b.EndHour < w.EndHour {
				next = append(next, Window{StartHour: b.EndHour, EndHour: w.EndHour})
			}
		}
		free = next
	}
	return free
}

// StartTimeOptions offers every hour t with start <= t < end - minHours + 1 in some window.
func StartTimeOptions(windows []Window, minHours int) []int {
	if minHours < 1 {
		minHours = 1
	}
	seen := make(map[int]struct{})
	out := make([]int, 0)
	for _, w := range Normalize(windows) {
		for t := w.StartHour; t < w.EndHour-minHours+1; t++ {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out
}

// MaxDuration is min(windowEnd - start, maxHours) for the window containing start.
// Without a covering window it collapses to minHours. The result is never below one.
func MaxDuration(start int, windows []Window, minHours, maxHours int) int {
	if minHours < 1 {
		minHours = 1
	}
	w, ok := covering(start, windows)
	if !ok {
		return minHours
	}
	d := w.EndHour - start
	if maxHours > 0 && d > maxHours {
		d = maxHours
	}
	if d < 1 {
		d = 1
	}
	return d
}

// DurationOptions lists minHours..MaxDuration for start, all of which end inside the window.
func DurationOptions(start int, windows []Window, minHours, maxHours int) []int {
	if minHours < 1 {
		minHours = 1
	}
	w, ok := covering(start, windows)
	if !ok {
		return nil
	}
	longest := MaxDuration(start, windows, minHours, maxHours)
	out := make([]int, 0, longest)
	for d := minHours; d <= longest && start+d <= w.EndHour; d++ {
		out = append(out, d)
	}
	return out
}

// Fits reports whether [start, start+duration) lies inside one window and respects the bounds.
func Fits(start, duration int, windows []Window, minHours, maxHours int) bool {
	if minHours < 1 {
		minHours = 1
	}
	if duration < minHours || (maxHours > 0 && duration > maxHours) {
		return false
	}
	w, ok := covering(start, windows)
	if !ok {
		return false
	}
	return start+duration <= w.EndHour
}

func EndHour(start, duration int) int {
	return start + duration
}

// FormatHour renders a 24-hour value on the 12-hour clock, e.g. 15 -> "3:00 PM".
func FormatHour(hour int) string {
	h := ((hour % HoursPerDay) + HoursPerDay) % HoursPerDay
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:00 %s", h12, suffix)
}

func covering(start int, windows []Window) (Window, bool) {
	for _, w := range Normalize(windows) {
		if w.ContainsHour(start) {
			return w, true
		}
	}
	return Window{}, false
}

// Plan is the bookable hourly layout of one date. A plan built by Combine
// answers for whichever of its slots can serve a request; windows of
// different slots are never joined.
type Plan struct {
	Date       daterange.Date `json:"date"`
	Windows    []Window       `json:"windows"`
	StartTimes []int          `json:"start_times"`
	MinHours   int            `json:"min_hours"`
	MaxHours   int            `json:"max_hours"`

	slots []Plan
}

func (p Plan) Empty() bool {
	return len(p.StartTimes) == 0
}

func (p Plan) MaxDuration(start int) int {
	if p.slots == nil {
		return MaxDuration(start, p.Windows, p.MinHours, p.MaxHours)
	}
	longest := 0
	for _, sp := range p.slots {
		if len(sp.DurationOptions(start)) > 0 {
			longest = max(longest, sp.MaxDuration(start))
		}
	}
	if longest == 0 {
		return max(p.MinHours, 1)
	}
	return longest
}

func (p Plan) DurationOptions(start int) []int {
	if p.slots == nil {
		return DurationOptions(start, p.Windows, p.MinHours, p.MaxHours)
	}
	var out []int
	for _, sp := range p.slots {
		out = append(out, sp.DurationOptions(start)...)
	}
	return sortedUnique(out)
}

func (p Plan) Fits(start, duration int) bool {
	if p.slots == nil {
		return Fits(start, duration, p.Windows, p.MinHours, p.MaxHours)
	}
	for _, sp := range p.slots {
		if sp.Fits(start, duration) {
			return true
		}
	}
	return false
}

// Combine offers a start time when at least one slot can host a booking from
// it. Every plan must share date and duration bounds.
func Combine(date daterange.Date, minHours, maxHours int, slots []Plan) Plan {
	out := Plan{
		Date:       date,
		Windows:    []Window{},
		StartTimes: []int{},
		MinHours:   minHours,
		MaxHours:   maxHours,
		slots:      append([]Plan{}, slots...),
	}
	seen := make(map[Window]bool)
	for _, sp := range slots {
		for _, w := range sp.Windows {
			if !seen[w] {
				seen[w] = true
				out.Windows = append(out.Windows, w)
			}
		}
		out.StartTimes = append(out.StartTimes, sp.StartTimes...)
	}
	sort.Slice(out.Windows, func(i, j int) bool {
		if out.Windows[i].StartHour != out.Windows[j].StartHour {
			return out.Windows[i].StartHour < out.Windows[j].StartHour
		}
		return out.Windows[i].EndHour < out.Windows[j].EndHour
	})
	out.StartTimes = sortedUnique(out.StartTimes)
	return out
}

func sortedUnique(xs []int) []int {
	out := make([]int, 0, len(xs))
	sort.Ints(xs)
	for i, x := range xs {
		if i == 0 || x != xs[i-1] {
			out = append(out, x)
		}
	}
	return out
}

// PlanFor builds the plan of d after removing booked hours.
func (s Settings) PlanFor(d daterange.Date, booked []Window) Plan {
	minHours, maxHours := s.Bounds()
	free := FreeWindows(s.WindowsForDate(d), booked)
	return Plan{
		Date:       d,
		Windows:    free,
		StartTimes: StartTimeOptions(free, minHours),
		MinHours:   minHours,
		MaxHours:   maxHours,
	}
}
