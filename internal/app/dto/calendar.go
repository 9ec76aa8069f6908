package dto

import (
	"vendibook/internal/domain/availability"
	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/slots"
)

type CalendarDay struct {
	Date       string `json:"date"`
	Status     string `json:"status"`
	Selectable bool   `json:"selectable"`
	FreeSlots  int    `json:"free_slots"`
	TotalSlots int    `json:"total_slots"`
	Partial    bool   `json:"partial"`
}

type CalendarBlock struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Reason    string `json:"reason"`
	Reference string `json:"reference"`
}

type Calendar struct {
	ListingID string          `json:"listing_id"`
	Today     string          `json:"today"`
	Days      []CalendarDay   `json:"days"`
	Blocks    []CalendarBlock `json:"blocks,omitempty"`
}

func MapCalendarDay(day availability.Day) CalendarDay {
	return CalendarDay{
		Date:       day.Date.String(),
		Status:     string(day.Status),
		Selectable: day.Status.Selectable(),
		FreeSlots:  day.FreeSlots,
		TotalSlots: day.TotalSlots,
		Partial:    day.Partial,
	}
}

func MapCalendarBlocks(blocks []availability.BlockedInterval) []CalendarBlock {
	out := make([]CalendarBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, CalendarBlock{
			Start:     b.Span.Start.String(),
			End:       b.Span.End.String(),
			Reason:    string(b.Reason),
			Reference: b.Reference,
		})
	}
	return out
}

type Slot struct {
	Number    int    `json:"slot_number"`
	Name      string `json:"slot_name"`
	Available bool   `json:"is_available"`
}

type SlotCollection struct {
	ListingID string `json:"listing_id"`
	Items     []Slot `json:"items"`
}

func MapSlots(listingID string, items []slots.Availability) SlotCollection {
	out := SlotCollection{ListingID: listingID, Items: make([]Slot, 0, len(items))}
	for _, a := range items {
		out.Items = append(out.Items, Slot{Number: a.SlotNumber, Name: a.SlotName, Available: a.IsAvailable})
	}
	return out
}

type HourWindow struct {
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	Label     string `json:"label"`
}

type StartOption struct {
	Hour      int    `json:"hour"`
	Label     string `json:"label"`
	Durations []int  `json:"durations"`
}

type HourlyPlan struct {
	ListingID string        `json:"listing_id"`
	Date      string        `json:"date"`
	Slot      int           `json:"slot_number,omitempty"`
	MinHours  int           `json:"min_hours"`
	MaxHours  int           `json:"max_hours"`
	Windows   []HourWindow  `json:"windows"`
	Starts    []StartOption `json:"start_times"`
}

func MapHourlyPlan(listingID string, slot int, plan hourly.Plan) HourlyPlan {
	out := HourlyPlan{
		ListingID: listingID,
		Date:      plan.Date.String(),
		Slot:      slot,
		MinHours:  plan.MinHours,
		MaxHours:  plan.MaxHours,
		Windows:   make([]HourWindow, 0, len(plan.Windows)),
		Starts:    make([]StartOption, 0, len(plan.StartTimes)),
	}
	for _, w := range plan.Windows {
		out.Windows = append(out.Windows, HourWindow{StartHour: w.StartHour, EndHour: w.EndHour, Label: w.String()})
	}
	for _, h := range plan.StartTimes {
		out.Starts = append(out.Starts, StartOption{
			Hour:      h,
			Label:     hourly.FormatHour(h),
			Durations: plan.DurationOptions(h),
		})
	}
	return out
}
