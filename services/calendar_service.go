package services

import (
	"time"

	"github.com/cyclopick/cyclopick-api/models"
)

// CapacityClass indicates how full a workshop day is
type CapacityClass string

const (
	CapacityLow    CapacityClass = "low"
	CapacityMedium CapacityClass = "medium"
	CapacityHigh   CapacityClass = "high"
	CapacityFull   CapacityClass = "full"
)

// CalendarDayData is the derived view of one workshop day. It is recomputed
// from a fresh order read after every mutation and never patched in place.
type CalendarDayData struct {
	Date       time.Time      `json:"date"`
	Orders     []models.Order `json:"orders"`
	BikesCount int            `json:"bikes_count"`
	Capacity   CapacityClass  `json:"capacity"`
}

// CalendarWeekData is the derived view of one workshop week
type CalendarWeekData struct {
	WeekStart      time.Time         `json:"week_start"`
	Days           []CalendarDayData `json:"days"`
	TotalOrders    int               `json:"total_orders"`
	MaxBikesPerDay int               `json:"max_bikes_per_day"`
}

// CapacityClassFor derives the capacity class from the day's load.
// Boundaries are inclusive on the upper side: 0.50 is already medium,
// 0.75 already high, 1.00 already full.
func CapacityClassFor(bikesCount, maxBikesPerDay int) CapacityClass {
	ratio := float64(bikesCount) / float64(maxBikesPerDay)
	switch {
	case ratio < 0.50:
		return CapacityLow
	case ratio < 0.75:
		return CapacityMedium
	case ratio < 1.00:
		return CapacityHigh
	default:
		return CapacityFull
	}
}

// BuildWeek groups orders into seven days starting at weekStart. Orders
// planned outside the window are ignored; within a day the input order
// (planned date, then id) is preserved.
func BuildWeek(weekStart time.Time, orders []models.Order, maxBikesPerDay int) CalendarWeekData {
	start := truncateToDay(weekStart)

	week := CalendarWeekData{
		WeekStart:      start,
		Days:           make([]CalendarDayData, 7),
		MaxBikesPerDay: maxBikesPerDay,
	}
	// Index days by calendar date, not by duration arithmetic, so DST
	// shifts cannot move an order into the wrong bucket.
	dayIndex := make(map[string]int, 7)
	for i := range week.Days {
		week.Days[i].Date = start.AddDate(0, 0, i)
		dayIndex[week.Days[i].Date.Format("2006-01-02")] = i
	}

	for _, order := range orders {
		i, ok := dayIndex[order.PlannedDate.Format("2006-01-02")]
		if !ok {
			continue
		}
		week.Days[i].Orders = append(week.Days[i].Orders, order)
	}

	for i := range week.Days {
		week.Days[i].BikesCount = len(week.Days[i].Orders)
		week.Days[i].Capacity = CapacityClassFor(week.Days[i].BikesCount, maxBikesPerDay)
		week.TotalOrders += week.Days[i].BikesCount
	}

	return week
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
