package timezone

import (
	"errors"
	"lodge/config"
	"lodge/shared/constant"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	appLocation *time.Location

	ErrInvalidDate = errors.New("invalid date")
)

func init() {
	cfg := config.Get()

	if cfg.App.Timezone == "" {
		log.Warn().Msg("No timezone configured, using UTC as default")
		cfg.App.Timezone = "UTC"
	}

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Error().
			Err(err).
			Str("timezone", cfg.App.Timezone).
			Msg("Failed to load timezone, falling back to UTC")
		appLocation = time.UTC

		return
	}

	appLocation = loc
	log.Info().
		Str("timezone", cfg.App.Timezone).
		Msg("Application timezone initialized")
}

// Now returns the current time in the application timezone
func Now() time.Time {
	return time.Now().In(GetLocation())
}

// ToAppTime converts a time to the application timezone
func ToAppTime(t time.Time) time.Time {
	return t.In(GetLocation())
}

// SetLocation swaps the application timezone and returns the previous one.
func SetLocation(loc *time.Location) *time.Location {
	previous := GetLocation()
	appLocation = loc

	return previous
}

// Wall drops the zone offset and keeps the wall clock reading in the application timezone,
// so differences between two Wall values ignore DST shifts.
func Wall(t time.Time) time.Time {
	local := ToAppTime(t)

	return time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
}

func GetLocation() *time.Location {
	if appLocation == nil {
		return time.UTC
	}

	return appLocation
}

// Parse parses a time string in the application timezone
func Parse(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, GetLocation()) //nolint:wrapcheck
}

// ParseDate accepts a calendar day (YYYY-MM-DD) or a full RFC3339 timestamp.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDate
	}

	if t, err := Parse(constant.CalendarDay, value); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}

	return ToAppTime(t), nil
}

// CalendarDay renders t as YYYY-MM-DD in the application timezone.
func CalendarDay(t time.Time) string {
	return Format(t, constant.CalendarDay)
}

// SameDay ignores time of day.
func SameDay(a, b time.Time) bool {
	return CalendarDay(a) == CalendarDay(b)
}

// Format formats a time in the application timezone
func Format(t time.Time, layout string) string {
	return ToAppTime(t).Format(layout)
}
