package common

import (
	"strconv"
	"strings"
	"time"
)

// Airing status labels for scheduled episodes.
const (
	AiringStatusAired    = "aired"
	AiringStatusSoon     = "airing_soon"
	AiringStatusToday    = "airing_today"
	AiringStatusUpcoming = "upcoming"
)

// FormatCountdown renders seconds until airing as "2d 5h", "3h 20m" or "45m".
// Minutes are dropped once the countdown is a day or longer.
func FormatCountdown(seconds int64) string {
	if seconds <= 0 {
		return "aired"
	}

	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, strconv.FormatInt(days, 10)+"d")
	}
	if hours > 0 {
		parts = append(parts, strconv.FormatInt(hours, 10)+"h")
	}
	if minutes > 0 && days == 0 {
		parts = append(parts, strconv.FormatInt(minutes, 10)+"m")
	}

	if len(parts) == 0 {
		return "< 1m"
	}
	return strings.Join(parts, " ")
}

// FormatTimeUntil renders the time from now until airingAt for schedule views.
func FormatTimeUntil(airingAt, now time.Time) string {
	diff := int64(airingAt.Sub(now) / time.Second)
	if diff < 0 {
		return "Aired"
	}

	days := diff / 86400
	hours := (diff % 86400) / 3600
	minutes := (diff % 3600) / 60

	switch {
	case days > 0:
		return strconv.FormatInt(days, 10) + "d " + strconv.FormatInt(hours, 10) + "h"
	case hours > 0:
		return strconv.FormatInt(hours, 10) + "h " + strconv.FormatInt(minutes, 10) + "m"
	default:
		return strconv.FormatInt(minutes, 10) + "m"
	}
}

// AiringStatus classifies an airing time relative to now.
func AiringStatus(airingAt, now time.Time) string {
	diff := airingAt.Sub(now)
	switch {
	case diff < 0:
		return AiringStatusAired
	case diff < time.Hour:
		return AiringStatusSoon
	case diff < 24*time.Hour:
		return AiringStatusToday
	default:
		return AiringStatusUpcoming
	}
}
