package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shapedtime/animeschedule/internal/common"
	"github.com/shapedtime/animeschedule/internal/predict"
	"github.com/shapedtime/animeschedule/internal/store"
)

// WeeklySchedule is the airing schedule of one Monday-to-Sunday week,
// grouped by upper-case weekday name.
type WeeklySchedule struct {
	WeekStart      string                    `json:"week_start"`
	WeekEnd        string                    `json:"week_end"`
	WeekLabel      string                    `json:"week_label"`
	TotalSchedules int                       `json:"total_schedules"`
	Schedule       map[string][]ScheduleSlot `json:"schedule"`
	DaysWithAnime  []string                  `json:"days_with_anime"`
}

// ScheduleSlot is one episode airing.
type ScheduleSlot struct {
	AnimeID         int    `json:"anime_id"`
	Title           string `json:"title"`
	Episode         int    `json:"episode"`
	AiringAt        int64  `json:"airing_at"`
	AiringTime      string `json:"airing_time"`
	AiringDate      string `json:"airing_date"`
	CoverImage      string `json:"cover_image,omitempty"`
	Status          string `json:"status"`
	TotalEpisodes   *int   `json:"total_episodes"`
	TimeUntilAiring int64  `json:"time_until_airing"`
	AiringStatus    string `json:"airing_status"`
	AirsInHuman     string `json:"airs_in_human"`
}

// WeeklySchedule lists stored episodes airing in the week weeksOffset
// weeks from the current one. Weeks start on Monday, UTC.
func (s *Service) WeeklySchedule(ctx context.Context, weeksOffset int) (*WeeklySchedule, error) {
	if s.schedules == nil {
		return nil, ErrStoreUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	start := WeekStart(now).AddDate(0, 0, 7*weeksOffset)
	end := start.AddDate(0, 0, 7)

	items, err := s.schedules.ListBetween(start, end)
	if err != nil {
		return nil, fmt.Errorf("weekly schedule: %w", err)
	}

	week := &WeeklySchedule{
		WeekStart:      predict.FormatDate(start),
		WeekEnd:        predict.FormatDate(end),
		WeekLabel:      weekLabel(weeksOffset, start),
		TotalSchedules: len(items),
		Schedule:       make(map[string][]ScheduleSlot),
		DaysWithAnime:  []string{},
	}

	// items arrive ordered by airing time, so days and slots stay ordered.
	for _, item := range items {
		airing := time.Unix(item.AiringAt, 0).UTC()
		day := strings.ToUpper(airing.Weekday().String())
		if _, ok := week.Schedule[day]; !ok {
			week.DaysWithAnime = append(week.DaysWithAnime, day)
		}

		week.Schedule[day] = append(week.Schedule[day], newSlot(item, now))
	}

	return week, nil
}

// EpisodesOn lists stored episodes airing on the UTC calendar day of date,
// ordered by airing time.
func (s *Service) EpisodesOn(ctx context.Context, date time.Time) ([]ScheduleSlot, error) {
	if s.schedules == nil {
		return nil, ErrStoreUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	day := predict.DateOf(date)
	items, err := s.schedules.ListBetween(day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("episodes on %s: %w", predict.FormatDate(day), err)
	}

	now := s.now().UTC()
	slots := make([]ScheduleSlot, 0, len(items))
	for _, item := range items {
		slots = append(slots, newSlot(item, now))
	}
	return slots, nil
}

func newSlot(item store.ScheduleItem, now time.Time) ScheduleSlot {
	airing := time.Unix(item.AiringAt, 0).UTC()
	return ScheduleSlot{
		AnimeID:         item.AnimeID,
		Title:           item.Title,
		Episode:         item.Episode,
		AiringAt:        item.AiringAt,
		AiringTime:      airing.Format("03:04 PM"),
		AiringDate:      predict.FormatDate(airing),
		CoverImage:      item.CoverImage,
		Status:          item.Status,
		TotalEpisodes:   item.Episodes,
		TimeUntilAiring: item.AiringAt - now.Unix(),
		AiringStatus:    common.AiringStatus(airing, now),
		AirsInHuman:     common.FormatTimeUntil(airing, now),
	}
}

// WeekStart returns midnight UTC of the Monday starting t's week.
func WeekStart(t time.Time) time.Time {
	day := predict.DateOf(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func weekLabel(offset int, start time.Time) string {
	switch offset {
	case 0:
		return "This Week"
	case 1:
		return "Next Week"
	case -1:
		return "Last Week"
	default:
		return "Week of " + start.Format("January 02")
	}
}
