// Package anime holds the anime record shared by the metadata client,
// the store and the API.
package anime

import (
	"github.com/shapedtime/animeschedule/internal/predict"
)

// Anime is one title as returned by the metadata source.
type Anime struct {
	ID             int           `json:"anime_id"`
	Title          string        `json:"title"`
	TitleRomaji    string        `json:"title_romaji,omitempty"`
	Status         string        `json:"status"`
	Episodes       *int          `json:"episodes"`
	CurrentEpisode *int          `json:"current_episode"`
	NextEpisode    *NextEpisode  `json:"next_episode,omitempty"`
	NextAiringAt   *int64        `json:"next_airing_at"`
	StartDate      string        `json:"start_date,omitempty"`
	EndDate        string        `json:"end_date,omitempty"`
	Season         string        `json:"season,omitempty"`
	SeasonYear     *int          `json:"season_year,omitempty"`
	Genres         []string      `json:"genres,omitempty"`
	Score          *int          `json:"score,omitempty"`
	Studios        []string      `json:"studios,omitempty"`
	CoverImage     string        `json:"cover_image,omitempty"`
	BannerImage    string        `json:"banner_image,omitempty"`

	LastScheduledEpisode     *int               `json:"last_scheduled_episode,omitempty"`
	PredictedEndFromSchedule string             `json:"predicted_end_from_schedule,omitempty"`
	AiringSchedule           []ScheduledEpisode `json:"airing_schedule,omitempty"`
}

// NextEpisode describes the next episode to air.
type NextEpisode struct {
	Number          int    `json:"number"`
	AirsAt          string `json:"airs_at,omitempty"`
	AirsInHuman     string `json:"airs_in_human,omitempty"`
	AirsAtTimestamp int64  `json:"airs_at_timestamp"`
}

// ScheduledEpisode is one future episode from the airing schedule.
type ScheduledEpisode struct {
	Episode         int    `json:"episode"`
	AirsAt          string `json:"airs_at"`
	AirsAtTimestamp int64  `json:"airs_at_timestamp"`
}

// AiringState assembles the predictor input for this anime.
func (a *Anime) AiringState() predict.AiringState {
	state := predict.AiringState{
		Status:           predict.Status(a.Status),
		TotalEpisodes:    a.Episodes,
		KnownEndDate:     a.EndDate,
		ScheduledEndDate: a.PredictedEndFromSchedule,
		NextAiringAt:     a.NextAiringAt,
	}
	if a.CurrentEpisode != nil {
		state.CurrentEpisode = *a.CurrentEpisode
	}
	if len(a.AiringSchedule) > 0 {
		state.Schedule = make([]predict.ScheduleEntry, 0, len(a.AiringSchedule))
		for _, ep := range a.AiringSchedule {
			state.Schedule = append(state.Schedule, predict.ScheduleEntry{
				Episode:  ep.Episode,
				AiringAt: ep.AirsAtTimestamp,
			})
		}
	}
	return state
}
