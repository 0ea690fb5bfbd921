package anilist

import (
	"fmt"
	"sort"
	"time"

	"github.com/shapedtime/animeschedule/internal/anime"
	"github.com/shapedtime/animeschedule/internal/common"
)

// Transform converts an AniList media object into an anime record.
func Transform(m Media) anime.Anime {
	a := anime.Anime{
		ID:          m.ID,
		Title:       displayTitle(m),
		TitleRomaji: m.Title.Romaji,
		Status:      m.Status,
		Episodes:    m.Episodes,
		StartDate:   m.StartDate.String(),
		EndDate:     m.EndDate.String(),
		Season:      m.Season,
		SeasonYear:  m.SeasonYear,
		Genres:      m.Genres,
		Score:       m.AverageScore,
		BannerImage: m.BannerImage,
		CoverImage:  m.CoverImage.Large,
	}
	if a.Status == "" {
		a.Status = "UNKNOWN"
	}
	if a.CoverImage == "" {
		a.CoverImage = m.CoverImage.Medium
	}

	for _, s := range m.Studios.Nodes {
		if s.Name != "" {
			a.Studios = append(a.Studios, s.Name)
		}
	}

	if next := m.NextAiringEpisode; next != nil {
		ne := &anime.NextEpisode{
			Number:          next.Episode,
			AirsInHuman:     common.FormatCountdown(next.TimeUntilAiring),
			AirsAtTimestamp: next.AiringAt,
		}
		if next.AiringAt != 0 {
			airingAt := next.AiringAt
			a.NextAiringAt = &airingAt
			ne.AirsAt = time.Unix(next.AiringAt, 0).UTC().Format(time.RFC3339)
		}
		a.NextEpisode = ne
	}

	// The last aired episode is the one before the next airing. Without a
	// next airing, the whole run is assumed to be out.
	if m.NextAiringEpisode != nil && m.NextAiringEpisode.Episode != 0 {
		current := m.NextAiringEpisode.Episode - 1
		a.CurrentEpisode = &current
	} else {
		a.CurrentEpisode = m.Episodes
	}

	a.AiringSchedule = scheduleFrom(m.AiringSchedule.Nodes)
	if n := len(a.AiringSchedule); n > 0 {
		last := a.AiringSchedule[n-1]
		lastEpisode := last.Episode
		a.LastScheduledEpisode = &lastEpisode
		a.PredictedEndFromSchedule = last.AirsAt
	}

	return a
}

func displayTitle(m Media) string {
	switch {
	case m.Title.English != "":
		return m.Title.English
	case m.Title.Romaji != "":
		return m.Title.Romaji
	default:
		return "Unknown"
	}
}

// scheduleFrom keeps nodes with both an episode and an airing time,
// ordered by episode number.
func scheduleFrom(nodes []AiringNode) []anime.ScheduledEpisode {
	sorted := make([]AiringNode, len(nodes))
	copy(sorted, nodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Episode < sorted[j].Episode
	})

	var out []anime.ScheduledEpisode
	for _, n := range sorted {
		if n.Episode == 0 || n.AiringAt == 0 {
			continue
		}
		out = append(out, anime.ScheduledEpisode{
			Episode:         n.Episode,
			AirsAt:          time.Unix(n.AiringAt, 0).UTC().Format("2006-01-02"),
			AirsAtTimestamp: n.AiringAt,
		})
	}
	return out
}

// String renders the date as YYYY-MM-DD, defaulting a missing month or day
// to 1. It returns "" when the year is unknown.
func (d FuzzyDate) String() string {
	if d.Year == nil || *d.Year == 0 {
		return ""
	}
	month, day := 1, 1
	if d.Month != nil && *d.Month != 0 {
		month = *d.Month
	}
	if d.Day != nil && *d.Day != 0 {
		day = *d.Day
	}
	return fmt.Sprintf("%04d-%02d-%02d", *d.Year, month, day)
}
