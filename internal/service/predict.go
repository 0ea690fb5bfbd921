package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shapedtime/animeschedule/internal/anime"
	"github.com/shapedtime/animeschedule/internal/predict"
)

// PredictInput is the airing state of one anime as supplied by a caller.
type PredictInput struct {
	AnimeID                  int                     `json:"anime_id"`
	Title                    string                  `json:"title"`
	Status                   string                  `json:"status"`
	CurrentEpisode           *int                    `json:"current_episode,omitempty"`
	TotalEpisodes            *int                    `json:"total_episodes,omitempty"`
	EndDate                  string                  `json:"end_date,omitempty"`
	NextAiringAt             *int64                  `json:"next_airing_at,omitempty"`
	PredictedEndFromSchedule string                  `json:"predicted_end_from_schedule,omitempty"`
	AiringSchedule           []predict.ScheduleEntry `json:"airing_schedule,omitempty"`
}

func (in PredictInput) state() predict.AiringState {
	st := predict.AiringState{
		Status:           predict.Status(strings.ToUpper(strings.TrimSpace(in.Status))),
		TotalEpisodes:    in.TotalEpisodes,
		KnownEndDate:     in.EndDate,
		ScheduledEndDate: in.PredictedEndFromSchedule,
		NextAiringAt:     in.NextAiringAt,
		Schedule:         in.AiringSchedule,
	}
	if in.CurrentEpisode != nil {
		st.CurrentEpisode = *in.CurrentEpisode
	}
	return st
}

// PredictionRecord is a prediction merged with the identifying fields of
// its input.
type PredictionRecord struct {
	AnimeID        int    `json:"anime_id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	CurrentEpisode *int   `json:"current_episode"`
	TotalEpisodes  *int   `json:"total_episodes"`
	anime.Prediction
}

// PredictCompletion predicts when the described anime finishes airing.
// A malformed end date is returned as a *predict.MalformedDateError.
func (s *Service) PredictCompletion(in PredictInput) (*PredictionRecord, error) {
	if strings.TrimSpace(in.Status) == "" {
		return nil, fmt.Errorf("%w: status is required", ErrInvalidInput)
	}

	res, err := s.predictor.Predict(in.state())
	if err != nil {
		s.observeError(err)
		return nil, err
	}
	s.metrics.ObservePrediction(string(res.Confidence))

	return &PredictionRecord{
		AnimeID:        in.AnimeID,
		Title:          in.Title,
		Status:         in.Status,
		CurrentEpisode: in.CurrentEpisode,
		TotalEpisodes:  in.TotalEpisodes,
		Prediction:     *anime.NewPrediction(res),
	}, nil
}

// predictAnime predicts one stored or fetched anime against today.
func (s *Service) predictAnime(a *anime.Anime, today time.Time) (*anime.Prediction, error) {
	res, err := s.predictor.PredictAt(a.AiringState(), today)
	if err != nil {
		s.observeError(err)
		return nil, err
	}
	s.metrics.ObservePrediction(string(res.Confidence))
	return anime.NewPrediction(res), nil
}

// predictLogged is predictAnime for listings: a failure is logged and the
// anime is left without a prediction.
func (s *Service) predictLogged(a *anime.Anime, today time.Time) *anime.Prediction {
	p, err := s.predictAnime(a, today)
	if err != nil {
		s.log.Warn("Skipping prediction",
			"anime_id", a.ID,
			"title", a.Title,
			"error", err,
		)
		return nil
	}
	return p
}

func (s *Service) observeError(err error) {
	var malformed *predict.MalformedDateError
	if errors.As(err, &malformed) {
		s.metrics.ObserveMalformedDate()
	}
}
