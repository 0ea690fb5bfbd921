// Package predict estimates when an airing anime will finish.
package predict

import (
	"fmt"
	"time"
)

// Status is the airing status reported by the metadata source.
type Status string

const (
	StatusFinished       Status = "FINISHED"
	StatusReleasing      Status = "RELEASING"
	StatusNotYetReleased Status = "NOT_YET_RELEASED"
	StatusCancelled      Status = "CANCELLED"
	StatusHiatus         Status = "HIATUS"
)

// Confidence grades how much a predicted date can be trusted.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

// DefaultSource is the metadata source named in schedule-based reasons.
const DefaultSource = "AniList"

// AiringState is everything the predictor needs to know about one anime.
// Empty date strings and nil pointers mean "not known".
type AiringState struct {
	Status           Status
	CurrentEpisode   int
	TotalEpisodes    *int
	KnownEndDate     string
	ScheduledEndDate string
	NextAiringAt     *int64
	Schedule         []ScheduleEntry
}

// Result is a completion prediction. PredictedCompletion is nil when no
// date can be given, which is a normal outcome.
type Result struct {
	PredictedCompletion *time.Time
	Confidence          Confidence
	ConfidenceReason    string
	DaysUntilComplete   *int
	IsBingeable         bool
}

// Predictor computes completion predictions. It is safe for concurrent use.
type Predictor struct {
	now    func() time.Time
	source string
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithClock overrides the clock used to determine "today".
func WithClock(now func() time.Time) Option {
	return func(p *Predictor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSource sets the source name used in schedule-based reasons.
func WithSource(name string) Option {
	return func(p *Predictor) {
		if name != "" {
			p.source = name
		}
	}
}

// New creates a Predictor reading the system clock.
func New(opts ...Option) *Predictor {
	p := &Predictor{
		now:    time.Now,
		source: DefaultSource,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Today returns the predictor's current UTC date.
func (p *Predictor) Today() time.Time {
	return DateOf(p.now())
}

// Predict reads the clock once and predicts against that date.
func (p *Predictor) Predict(state AiringState) (Result, error) {
	return p.PredictAt(state, p.Today())
}

// PredictAt predicts as if today were the given date.
func (p *Predictor) PredictAt(state AiringState, today time.Time) (Result, error) {
	today = DateOf(today)

	date, confidence, reason, err := p.completion(state, today)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		PredictedCompletion: date,
		Confidence:          confidence,
		ConfidenceReason:    reason,
	}
	if date != nil {
		days := DaysBetween(today, *date)
		if days < 0 {
			days = 0
		}
		res.DaysUntilComplete = &days
	}
	res.IsBingeable = state.Status == StatusFinished ||
		(res.DaysUntilComplete != nil && *res.DaysUntilComplete <= 0)

	return res, nil
}

func (p *Predictor) completion(state AiringState, today time.Time) (*time.Time, Confidence, string, error) {
	switch state.Status {
	case StatusFinished:
		if state.KnownEndDate != "" {
			end, err := ParseDate("known end date", state.KnownEndDate)
			if err != nil {
				return nil, "", "", err
			}
			return &end, ConfidenceHigh, "Already finished airing", nil
		}
		return &today, ConfidenceHigh, "Already finished airing", nil

	case StatusNotYetReleased:
		return nil, ConfidenceUnknown, "Not yet started airing", nil

	case StatusCancelled, StatusHiatus:
		return nil, ConfidenceUnknown, fmt.Sprintf("Status is %s", state.Status), nil

	case StatusReleasing:
		return p.releasing(state, today)
	}

	return nil, ConfidenceUnknown, fmt.Sprintf("Unknown status: %s", state.Status), nil
}

func (p *Predictor) releasing(state AiringState, today time.Time) (*time.Time, Confidence, string, error) {
	if state.ScheduledEndDate != "" {
		end, err := ParseDate("scheduled end date", state.ScheduledEndDate)
		if err != nil {
			return nil, "", "", err
		}
		return &end, ConfidenceHigh, fmt.Sprintf("Based on %s's official airing schedule", p.source), nil
	}

	if state.TotalEpisodes == nil || *state.TotalEpisodes == 0 {
		return nil, ConfidenceLow, "Unknown total episode count", nil
	}

	remaining := *state.TotalEpisodes - state.CurrentEpisode
	if remaining <= 0 {
		// Episode counts from the source can lag a finale by a day or two.
		date := today.AddDate(0, 0, 7)
		return &date, ConfidenceMedium, "May have just finished or finale pending", nil
	}

	interval := EstimateInterval(state.NextAiringAt, state.CurrentEpisode, state.Schedule, today)
	date := today.AddDate(0, 0, remaining*interval)
	hasSchedule := HasSchedule(state.Schedule)

	sourceLabel := "estimated"
	if hasSchedule {
		sourceLabel = "calculated from airing schedule"
	}
	reason := fmt.Sprintf("%d episodes remaining (%s releases, %s)", remaining, intervalLabel(interval), sourceLabel)

	return &date, releasingConfidence(remaining, hasSchedule), reason, nil
}

func releasingConfidence(remaining int, hasSchedule bool) Confidence {
	switch {
	case remaining <= 2:
		return ConfidenceHigh
	case remaining <= 6:
		if hasSchedule {
			return ConfidenceHigh
		}
		return ConfidenceMedium
	case remaining <= 12 || hasSchedule:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func intervalLabel(days int) string {
	switch days {
	case 1:
		return "daily"
	case 7:
		return "weekly"
	case 14:
		return "bi-weekly"
	}
	return fmt.Sprintf("every %d days", days)
}
