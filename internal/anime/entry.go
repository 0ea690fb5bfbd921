package anime

import (
	"github.com/shapedtime/animeschedule/internal/predict"
)

// Data source labels attached to results.
const (
	SourceCache = "cache"
	SourceLive  = "live"
)

// Prediction is the serializable form of a predict.Result.
type Prediction struct {
	PredictedCompletion *string `json:"predicted_completion"`
	Confidence          string  `json:"confidence"`
	ConfidenceReason    string  `json:"confidence_reason"`
	DaysUntilComplete   *int    `json:"days_until_complete"`
	IsBingeable         bool    `json:"is_bingeable"`
}

// NewPrediction converts a predictor result.
func NewPrediction(r predict.Result) *Prediction {
	p := &Prediction{
		Confidence:        string(r.Confidence),
		ConfidenceReason:  r.ConfidenceReason,
		DaysUntilComplete: r.DaysUntilComplete,
		IsBingeable:       r.IsBingeable,
	}
	if r.PredictedCompletion != nil {
		date := predict.FormatDate(*r.PredictedCompletion)
		p.PredictedCompletion = &date
	}
	return p
}

// Entry is an anime merged with its prediction. Prediction is nil when
// none was computed.
type Entry struct {
	Anime
	*Prediction
	Source string `json:"source,omitempty"`
}
