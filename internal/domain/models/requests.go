package models

// PredictionHistoryRequest is the query of the prediction history endpoint.
type PredictionHistoryRequest struct {
	From  string `query:"from"`
	To    string `query:"to"`
	Limit int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// SuggestedWeightsMessage is the payload of the dynamic weights topic.
type SuggestedWeightsMessage struct {
	Technical   *float64 `json:"technical" validate:"required,gte=0,lte=1"`
	Social      *float64 `json:"social" validate:"required,gte=0,lte=1"`
	Fundamental *float64 `json:"fundamental" validate:"required,gte=0,lte=1"`
	Astrology   *float64 `json:"astrology" validate:"required,gte=0,lte=1"`
	Source      string   `json:"source"`
}

// Weights converts the message into a weight vector.
func (m SuggestedWeightsMessage) Weights() PillarWeights {
	return PillarWeights{
		Technical:   deref(m.Technical),
		Social:      deref(m.Social),
		Fundamental: deref(m.Fundamental),
		Astrology:   deref(m.Astrology),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
