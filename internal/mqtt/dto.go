package mqtt

import "time"

// EventDTO is the JSON payload published for each identification.
type EventDTO struct {
	Timestamp     time.Time       `json:"timestamp"`
	IdentityID    uint            `json:"identificationId,omitempty"`
	ImageFile     string          `json:"imageFile"`
	TopLabel      string          `json:"topLabel"`
	TopConfidence float64         `json:"topConfidence"`
	Predictions   []PredictionDTO `json:"predictions"`
}

// PredictionDTO is one ranked prediction inside an EventDTO.
type PredictionDTO struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}
