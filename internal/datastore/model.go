// model.go defines the identification history tables
package datastore

import "time"

// Identification is one successful identification of an uploaded photo.
type Identification struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `gorm:"index:idx_identifications_created_at" json:"created_at"`
	ImageFile     string    `json:"image_file"`
	TopLabel      string    `gorm:"index:idx_identifications_top_label" json:"top_label"`
	TopConfidence float64   `json:"top_confidence"`
	Results       []Result  `gorm:"foreignKey:IdentificationID;constraint:OnDelete:CASCADE" json:"results"`
}

// Result is one ranked prediction of an Identification.
type Result struct {
	ID               uint    `gorm:"primaryKey" json:"-"`
	IdentificationID uint    `gorm:"index;not null" json:"-"`
	Rank             int     `gorm:"column:position" json:"rank"`
	Label            string  `json:"label"`
	Confidence       float64 `json:"confidence"`
}

// NewIdentification builds a record from ranked labels and confidences.
// The two slices are paired by position.
func NewIdentification(imageFile string, labels []string, confidences []float64) *Identification {
	n := min(len(labels), len(confidences))
	rec := &Identification{ImageFile: imageFile, Results: make([]Result, n)}
	for i := range n {
		rec.Results[i] = Result{Rank: i + 1, Label: labels[i], Confidence: confidences[i]}
	}
	if n > 0 {
		rec.TopLabel = labels[0]
		rec.TopConfidence = confidences[0]
	}
	return rec
}
