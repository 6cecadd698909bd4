package reports

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"sustain_score_app_go/services/scoring"
)

// JSON marshals an object to a JSON string, returning "{}" on error
func JSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("[REPORT] Error marshaling JSON: %v", err)
		return "{}"
	}
	return string(b)
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// formatDelta prints a signed change, with an en dash for no change
func formatDelta(v float64) string {
	switch {
	case v > 0:
		return fmt.Sprintf("+%.2f", v)
	case v < 0:
		return fmt.Sprintf("%.2f", v)
	}
	return "–"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02 Jan 2006 15:04")
}

// ratingClass maps a rating band to its CSS class
func ratingClass(r scoring.Rating) string {
	switch r {
	case scoring.RatingExcellent:
		return "rating-excellent"
	case scoring.RatingGood:
		return "rating-good"
	case scoring.RatingFair:
		return "rating-fair"
	}
	return "rating-poor"
}
