package models

// Prediction is the model output for one row of a prediction batch.
type Prediction struct {
	Index      int       `json:"index"`
	FirstFrame string    `json:"first_frame"`
	LastFrame  string    `json:"last_frame"`
	Output     []float32 `json:"output"`
	Score      float32   `json:"score"`
}

// Report summarizes a single anomaly prediction run.
type Report struct {
	Run         string       `json:"run"`
	Frames      int          `json:"frames"`
	Pairs       int          `json:"pairs"`
	Rows        int          `json:"rows"`
	Dropped     int          `json:"dropped,omitempty"`
	Predictions []Prediction `json:"predictions"`
}

// MaxScore returns the highest prediction score and its row index, or -1 with no predictions.
func (r *Report) MaxScore() (float32, int) {
	best, idx := float32(0), -1
	for i, p := range r.Predictions {
		if idx == -1 || p.Score > best {
			best, idx = p.Score, i
		}
	}
	return best, idx
}
