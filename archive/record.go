// Package archive persists finished search runs on disk, keyed by run ID.
package archive

import (
	"math"
	"time"

	"github.com/thalesfsp/rcn"
)

// Record is the serializable summary of a search run.
type Record struct {
	RunID      string         `json:"run_id"`
	CreatedAt  time.Time      `json:"created_at"`
	BestParams map[string]any `json:"best_params"`
	Steps      []StepRecord   `json:"steps"`
}

// StepRecord is the result table of one step. A non-finite best score is
// stored as null.
type StepRecord struct {
	Name       string            `json:"name"`
	Strategy   string            `json:"strategy"`
	BestIndex  int               `json:"best_index"`
	BestParams map[string]any    `json:"best_params"`
	BestScore  *float64          `json:"best_score"`
	Candidates []CandidateRecord `json:"candidates"`
}

// CandidateRecord is one evaluated candidate. Non-finite scores are stored as
// null.
type CandidateRecord struct {
	Params      map[string]any `json:"params"`
	SplitScores []*float64     `json:"split_scores"`
	MeanScore   *float64       `json:"mean_score"`
	StdScore    *float64       `json:"std_score"`
	Rank        int            `json:"rank"`
	FitDuration time.Duration  `json:"fit_duration"`
	Error       string         `json:"error,omitempty"`
}

// FromSearch summarizes the completed steps of a search.
func FromSearch(s *rcn.SequentialSearch) Record {
	rec := Record{
		RunID:      s.RunID(),
		CreatedAt:  time.Now().UTC(),
		BestParams: s.BestParams(),
	}

	for _, r := range s.Results() {
		step := StepRecord{
			Name:       r.Name,
			Strategy:   r.Strategy.String(),
			BestIndex:  r.BestIndex,
			BestParams: r.BestParams,
			BestScore:  finite(r.BestScore),
			Candidates: make([]CandidateRecord, 0, len(r.CVResults)),
		}

		for _, c := range r.CVResults {
			cr := CandidateRecord{
				Params:      c.Params,
				SplitScores: make([]*float64, len(c.SplitScores)),
				MeanScore:   finite(c.MeanScore),
				StdScore:    finite(c.StdScore),
				Rank:        c.Rank,
				FitDuration: c.FitDuration,
			}

			for i, v := range c.SplitScores {
				cr.SplitScores[i] = finite(v)
			}

			if c.Err != nil {
				cr.Error = c.Err.Error()
			}

			step.Candidates = append(step.Candidates, cr)
		}

		rec.Steps = append(rec.Steps, step)
	}

	return rec
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	return &v
}
