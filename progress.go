package rcn

import (
	"math"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/cheggaaa/pb.v1"
)

// progressTracker follows the evaluated candidates of one step. It is shared
// by the workers of the step, hence the mutex.
type progressTracker struct {
	mu sync.Mutex

	step    string
	total   int
	done    int
	verbose int

	bestParams Params
	bestScore  float64

	ch     chan<- ProgressUpdate
	bar    *pb.ProgressBar
	logger *zap.Logger
}

func newProgressTracker(config Config, step SearchStep, total int, logger *zap.Logger) *progressTracker {
	t := &progressTracker{
		step:      step.Name,
		total:     total,
		verbose:   step.Options.Verbose,
		bestScore: math.Inf(-1),
		ch:        config.ProgressChan,
		logger:    logger,
	}

	if t.verbose > 0 {
		t.bar = pb.New(total).Prefix(step.Name + " ")
		t.bar.Output = config.Output
		t.bar.Start()
	}

	return t
}

// observe records an evaluated candidate and publishes progress.
func (t *progressTracker) observe(phase string, r CandidateResult) {
	t.mu.Lock()

	t.done++

	if r.Err == nil && r.MeanScore > t.bestScore {
		t.bestScore = r.MeanScore
		t.bestParams = r.Params
	}

	update := ProgressUpdate{
		Step:              t.step,
		Phase:             phase,
		CurrentIteration:  t.done,
		TotalIterations:   t.total,
		CurrentParams:     r.Params,
		CurrentBestParams: t.bestParams,
		CurrentBestScore:  t.bestScore,
		LastScore:         r.MeanScore,
	}

	t.mu.Unlock()

	if t.bar != nil {
		t.bar.Increment()
	}

	if t.verbose > 1 && r.Err == nil {
		t.logger.Info("candidate evaluated",
			zap.Stringer("params", r.Params),
			zap.Float64("mean_score", r.MeanScore),
			zap.Float64("std_score", r.StdScore),
		)
	}

	if t.ch != nil {
		select {
		case t.ch <- update:
		default:
			// Skip update if channel is full.
		}
	}
}

func (t *progressTracker) finish() {
	if t.bar != nil {
		t.bar.Finish()
	}
}
