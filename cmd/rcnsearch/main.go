package main

import (
	"encoding/json"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thalesfsp/rcn"
	"github.com/thalesfsp/rcn/archive"
	"github.com/thalesfsp/rcn/elm"
)

type args struct {
	Plan string `arg:"positional,required" help:"path to the YAML search plan"`
	Data string `arg:"positional,required" help:"path to the CSV dataset"`

	Targets        int    `arg:"required" help:"number of trailing target columns"`
	SequenceColumn bool   `arg:"--sequence-column" help:"first column is a sequence id; consecutive rows with the same id form one sequence"`
	Header         bool   `help:"skip the first CSV row"`
	Classify       bool   `help:"search an ELM classifier; the single target column holds class labels"`
	Archive        string `help:"directory to archive the run in"`
	Verbose        bool   `arg:"-v" help:"draw progress bars and log every candidate"`
	LogLevel       string `arg:"--log-level" default:"info" help:"debug, info, warn or error"`

	HiddenLayerSize int     `arg:"--hidden-layer-size" default:"500" help:"base hidden layer size"`
	Activation      string  `default:"relu" help:"base activation"`
	Alpha           float64 `default:"0.0001" help:"base ridge regularization"`
	RandomState     int64   `arg:"--random-state" default:"42" help:"base random state"`
}

func (args) Version() string {
	return "rcnsearch 0.1.0"
}

func (args) Description() string {
	return `sequential hyper-parameter search for extreme learning machine regressors and classifiers`
}

func main() {
	var a args
	arg.MustParse(&a)

	logger, err := newLogger(a.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(a, logger); err != nil {
		logger.Fatal("search failed", zap.Error(err))
	}
}

func run(a args, logger *zap.Logger) error {
	planFile, err := os.Open(a.Plan)
	if err != nil {
		return err
	}
	defer planFile.Close()

	steps, err := rcn.LoadPlan(planFile)
	if err != nil {
		return err
	}

	if a.Verbose {
		for i := range steps {
			if steps[i].Options.Verbose == 0 {
				steps[i].Options.Verbose = 2
			}
		}
	}

	dataFile, err := os.Open(a.Data)
	if err != nil {
		return err
	}
	defer dataFile.Close()

	X, Y, err := loadCSV(dataFile, a.Targets, a.SequenceColumn, a.Header)
	if err != nil {
		return errors.Wrap(err, "load data")
	}

	logger.Info("data loaded",
		zap.String("path", a.Data),
		zap.Int("sequences", len(X)),
	)

	params := elm.DefaultParams()
	params.HiddenLayerSize = a.HiddenLayerSize
	params.Activation = elm.Activation(a.Activation)
	params.Alpha = a.Alpha
	params.RandomState = a.RandomState

	base, err := newEstimator(a.Classify, params, logger)
	if err != nil {
		return err
	}

	config := rcn.DefaultConfig()
	config.Logger = logger

	search, err := rcn.NewSequentialSearch(base, steps, config)
	if err != nil {
		return err
	}

	fitErr := search.Fit(X, Y)

	// Completed steps are reported and archived even if a later step failed.
	rec := archive.FromSearch(search)

	if a.Archive != "" {
		if err := archive.Open(a.Archive).Save(rec); err != nil {
			return err
		}

		logger.Info("run archived", zap.String("run_id", rec.RunID), zap.String("dir", a.Archive))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(rec); err != nil {
		return err
	}

	return fitErr
}

// newEstimator returns the base estimator of the search.
func newEstimator(classify bool, p elm.Params, logger *zap.Logger) (rcn.Estimator, error) {
	if classify {
		clf, err := elm.NewClassifier(p, logger)
		if err != nil {
			return nil, err
		}

		return clf, nil
	}

	reg, err := elm.NewRegressor(p, logger)
	if err != nil {
		return nil, err
	}

	return reg, nil
}

// newLogger builds a console logger at the given level.
func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()

	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	cfg.Level = zap.NewAtomicLevelAt(l)

	return cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}
