// Package rcn provides staged hyper-parameter search for Reservoir Computing
// Networks (Echo State Networks, Extreme Learning Machines): models whose
// recurrent weights are fixed and whose linear readout is the only trained
// part.
//
// # Features
//
// The package includes the following key features:
//
//   - Sequential Search: An ordered pipeline of search steps, each searching
//     its own parameter subset on top of the winners of the previous steps
//   - Multiple Strategies: Exhaustive grid enumeration, randomized sampling
//     with a seeded budget, and Bayesian optimization with a Gaussian Process
//     surrogate
//   - Sequence-aware Cross-validation: K-fold, shuffle and order-respecting
//     time series splits over whole sequences
//   - Parallel Evaluation: Candidates of a step are evaluated concurrently on
//     independent estimator copies
//   - Progress Monitoring: Real-time updates via channels, optional progress
//     bars and structured logs (zap)
//   - YAML Plans: Search steps can be loaded from a plan file
//
// The incremental ridge readout lives in package linear. Package elm holds
// Extreme Learning Machine regressors and classifiers that train on many
// variable-length sequences through it.
//
// # Estimators
//
// The engine drives any Estimator. An estimator's configuration is a value:
// WithParams returns a new, unfitted estimator and never mutates the receiver,
// so every fold of every candidate is trained on its own copy.
//
// # Strategies
//
// 1. Grid:
//
//   - Evaluates the full cartesian product of finite dimensions
//   - Names are enumerated in sorted order, the last one varying fastest
//
// Example:
//
//	step := SearchStep{
//		Name:     "scaling",
//		Strategy: Grid,
//		Space:    Space{"input_scaling": Choice(0.1, 0.5, 1.0)},
//	}
//
// 2. Randomized:
//
//   - Draws NIter assignments from a generator seeded with Seed
//   - Finite spaces are sampled without replacement
//
// Example:
//
//	step := SearchStep{
//		Name:     "regularization",
//		Strategy: Randomized,
//		Space:    Space{"alpha": Sampled(LogUniform{Min: 1e-6, Max: 1e-1})},
//		Options:  StepOptions{NIter: 20, Seed: 42},
//	}
//
// 3. Bayesian:
//
//   - Evaluates InitialSamples random assignments, then lets UCB, PI, EI or
//     Thompson Sampling pick each further candidate from a Gaussian Process
//     prediction of the loss
//
// # Selection
//
// Scores follow the higher-is-better convention (see MakeScorer). The
// candidate with the greatest mean validation score wins; ties go to the
// candidate enumerated first. A step fails with a *FitError only when all of
// its candidates failed.
//
// # Thread Safety
//
//   - Candidate evaluations share no mutable state
//   - Results are recorded by the orchestrating goroutine once all candidates
//     of a step have finished
//   - Progress channel updates are non-blocking
package rcn
