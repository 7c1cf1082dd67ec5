package learn

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/floats"

	"ripecheck/internal/logger"
)

var (
	// ErrInsufficientData is returned by Train when too few samples exist.
	ErrInsufficientData = errors.New("insufficient training data")
	// ErrTrainingInProgress is returned by Train while another run is active
	// on the same session.
	ErrTrainingInProgress = errors.New("training already in progress")
	// ErrUnknownClass is returned for labels outside the fixed class set.
	ErrUnknownClass = errors.New("unknown class")
	// ErrFeatureLength is returned when a feature vector's length does not
	// match the samples or model.
	ErrFeatureLength = errors.New("feature length mismatch")
	// ErrNotTrained is returned by Predict before the first training run.
	ErrNotTrained = errors.New("model not trained")
)

// Status texts shown to the user.
const (
	StatusTraining = "Training…"
	StatusTrained  = "Trained. Try another image to predict."
)

// CollectedStatus is the status text after a sample is added.
func CollectedStatus(n int) string {
	return fmt.Sprintf("Collected %d sample(s).", n)
}

// InsufficientStatus is the status text when training is refused for lack
// of samples.
func InsufficientStatus(minSamples int) string {
	return fmt.Sprintf("Add a few samples for each class first (≥%d total).", minSamples)
}

// PerClassStatus is the status text when the total is met but a class has
// fewer than minPerClass samples.
func PerClassStatus(class Class, minPerClass int) string {
	return fmt.Sprintf("Add more %s samples first (≥%d per class).", class, minPerClass)
}

// Options holds the network shape and training schedule.
type Options struct {
	Hidden       int
	Epochs       int
	BatchSize    int
	LearningRate float64
	// MinSamples is the combined minimum across all classes.
	MinSamples int
	// MinPerClass, when positive, also requires that many samples of every
	// class. Zero keeps the combined-total rule only.
	MinPerClass int
	// Seed for weight init and shuffling; zero seeds from the clock.
	Seed int64
}

// DefaultOptions returns the stock training schedule.
func DefaultOptions() Options {
	return Options{
		Hidden:       24,
		Epochs:       35,
		BatchSize:    8,
		LearningRate: 0.02,
		MinSamples:   6,
	}
}

// Prediction is the most likely class and its probability.
type Prediction struct {
	Class         Class     `json:"class"`
	Confidence    float64   `json:"confidence"`
	Probabilities []float64 `json:"probabilities"`
}

func (p Prediction) String() string {
	return fmt.Sprintf("%s (%.1f%%)", p.Class, p.Confidence*100)
}

// Session owns one user's samples and model. Samples and the model live only
// as long as the Session value.
type Session struct {
	ID      string
	Created time.Time

	opts    Options
	samples *TrainingSet

	training atomic.Bool
	status   atomic.Value // string

	mu      sync.RWMutex // guards model, rng, current
	model   *Network
	rng     *rand.Rand
	current []float64

	events eventBus
}

// NewSession creates an empty session.
func NewSession(id string, opts Options) *Session {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Session{
		ID:      id,
		Created: time.Now(),
		opts:    opts,
		samples: NewTrainingSet(),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Options returns the session's training options.
func (s *Session) Options() Options { return s.opts }

// Observe records features as the session's current image.
func (s *Session) Observe(features []float64) {
	s.mu.Lock()
	s.current = append([]float64(nil), features...)
	s.mu.Unlock()
}

// Current returns the features of the last observed image, or nil.
func (s *Session) Current() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// AddSample labels features with class and returns the new sample count.
func (s *Session) AddSample(features []float64, class Class) (int, error) {
	if _, err := s.samples.Add(features, class); err != nil {
		return s.samples.Count(), err
	}
	n := s.samples.Count()
	s.status.Store(CollectedStatus(n))
	logger.Debug("learn", "session %s: sample %d labeled %s", s.ID, n, class)
	s.emit(EventSampleAdded, n)
	return n, nil
}

// SampleCount returns the number of collected samples.
func (s *Session) SampleCount() int { return s.samples.Count() }

// CountByClass returns the per-class sample counts.
func (s *Session) CountByClass() [NumClasses]int { return s.samples.CountByClass() }

// Training reports whether a training run is active.
func (s *Session) Training() bool { return s.training.Load() }

// Trained reports whether a model exists.
func (s *Session) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

// Train retrains the model on every collected sample and predicts the class
// of current. The model is built on the first successful call. A second
// call while one is running fails with ErrTrainingInProgress; too few
// samples fail with ErrInsufficientData before the model is touched.
func (s *Session) Train(ctx context.Context, current []float64) (Prediction, error) {
	if !s.training.CompareAndSwap(false, true) {
		return Prediction{}, ErrTrainingInProgress
	}
	defer s.training.Store(false)

	samples := s.samples.Snapshot()
	if status, err := s.checkSamples(samples); err != nil {
		s.status.Store(status)
		s.emit(EventTrainingFailed, err)
		return Prediction{}, err
	}
	if len(current) != len(samples[0].Features) {
		err := fmt.Errorf("%w: current has %d features, samples have %d", ErrFeatureLength, len(current), len(samples[0].Features))
		s.emit(EventTrainingFailed, err)
		return Prediction{}, err
	}

	s.status.Store(StatusTraining)
	s.emit(EventTrainingStarted, len(samples))
	start := time.Now()

	pred, loss, err := s.fit(ctx, samples, current)
	if err != nil {
		s.status.Store(CollectedStatus(len(samples)))
		logger.Warn("learn", "session %s: training failed: %v", s.ID, err)
		s.emit(EventTrainingFailed, err)
		return Prediction{}, err
	}

	logger.Info("learn", "session %s: trained on %d samples in %s (loss %.4f), current is %s",
		s.ID, len(samples), time.Since(start).Round(time.Millisecond), loss, pred)
	s.status.Store(StatusTrained)
	s.emit(EventTrained, pred)
	return pred, nil
}

func (s *Session) fit(ctx context.Context, samples []TrainingSample, current []float64) (Prediction, float64, error) {
	xs := make([][]float64, len(samples))
	ys := make([]Class, len(samples))
	for i, smp := range samples {
		xs[i] = smp.Features
		ys[i] = smp.Class
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model == nil {
		s.model = NewNetwork(len(xs[0]), s.opts.Hidden, NumClasses, s.opts.LearningRate, s.rng)
	}

	loss, err := s.model.Fit(ctx, xs, ys, FitOptions{
		Epochs:    s.opts.Epochs,
		BatchSize: s.opts.BatchSize,
		Shuffle:   true,
	}, s.rng)
	if err != nil {
		return Prediction{}, 0, err
	}

	pred, err := predict(s.model, current)
	return pred, loss, err
}

// Predict scores features with the current model without retraining.
func (s *Session) Predict(features []float64) (Prediction, error) {
	// Network scratch and weights are not safe for concurrent readers.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model == nil {
		return Prediction{}, ErrNotTrained
	}
	return predict(s.model, features)
}

// TryPredict is Predict without waiting: while a training run holds the
// model it fails with ErrTrainingInProgress.
func (s *Session) TryPredict(features []float64) (Prediction, error) {
	if !s.mu.TryLock() {
		return Prediction{}, ErrTrainingInProgress
	}
	defer s.mu.Unlock()

	if s.model == nil {
		return Prediction{}, ErrNotTrained
	}
	return predict(s.model, features)
}

func predict(n *Network, features []float64) (Prediction, error) {
	probs, err := n.Predict(features)
	if err != nil {
		return Prediction{}, err
	}
	best := floats.MaxIdx(probs)
	return Prediction{
		Class:         Class(best),
		Confidence:    probs[best],
		Probabilities: probs,
	}, nil
}

// checkSamples returns ErrInsufficientData and the matching status text when
// samples cannot be trained on.
func (s *Session) checkSamples(samples []TrainingSample) (string, error) {
	if len(samples) < s.opts.MinSamples || len(samples) == 0 {
		return InsufficientStatus(s.opts.MinSamples),
			fmt.Errorf("%w: have %d samples, need at least %d", ErrInsufficientData, len(samples), s.opts.MinSamples)
	}
	if s.opts.MinPerClass > 0 {
		var counts [NumClasses]int
		for _, smp := range samples {
			counts[smp.Class]++
		}
		for _, c := range Classes() {
			if counts[c] < s.opts.MinPerClass {
				return PerClassStatus(c, s.opts.MinPerClass),
					fmt.Errorf("%w: class %s has %d samples, need at least %d", ErrInsufficientData, c, counts[c], s.opts.MinPerClass)
			}
		}
	}
	return "", nil
}

// Status returns the most recent status text: collection progress,
// training progress, or the insufficient-data hint.
func (s *Session) Status() string {
	if st, ok := s.status.Load().(string); ok {
		return st
	}
	return CollectedStatus(0)
}
