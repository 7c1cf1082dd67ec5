package learn

import (
	"fmt"
	"sync"
	"time"
)

// TrainingSample is one labeled feature vector.
type TrainingSample struct {
	ID        string    `json:"id"`
	Features  []float64 `json:"features"`
	Class     Class     `json:"class"`
	Timestamp time.Time `json:"timestamp"`
}

// TrainingSet holds the labeled samples collected during a session. Samples
// are only ever appended.
type TrainingSet struct {
	mu         sync.RWMutex
	samples    []TrainingSample
	featureLen int
	nextID     int
}

// NewTrainingSet creates a new empty training set.
func NewTrainingSet() *TrainingSet {
	return &TrainingSet{
		samples: make([]TrainingSample, 0),
		nextID:  1,
	}
}

// Add appends a copy of features labeled with class. All samples in a set
// must have the same length; the first sample fixes it.
func (ts *TrainingSet) Add(features []float64, class Class) (TrainingSample, error) {
	if !class.Valid() {
		return TrainingSample{}, fmt.Errorf("%w: %d", ErrUnknownClass, int(class))
	}
	if len(features) == 0 {
		return TrainingSample{}, fmt.Errorf("%w: empty feature vector", ErrFeatureLength)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.featureLen != 0 && len(features) != ts.featureLen {
		return TrainingSample{}, fmt.Errorf("%w: got %d, want %d", ErrFeatureLength, len(features), ts.featureLen)
	}
	ts.featureLen = len(features)

	sample := TrainingSample{
		ID:        fmt.Sprintf("ts-%04d", ts.nextID),
		Features:  append([]float64(nil), features...),
		Class:     class,
		Timestamp: time.Now(),
	}
	ts.nextID++
	ts.samples = append(ts.samples, sample)

	return sample, nil
}

// Count returns the total number of samples.
func (ts *TrainingSet) Count() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.samples)
}

// CountByClass returns the number of samples per class, indexed by Class.
func (ts *TrainingSet) CountByClass() [NumClasses]int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	var counts [NumClasses]int
	for _, s := range ts.samples {
		counts[s.Class]++
	}
	return counts
}

// FeatureLength returns the length shared by all samples, or 0 when empty.
func (ts *TrainingSet) FeatureLength() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.featureLen
}

// Snapshot returns the current samples. Feature slices are shared with the
// set and must not be modified.
func (ts *TrainingSet) Snapshot() []TrainingSample {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return append([]TrainingSample(nil), ts.samples...)
}
