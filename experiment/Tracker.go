package experiment

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "github.com/samuelfneumann/retrolearn/timestep"
	"github.com/samuelfneumann/retrolearn/trainer/reinforce"
)

// Tracker tracks the timesteps of training episodes and saves the
// tracked data
type Tracker interface {
	reinforce.Tracker
	Save() error
}

// Trackers combines multiple Trackers into one
type Trackers []Tracker

// Track sends the timestep to every Tracker
func (t Trackers) Track(step ts.TimeStep) {
	for _, tracker := range t {
		tracker.Track(step)
	}
}

// Save saves every Tracker, returning the first error
func (t Trackers) Save() error {
	for _, tracker := range t {
		if err := tracker.Save(); err != nil {
			return err
		}
	}
	return nil
}

// EpisodeLengthTracker tracks and saves the lengths of episodes.
// Note that an episode must finish for this Tracker to save its data.
type EpisodeLengthTracker struct {
	episodeLengths []int
	filename       string
}

// NewEpisodeLengthTracker returns a new EpisodeLengthTracker which will
// save its data at the specified location filename
func NewEpisodeLengthTracker(filename string) *EpisodeLengthTracker {
	return &EpisodeLengthTracker{filename: filename}
}

// Track caches the episode length if the timestep is the last one of
// its episode
func (e *EpisodeLengthTracker) Track(t ts.TimeStep) {
	if t.Last() {
		e.episodeLengths = append(e.episodeLengths, t.Number)
	}
}

// Lengths returns the lengths of all finished episodes
func (e *EpisodeLengthTracker) Lengths() []int {
	return append([]int(nil), e.episodeLengths...)
}

// Save saves the data tracked by the EpisodeLengthTracker to disk.
func (e *EpisodeLengthTracker) Save() error {
	file, err := os.Create(e.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %w", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(e.episodeLengths); err != nil {
		return fmt.Errorf("save: could not encode episode lengths: %w", err)
	}
	return nil
}

// LoadEpisodeLengths loads and returns the data saved by an
// EpisodeLengthTracker
func LoadEpisodeLengths(filename string) ([]int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadEpisodeLengths: could not open data "+
			"file: %w", err)
	}
	defer file.Close()

	var data []int
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("loadEpisodeLengths: could not decode "+
			"data: %w", err)
	}
	return data, nil
}
