package experiment

import (
	"fmt"

	"github.com/aunum/log"
	ts "github.com/samuelfneumann/retrolearn/timestep"
)

// Checkpointer checkpoints a model every N finished episodes. It is a
// Tracker whose Save method takes a final checkpoint.
type Checkpointer struct {
	interval    int
	episodes    int
	checkpoints int

	// save writes the checkpoint, e.g. Session.SaveRL
	save func() error
}

// NewCheckpointer returns a Checkpointer that calls save after every n
// finished episodes
func NewCheckpointer(n int, save func() error) *Checkpointer {
	if n <= 0 {
		panic(fmt.Sprintf("newCheckpointer: interval must be positive, "+
			"have %d", n))
	}
	return &Checkpointer{interval: n, save: save}
}

// Track counts finished episodes and checkpoints on every interval.
// Failed checkpoints are logged and skipped.
func (c *Checkpointer) Track(t ts.TimeStep) {
	if !t.Last() {
		return
	}
	c.episodes++
	if c.episodes%c.interval != 0 {
		return
	}

	if err := c.save(); err != nil {
		log.Warningf("checkpoint after %d episodes failed: %v", c.episodes,
			err)
		return
	}
	c.checkpoints++
}

// Checkpoints returns the number of successful checkpoints
func (c *Checkpointer) Checkpoints() int {
	return c.checkpoints
}

// Save takes a final checkpoint
func (c *Checkpointer) Save() error {
	if err := c.save(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	c.checkpoints++
	return nil
}
