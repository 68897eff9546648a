package car

import (
	"math"
	"testing"

	"github.com/samuelfneumann/retrolearn/environment"
)

// drive places the car on the track centre line at each angle in turn
// and runs lap detection, returning the number of laps counted
func drive(c *Car, angles []float64, speed float64) int {
	mid := (InnerRadius + OuterRadius) / 2
	laps := 0
	c.Notify(func(string) { laps++ })
	for _, a := range angles {
		c.x = TrackX + mid*math.Cos(a)
		c.y = TrackY + mid*math.Sin(a)
		c.v = speed
		c.clock += 1.0 / 60
		c.detectLap()
	}
	return laps
}

// revolution returns n angles making one full revolution from start
// in the given direction
func revolution(start float64, dir float64, n int) []float64 {
	angles := make([]float64, n+1)
	for i := range angles {
		a := start + dir*2*math.Pi*float64(i)/float64(n)
		angles[i] = math.Atan2(math.Sin(a), math.Cos(a))
	}
	return angles
}

func TestLapOnePerRevolution(t *testing.T) {
	for _, dir := range []float64{-1, 1} {
		c, _ := New()

		// The first crossing after a reset only starts the timer
		if laps := drive(c, revolution(0, dir, 120), 5); laps != 0 {
			t.Errorf("direction %v: first crossing: want 0 laps, have %d",
				dir, laps)
		}
		if _, ok := c.BestLap(); ok {
			t.Errorf("direction %v: best lap recorded before a full lap", dir)
		}

		for i := 0; i < 2; i++ {
			if laps := drive(c, revolution(0, dir, 120), 5); laps != 1 {
				t.Errorf("direction %v: revolution %d: want 1 lap, have %d",
					dir, i, laps)
			}
		}
		if _, ok := c.BestLap(); !ok {
			t.Errorf("direction %v: best lap not recorded", dir)
		}
	}
}

func TestLapDirectionLatched(t *testing.T) {
	c, _ := New()
	drive(c, revolution(0, -1, 120), 5)
	if laps := drive(c, revolution(0, -1, 120), 5); laps != 1 {
		t.Fatalf("want 1 lap, have %d", laps)
	}

	// Turning around and crossing the seam backwards is not a lap
	if laps := drive(c, revolution(math.Pi/2, 1, 60)[:31], 5); laps != 0 {
		t.Errorf("reverse crossing: want 0 laps, have %d", laps)
	}
}

func TestLapRequiresSpeed(t *testing.T) {
	c, _ := New()
	for i := 0; i < 2; i++ {
		if laps := drive(c, revolution(0, -1, 120), LapMinSpeed); laps != 0 {
			t.Errorf("slow revolution: want 0 laps, have %d", laps)
		}
	}
	if c.BestText() != "--" {
		t.Errorf("bestText: want(--) have(%v)", c.BestText())
	}
}

func TestLapTimeSimulated(t *testing.T) {
	c, _ := New()
	drive(c, revolution(0, -1, 120), 5)
	drive(c, revolution(0, -1, 120)[1:], 5)
	lap, _ := c.LastLap()
	if want := int64(2000); lap != want {
		t.Errorf("full lap: want(%v ms) have(%v ms)", want, lap)
	}

	// The half revolution from the start line after a reset is not timed
	c.Reset()
	if laps := drive(c, revolution(0, -1, 120), 5); laps != 0 {
		t.Errorf("after reset: want 0 laps, have %d", laps)
	}
	if best, _ := c.BestLap(); best != 2000 {
		t.Errorf("best lap: want(2000) have(%v)", best)
	}
}

func TestBestPersistsAcrossReset(t *testing.T) {
	c, _ := New()
	drive(c, revolution(0, -1, 120), 5)
	drive(c, revolution(0, -1, 120), 5)
	text := c.BestText()
	if text == "--" {
		t.Fatal("no lap completed")
	}
	c.Reset()
	if c.BestText() != text {
		t.Errorf("reset cleared best lap: want(%v) have(%v)", text,
			c.BestText())
	}
}

func TestSpeedBound(t *testing.T) {
	c, _ := New()
	full := environment.Action{0, 1}
	for i := 0; i < 600; i++ {
		c.Step(full, 1.0/60)
		if c.Speed() > MaxSpeedOnTrack {
			t.Fatalf("step %d: speed %v exceeds %v", i, c.Speed(),
				MaxSpeedOnTrack)
		}
	}
	if c.Speed() <= 0 {
		t.Errorf("car did not accelerate: speed %v", c.Speed())
	}
}

func TestFeatures(t *testing.T) {
	c, step := New()
	if step.Observation.Len() != FeatureLen {
		t.Fatalf("features: want length %d, have %d", FeatureLen,
			step.Observation.Len())
	}

	// The car starts on the centre line, facing along the track
	want := []float64{40.0 / OuterRadius, 0, 0, -1, 0, 0, 1}
	for i, w := range want {
		if got := c.Features().AtVec(i); math.Abs(got-w) > 1e-9 {
			t.Errorf("feature %d: want(%v) have(%v)", i, w, got)
		}
	}
}
