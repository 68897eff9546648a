package fish

import (
	"math"
	"testing"

	"github.com/samuelfneumann/retrolearn/environment"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

func TestRockCollision(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
		nx, ny float64
	}{
		{"diagonal", 3, 4, 0.6, 0.8},
		{"left", -2, 0, -1, 0},
		{"centre", 0, 0, 1, 0},
	}

	for _, test := range tests {
		f, _ := New()
		f.X, f.Y = RockX+test.dx, RockY+test.dy
		f.Vx, f.Vy = 0, 0
		f.collideRock()

		d := math.Hypot(f.X-RockX, f.Y-RockY)
		if !scalar.EqualWithinAbs(d, RockRadius+RockClearance, 1e-9) {
			t.Errorf("%s: want distance %v, have %v", test.name,
				RockRadius+RockClearance, d)
		}
		wantX := RockX + test.nx*(RockRadius+RockClearance)
		wantY := RockY + test.ny*(RockRadius+RockClearance)
		if !scalar.EqualWithinAbs(f.X, wantX, 1e-9) ||
			!scalar.EqualWithinAbs(f.Y, wantY, 1e-9) {
			t.Errorf("%s: want position (%v, %v), have (%v, %v)", test.name,
				wantX, wantY, f.X, f.Y)
		}
		if !scalar.EqualWithinAbs(f.Vx, test.nx*RockKick, 1e-9) ||
			!scalar.EqualWithinAbs(f.Vy, test.ny*RockKick, 1e-9) {
			t.Errorf("%s: want velocity along normal, have (%v, %v)",
				test.name, f.Vx, f.Vy)
		}
		if f.Bump() != 1 {
			t.Errorf("%s: want bump 1, have %v", test.name, f.Bump())
		}
	}
}

func TestNoCollisionOutsideRock(t *testing.T) {
	f, _ := New()
	f.X, f.Y = RockX+RockRadius+RockClearance, RockY
	f.collideRock()
	if f.Bump() != 0 {
		t.Errorf("unexpected collision at clearance distance")
	}
}

func TestReward(t *testing.T) {
	f, _ := New()

	distN := math.Min(math.Hypot(StartX-RockX, StartY-RockY)/DistScale, 1)
	wall := environment.WallDistance(StartX, StartY)
	want := AliveBonus + DistBonus*distN - (WallBaseline-wall)*WallPenalty
	if got := f.Reward(); !scalar.EqualWithinAbs(got, want, 1e-12) {
		t.Errorf("reward: want(%v) have(%v)", want, got)
	}

	f.X = environment.WallMargin - 1
	f.Step(environment.Action{}, 1.0/60)
	if f.Bump() != 1 {
		t.Fatalf("expected wall bump")
	}
	if f.Reward() >= 0 {
		t.Errorf("reward: bump penalty not applied, have %v", f.Reward())
	}
}

func TestDeterministicCurrent(t *testing.T) {
	a, _ := New()
	b, _ := New()

	actions := []environment.Action{{0.3, 1}, {-1, 0.5}, {0, -1}, {1, 1}}
	for i := 0; i < 240; i++ {
		act := actions[i%len(actions)]
		sa := a.Step(act, 1.0/60)
		sb := b.Step(act, 1.0/60)
		if !mat.Equal(sa.Observation, sb.Observation) {
			t.Fatalf("step %d: identical runs diverged", i)
		}
	}

	if !scalar.EqualWithinAbs(a.Elapsed(), 4, 1e-9) {
		t.Errorf("elapsed: want(4) have(%v)", a.Elapsed())
	}
}

func TestScore(t *testing.T) {
	f, _ := New()
	if f.BestText() != "--" {
		t.Errorf("bestText: want(--) have(%v)", f.BestText())
	}

	f.RecordScore(1.234)
	f.RecordScore(-3)
	if f.BestText() != "1.23" {
		t.Errorf("bestText: want(1.23) have(%v)", f.BestText())
	}
	if last, ok := f.LastScore(); !ok || last != -3 {
		t.Errorf("lastScore: want(-3) have(%v)", last)
	}

	f.Reset()
	if f.BestText() != "1.23" {
		t.Errorf("reset cleared best score")
	}
}
