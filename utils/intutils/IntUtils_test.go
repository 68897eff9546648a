package intutils

import "testing"

func TestMinMax(t *testing.T) {
	ints := []int{3, -2, 9, 0}
	if min := Min(ints...); min != -2 {
		t.Errorf("min: want(-2) have(%d)", min)
	}
	if max := Max(ints...); max != 9 {
		t.Errorf("max: want(9) have(%d)", max)
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		value, min, max, want int
	}{
		{0, 1, 500, 1},
		{25, 1, 200, 25},
		{1024, 16, 512, 512},
		{50, 50, 5000, 50},
	}
	for _, test := range tests {
		if have := Clip(test.value, test.min, test.max); have != test.want {
			t.Errorf("clip(%d, %d, %d): want(%d) have(%d)", test.value,
				test.min, test.max, test.want, have)
		}
	}
}
