package initwfn

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want Type
	}{
		{"GlorotU", GlorotU},
		{"glorotu", GlorotU},
		{"glorotN", GlorotN},
		{"heu", HeU},
		{"zeroes", Zeroes},
		{"constant", Constant},
	}

	for _, test := range tests {
		init, err := Parse(test.name, 1)
		if err != nil {
			t.Errorf("parse(%v): %v", test.name, err)
			continue
		}
		if init.Type != test.want {
			t.Errorf("parse(%v): want(%v) have(%v)", test.name, test.want,
				init.Type)
		}
		if init.InitWFn() == nil {
			t.Errorf("parse(%v): nil InitWFn", test.name)
		}
	}

	if _, err := Parse("orthogonal", 1); err == nil {
		t.Error("parse: expected error on unknown initializer")
	}
}
