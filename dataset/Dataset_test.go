package dataset

import (
	"context"
	"errors"
	"testing"

	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/store"
)

func fishFeatures(v float64) []float64 {
	x := make([]float64, 10)
	for i := range x {
		x[i] = v
	}
	return x
}

func TestFIFOCap(t *testing.T) {
	for _, capacity := range []int{1, 7, 50} {
		d := New(capacity)
		total := 3*capacity + 2
		for i := 0; i < total; i++ {
			d.Append([]float64{float64(i)}, environment.Action{})

			if d.Len() > capacity {
				t.Fatalf("cap %d: dataset grew to %d", capacity, d.Len())
			}
		}

		samples := d.Samples()
		if len(samples) != capacity {
			t.Fatalf("cap %d: want %d samples, have %d", capacity, capacity,
				len(samples))
		}
		for i, s := range samples {
			if want := float64(total - capacity + i); s.X[0] != want {
				t.Errorf("cap %d: sample %d: want(%v) have(%v)", capacity, i,
					want, s.X[0])
			}
		}
	}
}

func TestAppendSamplesCap(t *testing.T) {
	d := New(5)
	samples := make([]Sample, 8)
	for i := range samples {
		samples[i] = Sample{X: []float64{float64(i)}}
	}
	d.AppendSamples(samples)

	tail := d.Tail(100)
	if len(tail) != 5 || tail[0].X[0] != 3 || tail[4].X[0] != 7 {
		t.Errorf("appendSamples: unexpected retained samples %v", tail)
	}
	if got := d.Tail(2); len(got) != 2 || got[1].X[0] != 7 {
		t.Errorf("tail(2): unexpected samples %v", got)
	}
	if got := d.Tail(0); got != nil {
		t.Errorf("tail(0): want nil, have %v", got)
	}
}

func TestAppendCopiesAndClips(t *testing.T) {
	d := New(10)
	x := []float64{1, 2}
	d.Append(x, environment.Action{3, -3})
	x[0] = 100

	s := d.Samples()[0]
	if s.X[0] != 1 {
		t.Error("append: features not copied")
	}
	if s.Y != (environment.Action{1, -1}) {
		t.Errorf("append: want clipped action, have %v", s.Y)
	}

	d.Clear()
	if d.Len() != 0 {
		t.Errorf("clear: %d samples remain", d.Len())
	}
}

func TestPayloadSamples(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		ok      bool
	}{
		{"valid", Payload{X: [][]float64{{1, 2}}, Y: [][]float64{{0, 1}}}, true},
		{"lengths", Payload{X: [][]float64{{1, 2}}, Y: nil}, false},
		{"features", Payload{X: [][]float64{{1}}, Y: [][]float64{{0, 1}}}, false},
		{"action", Payload{X: [][]float64{{1, 2}}, Y: [][]float64{{0}}}, false},
		{"empty", Payload{}, true},
	}

	for _, test := range tests {
		_, err := test.payload.Samples(2)
		if test.ok && err != nil {
			t.Errorf("%v: unexpected error %v", test.name, err)
		}
		if !test.ok && !errors.Is(err, ErrMalformed) {
			t.Errorf("%v: want ErrMalformed, have %v", test.name, err)
		}
	}
}

func TestStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	s := NewStore(100)
	for i := 0; i < 12; i++ {
		s.Get("fish").Append(fishFeatures(float64(i)/12),
			environment.Action{0.5, -0.5})
	}
	s.Get("car")
	if err := s.Save(ctx, kv); err != nil {
		t.Fatal(err)
	}

	loaded := NewStore(100)
	if err := loaded.Load(ctx, kv); err != nil {
		t.Fatal(err)
	}
	if n := loaded.Get("fish").Len(); n != 12 {
		t.Errorf("load: want 12 fish samples, have %d", n)
	}
	if n := loaded.Get("car").Len(); n != 0 {
		t.Errorf("load: want 0 car samples, have %d", n)
	}
}

func TestStoreLoadMalformed(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	s := NewStore(100)
	if err := s.Load(ctx, kv); err != nil {
		t.Fatalf("load absent: %v", err)
	}

	kv.Put(ctx, Key, []byte("{not json"))
	s.Get("fish").Append(fishFeatures(1), environment.Action{})
	if err := s.Load(ctx, kv); err != nil {
		t.Fatalf("load malformed: %v", err)
	}
	if n := s.Get("fish").Len(); n != 0 {
		t.Errorf("load malformed: want empty dataset, have %d samples", n)
	}

	// Wrong feature length for fish, unknown environment
	kv.Put(ctx, Key, []byte(`{"fish":{"X":[[1]],"Y":[[0,0]]},`+
		`"boat":{"X":[[1]],"Y":[[0,0]]}}`))
	if err := s.Load(ctx, kv); err != nil {
		t.Fatal(err)
	}
	if n := s.Get("fish").Len(); n != 0 {
		t.Errorf("load invalid: want empty dataset, have %d samples", n)
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := NewStore(DefaultCap)
	r := NewRecorder(s, kv, 2, 5)

	recorded := 0
	for frame := 1; frame <= 20; frame++ {
		ok, err := r.Record(ctx, frame, "fish", fishFeatures(0),
			environment.Action{})
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			recorded++
		}
	}
	if recorded != 10 || s.Get("fish").Len() != 10 {
		t.Errorf("record: want 10 samples, have %d", s.Get("fish").Len())
	}
	if r.Pending() != 0 {
		t.Errorf("record: want nothing pending, have %d", r.Pending())
	}
	if _, err := kv.Get(ctx, Key); err != nil {
		t.Errorf("record: datasets not saved: %v", err)
	}
}
