package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/retrolearn/config"
	"github.com/samuelfneumann/retrolearn/dataset"
	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/environment/car"
	"github.com/samuelfneumann/retrolearn/peer"
	"github.com/samuelfneumann/retrolearn/store"
	"github.com/samuelfneumann/retrolearn/trainer"
	"github.com/samuelfneumann/retrolearn/trainer/reinforce"
)

func testConfig(user string) config.Config {
	c := config.Default()
	c.User = user
	c.Imitation.Hidden = 16
	c.Reinforce.Hidden = 16
	return c
}

func newSession(t *testing.T, c config.Config, kv store.KV,
	hub *peer.Hub) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), c, kv, hub)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// carSamples returns n demonstrations on the car whose actions are a
// smooth function of the features
func carSamples(n int) []dataset.Sample {
	samples := make([]dataset.Sample, n)
	for i := range samples {
		x := make([]float64, car.FeatureLen)
		for j := range x {
			x[j] = math.Sin(float64(i*(j+1)) * 0.1)
		}
		samples[i] = dataset.Sample{
			X: x,
			Y: environment.Action{0.5 * x[0], -0.5 * x[1]},
		}
	}
	return samples
}

func latest(s *Session) string {
	lines := s.Status().Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

func TestTickRecords(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := newSession(t, testConfig("alice"), kv, nil)

	s.Tick(ctx, environment.Input{}, 5)
	if elapsed := s.Env().Elapsed(); elapsed != environment.MaxDt {
		t.Errorf("tick: dt not clamped, elapsed %v", elapsed)
	}
	s.Tick(ctx, environment.Input{}, -1)
	if elapsed := s.Env().Elapsed(); elapsed != environment.MaxDt {
		t.Errorf("tick: negative dt not clamped, elapsed %v", elapsed)
	}

	s.StartRecording()
	for i := 0; i < 10; i++ {
		s.Tick(ctx, environment.Input{Up: true}, 1.0/60)
	}
	if s.Dataset().Len() != 5 {
		t.Errorf("record: want 5 samples, have %d", s.Dataset().Len())
	}
	for _, sample := range s.Dataset().Samples() {
		if sample.Y[1] <= 0 {
			t.Errorf("record: throttle not recorded: %v", sample.Y)
		}
	}

	if err := s.StopRecording(ctx); err != nil {
		t.Fatal(err)
	}
	if latest(s) != "REC OFF (saved)." {
		t.Errorf("stopRecording: status %q", latest(s))
	}

	s.Tick(ctx, environment.Input{}, 1.0/60)
	s.Tick(ctx, environment.Input{}, 1.0/60)
	if s.Dataset().Len() != 5 {
		t.Errorf("recorded while stopped: have %d", s.Dataset().Len())
	}

	restored := newSession(t, testConfig("alice"), kv, nil)
	if restored.Dataset().Len() != 5 {
		t.Errorf("restore: want 5 samples, have %d", restored.Dataset().Len())
	}

	if err := restored.ClearDataset(ctx); err != nil {
		t.Fatal(err)
	}
	if newSession(t, testConfig("alice"), kv, nil).Dataset().Len() != 0 {
		t.Error("clearDataset: cleared dataset not saved")
	}
}

func TestSwitchAndAuto(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, testConfig("alice"), store.NewMemory(), nil)

	s.Switch(environment.Fish)
	if s.Kind() != environment.Fish || s.Env().Kind() != environment.Fish {
		t.Errorf("switch: current environment %v", s.Kind())
	}
	if latest(s) != "Switched to FISH" {
		t.Errorf("switch: status %q", latest(s))
	}

	if !s.ToggleAuto() || !s.Auto() {
		t.Error("toggleAuto: auto not enabled")
	}
	if latest(s) != "AUTO ON (imitation model drives)." {
		t.Errorf("toggleAuto: status %q", latest(s))
	}

	// Without a model the manual input drives
	step := s.Tick(ctx, environment.Input{Up: true}, 1.0/60)
	if step.Observation.Len() != s.Env().ObservationSpec().Len() {
		t.Errorf("tick: observation length %d", step.Observation.Len())
	}
	if s.Env().Control()[1] <= 0 {
		t.Errorf("auto without model: thrust %v", s.Env().Control()[1])
	}

	s.Reset()
	if latest(s) != "Reset." {
		t.Errorf("reset: status %q", latest(s))
	}
}

func TestImitation(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := newSession(t, testConfig("alice"), kv, nil)

	_, err := s.TrainImitation(2, 16)
	if !errors.Is(err, trainer.ErrInsufficientData) {
		t.Errorf("trainImitation: want ErrInsufficientData, have %v", err)
	}
	if latest(s) != "Need more samples (>=300). Have 0." {
		t.Errorf("trainImitation: status %q", latest(s))
	}
	if err := s.SaveImitation(ctx); !errors.Is(err,
		trainer.ErrInsufficientData) {
		t.Errorf("saveImitation: want ErrInsufficientData, have %v", err)
	}
	if err := s.LoadImitation(ctx); !errors.Is(err, store.ErrModelNotFound) {
		t.Errorf("loadImitation: want ErrModelNotFound, have %v", err)
	}

	s.Dataset().AppendSamples(carSamples(320))
	res, err := s.TrainImitation(2, 16)
	if err != nil {
		t.Fatal(err)
	}
	if res.Epochs != 2 || res.Batch != 16 {
		t.Errorf("trainImitation: unexpected result %+v", res)
	}
	if latest(s) != "Train done. Try AUTO." {
		t.Errorf("trainImitation: status %q", latest(s))
	}
	if !s.imitate[environment.Car].HasModel() {
		t.Error("trainImitation: policy has no model")
	}

	s.ToggleAuto()
	s.Tick(ctx, environment.Input{}, 1.0/60)
	ctrl := s.Env().Control()
	if math.Abs(ctrl[0]) > 1 || math.Abs(ctrl[1]) > 1 {
		t.Errorf("auto: control out of bounds %v", ctrl)
	}

	if err := s.SaveImitation(ctx); err != nil {
		t.Fatal(err)
	}
	restored := newSession(t, testConfig("alice"), kv, nil)
	if err := restored.LoadImitation(ctx); err != nil {
		t.Fatal(err)
	}
	if !restored.imitate[environment.Car].HasModel() {
		t.Error("loadImitation: policy has no model")
	}
}

func TestReinforce(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := newSession(t, testConfig("alice"), kv, nil)

	if _, err := s.TrainRL(1, 50); !errors.Is(err, reinforce.ErrNoPolicy) {
		t.Errorf("trainRL: want ErrNoPolicy, have %v", err)
	}
	if latest(s) != "Init RL policy first." {
		t.Errorf("trainRL: status %q", latest(s))
	}
	if err := s.SaveRL(ctx); !errors.Is(err, reinforce.ErrNoPolicy) {
		t.Errorf("saveRL: want ErrNoPolicy, have %v", err)
	}
	if err := s.LoadRL(ctx); !errors.Is(err, store.ErrModelNotFound) {
		t.Errorf("loadRL: want ErrModelNotFound, have %v", err)
	}

	if err := s.InitRL(); err != nil {
		t.Fatal(err)
	}
	avg, err := s.TrainRL(1, 50)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		t.Errorf("trainRL: average return %v", avg)
	}

	if _, err := s.DemoRL(50); err != nil {
		t.Fatal(err)
	}
	if s.Reinforce().Episodes() != 1 {
		t.Errorf("demo updated the policy: %d episodes",
			s.Reinforce().Episodes())
	}

	if err := s.SaveRL(ctx); err != nil {
		t.Fatal(err)
	}
	restored := newSession(t, testConfig("alice"), kv, nil)
	if err := restored.LoadRL(ctx); err != nil {
		t.Fatal(err)
	}
	if !restored.Reinforce().HasPolicy() {
		t.Error("loadRL: no policy")
	}
}

func TestPeerSharing(t *testing.T) {
	ctx := context.Background()
	hub := peer.NewHub(0)
	a := newSession(t, testConfig("alice"), store.NewMemory(), hub)
	bKV := store.NewMemory()
	b := newSession(t, testConfig("bob"), bKV, hub)

	if err := a.SendChat(""); !errors.Is(err, ErrNotJoined) {
		t.Errorf("sendChat: want ErrNotJoined, have %v", err)
	}

	for _, s := range []*Session{a, b} {
		if err := s.JoinRoom("room"); err != nil {
			t.Fatal(err)
		}
	}
	if a.Room() != "room" || hub.Members("room") != 2 {
		t.Fatalf("joinRoom: room %q with %d members", a.Room(),
			hub.Members("room"))
	}

	if err := a.SendChat(""); err != nil {
		t.Fatal(err)
	}
	b.Poll(ctx)
	if latest(b) != "[ROOM:room] alice: hi" {
		t.Errorf("chat: status %q", latest(b))
	}

	if err := a.BroadcastBest(); err != nil {
		t.Fatal(err)
	}
	b.Poll(ctx)
	if latest(b) != "[ROOM:room] BEST from alice: car=--" {
		t.Errorf("best: status %q", latest(b))
	}

	a.Dataset().AppendSamples(carSamples(10))
	if _, err := a.ShareDataset(); !errors.Is(err,
		trainer.ErrInsufficientData) {
		t.Errorf("shareDataset: want ErrInsufficientData, have %v", err)
	}

	a.Dataset().AppendSamples(carSamples(50))
	n, err := a.ShareDataset()
	if err != nil {
		t.Fatal(err)
	}
	if n != 60 {
		t.Errorf("shareDataset: want 60 samples shared, have %d", n)
	}

	// Messages are handled on the next frame
	b.Tick(ctx, environment.Input{}, 1.0/60)
	if b.Datasets().Get("car").Len() != 60 {
		t.Errorf("receive: want 60 samples, have %d",
			b.Datasets().Get("car").Len())
	}
	if latest(b) != "[ROOM:room] got dataset from alice env=car +60 samples" {
		t.Errorf("receive: status %q", latest(b))
	}
	if _, err := bKV.Get(ctx, dataset.Key); err != nil {
		t.Errorf("receive: datasets not saved: %v", err)
	}

	before := b.Status().String()
	b.Handle(ctx, peer.Message{Type: "ping"})
	b.Handle(ctx, peer.Message{Type: peer.Dataset, Env: "boat"})
	if b.Status().String() != before {
		t.Error("handle: invalid message not dropped silently")
	}

	a.LeaveRoom()
	if err := a.SendChat("bye"); !errors.Is(err, ErrNotJoined) {
		t.Errorf("sendChat after leave: want ErrNotJoined, have %v", err)
	}
}

func TestNoHub(t *testing.T) {
	s := newSession(t, testConfig("alice"), store.NewMemory(), nil)
	if err := s.JoinRoom(""); !errors.Is(err, ErrNoHub) {
		t.Errorf("joinRoom: want ErrNoHub, have %v", err)
	}
}
