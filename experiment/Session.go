// Package experiment implements the application state of a session:
// the environments, demonstration recording, both trainers, and peer
// sharing, driven one frame at a time by Tick.
//
// Operations never stop a Session. Each outcome, successful or not,
// is added to the Session's status log, and errors are also returned
// to the caller.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aunum/log"
	"github.com/samuelfneumann/retrolearn/agent"
	"github.com/samuelfneumann/retrolearn/agent/policy"
	"github.com/samuelfneumann/retrolearn/config"
	"github.com/samuelfneumann/retrolearn/dataset"
	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/environment/envconfig"
	"github.com/samuelfneumann/retrolearn/peer"
	"github.com/samuelfneumann/retrolearn/store"
	"github.com/samuelfneumann/retrolearn/timestep"
	"github.com/samuelfneumann/retrolearn/trainer"
	"github.com/samuelfneumann/retrolearn/trainer/imitation"
	"github.com/samuelfneumann/retrolearn/trainer/reinforce"
	"github.com/samuelfneumann/retrolearn/utils/floatutils"
	"github.com/samuelfneumann/retrolearn/utils/intutils"
)

var (
	// ErrNotJoined is returned by peer operations outside of a room
	ErrNotJoined = errors.New("join a room first")

	// ErrNoHub is returned when joining a room without a peer Hub
	ErrNoHub = errors.New("peer sharing unavailable")
)

// DefaultChat is the text of a chat message sent without text
const DefaultChat string = "hi"

// Session is the state of a single user's session. A Session is not
// safe for concurrent use.
type Session struct {
	config config.Config
	kv     store.KV
	hub    *peer.Hub
	member *peer.Member

	envs    map[environment.Kind]environment.Environment
	steps   map[environment.Kind]timestep.TimeStep
	manual  map[environment.Kind]*policy.Manual
	imitate map[environment.Kind]*policy.Imitation
	current environment.Kind

	datasets  *dataset.Store
	recorder  *dataset.Recorder
	models    *store.Models
	imitation *imitation.Trainer
	reinforce *reinforce.Trainer

	recording bool
	auto      bool
	frame     int
	status    *StatusLog
}

// NewSession returns a new Session persisting to kv. Stored datasets
// are loaded from kv. The hub may be nil, in which case peer sharing is
// unavailable.
func NewSession(ctx context.Context, c config.Config, kv store.KV,
	hub *peer.Hub) (*Session, error) {
	c = c.Normalize()
	current, err := c.Kind()
	if err != nil {
		return nil, fmt.Errorf("newSession: %w", err)
	}

	s := &Session{
		config:   c,
		kv:       kv,
		hub:      hub,
		envs:     envconfig.CreateAll(),
		steps:    make(map[environment.Kind]timestep.TimeStep),
		manual:   make(map[environment.Kind]*policy.Manual),
		imitate:  make(map[environment.Kind]*policy.Imitation),
		current:  current,
		datasets: dataset.NewStore(c.Dataset.Cap),
		models:   store.NewModels(kv),
		status:   NewStatusLog(c.LogLimit),
	}

	for kind, env := range s.envs {
		s.steps[kind] = env.Reset()
		s.manual[kind] = policy.NewManual(env)
		s.imitate[kind] = policy.NewImitation(env, s.manual[kind])

		if n, ok := env.(environment.Notifier); ok {
			n.Notify(s.status.Add)
		}
	}

	if err := s.datasets.Load(ctx, kv); err != nil {
		return nil, fmt.Errorf("newSession: %w", err)
	}
	s.recorder = dataset.NewRecorder(s.datasets, kv, c.Dataset.SampleEvery,
		c.Dataset.SaveEvery)

	s.imitation = imitation.New(s.datasets, s.models, c.Imitation)
	s.imitation.OnProgress = func(env string, p trainer.Progress) {
		s.status.Printf("ep %03d loss=%.5f val=%.5f", p.Index, p.Loss,
			p.ValLoss)
	}

	s.reinforce, err = reinforce.New(s.envs[environment.Fish], s.models,
		c.Reinforce)
	if err != nil {
		return nil, fmt.Errorf("newSession: %w", err)
	}
	s.reinforce.OnProgress = func(p trainer.Progress) {
		s.status.Printf("RL ep %03d return=%.2f loss=%.5f steps=%d", p.Index,
			p.Return, p.Loss, p.Steps)
	}

	s.status.Add("Ready.")
	return s, nil
}

// Config returns the Session's configuration
func (s *Session) Config() config.Config {
	return s.config
}

// Status returns the Session's status log
func (s *Session) Status() *StatusLog {
	return s.status
}

// Kind returns the Kind of the current environment
func (s *Session) Kind() environment.Kind {
	return s.current
}

// Env returns the current environment
func (s *Session) Env() environment.Environment {
	return s.envs[s.current]
}

// Datasets returns the demonstration datasets of the Session
func (s *Session) Datasets() *dataset.Store {
	return s.datasets
}

// Dataset returns the demonstration dataset of the current environment
func (s *Session) Dataset() *dataset.Dataset {
	return s.datasets.Get(s.current.String())
}

// Imitation returns the Session's imitation trainer
func (s *Session) Imitation() *imitation.Trainer {
	return s.imitation
}

// Reinforce returns the Session's policy gradient trainer on Fish
func (s *Session) Reinforce() *reinforce.Trainer {
	return s.reinforce
}

// Recording returns whether demonstrations are being recorded
func (s *Session) Recording() bool {
	return s.recording
}

// Auto returns whether the imitation model drives the environment
func (s *Session) Auto() bool {
	return s.auto
}

// Frame returns the number of frames ticked so far
func (s *Session) Frame() int {
	return s.frame
}

// Room returns the name of the joined room, or "" outside a room
func (s *Session) Room() string {
	if s.member == nil {
		return ""
	}
	return s.member.Room()
}

// source returns the action source driving the current environment
func (s *Session) source() agent.Policy {
	if s.auto {
		return s.imitate[s.current]
	}
	return s.manual[s.current]
}

// Tick advances the Session by one frame of dt seconds with the given
// inputs held down, and returns the resulting timestep of the current
// environment. The step size is clamped to [0, environment.MaxDt].
//
// While recording, the features before the step and the action taken
// are recorded on the sampling cadence. Messages received from the room
// are handled after the step.
func (s *Session) Tick(ctx context.Context, in environment.Input,
	dt float64) timestep.TimeStep {
	dt = floatutils.Clip(dt, 0, environment.MaxDt)
	env := s.Env()
	s.manual[s.current].SetInput(in)

	a, err := s.source().SelectAction(s.steps[s.current])
	if err != nil {
		s.errorf("Auto error: %v", err)
		a = env.Manual(in)
	}

	s.frame++
	if s.recording {
		x := env.Features().RawVector().Data
		_, err := s.recorder.Record(ctx, s.frame, s.current.String(), x, a)
		if err != nil {
			s.errorf("Save error: %v", err)
		}
	}

	step := env.Step(a, dt)
	s.steps[s.current] = step

	s.Poll(ctx)
	return step
}

// Switch makes the environment of the given Kind current and resets it
func (s *Session) Switch(kind environment.Kind) {
	env, ok := s.envs[kind]
	if !ok {
		s.errorf("Unknown environment %v.", kind)
		return
	}
	s.current = kind
	s.steps[kind] = env.Reset()
	s.status.Printf("Switched to %v", strings.ToUpper(kind.String()))
}

// Reset resets the current environment
func (s *Session) Reset() {
	s.steps[s.current] = s.Env().Reset()
	s.status.Add("Reset.")
}

// StartRecording starts recording demonstrations
func (s *Session) StartRecording() {
	s.recording = true
	s.status.Add("REC ON.")
}

// StopRecording stops recording demonstrations and saves the datasets
func (s *Session) StopRecording(ctx context.Context) error {
	s.recording = false
	if err := s.recorder.Flush(ctx); err != nil {
		s.errorf("Save error: %v", err)
		return fmt.Errorf("stopRecording: %w", err)
	}
	s.status.Add("REC OFF (saved).")
	return nil
}

// ToggleAuto toggles whether the imitation model drives the current
// environment and returns the new setting
func (s *Session) ToggleAuto() bool {
	s.auto = !s.auto
	if s.auto {
		s.status.Add("AUTO ON (imitation model drives).")
	} else {
		s.status.Add("AUTO OFF.")
	}
	return s.auto
}

// ClearDataset removes every demonstration of the current environment
// and saves the datasets
func (s *Session) ClearDataset(ctx context.Context) error {
	s.Dataset().Clear()
	if err := s.recorder.Flush(ctx); err != nil {
		s.errorf("Save error: %v", err)
		return fmt.Errorf("clearDataset: %w", err)
	}
	s.status.Printf("Cleared dataset for %v.", s.current)
	return nil
}

// TrainImitation trains the imitation model of the current environment.
// Non-positive epochs and batch select the configured defaults.
func (s *Session) TrainImitation(epochs, batch int) (imitation.Result, error) {
	env := s.current.String()
	if s.imitation.Busy() {
		s.status.Add("Training already running...")
		return imitation.Result{}, fmt.Errorf("trainImitation: %w",
			trainer.ErrConcurrentTraining)
	}

	c := s.imitation.Config()
	if epochs <= 0 {
		epochs = c.Epochs
	}
	if batch <= 0 {
		batch = c.Batch
	}
	epochs = intutils.Clip(epochs, imitation.MinEpochs, imitation.MaxEpochs)
	batch = intutils.Clip(batch, imitation.MinBatch, imitation.MaxBatch)
	s.status.Printf("Training imitation model (%v) epochs=%d, batch=%d...",
		env, epochs, batch)

	res, err := s.imitation.Train(env, epochs, batch)
	switch {
	case errors.Is(err, trainer.ErrConcurrentTraining):
		s.status.Add("Training already running...")
	case errors.Is(err, trainer.ErrInsufficientData):
		s.status.Printf("Need more samples (>=%d). Have %d.", c.MinSamples,
			res.Samples)
	case err != nil:
		s.errorf("Train error: %v", err)
	}
	if err != nil {
		return res, fmt.Errorf("trainImitation: %w", err)
	}

	if err := s.refreshModel(s.current); err != nil {
		return res, fmt.Errorf("trainImitation: %w", err)
	}
	s.status.Add("Train done. Try AUTO.")
	return res, nil
}

// SaveImitation saves the imitation model of the current environment.
// Without a model, one is quick-trained first.
func (s *Session) SaveImitation(ctx context.Context) error {
	env := s.current.String()
	if s.imitation.Busy() {
		s.status.Add("Wait: training in progress...")
		return fmt.Errorf("saveImitation: %w", trainer.ErrConcurrentTraining)
	}

	quick := s.imitation.Model(env) == nil
	if quick {
		s.status.Printf("No model yet, quick auto-train (%d epochs) then "+
			"save...", s.imitation.Config().QuickEpochs)
	}

	err := s.imitation.Save(ctx, env)
	switch {
	case errors.Is(err, trainer.ErrConcurrentTraining):
		s.status.Add("Wait: training in progress...")
	case errors.Is(err, trainer.ErrInsufficientData):
		s.status.Printf("No imitation model yet. Record more first "+
			"(~%d+). Have %d.", s.imitation.Config().QuickMinSamples,
			s.Dataset().Len())
	case err != nil:
		s.errorf("Save error: %v", err)
	}
	if err != nil {
		return fmt.Errorf("saveImitation: %w", err)
	}

	if quick {
		if err := s.refreshModel(s.current); err != nil {
			return fmt.Errorf("saveImitation: %w", err)
		}
		s.status.Add("Quick train done.")
	}
	s.status.Printf("Saved imitation model to %v.", store.Key{
		Env:      env,
		Paradigm: store.Imitation,
	})
	return nil
}

// LoadImitation loads the imitation model of the current environment
func (s *Session) LoadImitation(ctx context.Context) error {
	err := s.imitation.Load(ctx, s.current.String())
	if errors.Is(err, store.ErrModelNotFound) {
		s.status.Add("No saved imitation model found (train + save first).")
		return fmt.Errorf("loadImitation: %w", err)
	} else if err != nil {
		s.errorf("Load error: %v", err)
		return fmt.Errorf("loadImitation: %w", err)
	}

	if err := s.refreshModel(s.current); err != nil {
		return fmt.Errorf("loadImitation: %w", err)
	}
	s.status.Add("Loaded imitation model.")
	return nil
}

// refreshModel hands the trained model of kind to its imitation policy
func (s *Session) refreshModel(kind environment.Kind) error {
	err := s.imitate[kind].SetModel(s.imitation.Model(kind.String()))
	if err != nil {
		s.errorf("Model error: %v", err)
		return fmt.Errorf("refreshModel: %w", err)
	}
	return nil
}

// InitRL initializes a fresh policy gradient policy on Fish
func (s *Session) InitRL() error {
	if err := s.reinforce.Init(); err != nil {
		s.errorf("RL error: %v", err)
		return fmt.Errorf("initRL: %w", err)
	}
	s.status.Add("RL policy initialized (fish).")
	return nil
}

// TrainRL trains the policy on Fish and returns the average return.
// Non-positive arguments select the configured defaults.
func (s *Session) TrainRL(episodes, maxSteps int) (float64, error) {
	if !s.reinforce.HasPolicy() {
		s.status.Add("Init RL policy first.")
		return 0, fmt.Errorf("trainRL: %w", reinforce.ErrNoPolicy)
	}
	if s.reinforce.Busy() {
		s.status.Add("Training already running...")
		return 0, fmt.Errorf("trainRL: %w", trainer.ErrConcurrentTraining)
	}

	c := s.reinforce.Config()
	if episodes <= 0 {
		episodes = c.Episodes
	}
	if maxSteps <= 0 {
		maxSteps = c.MaxSteps
	}
	episodes = intutils.Clip(episodes, reinforce.MinEpisodes,
		reinforce.MaxEpisodes)
	maxSteps = intutils.Clip(maxSteps, reinforce.MinSteps, reinforce.MaxSteps)
	s.status.Printf("RL training start: episodes=%d, steps=%d", episodes,
		maxSteps)

	avg, err := s.reinforce.Train(episodes, maxSteps)
	if errors.Is(err, trainer.ErrConcurrentTraining) {
		s.status.Add("Training already running...")
		return 0, fmt.Errorf("trainRL: %w", err)
	} else if err != nil {
		s.errorf("RL error: %v", err)
		return avg, fmt.Errorf("trainRL: %w", err)
	}

	s.status.Printf("RL training done. Avg return=%.2f", avg)
	s.steps[environment.Fish] = s.envs[environment.Fish].Reset()
	return avg, nil
}

// DemoRL runs a noise-free demonstration episode of the policy on Fish
// and returns its total reward. A non-positive maxSteps selects the
// configured default.
func (s *Session) DemoRL(maxSteps int) (float64, error) {
	if !s.reinforce.HasPolicy() {
		s.status.Add("No RL policy yet, the demo takes zero actions.")
	}
	s.status.Add("RL demo run...")

	total, err := s.reinforce.Demo(maxSteps)
	if err != nil {
		s.errorf("RL error: %v", err)
		return 0, fmt.Errorf("demoRL: %w", err)
	}

	s.status.Printf("RL demo total reward: %.2f", total)
	s.steps[environment.Fish] = s.envs[environment.Fish].Reset()
	return total, nil
}

// SaveRL saves the policy gradient policy
func (s *Session) SaveRL(ctx context.Context) error {
	err := s.reinforce.Save(ctx)
	if errors.Is(err, reinforce.ErrNoPolicy) {
		s.status.Add("No RL policy to save.")
		return fmt.Errorf("saveRL: %w", err)
	} else if err != nil {
		s.errorf("Save error: %v", err)
		return fmt.Errorf("saveRL: %w", err)
	}
	s.status.Add("Saved RL policy (fish).")
	return nil
}

// LoadRL loads the policy gradient policy
func (s *Session) LoadRL(ctx context.Context) error {
	err := s.reinforce.Load(ctx)
	if errors.Is(err, store.ErrModelNotFound) {
		s.status.Add("No saved RL policy found.")
		return fmt.Errorf("loadRL: %w", err)
	} else if err != nil {
		s.errorf("Load error: %v", err)
		return fmt.Errorf("loadRL: %w", err)
	}
	s.status.Add("Loaded RL policy (fish).")
	return nil
}

// JoinRoom leaves the current room, if any, and joins room. An empty
// room name joins the default room.
func (s *Session) JoinRoom(room string) error {
	if s.hub == nil {
		s.status.Add("Peer sharing is not available.")
		return fmt.Errorf("joinRoom: %w", ErrNoHub)
	}
	s.leave()

	if room == "" {
		room = s.config.Peer.Room
	}
	s.member = s.hub.Join(room, s.config.User)
	s.status.Printf("Joined room: %v", s.member.Room())
	return nil
}

// LeaveRoom leaves the current room
func (s *Session) LeaveRoom() {
	s.leave()
	s.status.Add("Left room.")
}

func (s *Session) leave() {
	if s.member != nil {
		s.member.Leave()
		s.member = nil
	}
}

// send broadcasts msg to the room
func (s *Session) send(msg peer.Message) error {
	if s.member == nil {
		s.status.Add("Join a room first.")
		return ErrNotJoined
	}
	if _, err := s.member.Send(msg); err != nil {
		s.errorf("Peer error: %v", err)
		return err
	}
	return nil
}

// SendChat sends a chat message to the room. Empty text sends
// DefaultChat.
func (s *Session) SendChat(text string) error {
	if text == "" {
		text = DefaultChat
	}
	if err := s.send(peer.NewChat(s.config.User, text)); err != nil {
		return fmt.Errorf("sendChat: %w", err)
	}
	return nil
}

// BroadcastBest announces the best score of the current environment to
// the room
func (s *Session) BroadcastBest() error {
	msg := peer.NewBest(s.config.User, s.current.String(), s.Env().BestText())
	if err := s.send(msg); err != nil {
		return fmt.Errorf("broadcastBest: %w", err)
	}
	s.status.Add("Broadcasted best.")
	return nil
}

// ShareDataset sends the most recent demonstrations of the current
// environment to the room and returns how many were sent. The dataset
// must hold at least the configured minimum number of samples.
func (s *Session) ShareDataset() (int, error) {
	if s.member == nil {
		s.status.Add("Join a room first.")
		return 0, fmt.Errorf("shareDataset: %w", ErrNotJoined)
	}

	ds := s.Dataset()
	if ds.Len() < s.config.Peer.ShareMin {
		s.status.Printf("Record at least %d samples before sharing.",
			s.config.Peer.ShareMin)
		return 0, fmt.Errorf("shareDataset: %w: have %d samples, need at "+
			"least %d", trainer.ErrInsufficientData, ds.Len(),
			s.config.Peer.ShareMin)
	}

	samples := ds.Tail(s.config.Peer.ShareMax)
	msg := peer.NewDataset(s.config.User, s.current.String(), samples)
	if err := s.send(msg); err != nil {
		return 0, fmt.Errorf("shareDataset: %w", err)
	}
	s.status.Printf("Shared dataset last %d samples.", len(samples))
	return len(samples), nil
}

// Poll handles every message waiting in the room's inbox
func (s *Session) Poll(ctx context.Context) {
	if s.member == nil {
		return
	}
	for {
		select {
		case msg, ok := <-s.member.Receive():
			if !ok {
				s.member = nil
				return
			}
			s.Handle(ctx, msg)
		default:
			return
		}
	}
}

// Handle handles a message received from the room. Invalid messages
// are dropped silently.
func (s *Session) Handle(ctx context.Context, msg peer.Message) {
	if err := msg.Validate(); err != nil {
		return
	}
	room := s.Room()

	switch msg.Type {
	case peer.Chat:
		user := msg.User
		if user == "" {
			user = "?"
		}
		s.status.Printf("[ROOM:%v] %v: %v", room, user, msg.Text)

	case peer.Best:
		s.status.Printf("[ROOM:%v] BEST from %v: %v=%v", room, msg.User,
			msg.Env, msg.Value)

	case peer.Dataset:
		samples, err := msg.Samples()
		if err != nil {
			return
		}
		s.datasets.Get(msg.Env).AppendSamples(samples)
		if err := s.datasets.Save(ctx, s.kv); err != nil {
			s.errorf("Save error: %v", err)
		}
		s.status.Printf("[ROOM:%v] got dataset from %v env=%v +%d samples",
			room, msg.User, msg.Env, len(samples))
	}
}

// errorf adds a failure to the status log and the error log
func (s *Session) errorf(format string, args ...interface{}) {
	s.status.Printf(format, args...)
	log.Errorf(format, args...)
}
