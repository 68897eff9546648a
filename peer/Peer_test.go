package peer

import (
	"errors"
	"strings"
	"testing"

	"github.com/samuelfneumann/retrolearn/dataset"
	"github.com/samuelfneumann/retrolearn/environment"
)

func droneSamples(n int) []dataset.Sample {
	samples := make([]dataset.Sample, n)
	for i := range samples {
		samples[i] = dataset.Sample{
			X: make([]float64, 9),
			Y: environment.Action{0.1, -0.1},
		}
	}
	return samples
}

func TestJoinDefaults(t *testing.T) {
	h := NewHub(0)

	m := h.Join("", "")
	if m.Room() != DefaultRoom || m.User() != DefaultUser {
		t.Errorf("join: want %v/%v, have %v/%v", DefaultRoom, DefaultUser,
			m.Room(), m.User())
	}

	long := h.Join(strings.Repeat("r", 40), strings.Repeat("u", 30))
	if len(long.Room()) != MaxNameLen || len(long.User()) != MaxNameLen {
		t.Errorf("join: names not truncated: %v/%v", long.Room(), long.User())
	}
	if m.ID() == long.ID() {
		t.Error("join: members share an ID")
	}
}

func TestBroadcast(t *testing.T) {
	h := NewHub(4)
	a := h.Join("room", "alice")
	b := h.Join("room", "bob")
	other := h.Join("elsewhere", "carol")

	n, err := a.Send(NewChat("alice", "hi"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("send: want 1 delivery, have %d", n)
	}

	select {
	case msg := <-b.Receive():
		if msg.Type != Chat || msg.Text != "hi" || msg.Sender != a.ID() {
			t.Errorf("receive: unexpected message %+v", msg)
		}
	default:
		t.Fatal("receive: no message delivered")
	}

	select {
	case msg := <-a.Receive():
		t.Errorf("sender received its own message %+v", msg)
	case msg := <-other.Receive():
		t.Errorf("member of other room received %+v", msg)
	default:
	}
}

func TestFullInboxDrops(t *testing.T) {
	h := NewHub(2)
	a := h.Join("room", "a")
	b := h.Join("room", "b")

	for i := 0; i < 5; i++ {
		if _, err := a.Send(NewChat("a", "spam")); err != nil {
			t.Fatal(err)
		}
	}
	if len(b.Receive()) != 2 {
		t.Errorf("want 2 buffered messages, have %d", len(b.Receive()))
	}
}

func TestLeave(t *testing.T) {
	h := NewHub(2)
	a := h.Join("room", "a")
	b := h.Join("room", "b")

	b.Leave()
	b.Leave()
	if _, ok := <-b.Receive(); ok {
		t.Error("leave: inbox not closed")
	}
	if h.Members("room") != 1 {
		t.Errorf("leave: want 1 member, have %d", h.Members("room"))
	}

	a.Leave()
	if len(h.Rooms()) != 0 {
		t.Errorf("leave: empty room kept: %v", h.Rooms())
	}
	if _, err := a.Send(NewChat("a", "hi")); !errors.Is(err, ErrLeft) {
		t.Errorf("send after leave: want ErrLeft, have %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := NewDataset("u", "drone", droneSamples(3))

	short := NewDataset("u", "drone", droneSamples(3))
	short.Payload.Y = short.Payload.Y[:2]

	badAction := NewDataset("u", "drone", droneSamples(1))
	badAction.Payload.Y[0] = []float64{1}

	wrongEnv := NewDataset("u", "drone", droneSamples(1))
	wrongEnv.Env = "fish"

	tests := []struct {
		name string
		msg  Message
		ok   bool
	}{
		{"chat", NewChat("u", "hello"), true},
		{"best", NewBest("u", "car", "1234 ms"), true},
		{"dataset", valid, true},
		{"best unknown env", NewBest("u", "boat", "1"), false},
		{"dataset unknown env", NewDataset("u", "boat", droneSamples(1)), false},
		{"missing payload", Message{Type: Dataset, Env: "car"}, false},
		{"mismatched lengths", short, false},
		{"malformed action", badAction, false},
		{"wrong feature length", wrongEnv, false},
		{"unknown type", Message{Type: "ping"}, false},
	}

	for _, test := range tests {
		err := test.msg.Validate()
		if test.ok && err != nil {
			t.Errorf("%v: unexpected error %v", test.name, err)
		}
		if !test.ok && !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("%v: want ErrInvalidMessage, have %v", test.name, err)
		}
	}
}

func TestCodec(t *testing.T) {
	msg := NewDataset("u", "drone", droneSamples(2))
	data, err := Encode(msg)
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	samples, err := decoded.Samples()
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 2 || samples[1].Y != (environment.Action{0.1, -0.1}) {
		t.Errorf("decode: unexpected samples %v", samples)
	}

	if _, err := Decode([]byte(`{"type":"dataset","env":"car"}`)); !errors.Is(
		err, ErrInvalidMessage) {
		t.Errorf("decode invalid: want ErrInvalidMessage, have %v", err)
	}
	if _, err := Decode([]byte("{")); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("decode malformed: want ErrInvalidMessage, have %v", err)
	}
}
