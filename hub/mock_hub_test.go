package hub

import (
	"bytes"
	"context"
	"testing"
)

func assertBools(t testing.TB, got, want bool) {
	t.Helper()

	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func assertUint16Slices(t testing.TB, got, want []uint16) {
	t.Helper()

	if len(got) != len(want) {
		t.Errorf("len(got) = %d len(want) = %d", len(got), len(want))
		return
	}

	for key, val := range got {
		if want[key] != val {
			t.Errorf("for key [%d] got: %d want: %d", key, val, want[key])
		}
	}
}

type recordingListener struct {
	hub    Hub
	events []Event
	seen   []uint16
}

func (rl *recordingListener) OnHubEvent(ev Event) {
	rl.events = append(rl.events, ev)
	if ev.Kind == EventAnalog {
		rl.seen = append(rl.seen, rl.hub.GetAnalog(ev.Channel))
	}
}

func TestMockHubSetup(t *testing.T) {
	mh := MockHub{}

	assertBools(t, mh.IsAvailable(), false)

	mh.Setup(context.Background(), []uint16{3, 1}, []uint16{2})
	assertBools(t, mh.IsAvailable(), true)

	analog, digital := mh.GetAllChannels()
	assertUint16Slices(t, analog, []uint16{1, 3})
	assertUint16Slices(t, digital, []uint16{2})
}

func TestMockHubAnalog(t *testing.T) {
	mh := MockHub{}
	mh.Setup(context.Background(), []uint16{1}, nil)

	if got := mh.GetAnalog(1); got != 0 {
		t.Errorf("got %d want 0", got)
	}

	mh.SetAnalog(1, 43690)
	if got := mh.GetAnalog(1); got != 43690 {
		t.Errorf("got %d want 43690", got)
	}

	if got := mh.GetAnalog(99); got != 0 {
		t.Errorf("unknown channel: got %d want 0", got)
	}
}

func TestMockHubDigital(t *testing.T) {
	mh := MockHub{}
	mh.Setup(context.Background(), nil, []uint16{4})

	want := true
	mh.SetDigital(4, want)
	assertBools(t, mh.GetDigital(4), want)

	want = false
	mh.SetDigital(4, want)
	assertBools(t, mh.GetDigital(4), want)

	assertBools(t, mh.GetDigital(5), false)
}

func TestMockHubCallbacks(t *testing.T) {
	mh := &MockHub{}
	mh.Setup(context.Background(), []uint16{1}, []uint16{2})

	rl := &recordingListener{hub: mh}

	t.Run("fires after the write completes", func(t *testing.T) {
		mh.RegisterCallback(rl)
		mh.SetAnalog(1, 1000)

		if len(rl.seen) != 1 || rl.seen[0] != 1000 {
			t.Fatalf("listener saw %v, want [1000]", rl.seen)
		}
		if rl.events[0].Analog != 1000 || rl.events[0].Channel != 1 {
			t.Errorf("unexpected event %+v", rl.events[0])
		}
	})

	t.Run("registering twice keeps one registration", func(t *testing.T) {
		mh.RegisterCallback(rl)
		if mh.Listeners() != 1 {
			t.Fatalf("got %d listeners want 1", mh.Listeners())
		}

		rl.events = nil
		mh.SetDigital(2, true)
		if len(rl.events) != 1 {
			t.Errorf("got %d events want 1", len(rl.events))
		}
	})

	t.Run("remove detaches exactly the listener", func(t *testing.T) {
		other := &recordingListener{hub: mh}
		mh.RegisterCallback(other)
		mh.RemoveCallback(rl)
		mh.RemoveCallback(rl)

		rl.events = nil
		mh.SetAnalog(1, 5)
		if len(rl.events) != 0 {
			t.Errorf("removed listener got %d events", len(rl.events))
		}
		if len(other.events) != 1 {
			t.Errorf("remaining listener got %d events want 1", len(other.events))
		}
		mh.RemoveCallback(other)
		if mh.Listeners() != 0 {
			t.Errorf("got %d listeners want 0", mh.Listeners())
		}
	})

	t.Run("availability", func(t *testing.T) {
		mh.RegisterCallback(rl)
		rl.events = nil
		mh.SetAvailable(false)

		assertBools(t, mh.IsAvailable(), false)
		if len(rl.events) != 1 || rl.events[0].Kind != EventAvailability {
			t.Errorf("got events %+v", rl.events)
		}
	})
}

func TestMockHubWrites(t *testing.T) {
	mh := MockHub{}
	mh.Setup(context.Background(), []uint16{1}, []uint16{2})

	mh.SetAnalog(1, 10)
	mh.SetDigital(2, true)

	writes := mh.Writes()
	if len(writes) != 2 {
		t.Fatalf("got %d writes want 2", len(writes))
	}
	if writes[0].Kind != EventAnalog || writes[1].Kind != EventDigital {
		t.Errorf("unexpected writes %+v", writes)
	}
}

func TestMockHubMonitor(t *testing.T) {
	mh := MockHub{}
	mh.Setup(context.Background(), []uint16{1}, nil)

	buf := &bytes.Buffer{}
	mh.MonitorStateChanges(buf)

	mh.SetAnalog(1, 20)
	mh.SetAnalog(1, 20)

	want := "[analog 1] value changed to 20\n"
	if buf.String() != want {
		t.Errorf("got %q want %q", buf.String(), want)
	}
}

func TestEventKindString(t *testing.T) {
	if EventDigital.String() != "digital" {
		t.Errorf("got %s", EventDigital.String())
	}
}

func TestMapAllHubs(t *testing.T) {
	hubs := MapAllHubs()
	for _, name := range []string{"gpio", "mock"} {
		if _, found := hubs[name]; !found {
			t.Errorf("hub %s not mapped", name)
		}
	}
}
