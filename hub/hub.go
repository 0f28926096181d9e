package hub

import (
	"context"
	"sync"
)

// MaxAnalog is the full scale value of an analog join.
const MaxAnalog = 65535

type EventKind int

const (
	EventAnalog       EventKind = 0
	EventDigital      EventKind = 1
	EventAvailability EventKind = 2
)

func (ek EventKind) String() string {
	switch ek {
	case EventAnalog:
		return "analog"
	case EventDigital:
		return "digital"
	case EventAvailability:
		return "availability"
	}
	return "unknown"
}

// Event describes a single channel change. Analog is set for analog events,
// Digital for digital and availability events.
type Event struct {
	Kind    EventKind
	Channel uint16
	Analog  uint16
	Digital bool
}

type Listener interface {
	OnHubEvent(Event)
}

// Hub is a control processor exposing numbered analog (0-65535) and digital joins.
// Reads and writes never fail; a hub that cannot reach its hardware reports it
// through IsAvailable.
type Hub interface {
	Setup(ctx context.Context, analog []uint16, digital []uint16) error
	Close() error
	String() string
	IsAvailable() bool
	GetAnalog(channel uint16) uint16
	SetAnalog(channel uint16, value uint16)
	GetDigital(channel uint16) bool
	SetDigital(channel uint16, value bool)
	RegisterCallback(Listener)
	RemoveCallback(Listener)
}

func MapAllHubs() map[string]Hub {
	hubs := []Hub{
		&GpioHub{},
		&MockHub{},
	}

	mapped := make(map[string]Hub)
	for _, h := range hubs {
		mapped[h.String()] = h
	}
	return mapped
}

// Callbacks is a listener registry shared by hub implementations.
type Callbacks struct {
	lock      sync.Mutex
	listeners []Listener
}

// Add registers l; adding an already registered listener does nothing.
func (cb *Callbacks) Add(l Listener) {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	for _, registered := range cb.listeners {
		if registered == l {
			return
		}
	}
	cb.listeners = append(cb.listeners, l)
}

func (cb *Callbacks) Remove(l Listener) {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	for ix, registered := range cb.listeners {
		if registered == l {
			cb.listeners = append(cb.listeners[:ix], cb.listeners[ix+1:]...)
			return
		}
	}
}

func (cb *Callbacks) Len() int {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	return len(cb.listeners)
}

// Notify calls every listener with ev. Listeners run on the caller's goroutine,
// outside the registry lock, so they may read the hub or (un)register.
func (cb *Callbacks) Notify(ev Event) {
	cb.lock.Lock()
	listeners := make([]Listener, len(cb.listeners))
	copy(listeners, cb.listeners)
	cb.lock.Unlock()

	for _, l := range listeners {
		l.OnHubEvent(ev)
	}
}
