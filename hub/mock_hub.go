package hub

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

const mockHubName = "mock"

// MockHub keeps joins in memory. It starts unavailable until Setup.
type MockHub struct {
	analog    map[uint16]uint16
	digital   map[uint16]bool
	available bool
	writes    []Event

	writeTo          io.Writer
	writeStateChange bool

	lock      sync.Mutex
	callbacks Callbacks
}

func (mh *MockHub) init() {
	if mh.analog == nil {
		mh.analog = make(map[uint16]uint16)
	}
	if mh.digital == nil {
		mh.digital = make(map[uint16]bool)
	}
}

func (mh *MockHub) Setup(ctx context.Context, analog []uint16, digital []uint16) error {
	mh.lock.Lock()
	mh.init()
	for _, ch := range analog {
		mh.analog[ch] = 0
	}
	for _, ch := range digital {
		mh.digital[ch] = false
	}
	mh.available = true
	mh.lock.Unlock()

	return nil
}

func (mh *MockHub) Close() error {
	mh.SetAvailable(false)
	return nil
}

func (mh *MockHub) String() string {
	return mockHubName
}

func (mh *MockHub) IsAvailable() bool {
	mh.lock.Lock()
	defer mh.lock.Unlock()

	return mh.available
}

// SetAvailable simulates the hub going on or offline.
func (mh *MockHub) SetAvailable(available bool) {
	mh.lock.Lock()
	mh.available = available
	mh.lock.Unlock()

	mh.callbacks.Notify(Event{Kind: EventAvailability, Digital: available})
}

func (mh *MockHub) GetAnalog(channel uint16) uint16 {
	mh.lock.Lock()
	defer mh.lock.Unlock()

	return mh.analog[channel]
}

func (mh *MockHub) SetAnalog(channel uint16, value uint16) {
	mh.lock.Lock()
	mh.init()
	if mh.writeStateChange && mh.analog[channel] != value {
		fmt.Fprintf(mh.writeTo, "[analog %d] value changed to %d\n", channel, value)
	}
	mh.analog[channel] = value
	ev := Event{Kind: EventAnalog, Channel: channel, Analog: value}
	mh.writes = append(mh.writes, ev)
	mh.lock.Unlock()

	mh.callbacks.Notify(ev)
}

func (mh *MockHub) GetDigital(channel uint16) bool {
	mh.lock.Lock()
	defer mh.lock.Unlock()

	return mh.digital[channel]
}

func (mh *MockHub) SetDigital(channel uint16, value bool) {
	mh.lock.Lock()
	mh.init()
	if mh.writeStateChange && mh.digital[channel] != value {
		fmt.Fprintf(mh.writeTo, "[digital %d] state changed to %v\n", channel, value)
	}
	mh.digital[channel] = value
	ev := Event{Kind: EventDigital, Channel: channel, Digital: value}
	mh.writes = append(mh.writes, ev)
	mh.lock.Unlock()

	mh.callbacks.Notify(ev)
}

func (mh *MockHub) RegisterCallback(l Listener) {
	mh.callbacks.Add(l)
}

func (mh *MockHub) RemoveCallback(l Listener) {
	mh.callbacks.Remove(l)
}

// Listeners returns the number of registered callbacks.
func (mh *MockHub) Listeners() int {
	return mh.callbacks.Len()
}

// Writes returns every analog and digital write, oldest first.
func (mh *MockHub) Writes() []Event {
	mh.lock.Lock()
	defer mh.lock.Unlock()

	writes := make([]Event, len(mh.writes))
	copy(writes, mh.writes)
	return writes
}

func (mh *MockHub) GetAllChannels() (analog []uint16, digital []uint16) {
	mh.lock.Lock()
	defer mh.lock.Unlock()

	for ch := range mh.analog {
		analog = append(analog, ch)
	}
	for ch := range mh.digital {
		digital = append(digital, ch)
	}
	sort.Slice(analog, func(i, j int) bool { return analog[i] < analog[j] })
	sort.Slice(digital, func(i, j int) bool { return digital[i] < digital[j] })
	return
}

func (mh *MockHub) MonitorStateChanges(writer io.Writer) {
	mh.lock.Lock()
	defer mh.lock.Unlock()

	mh.writeTo = writer
	mh.writeStateChange = true
}
