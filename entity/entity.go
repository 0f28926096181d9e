package entity

import (
	"strings"

	"github.com/pkg/errors"
)

type Direction string

const (
	Forward Direction = "forward"
	Reverse Direction = "reverse"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(s)) {
	case Forward:
		return Forward, nil
	case Reverse:
		return Reverse, nil
	}
	return "", errors.Errorf("unknown direction %q", s)
}

// Entity is what a home automation platform sees of a fan.
type Entity interface {
	Name() string
	UniqueId() string
	Available() bool
	ShouldPoll() bool

	IsOn() bool
	Percentage() int
	SpeedCount() int
	// CurrentDirection returns false when the fan can't reverse.
	CurrentDirection() (Direction, bool)
	State() State

	TurnOn(percentage *int)
	TurnOff()
	SetPercentage(percentage int)
	SetDirection(direction Direction)
}

type State struct {
	UniqueId   string    `json:"unique_id"`
	Name       string    `json:"name"`
	Available  bool      `json:"available"`
	On         bool      `json:"on"`
	Percentage int       `json:"percentage"`
	SpeedCount int       `json:"speed_count"`
	Direction  Direction `json:"direction,omitempty"`
}

func StateOf(e Entity) State {
	st := State{
		UniqueId:   e.UniqueId(),
		Name:       e.Name(),
		Available:  e.Available(),
		Percentage: e.Percentage(),
		SpeedCount: e.SpeedCount(),
	}
	st.On = st.Percentage > 0
	if dir, ok := e.CurrentDirection(); ok {
		st.Direction = dir
	}
	return st
}

// Publisher relays entity state to a platform.
type Publisher interface {
	PublishState(State)
}
