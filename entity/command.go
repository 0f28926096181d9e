package entity

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	StateOn  = "ON"
	StateOff = "OFF"
)

// Command is a platform request, as received over MQTT or HTTP.
type Command struct {
	State      *string `json:"state,omitempty"`
	Percentage *int    `json:"percentage,omitempty"`
	Direction  *string `json:"direction,omitempty"`
}

func (c Command) validate() (dir Direction, err error) {
	if c.State != nil && !strings.EqualFold(*c.State, StateOn) && !strings.EqualFold(*c.State, StateOff) {
		err = errors.Errorf("unknown state %q", *c.State)
		return
	}

	if c.Direction != nil {
		dir, err = ParseDirection(*c.Direction)
		if err != nil {
			return
		}
	}

	if c.State == nil && c.Percentage == nil && c.Direction == nil {
		err = errors.New("empty command")
	}
	return
}

// Apply runs c against e. Nothing is written when c is invalid.
func Apply(e Entity, c Command) error {
	dir, err := c.validate()
	if err != nil {
		return errors.Wrap(err, "invalid command")
	}

	switch {
	case c.State != nil && strings.EqualFold(*c.State, StateOff):
		e.TurnOff()
	case c.State != nil:
		e.TurnOn(c.Percentage)
	case c.Percentage != nil:
		e.SetPercentage(*c.Percentage)
	}

	if c.Direction != nil {
		e.SetDirection(dir)
	}

	return nil
}
