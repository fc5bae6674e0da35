// pkg/core/action.go
package core

import (
	"fmt"
	"strings"
)

// Action is the kind of intent a client submits.
type Action string

const (
	ActionMove  Action = "move"
	ActionShoot Action = "shoot"
	ActionHeal  Action = "heal"
)

// Direction is the heading of a move action.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// ParseAction normalises a textual action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionMove, ActionShoot, ActionHeal:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// ParseDirection normalises a textual direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return d, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Delta returns the grid offset of one step in this direction.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case DirectionUp:
		return 0, -1
	case DirectionDown:
		return 0, 1
	case DirectionLeft:
		return -1, 0
	case DirectionRight:
		return 1, 0
	}
	return 0, 0
}

// ActionMessage is one intent submitted by a client, stamped with the
// sender's Lamport clock. SendTimestamp is wall-clock unix millis and only
// ever breaks ties.
type ActionMessage struct {
	SenderID      string    `json:"senderId" msgpack:"senderId"`
	LogicalClock  int       `json:"logicalClock" msgpack:"logicalClock"`
	Action        Action    `json:"action" msgpack:"action"`
	Direction     Direction `json:"direction,omitempty" msgpack:"direction,omitempty"`
	TargetID      string    `json:"targetId,omitempty" msgpack:"targetId,omitempty"`
	SendTimestamp int64     `json:"sendTimestamp" msgpack:"sendTimestamp"`
}

// Normalize returns m with its action and direction lowercased and trimmed
// when they name a known value. Unknown values are left for Validate.
func (m ActionMessage) Normalize() ActionMessage {
	if a, err := ParseAction(string(m.Action)); err == nil {
		m.Action = a
	}
	if m.Direction != "" {
		if d, err := ParseDirection(string(m.Direction)); err == nil {
			m.Direction = d
		}
	}
	return m
}

// Validate checks the shape of the message: a sender, a known action, and
// the direction or target that action requires.
func (m ActionMessage) Validate() error {
	if m.SenderID == "" {
		return fmt.Errorf("missing sender id")
	}
	switch m.Action {
	case ActionMove:
		if _, err := ParseDirection(string(m.Direction)); err != nil {
			return err
		}
		if m.TargetID != "" {
			return fmt.Errorf("move must not carry a target")
		}
	case ActionShoot, ActionHeal:
		if m.TargetID == "" {
			return fmt.Errorf("%s requires a target", m.Action)
		}
		if m.Direction != "" {
			return fmt.Errorf("%s must not carry a direction", m.Action)
		}
	default:
		return fmt.Errorf("unknown action %q", m.Action)
	}
	return nil
}
