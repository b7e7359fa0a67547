package app

import (
	"strings"

	"github.com/dkeye/Mesh/internal/domain"
)

type BackpressureAction int

const (
	DropMessage BackpressureAction = iota
	CloseConnection
)

// Policy decides what happens to a recipient whose send buffer is full.
type Policy interface {
	OnBackPressure(id domain.ConnectionID) BackpressureAction
}

// SimplePolicy applies the same action to every slow consumer.
type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(domain.ConnectionID) BackpressureAction {
	return p.Action
}

// PolicyFromString maps the slow_consumer config value; anything but
// "close" keeps the connection and drops the message.
func PolicyFromString(s string) Policy {
	if strings.EqualFold(strings.TrimSpace(s), "close") {
		return SimplePolicy{Action: CloseConnection}
	}
	return SimplePolicy{Action: DropMessage}
}
