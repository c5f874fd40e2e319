package gate

import (
	"crypto/subtle"
	"errors"
)

// ErrAccessDenied is returned when the access password does not match
var ErrAccessDenied = errors.New("access password is incorrect")

// Gate compares user input with the configured static password
type Gate struct {
	password string
}

// New returns a gate for password
func New(password string) *Gate {
	return &Gate{password: password}
}

// Check returns ErrAccessDenied unless input matches exactly
func (g *Gate) Check(input string) error {
	if !g.Open(input) {
		return ErrAccessDenied
	}
	return nil
}

// Open reports whether input matches
func (g *Gate) Open(input string) bool {
	return g.password != "" && subtle.ConstantTimeCompare([]byte(input), []byte(g.password)) == 1
}
