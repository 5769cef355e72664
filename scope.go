package beans

import (
	"encoding/json"
	"fmt"
)

// Scope specifies the lifetime of a bean.
// The scope determines which ScopeStore caches the bean and for how long.
type Scope int

const (
	// Singleton specifies that one instance of the bean exists per factory.
	// The instance is created on first request and cached until the scopes are cleared.
	Singleton Scope = iota

	// Prototype specifies that a new instance is created for every request.
	// Prototype beans are never cached and are unaffected by clearing.
	Prototype

	// Thread specifies that one instance exists per thread ID.
	// In Go the thread ID travels on the context, see WithThread.
	Thread
)

// String returns the string representation of the Scope.
func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Prototype:
		return "prototype"
	case Thread:
		return "thread"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsValid checks if the scope is one of the known scopes.
func (s Scope) IsValid() bool {
	return s >= Singleton && s <= Thread
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, UnsupportedScopeError{Scope: s}
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	switch string(text) {
	case "singleton", "Singleton":
		*s = Singleton
	case "prototype", "Prototype":
		*s = Prototype
	case "thread", "Thread", "request", "Request":
		*s = Thread
	default:
		return UnsupportedScopeError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Scope) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}

	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scope) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}

	return s.UnmarshalText([]byte(text))
}
