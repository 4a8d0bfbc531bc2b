package enums

import "fmt"

// SubscriberState describes the allowed values for the `state` column in subscribers.
type SubscriberState string

const (
	SubscriberStateActive    SubscriberState = "active"
	SubscriberStateSuspended SubscriberState = "suspended"
	SubscriberStateCutOff    SubscriberState = "cut_off"
)

var validSubscriberStates = []SubscriberState{
	SubscriberStateActive,
	SubscriberStateSuspended,
	SubscriberStateCutOff,
}

// IsValid reports whether the value matches the canonical subscriber state enum.
func (s SubscriberState) IsValid() bool {
	for _, candidate := range validSubscriberStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriberState converts the raw string to SubscriberState.
func ParseSubscriberState(value string) (SubscriberState, error) {
	for _, candidate := range validSubscriberStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscriber state %q", value)
}

// Blocked reports whether the subscriber belongs on the firewall block list.
func (s SubscriberState) Blocked() bool {
	return s == SubscriberStateCutOff
}
