package engine

import (
	"fmt"
)

// State is a conversational state.
type State int

const (
	StateMenu State = iota
	StateProductSelection
	StateQuantity
	StateShippingInfo
	StatePaymentMethod
	StateConfirmation
	StateOrderStatusLookup
	StateContact
	StateSettings
)

var stateNames = [...]string{
	StateMenu:              "MENU",
	StateProductSelection:  "PRODUCT_SELECTION",
	StateQuantity:          "QUANTITY",
	StateShippingInfo:      "SHIPPING_INFO",
	StatePaymentMethod:     "PAYMENT_METHOD",
	StateConfirmation:      "CONFIRMATION",
	StateOrderStatusLookup: "ORDER_STATUS_LOOKUP",
	StateContact:           "CONTACT",
	StateSettings:          "SETTINGS",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState converts a state name back into a State.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateMenu, fmt.Errorf("unknown state %q", name)
}

// purchase reports whether the state is part of the checkout flow, where the pay shortcut applies.
func (s State) purchase() bool {
	switch s {
	case StateProductSelection, StateQuantity, StateShippingInfo, StatePaymentMethod, StateConfirmation:
		return true
	default:
		return false
	}
}

func (s State) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateNames) {
		return nil, fmt.Errorf("invalid state %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
