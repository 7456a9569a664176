package session

import "github.com/MrEthical07/goIdentity/profile"

// State is an immutable snapshot of the store.
type State struct {
	User    *profile.Profile
	Loading bool
}

// IsAuthenticated reports whether a user is present.
func (s State) IsAuthenticated() bool {
	return s.User != nil
}

// Kind enumerates the transitions the store accepts.
type Kind uint8

const (
	// KindRestore publishes a recovered session (User may be nil) and ends loading.
	KindRestore Kind = iota + 1
	// KindSignIn publishes a freshly authenticated user.
	KindSignIn
	// KindSignOut clears the user.
	KindSignOut
	// KindSettle ends loading without a user.
	KindSettle
)

func (k Kind) String() string {
	switch k {
	case KindRestore:
		return "restore"
	case KindSignIn:
		return "sign_in"
	case KindSignOut:
		return "sign_out"
	case KindSettle:
		return "settle"
	default:
		return "unknown"
	}
}

// Transition is a requested state change. When Guarded is set, the transition
// is rejected if a sign-out was applied after epoch Since.
type Transition struct {
	Kind    Kind
	User    *profile.Profile
	Since   uint64
	Guarded bool
}

// Result describes an applied transition.
type Result struct {
	Previous *profile.Profile
	Current  State
	// Changed is true when the published user differs from the previous one.
	Changed bool
}
