package authflow

import (
	"time"

	"github.com/aussiebroadwan/gamevault/pkg/account"
	"github.com/aussiebroadwan/gamevault/pkg/identity"
)

type State int

const (
	Unauthenticated State = iota
	Authenticating
	AwaitingSecondFactor
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case AwaitingSecondFactor:
		return "awaiting_second_factor"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is the client's view of the signed in user. It lives only in
// memory.
type Session struct {
	State    State
	User     *identity.User
	Profile  *account.Profile
	Settings *account.Settings

	SettingsLoaded       bool
	SecondFactorVerified bool
	// Persisted is false when Profile or Settings are defaults that could
	// not be read from or written to the document store.
	Persisted bool

	SignedInAt time.Time
}

// UserID returns the current identity id, or "".
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// clone returns a copy that shares no pointers with s.
func (s Session) clone() Session {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Profile != nil {
		p := *s.Profile
		if p.CityID != nil {
			id := *p.CityID
			p.CityID = &id
		}
		out.Profile = &p
	}
	if s.Settings != nil {
		st := *s.Settings
		out.Settings = &st
	}
	return out
}
