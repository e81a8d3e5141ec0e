package domain

import "fmt"

// Closed string-backed types for every value that is both stored and carried on the
// wire. Handlers parse raw strings through the Parse* helpers at the boundary;
// internal logic only ever sees the typed values.

// Role account role.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleOperator   Role = "operator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleOperator:
		return true
	}
	return false
}

// IsAdmin reports whether the role may manage operator accounts.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// UserStatus account lifecycle status.
type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusPending, UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	}
	return false
}

// CanLogin login is only permitted for active and pending accounts; pending means
// the temporary password has not been rotated yet.
func (s UserStatus) CanLogin() bool {
	return s == UserStatusActive || s == UserStatusPending
}

func ParseUserStatus(s string) (UserStatus, error) {
	st := UserStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid user status %q", s)
	}
	return st, nil
}

// RegistrationType how the account came to exist.
type RegistrationType string

const (
	RegistrationAdminCreated   RegistrationType = "admin_created"
	RegistrationSelfRegistered RegistrationType = "self_registered"
)

// PlatformAccess which client platforms an account may authenticate from.
type PlatformAccess string

const (
	PlatformMobile PlatformAccess = "mobile"
	PlatformWeb    PlatformAccess = "web"
	PlatformBoth   PlatformAccess = "both"
)

func (p PlatformAccess) Valid() bool {
	switch p {
	case PlatformMobile, PlatformWeb, PlatformBoth:
		return true
	}
	return false
}

// Permits reports whether an account with this access may log in from the
// requested platform. "both" permits either; a concrete value permits only itself.
func (p PlatformAccess) Permits(requested Platform) bool {
	switch p {
	case PlatformBoth:
		return true
	case PlatformMobile:
		return requested == PlatformRequestMobile
	case PlatformWeb:
		return requested == PlatformRequestWeb
	}
	return false
}

func ParsePlatformAccess(s string) (PlatformAccess, error) {
	p := PlatformAccess(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid platform access %q", s)
	}
	return p, nil
}

// Platform the platform a request claims to originate from. Distinct from
// PlatformAccess: a request is always exactly "mobile" or "web", never "both".
type Platform string

const (
	PlatformRequestMobile Platform = "mobile"
	PlatformRequestWeb    Platform = "web"
)

func (p Platform) Valid() bool {
	return p == PlatformRequestMobile || p == PlatformRequestWeb
}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid platform %q", s)
	}
	return p, nil
}

// TestType what a session measures.
type TestType string

const (
	TestReactionTime TestType = "reaction_time"
	TestTympanic     TestType = "tympanic"
	TestVitals       TestType = "vitals"
	TestCombined     TestType = "combined"
)

func (t TestType) Valid() bool {
	switch t {
	case TestReactionTime, TestTympanic, TestVitals, TestCombined:
		return true
	}
	return false
}

func ParseTestType(s string) (TestType, error) {
	t := TestType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid test type %q", s)
	}
	return t, nil
}

// SessionStatus session lifecycle status.
// draft -> active -> completed; cancelled is a terminal state reachable from
// draft/active, preserved in the schema though no core operation drives it.
type SessionStatus string

const (
	SessionDraft     SessionStatus = "draft"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionDraft, SessionActive, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

func ParseSessionStatus(s string) (SessionStatus, error) {
	st := SessionStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid session status %q", s)
	}
	return st, nil
}

// StimulusType reaction-time stimulus identity.
type StimulusType string

const (
	StimulusRed       StimulusType = "red"
	StimulusYellow    StimulusType = "yellow"
	StimulusBlue      StimulusType = "blue"
	StimulusSiren     StimulusType = "siren"
	StimulusAmbulance StimulusType = "ambulance"
	StimulusGauge     StimulusType = "gauge"
	StimulusSpectrum  StimulusType = "spectrum"
)

func (s StimulusType) Valid() bool {
	switch s {
	case StimulusRed, StimulusYellow, StimulusBlue, StimulusSiren,
		StimulusAmbulance, StimulusGauge, StimulusSpectrum:
		return true
	}
	return false
}

// StimulusCategory reaction-time stimulus modality.
type StimulusCategory string

const (
	StimulusCategoryLED    StimulusCategory = "led"
	StimulusCategorySound  StimulusCategory = "sound"
	StimulusCategoryVisual StimulusCategory = "visual"
)

func (c StimulusCategory) Valid() bool {
	switch c {
	case StimulusCategoryLED, StimulusCategorySound, StimulusCategoryVisual:
		return true
	}
	return false
}
