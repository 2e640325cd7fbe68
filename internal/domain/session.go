package domain

// Role is the coarse authorization tag fetched from the backend.
type Role string

const (
	RoleNone  Role = ""
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps the backend role field onto a Role. Anything that is not "admin"
// degrades to the default "user" role.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Session is the process-wide authentication state.
//
// Loading=true means the state is not known yet: protected content must not be rendered
// and no redirect may be issued.
type Session struct {
	Identity *Identity `json:"identity"`
	Role     Role      `json:"role"`
	Loading  bool      `json:"loading"`
}

// Authenticated reports whether an identity is present.
func (s Session) Authenticated() bool { return s.Identity != nil }

// UID returns the identity UID or "" when signed out.
func (s Session) UID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.UID
}

// Clone returns a copy that shares no memory with s.
func (s Session) Clone() Session {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}
