package compositor

// Role is the role a surface plays, such as being a cursor or a
// sub-surface. A surface may be given a role at most once; setting the
// same role again is allowed, setting a different one is an error.
type Role struct {
	name string
}

// NewRole returns a new role with the given name. Roles are compared
// by identity, so each role should be created once and shared.
func NewRole(name string) *Role {
	return &Role{name: name}
}

var (
	SubsurfaceRole = NewRole("wl_subsurface")
	CursorRole     = NewRole("wl_pointer-cursor")
)

func (r *Role) Name() string {
	if r == nil {
		return "none"
	}
	return r.name
}

func (r *Role) String() string {
	return r.Name()
}
