package model

// Actor roles, ranked. A required-role check passes when the actor's
// rank is at least the required rank.
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

var roleRanks = map[string]int{
	RoleStudent: 1,
	RoleFaculty: 2,
	RoleAdmin:   3,
}

// Actor is the authenticated caller of an operation. Identity comes
// from the external auth provider; the core never reads session state.
type Actor struct {
	ID   string `json:"id" validate:"required"`
	Role string `json:"role" validate:"required,oneof=student faculty admin"`
}

// Rank returns the actor's numeric role rank, or 0 for unknown roles.
func (a Actor) Rank() int {
	return roleRanks[a.Role]
}

// HasRank reports whether the actor's role is at least the given role.
func (a Actor) HasRank(role string) bool {
	required, ok := roleRanks[role]
	if !ok {
		return false
	}
	return a.Rank() >= required
}
