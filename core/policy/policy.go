// Package policy maps roles to the operations they are allowed to perform.
package policy

// Role of an authenticated user. It travels in the session token and is never trusted from the client otherwise.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Roles lists every known role.
var Roles = []Role{RoleStudent, RoleAdmin}

func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// Operation is a role-sensitive action of the API.
type Operation string

const (
	ListNotices        Operation = "notices:list"
	CreateNotice       Operation = "notices:create"
	DeleteNotice       Operation = "notices:delete"
	SubmitAssignment   Operation = "assignments:submit"
	ListOwnAssignments Operation = "assignments:list-own"
	ListAllAssignments Operation = "assignments:list-all"
	ManageUsers        Operation = "users:manage"
)

var table = map[Operation]map[Role]bool{
	ListNotices:        {RoleStudent: true, RoleAdmin: true},
	CreateNotice:       {RoleAdmin: true},
	DeleteNotice:       {RoleAdmin: true},
	SubmitAssignment:   {RoleStudent: true},
	ListOwnAssignments: {RoleStudent: true},
	ListAllAssignments: {RoleAdmin: true},
	ManageUsers:        {RoleAdmin: true},
}

// Allow reports whether role may perform op. Unknown roles and operations are denied.
func Allow(role Role, op Operation) bool {
	return table[op][role]
}

// Actor is the verified identity performing an operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) Can(op Operation) bool {
	return Allow(a.Role, op)
}
