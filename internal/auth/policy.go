package auth

import (
	"github.com/spec-kit/student-auth/internal/domain"
	apperrors "github.com/spec-kit/student-auth/pkg/util"
)

// Operation names a protected action on student records.
type Operation string

const (
	OpListStudents   Operation = "students:list"
	OpReadStudent    Operation = "students:read"
	OpCreateStudent  Operation = "students:create"
	OpUpdateStudent  Operation = "students:update"
	OpDeleteStudent  Operation = "students:delete"
	OpSearchStudents Operation = "students:search"
)

// Scope is how much of the resource space a role may touch for an operation.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOwn
	ScopeAll
)

// Decision is the outcome of an access check.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// permissions is flat: no role implies another.
var permissions = map[Operation]map[domain.Role]Scope{
	OpListStudents: {
		domain.RoleAdmin:   ScopeAll,
		domain.RoleTeacher: ScopeAll,
		domain.RoleStudent: ScopeOwn,
	},
	OpReadStudent: {
		domain.RoleAdmin:   ScopeAll,
		domain.RoleTeacher: ScopeAll,
		domain.RoleStudent: ScopeOwn,
	},
	OpCreateStudent: {domain.RoleAdmin: ScopeAll},
	OpUpdateStudent: {domain.RoleAdmin: ScopeAll},
	OpDeleteStudent: {domain.RoleAdmin: ScopeAll},
	OpSearchStudents: {
		domain.RoleAdmin:   ScopeAll,
		domain.RoleTeacher: ScopeAll,
	},
}

// ScopeFor returns the caller's scope for op.
func ScopeFor(caller domain.Identity, op Operation) Scope {
	return permissions[op][caller.Role]
}

// Decide is the access decision for op. ownerRollNo is the roll number owning
// the target record, or nil when the operation has no single target. An
// own-scope caller without a target is allowed only to list.
func Decide(caller domain.Identity, op Operation, ownerRollNo *int) Decision {
	switch ScopeFor(caller, op) {
	case ScopeAll:
		return Allow
	case ScopeOwn:
		if ownerRollNo == nil {
			// only a listing can be narrowed to the caller's record afterwards
			return Decision(op == OpListStudents)
		}
		return Decision(caller.HasRollNo() && *ownerRollNo == caller.RollNo)
	default:
		return Deny
	}
}

// Authorize is Decide surfaced as an ACCESS_DENIED error.
func Authorize(caller domain.Identity, op Operation, ownerRollNo *int) error {
	if Decide(caller, op, ownerRollNo) == Allow {
		return nil
	}
	if ownerRollNo != nil && ScopeFor(caller, op) == ScopeOwn {
		return apperrors.NewAccessDenied("Students can only access their own record")
	}
	return apperrors.NewAccessDenied("You don't have permission to perform this operation")
}
