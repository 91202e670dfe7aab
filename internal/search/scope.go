package search

import "fmt"

// Scope names accepted by the API.
const (
	ScopeAll        = "all"
	ScopeStandSpec  = "standspec"
	ScopeScheduling = "scheduling"
	ScopeMP         = "mp"
	ScopeMPOnly     = "mp_only"
)

// Scope restricts retrieval to a document subset. The zero value is not
// valid; use ParseScope.
type Scope struct {
	Name        string
	ProcedureID string
}

// ParseScope validates a scope name. The mp_only scope narrows to a
// single measurement procedure and requires a procedure id; every other
// scope ignores it.
func ParseScope(name, procedureID string) (Scope, error) {
	switch name {
	case "", ScopeAll:
		return Scope{Name: ScopeAll}, nil
	case ScopeStandSpec, ScopeScheduling, ScopeMP:
		return Scope{Name: name}, nil
	case ScopeMPOnly:
		if procedureID == "" {
			return Scope{}, fmt.Errorf("%w: mp_only requires a procedure id", ErrInvalidScope)
		}
		return Scope{Name: ScopeMPOnly, ProcedureID: procedureID}, nil
	default:
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, name)
	}
}

// Matches reports whether a unit with the given document type and
// procedure id falls inside the scope.
func (s Scope) Matches(docType, procedureID string) bool {
	switch s.Name {
	case ScopeAll:
		return true
	case ScopeStandSpec, ScopeScheduling:
		return docType == s.Name
	case ScopeMP:
		return docType == "mp"
	case ScopeMPOnly:
		return docType == "mp" && procedureID == s.ProcedureID
	default:
		return false
	}
}
