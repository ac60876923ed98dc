package model

// AccessScope is the set of branch ids a caller is authorized to act on.
// It is built from token claims by the auth middleware and passed explicitly
// into every service operation instead of being read from ambient state.
type AccessScope struct {
	all      bool
	branches map[string]struct{}
}

// NewAccessScope builds a scope from a role and a branch id list.
// Admins get an unrestricted scope.
func NewAccessScope(role string, branchIDs []string) AccessScope {
	if role == RoleAdmin {
		return AccessScope{all: true}
	}
	set := make(map[string]struct{}, len(branchIDs))
	for _, id := range branchIDs {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return AccessScope{branches: set}
}

// AllBranches returns an unrestricted scope.
func AllBranches() AccessScope {
	return AccessScope{all: true}
}

// Allows reports whether the scope covers the given branch id.
func (s AccessScope) Allows(branchID string) bool {
	if s.all {
		return true
	}
	_, ok := s.branches[branchID]
	return ok
}

// Unrestricted reports whether the scope covers every branch.
func (s AccessScope) Unrestricted() bool {
	return s.all
}

// BranchIDs returns the explicit branch list, nil when unrestricted.
func (s AccessScope) BranchIDs() []string {
	if s.all {
		return nil
	}
	ids := make([]string, 0, len(s.branches))
	for id := range s.branches {
		ids = append(ids, id)
	}
	return ids
}
