package domain

// Actor identifies the chat user behind an interaction or API call.
type Actor struct {
	UserRef     string
	DisplayName string
	RoleRefs    []string
}

// HasRole reports whether the actor carries roleRef.
func (a Actor) HasRole(roleRef string) bool {
	if roleRef == "" {
		return false
	}
	for _, r := range a.RoleRefs {
		if r == roleRef {
			return true
		}
	}
	return false
}
