package permission

// HasRole reports whether g contains role.
func (g Grants) HasRole(role string) bool {
	return contains(g.Roles, role)
}

// HasAnyRole reports whether g contains at least one of roles.
func (g Grants) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if contains(g.Roles, r) {
			return true
		}
	}
	return false
}

// HasPermission reports whether g grants perm. The super permission grants all.
func (g Grants) HasPermission(perm string) bool {
	if perm == "" {
		return false
	}
	return contains(g.Permissions, SuperPermission) || contains(g.Permissions, perm)
}

// HasAnyPermission reports whether g grants at least one of perms.
func (g Grants) HasAnyPermission(perms ...string) bool {
	for _, p := range perms {
		if g.HasPermission(p) {
			return true
		}
	}
	return false
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
