package task

// CheckAccess reports whether auth may see a task guarded by acl.
// Denials and missing tasks share NotFoundError so callers cannot probe existence.
func CheckAccess(acl *ACL, auth *Auth) error {
	if acl == nil || acl.Public {
		return nil
	}
	if auth == nil {
		return &NotFoundError{}
	}
	if acl.UIDs[auth.UID] {
		return nil
	}
	return &NotFoundError{}
}
