package onboarding

// Platform role names. Registration attaches caller-supplied roles or
// the default for the registration kind.
const (
	// RoleDefault is attached when the caller supplies no roles.
	RoleDefault = "user"
	// RoleCandidate is the job-seeker role.
	RoleCandidate = "candidate"
	// RoleCompany is the employer organization role.
	RoleCompany = "company"
	// RoleNgo is the support organization role.
	RoleNgo = "ngo"
	// RoleAdmin is reserved for platform operators.
	RoleAdmin = "admin"
)

// KnownRoles returns every predefined role name.
func KnownRoles() []string {
	return []string{RoleDefault, RoleCandidate, RoleCompany, RoleNgo, RoleAdmin}
}

// IsKnownRole checks a caller-supplied role identifier against the
// predefined set.
func IsKnownRole(name string) bool {
	for _, r := range KnownRoles() {
		if r == name {
			return true
		}
	}
	return false
}

// defaultRoleForKind maps a registration kind to the role attached
// when the caller names none.
func defaultRoleForKind(kind RegistrationKind) string {
	switch kind {
	case KindCandidate:
		return RoleCandidate
	case KindCompany:
		return RoleCompany
	case KindNgo:
		return RoleNgo
	default:
		return RoleDefault
	}
}
