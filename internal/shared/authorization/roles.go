package authorization

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleFinance  UserRole = "finance"
	RoleCustomer UserRole = "customer"
)

func (r UserRole) String() string {
	return string(r)
}

// IsStaff reports whether the role belongs to back-office staff.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleFinance
}

func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleFinance || r == RoleCustomer
}

// CanAccessOwnedResource allows staff on any resource and customers on their own.
func CanAccessOwnedResource(userID uint, role UserRole, ownerID uint) bool {
	if role.IsStaff() {
		return true
	}
	return userID == ownerID
}
