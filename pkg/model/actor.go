package model

const RoleAdmin = "admin"

// Actor is the already-authenticated caller of an operation.
type Actor struct {
	CustomerRef string `json:"customer_ref"`
	Role        string `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsAnonymous() bool {
	return a.CustomerRef == ""
}

// CanAccess reports whether the actor may view or mutate a booking owned by customerRef.
func (a Actor) CanAccess(customerRef string) bool {
	return a.IsAdmin() || (!a.IsAnonymous() && a.CustomerRef == customerRef)
}
