package domain

// Role is the caller role asserted by the identity provider.
type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
	RoleAdmin     Role = "admin"
)

// Identity is the authenticated caller of an operation.
type Identity struct {
	UserID string
	Role   Role
}

// RideStats holds the aggregate ride counters maintained by the sweeper.
type RideStats struct {
	UserID           string
	RidesAsDriver    int
	RidesAsPassenger int
}
