package domain

// Vehicle is the catalog view of a driver's car. Seats includes the driver.
type Vehicle struct {
	ID                 string
	OwnerID            string
	RegistrationNumber string
	Seats              int
}

// Location is a named place referenced by rides as source or destination.
type Location struct {
	ID        string
	Name      string
	Latitude  *float64
	Longitude *float64
	Verified  bool
}
