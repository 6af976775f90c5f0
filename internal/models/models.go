package models

import "time"

// Role classifies a user account. Customers and riders are interchangeable
// for ride submission; a driver may also request rides for themselves.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleRider    Role = "rider"
	RoleDriver   Role = "driver"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleRider, RoleDriver:
		return true
	}
	return false
}

// RideStatus moves strictly forward: pending -> accepted -> in_progress -> completed.
type RideStatus string

const (
	StatusPending    RideStatus = "pending"
	StatusAccepted   RideStatus = "accepted"
	StatusInProgress RideStatus = "in_progress"
	StatusCompleted  RideStatus = "completed"
)

// Next reports whether next is the legal forward edge from s.
func (s RideStatus) Next(next RideStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusAccepted
	case StatusAccepted:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// RideRequest is the contended record of the system. DriverID, MatchCode,
// ETA and AcceptedAt are nil exactly while Status is pending and are set
// together, once, by the accept transition.
type RideRequest struct {
	ID          string     `json:"id"`
	RiderID     string     `json:"rider_id"`
	Pickup      string     `json:"pickup"`      // "lat,lng" or "lat,lng|label"
	Destination string     `json:"destination"` // same shape
	Status      RideStatus `json:"status"`
	DriverID    *string    `json:"driver_id,omitempty"`
	MatchCode   *int       `json:"match_code,omitempty"`
	ETA         *string    `json:"eta,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Driver is a driver's availability record, one per user id.
type Driver struct {
	UserID         string    `json:"user_id"`
	Available      bool      `json:"available"`
	Location       string    `json:"location,omitempty"` // empty when unknown
	VehicleDetails string    `json:"vehicle_details,omitempty"`
	Updated        time.Time `json:"updated"`
}

// Trip is the billable record derived from a ride, 1:1 with its ride id.
type Trip struct {
	ID            string        `json:"id"`
	RideID        string        `json:"ride_id"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       *time.Time    `json:"end_time,omitempty"`
	Fare          float64       `json:"fare"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

// AcceptResult is returned to the winning driver.
type AcceptResult struct {
	RideID    string  `json:"ride_id"`
	DriverID  string  `json:"driver_id"`
	MatchCode int     `json:"match_code"`
	ETA       *string `json:"eta,omitempty"`
}

// RideEvent is the lifecycle record published to Kafka.
type RideEvent struct {
	Type     string    `json:"type"` // submitted, accepted, started, completed
	RideID   string    `json:"ride_id"`
	RiderID  string    `json:"rider_id"`
	DriverID string    `json:"driver_id,omitempty"`
	At       time.Time `json:"at"`
}
