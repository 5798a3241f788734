package model

import "time"

// StorageLocation is a physical collection point ("gym"). The leader
// fields are a cache of the ledger aggregate and are recomputed on every
// donation that affects the location.
type StorageLocation struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address,omitempty"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	LeaderID     *string   `json:"leader_id,omitempty"`
	LeaderPoints int       `json:"leader_points"`
	Version      int64     `json:"-"`
	CreatedOn    time.Time `json:"created_on"`
	UpdatedOn    time.Time `json:"updated_on"`
}

// Clone returns a deep copy of the location
func (l *StorageLocation) Clone() *StorageLocation {
	if l == nil {
		return nil
	}
	c := *l
	if l.LeaderID != nil {
		id := *l.LeaderID
		c.LeaderID = &id
	}
	return &c
}

// CurrentLeader returns the cached leader id or "" when there is none
func (l *StorageLocation) CurrentLeader() string {
	if l.LeaderID == nil {
		return ""
	}
	return *l.LeaderID
}

// ProvisionLocationRequest is the payload for creating a storage location
type ProvisionLocationRequest struct {
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the provisioning payload
func (r *ProvisionLocationRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}
	if r.Latitude < -90 || r.Latitude > 90 {
		errs = append(errs, FieldError{Field: "latitude", Message: "latitude must be between -90 and 90"})
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		errs = append(errs, FieldError{Field: "longitude", Message: "longitude must be between -180 and 180"})
	}
	return errs
}

// DonorTotal is one row of a per-location ledger aggregate
type DonorTotal struct {
	UserID    string    `json:"user_id"`
	Points    int       `json:"points"`
	Donations int       `json:"donations"`
	ReachedOn time.Time `json:"reached_on"` // timestamp of the donor's latest donation at the location
}

// Standing is a ranked leaderboard row
type Standing struct {
	Rank int `json:"rank"`
	DonorTotal
	IsLeader bool `json:"is_leader"`
}

// LeaderChange describes the outcome of a leader recomputation
type LeaderChange struct {
	LocationID       string  `json:"location_id"`
	PreviousLeaderID *string `json:"previous_leader_id,omitempty"`
	LeaderID         *string `json:"leader_id,omitempty"`
	LeaderPoints     int     `json:"leader_points"`
	Changed          bool    `json:"changed"`
}

// Leaderboard is the ranked view of a location's ledger
type Leaderboard struct {
	LocationID   string     `json:"location_id"`
	LocationName string     `json:"location_name"`
	LeaderID     *string    `json:"leader_id,omitempty"`
	LeaderPoints int        `json:"leader_points"`
	Standings    []Standing `json:"standings"`
}

// NearbyQuery selects locations within RadiusKm of a point
type NearbyQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Limit     int
}

// Validate checks the query bounds
func (q *NearbyQuery) Validate(maxRadiusKm float64) []FieldError {
	var errs []FieldError
	if q.Latitude < -90 || q.Latitude > 90 {
		errs = append(errs, FieldError{Field: "lat", Message: "lat must be between -90 and 90"})
	}
	if q.Longitude < -180 || q.Longitude > 180 {
		errs = append(errs, FieldError{Field: "lng", Message: "lng must be between -180 and 180"})
	}
	if q.RadiusKm <= 0 || q.RadiusKm > maxRadiusKm {
		errs = append(errs, FieldError{Field: "radius_km", Message: "radius_km out of range"})
	}
	if q.Limit < 0 {
		errs = append(errs, FieldError{Field: "limit", Message: "limit cannot be negative"})
	}
	return errs
}

// NearbyLocation is a location with its distance from the query point
type NearbyLocation struct {
	*StorageLocation
	DistanceKm float64 `json:"distance_km"`
}
