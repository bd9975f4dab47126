package session

import "time"

// Base privilege level stamped on every record. Profiles switch, the role does not.
const RoleUser = "USER"

// Operating modes a session can be in.
const (
	ProfileUser   = "USER"
	ProfileArtist = "ARTIST"
)

// Record is the per-device session entry stored under a user's session hash.
//
// The JSON field names are part of the persisted layout and are read by other
// services sharing the same Redis keyspace.
type Record struct {
	Role           string    `json:"role"`
	CurrentProfile string    `json:"currentProfile"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ValidProfile reports whether profile is one of the known operating modes.
func ValidProfile(profile string) bool {
	return profile == ProfileUser || profile == ProfileArtist
}
