package models

import "time"

// Account is the JSON view of an account balance
type Account struct {
	ID      string  `json:"id"`
	Balance float64 `json:"balance"`
}

// Snapshot holds the balances of all registered accounts at a point in time
type Snapshot struct {
	Version  int       `json:"version"`
	SavedAt  time.Time `json:"saved_at"`
	Accounts []Account `json:"accounts"`
}

// SignedSnapshot is the on-disk form of a Snapshot
type SignedSnapshot struct {
	Snapshot Snapshot `json:"snapshot"`
	HMAC     string   `json:"hmac"`
}
