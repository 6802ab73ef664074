package domain

import "time"

// Tag labels tickets for filtering and routing conditions.
type Tag struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
