package domain

import (
	"time"
)

// PhoneRecord associates a phone number with an approximate location.
type PhoneRecord struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phoneNumber"`
	Location    string    `json:"location"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Timestamp   time.Time `json:"timestamp"`
}

// Point returns the record's coordinate.
func (r PhoneRecord) Point() GeoPoint {
	return GeoPoint{Lat: r.Lat, Lng: r.Lng}
}

// NearbyRecord is a record with its distance from a query point.
type NearbyRecord struct {
	PhoneRecord
	Distance float64 `json:"distance"` // meters
}

// RecordEvent is published after the collection changes.
type RecordEvent struct {
	Type   string      `json:"type"` // "added" | "removed"
	Record PhoneRecord `json:"record"`
	Count  int         `json:"count"`
	Time   time.Time   `json:"time"`
}

const (
	EventRecordAdded   = "added"
	EventRecordRemoved = "removed"
)

// Notice is a transient confirmation shown to the user.
type Notice struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"` // "success" | "error" | "info"
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
)
