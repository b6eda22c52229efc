package types

import "time"

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

// Roles a user can hold.
const (
	RoleAdmin   = "admin"
	RoleClient  = "client"
	RoleCourier = "livreur"
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type GPSPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type HistoryEntry struct {
	Status string    `json:"status"`
	Date   time.Time `json:"date"`
}

// Parcel is a tracked shipment, identified by its tracking code.
type Parcel struct {
	ID               string         `json:"id"`
	TrackingCode     string         `json:"trackingCode"`
	SenderName       string         `json:"senderName"`
	RecipientName    string         `json:"recipientName"`
	RecipientAddress string         `json:"recipientAddress"`
	Status           string         `json:"status"`
	History          []HistoryEntry `json:"history"`
	Position         *GPSPosition   `json:"gpsPosition,omitempty"`
	ClientID         string         `json:"clientId"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Notification types.
const (
	NotificationStatus       = "status"
	NotificationMission      = "mission"
	NotificationSystem       = "system"
	NotificationParcelStatus = "parcel_status"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Role      string    `json:"role,omitempty"`
	ParcelID  string    `json:"parcelId,omitempty"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotifyRequest is the body shared by the notify-user/role/system/parcel routes.
type NotifyRequest struct {
	UserID   string `json:"userId,omitempty"`
	Role     string `json:"role,omitempty"`
	ParcelID string `json:"parcelId,omitempty"`
	Type     string `json:"type,omitempty"`
	Message  string `json:"message"`
}

// Position is a timestamped GPS fix for a parcel or a courier.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

type PositionRequest struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}
