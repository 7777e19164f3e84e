package domain

// Status is the lifecycle state of one (venue, symbol) feed connection.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
	StatusErrored    Status = "errored"
)

// ConnectionState is the consumer-visible state of a feed connection. It is
// owned by the feed manager for that (venue, symbol) pair; consumers receive
// copies and must not mutate them.
type ConnectionState struct {
	Status    Status `json:"status"`
	LastError string `json:"last_error,omitempty"`
}

// FeedStatus pairs a feed's identity with its connection state for listing.
type FeedStatus struct {
	Venue  Venue           `json:"venue"`
	Symbol string          `json:"symbol"`
	State  ConnectionState `json:"state"`
}
