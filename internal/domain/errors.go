package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOrder     = errors.New("invalid order parameters")
	ErrUnsupportedVenue = errors.New("unsupported venue")
	ErrNoSnapshot       = errors.New("no snapshot received yet")
	ErrFeedClosed       = errors.New("feed closed")
	ErrWSDisconnect     = errors.New("websocket disconnected")
)
