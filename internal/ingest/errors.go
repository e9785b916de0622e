package ingest

import "errors"

var (
	// errUnknownEvent marks an EVENT_JSON entry whose event name is not
	// one of ft_mint, ft_transfer, ft_burn.
	errUnknownEvent = errors.New("unknown nep141 event")

	// ErrFeedClosed is returned when the outcome feed channel closes
	// while the runner is still expected to be live.
	ErrFeedClosed = errors.New("outcome feed closed")
)
