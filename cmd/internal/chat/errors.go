package chat

import "errors"

var (
	// ErrThreadNotFound is returned when a referenced thread id does not exist.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrMessageNotFound is returned when a referenced message id does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrForbidden is returned when the caller is not a participant of the
	// referenced thread or message.
	ErrForbidden = errors.New("forbidden")

	// ErrSenderNotFound is returned when the sending member cannot be resolved.
	ErrSenderNotFound = errors.New("sender not found")

	// ErrListingNotFound is returned when the referenced listing cannot be
	// resolved while opening a new thread.
	ErrListingNotFound = errors.New("listing not found")

	// ErrSelfThread is returned when a member attempts first contact on their
	// own listing. Thread participants must be distinct.
	ErrSelfThread = errors.New("thread participants must be distinct")

	// ErrEmptyMessage is returned when a send carries neither content nor an
	// image key (or both).
	ErrEmptyMessage = errors.New("message requires exactly one of content and image key")
)
