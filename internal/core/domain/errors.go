package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is an error thrown when a request is malformed
var ErrValidation = errors.New("validation error")

// ErrNotFound is an error thrown when an aggregate does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is an error thrown when a write conflicts with the stored state
var ErrConflict = errors.New("conflict")

// ErrTransientProvider is an error thrown when a collaborator fails in a retryable way (5xx, throttling, timeout)
var ErrTransientProvider = errors.New("transient provider error")

// ErrPermanentProvider is an error thrown when a collaborator rejects a call for good
var ErrPermanentProvider = errors.New("permanent provider error")

// ErrRetriesExhausted is an error thrown when the retry budget is consumed
var ErrRetriesExhausted = errors.New("retries exhausted")

// ErrSessionNotFound is an error thrown when session is not found
var ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)

// ErrDownloadTaskNotFound is an error thrown when a download task is not found
var ErrDownloadTaskNotFound = fmt.Errorf("%w: download task", ErrNotFound)

// ErrOutboxEntryNotFound is an error thrown when an outbox entry is not found
var ErrOutboxEntryNotFound = fmt.Errorf("%w: outbox entry", ErrNotFound)

// ErrObjectNotFound is an error thrown when the storage has no such object
var ErrObjectNotFound = fmt.Errorf("%w: object", ErrNotFound)

// ErrVersionConflict is an error thrown when the stored version differs from the expected one
var ErrVersionConflict = fmt.Errorf("%w: version mismatch", ErrConflict)

// ErrInvalidStateTransition is an error thrown when a transition is not allowed from the current status
var ErrInvalidStateTransition = fmt.Errorf("%w: invalid state transition", ErrConflict)

// ErrDuplicatePart is an error thrown when a part number is re-submitted with a different ETag
var ErrDuplicatePart = fmt.Errorf("%w: duplicate part", ErrConflict)

// ErrIdempotencyKeyExists is an error thrown when the idempotency key is already bound to a session
var ErrIdempotencyKeyExists = fmt.Errorf("%w: idempotency key already used", ErrConflict)

// ErrPartOutOfRange is an error thrown when a part number is outside [1, totalParts]
var ErrPartOutOfRange = fmt.Errorf("%w: part number out of range", ErrValidation)

// ErrIncompleteParts is an error thrown when the parts do not cover 1..totalParts
var ErrIncompleteParts = fmt.Errorf("%w: parts incomplete", ErrValidation)

// ErrMismatchETag is an error thrown when the confirmed ETag is missing or does not match
var ErrMismatchETag = fmt.Errorf("%w: mismatched ETag", ErrValidation)

// ErrSizeMismatch is an error thrown when sizes mismatch
var ErrSizeMismatch = fmt.Errorf("%w: size mismatch", ErrValidation)

// ErrFileSizeTooBig is an error thrown when file size is too big
var ErrFileSizeTooBig = fmt.Errorf("%w: file size too big", ErrValidation)

// ErrFileSizeTooSmall is an error thrown when file size is too small
var ErrFileSizeTooSmall = fmt.Errorf("%w: file size too small", ErrValidation)

// ErrSessionMatching is an error thrown when a storage notification cannot be tied to a session
var ErrSessionMatching = fmt.Errorf("%w: notification does not match a session", ErrValidation)

// ErrNotMultipart is an error thrown when a multipart operation targets a single session
var ErrNotMultipart = fmt.Errorf("%w: session is not multipart", ErrValidation)

// ErrInvalidSourceURL is an error thrown when a download source is not an http(s) URL
var ErrInvalidSourceURL = fmt.Errorf("%w: invalid source url", ErrValidation)
