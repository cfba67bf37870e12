/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Registration and Dispatch Business Logic Errors
const (
	// ErrInvalidCoordinates indicates a latitude/longitude pair outside the valid ranges.
	ErrInvalidCoordinates = 2001

	// ErrMessageTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageTooLong = 2002

	// ErrDuplicateUser indicates that the username being registered already exists.
	ErrDuplicateUser = 2101

	// ErrUnknownUser indicates an identity-binding or position update for a username
	// that was never registered.
	ErrUnknownUser = 2102

	// ErrNoRecipient indicates that dispatch found no connected user to deliver to.
	ErrNoRecipient = 2201

	// ErrProfileNotFound indicates that no stored profile exists for the requested username.
	ErrProfileNotFound = 2301
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStorageFailed indicates that the durable profile store rejected an operation.
	ErrStorageFailed = 5001
)
