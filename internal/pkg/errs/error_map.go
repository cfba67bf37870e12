/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
// A zero Status means the error rides an HTTP 200 response and is distinguished by its code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Registration and Dispatch Business Logic Errors
	ErrInvalidCoordinates: {Code: ErrInvalidCoordinates, Message: "Coordinates are out of range."},
	ErrMessageTooLong:     {Code: ErrMessageTooLong, Message: "Message is too long."},
	ErrDuplicateUser:      {Code: ErrDuplicateUser, Message: "Username is already registered."},
	ErrUnknownUser:        {Code: ErrUnknownUser, Message: "Username is not registered."},
	ErrNoRecipient:        {Code: ErrNoRecipient, Message: "No connected user is available to receive the message."},
	ErrProfileNotFound:    {Code: ErrProfileNotFound, Message: "Profile not found."},

	// 5xxx: Internal System Errors
	ErrUnknown:       {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStorageFailed: {Code: ErrStorageFailed, Message: "Profile storage failed. Please try again."},
}
