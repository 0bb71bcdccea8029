// Package editor - generic master-detail record editor
package editor

import "errors"

var (
	// ErrPageSuperseded a newer page fetch or refresh was issued while this one was in flight
	ErrPageSuperseded = errors.New("page fetch superseded by a newer request")

	// ErrAttachmentTooLarge the uploaded payload exceeds the attachment size limit
	ErrAttachmentTooLarge = errors.New("attachment exceeds size limit")

	// ErrAttachmentEmpty the upload carried no payload
	ErrAttachmentEmpty = errors.New("attachment is empty")

	// ErrAttachmentNotImage the uploaded payload is not an image
	ErrAttachmentNotImage = errors.New("attachment is not an image")

	// ErrAttachmentNotSupported the entity has no attachment field
	ErrAttachmentNotSupported = errors.New("entity does not support attachments")

	// ErrUnknownField the entity has no field of that name
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownLocation the location does not belong to the entity routes
	ErrUnknownLocation = errors.New("unknown location")
)
