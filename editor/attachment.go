package editor

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"
)

// AttachmentBuffer holds one uploaded attachment payload of one edit session
//
// A buffer is never reused: the edit controller replaces it whenever the form is cleared,
// a record is selected, or a save or cancel completes.
type AttachmentBuffer struct {
	limit    int
	mimeType string
	payload  bytes.Buffer
	received bool
}

/*
NewAttachmentBuffer define a new attachment buffer

	@param limit int - the maximum payload size in bytes
	@returns new buffer
*/
func NewAttachmentBuffer(limit int) *AttachmentBuffer {
	return &AttachmentBuffer{limit: limit}
}

// Write append to the payload, failing once the size limit is exceeded
func (b *AttachmentBuffer) Write(p []byte) (int, error) {
	if b.payload.Len()+len(p) > b.limit {
		return 0, fmt.Errorf(
			"payload would grow past %d bytes [%w]", b.limit, ErrAttachmentTooLarge,
		)
	}
	b.received = true
	return b.payload.Write(p)
}

/*
Receive replace the payload with one uploaded image

	@param mimeType string - the declared content type of the upload
	@param src io.Reader - the upload content
*/
func (b *AttachmentBuffer) Receive(mimeType string, src io.Reader) error {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return fmt.Errorf("upload of type '%s' refused [%w]", mimeType, ErrAttachmentNotImage)
	}

	b.Reset()
	// One byte past the limit is enough to detect an oversized upload
	if _, err := io.Copy(b, io.LimitReader(src, int64(b.limit)+1)); err != nil {
		b.Reset()
		return fmt.Errorf("failed to read upload [%w]", err)
	}
	if b.payload.Len() == 0 {
		b.Reset()
		return fmt.Errorf("upload of type '%s' [%w]", mimeType, ErrAttachmentEmpty)
	}
	b.mimeType = mediaType
	b.received = true
	return nil
}

// Bytes copy of the payload, nil if nothing was received
func (b *AttachmentBuffer) Bytes() []byte {
	if !b.received {
		return nil
	}
	return append([]byte{}, b.payload.Bytes()...)
}

// Len the payload size
func (b *AttachmentBuffer) Len() int {
	return b.payload.Len()
}

// Received whether a payload has been received
func (b *AttachmentBuffer) Received() bool {
	return b.received
}

// MIMEType media type of the received upload
func (b *AttachmentBuffer) MIMEType() string {
	return b.mimeType
}

// Limit the maximum payload size
func (b *AttachmentBuffer) Limit() int {
	return b.limit
}

// Reset drop the payload
func (b *AttachmentBuffer) Reset() {
	b.payload.Reset()
	b.mimeType = ""
	b.received = false
}
