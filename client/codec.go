package client

import "strings"

// AttachmentDelimiter is the legacy separator the backend uses to pack many
// attachment URLs into the single url_archivo string field.
const AttachmentDelimiter = "|||"

// EncodeAttachments packs an ordered URL list into the legacy wire string:
// zero URLs -> "", one URL -> the bare URL, otherwise delimiter-joined.
func EncodeAttachments(urls []string) string {
	return strings.Join(urls, AttachmentDelimiter)
}

// DecodeAttachments reverses EncodeAttachments preserving order.
func DecodeAttachments(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, AttachmentDelimiter)
}
