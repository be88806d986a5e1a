package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Attachment types.
const (
	AttachmentImage    = "image"
	AttachmentVideo    = "video"
	AttachmentAudio    = "audio"
	AttachmentDocument = "document"
)

// ValidAttachmentType reports whether t is one of the enumerated
// attachment types.
func ValidAttachmentType(t string) bool {
	return t == AttachmentImage || t == AttachmentVideo || t == AttachmentAudio || t == AttachmentDocument
}

// Attachment describes one stored media object, embedded by value on a
// request or message. It has no identity of its own; dropping the
// reference is the only deletion path.
type Attachment struct {
	URL          string `json:"url"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name,omitempty"`
	Icon         string `json:"icon,omitempty"`
}

// AttachmentList is stored as a JSONB array, preserving upload order.
type AttachmentList []Attachment

// Value implements driver.Valuer.
func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *AttachmentList) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported attachment list source %T", src)
	}
	return json.Unmarshal(data, a)
}

// URLs returns the storage URLs in upload order.
func (a AttachmentList) URLs() []string {
	urls := make([]string, 0, len(a))
	for _, att := range a {
		urls = append(urls, att.URL)
	}
	return urls
}
