package storage

import (
	"path/filepath"
	"strings"

	"support-service/internal/models"
)

// Document icons keyed by extension.
const (
	IconPDF     = "pdf"
	IconWord    = "word"
	IconExcel   = "excel"
	IconGeneric = "file"
)

// Classify derives the attachment type from the MIME type when one is
// available, falling back to the filename extension. Documents also get
// a display icon keyed by extension.
func Classify(filename, contentType string) (fileType, icon string) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.AttachmentImage, ""
	case strings.HasPrefix(contentType, "video/"):
		return models.AttachmentVideo, ""
	case strings.HasPrefix(contentType, "audio/"):
		return models.AttachmentAudio, ""
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "jpg", "jpeg", "png", "gif", "webp":
		return models.AttachmentImage, ""
	case "mp4", "webm", "mov":
		return models.AttachmentVideo, ""
	case "ogg", "mp3", "m4a", "wav":
		return models.AttachmentAudio, ""
	}
	return models.AttachmentDocument, documentIcon(ext)
}

func documentIcon(ext string) string {
	switch ext {
	case "pdf":
		return IconPDF
	case "doc", "docx":
		return IconWord
	case "xls", "xlsx":
		return IconExcel
	}
	return IconGeneric
}
