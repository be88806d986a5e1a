package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"support-service/internal/models"
)

func TestClassifyPrefersContentType(t *testing.T) {
	fileType, icon := Classify("capture.bin", "image/png")
	assert.Equal(t, models.AttachmentImage, fileType)
	assert.Empty(t, icon)

	fileType, _ = Classify("clip.bin", "video/mp4")
	assert.Equal(t, models.AttachmentVideo, fileType)

	fileType, _ = Classify("note.bin", "audio/ogg")
	assert.Equal(t, models.AttachmentAudio, fileType)
}

func TestClassifyFallsBackToExtension(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":  models.AttachmentImage,
		"photo.webp": models.AttachmentImage,
		"clip.mov":   models.AttachmentVideo,
		"voice.ogg":  models.AttachmentAudio,
		"song.m4a":   models.AttachmentAudio,
	}
	for filename, want := range cases {
		fileType, icon := Classify(filename, "application/octet-stream")
		assert.Equal(t, want, fileType, filename)
		assert.Empty(t, icon, filename)
	}
}

func TestClassifyDocumentIcons(t *testing.T) {
	cases := map[string]string{
		"scan.pdf":    IconPDF,
		"letter.docx": IconWord,
		"sheet.xlsx":  IconExcel,
		"data.csv":    IconGeneric,
		"noext":       IconGeneric,
	}
	for filename, wantIcon := range cases {
		fileType, icon := Classify(filename, "")
		assert.Equal(t, models.AttachmentDocument, fileType, filename)
		assert.Equal(t, wantIcon, icon, filename)
	}
}
