package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
)

func TestLargestPhotoSize(t *testing.T) {
	sizes := []tg.PhotoSizeClass{
		&tg.PhotoStrippedSize{Type: "i"},
		&tg.PhotoSize{Type: "m", Size: 10},
		&tg.PhotoSizeProgressive{Type: "y", Sizes: []int{5, 50, 500}},
		&tg.PhotoSize{Type: "x", Size: 100},
	}
	got, ok := largestPhotoSize(sizes)
	if !ok || got != "y" {
		t.Errorf("largestPhotoSize() = %q, %v; want y", got, ok)
	}

	if _, ok := largestPhotoSize([]tg.PhotoSizeClass{&tg.PhotoStrippedSize{Type: "i"}}); ok {
		t.Error("stripped thumbnails are not downloadable")
	}
}

func TestDocumentExt(t *testing.T) {
	tests := []struct {
		doc  *tg.Document
		want string
	}{
		{&tg.Document{Attributes: []tg.DocumentAttributeClass{&tg.DocumentAttributeFilename{FileName: "report.PDF"}}}, ".PDF"},
		{&tg.Document{MimeType: "audio/ogg"}, ".ogg"},
		{&tg.Document{MimeType: "video/mp4"}, ".mp4"},
		{&tg.Document{MimeType: "application/x-tgsticker"}, ".tgs"},
		{&tg.Document{MimeType: "application/x-unknown-thing"}, ".bin"},
	}
	for _, tt := range tests {
		if got := documentExt(tt.doc); got != tt.want {
			t.Errorf("documentExt(%q) = %q, want %q", tt.doc.MimeType, got, tt.want)
		}
	}
}

func TestFileLocation(t *testing.T) {
	photo := &tg.MessageMediaPhoto{Photo: &tg.Photo{
		ID: 1, AccessHash: 2, FileReference: []byte{3},
		Sizes: []tg.PhotoSizeClass{&tg.PhotoSize{Type: "x", Size: 1}},
	}}
	loc, ext, ok := fileLocation(photo)
	if !ok || ext != ".jpg" {
		t.Fatalf("fileLocation(photo) = %v, %q, %v", loc, ext, ok)
	}
	if p, ok := loc.(*tg.InputPhotoFileLocation); !ok || p.ThumbSize != "x" || p.ID != 1 {
		t.Errorf("location = %#v", loc)
	}

	if _, _, ok := fileLocation(&tg.MessageMediaContact{}); ok {
		t.Error("contact has no file")
	}
	if _, _, ok := fileLocation(&tg.MessageMediaDocument{}); ok {
		t.Error("document without body has no file")
	}
}
