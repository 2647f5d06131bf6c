package services

import "testing"

func TestSanitizeFilename(t *testing.T) {
	got := sanitizeFilename("../foo\\bar.txt")
	if got != "bar.txt" {
		t.Fatalf("expected bar.txt, got %s", got)
	}
}

func TestIsFileExtensionAllowed(t *testing.T) {
	allowed := []string{".jpg", ".png"}
	if !isFileExtensionAllowed("a.JPG", allowed) {
		t.Fatalf("expected JPG to be allowed")
	}
	if isFileExtensionAllowed("a.exe", allowed) {
		t.Fatalf("expected EXE to be blocked")
	}
	if !isFileExtensionAllowed("anything.bin", nil) {
		t.Fatalf("empty list must allow everything")
	}
	if !isFileExtensionAllowed("a.exe", []string{"*"}) {
		t.Fatalf("wildcard must allow everything")
	}
}

func TestGetMimeType(t *testing.T) {
	if got := getMimeType(".PNG"); got != "image/png" {
		t.Fatalf("expected image/png, got %s", got)
	}
	if got := getMimeType(".unknown"); got != "application/octet-stream" {
		t.Fatalf("expected fallback mime type, got %s", got)
	}
}

func TestIsImageFile(t *testing.T) {
	if !isImageFile("photo.JPEG") {
		t.Fatalf("expected JPEG to be an image")
	}
	if isImageFile("doc.pdf") {
		t.Fatalf("expected pdf to not be an image")
	}
}
