package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const sampleDocumentXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t>Software Engineer</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestTextPlainPassthrough(t *testing.T) {
	got, err := Text(context.Background(), []byte("  Jane Doe\nEngineer  "), "text/plain", "resume.txt")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "Jane Doe\nEngineer" {
		t.Fatalf("got %q", got)
	}
}

func TestTextPlainRejectsInvalidUTF8(t *testing.T) {
	if _, err := Text(context.Background(), []byte{0xff, 0xfe, 0xfd}, "text/plain", "resume.txt"); err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
}

func TestTextUnsupportedType(t *testing.T) {
	_, err := Text(context.Background(), []byte{0x01, 0x02}, "image/png", "photo.png")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestTextDOCX(t *testing.T) {
	payload := buildDOCX(t, sampleDocumentXML)

	got, err := Text(context.Background(), payload,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "resume.docx")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	want := "Jane Doe\nSoftware Engineer"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTextDOCXMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("other.xml"); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err := Text(context.Background(), buf.Bytes(),
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "resume.docx")
	if err == nil {
		t.Fatal("expected error for archive without document.xml")
	}
}

func TestTextHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Text(ctx, []byte("text"), "text/plain", "resume.txt"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNormalizeMimeType(t *testing.T) {
	docx := buildDOCX(t, sampleDocumentXML)

	cases := []struct {
		name     string
		mimeType string
		fileName string
		data     []byte
		want     string
	}{
		{"explicit with params", "text/plain; charset=utf-8", "r.txt", []byte("x"), mimeText},
		{"extension pdf", "", "resume.pdf", []byte("x"), mimePDF},
		{"extension markdown", "application/octet-stream", "notes.md", []byte("x"), mimeText},
		{"pdf magic bytes", "", "resume", []byte("%PDF-1.7 rest"), mimePDF},
		{"zip that is docx", "application/zip", "resume", docx, mimeDOCX},
		{"docx sniffed from content", "application/octet-stream", "resume", docx, mimeDOCX},
		{"unknown stays put", "image/png", "photo.png", []byte("x"), "image/png"},
	}
	for _, tc := range cases {
		if got := normalizeMimeType(tc.mimeType, tc.fileName, tc.data); got != tc.want {
			t.Errorf("%s: normalizeMimeType = %q, want %q", tc.name, got, tc.want)
		}
	}
}
