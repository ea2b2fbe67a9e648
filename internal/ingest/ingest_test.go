package ingest

import (
	"bytes"
	"testing"

	apperrors "cvstudio/internal/errors"
)

func TestClassifyTextFile(t *testing.T) {
	in, err := Classify("notes.txt", []byte("I worked at Acme"))
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if in.Attachment != nil {
		t.Errorf("text file should not produce an attachment")
	}
	if in.Text != "I worked at Acme" {
		t.Errorf("text = %q", in.Text)
	}
}

func TestClassifyPDFBecomesAttachment(t *testing.T) {
	data := []byte("%PDF-1.7 fake")
	in, err := Classify("resume.pdf", data)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if in.Attachment == nil {
		t.Fatal("pdf should produce an attachment")
	}
	if in.Attachment.MIMEType != "application/pdf" {
		t.Errorf("mime = %q", in.Attachment.MIMEType)
	}
	if !bytes.Equal(in.Attachment.Bytes, data) {
		t.Errorf("attachment bytes were altered")
	}
}

func TestClassifyImage(t *testing.T) {
	for _, name := range []string{"scan.jpg", "scan.jpeg", "scan.png", "scan.webp"} {
		in, err := Classify(name, []byte{0xff, 0xd8, 0xff})
		if err != nil {
			t.Fatalf("Classify(%s) returned error: %v", name, err)
		}
		if in.Attachment == nil {
			t.Errorf("Classify(%s) should produce an attachment", name)
		}
	}
}

func TestClassifyRejectsUnknownBinary(t *testing.T) {
	_, err := Classify("tool.exe", []byte{0x4d, 0x5a, 0x00})
	if !apperrors.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestClassifyRejectsEmptyAndOversized(t *testing.T) {
	if _, err := Classify("empty.txt", nil); !apperrors.IsValidation(err) {
		t.Errorf("empty file: want validation error, got %v", err)
	}
	big := make([]byte, MaxFileSize+1)
	if _, err := Classify("big.txt", big); !apperrors.IsValidation(err) {
		t.Errorf("oversized file: want validation error, got %v", err)
	}
}

func TestClassifyRejectsBinaryWithTextExtension(t *testing.T) {
	_, err := Classify("sneaky.txt", []byte{0xff, 0xfe, 0x00, 0x01})
	if !apperrors.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestClassifyAllFailsFast(t *testing.T) {
	files := []File{
		{Name: "a.txt", Data: []byte("fine")},
		{Name: "b.hack", Data: []byte{0x00}},
	}
	_, err := ClassifyAll(files)
	if err == nil {
		t.Fatal("batch with an invalid file should fail before any turn runs")
	}
}

func TestClassifyAllKeepsDuplicateFilenames(t *testing.T) {
	files := []File{
		{Name: "notes.txt", Data: []byte("first upload")},
		{Name: "notes.txt", Data: []byte("second upload")},
	}
	inputs, err := ClassifyAll(files)
	if err != nil {
		t.Fatalf("ClassifyAll returned error: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("got %d inputs, want 2", len(inputs))
	}
	if inputs[0].Text != "first upload" || inputs[1].Text != "second upload" {
		t.Errorf("duplicate filenames must keep both payloads, got %q and %q",
			inputs[0].Text, inputs[1].Text)
	}
}

func TestDetectMIMEType(t *testing.T) {
	cases := map[string]string{
		"a.pdf":   "application/pdf",
		"a.PNG":   "image/png",
		"a.md":    "text/markdown",
		"mystery": "application/octet-stream",
	}
	for name, want := range cases {
		if got := DetectMIMEType(name); got != want {
			t.Errorf("DetectMIMEType(%s) = %q, want %q", name, got, want)
		}
	}
}
