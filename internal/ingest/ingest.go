package ingest

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"cvstudio/internal/conversation"
	"cvstudio/internal/errors"
	"cvstudio/internal/types"
)

// MaxFileSize caps a single upload at 10 MiB, matching the server's
// request body limit.
const MaxFileSize = 10 << 20

// textExtensions are handed to the model as plain prompt text
var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".text":     true,
}

// attachmentMIMETypes ride the request as inline binary parts; the model
// endpoint does its own OCR/document understanding on them.
var attachmentMIMETypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
	"image/heif":      true,
}

// Classify turns an uploaded file into a conversation turn input. Text
// files become raw prompt text, PDFs and images become attachments, and
// anything else is rejected up front rather than sent upstream to fail.
func Classify(name string, data []byte) (conversation.FileInput, error) {
	if len(data) == 0 {
		return conversation.FileInput{}, errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("File %s is empty", name), nil)
	}
	if len(data) > MaxFileSize {
		return conversation.FileInput{}, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File %s exceeds the %d byte limit", name, MaxFileSize), nil)
	}

	mimeType := DetectMIMEType(name)

	if attachmentMIMETypes[mimeType] {
		return conversation.FileInput{
			Name: name,
			Text: fmt.Sprintf("Please extract my information from the attached file %s.", name),
			Attachment: &types.Attachment{
				Bytes:    data,
				MIMEType: mimeType,
			},
		}, nil
	}

	ext := strings.ToLower(filepath.Ext(name))
	if textExtensions[ext] || strings.HasPrefix(mimeType, "text/") {
		if !utf8.Valid(data) {
			return conversation.FileInput{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("File %s has a text extension but is not valid UTF-8", name), nil)
		}
		return conversation.FileInput{
			Name: name,
			Text: string(data),
		}, nil
	}

	return conversation.FileInput{}, errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
		fmt.Sprintf("Unsupported file type %q for %s; send text, PDF or an image", mimeType, name), nil)
}

// File is one uploaded file awaiting classification. Batches are ordered
// slices rather than name-keyed maps so two uploads sharing a filename both
// keep their bytes.
type File struct {
	Name string
	Data []byte
}

// ClassifyAll classifies a batch in submission order. Any invalid file fails
// the whole batch before a single model call is made, so partial queues
// never start.
func ClassifyAll(files []File) ([]conversation.FileInput, error) {
	inputs := make([]conversation.FileInput, 0, len(files))
	for _, f := range files {
		in, err := Classify(f.Name, f.Data)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// DetectMIMEType resolves a mime type from the filename extension. The
// stdlib table is consulted first; a small override table keeps behavior
// deterministic across host systems with divergent /etc/mime.types.
func DetectMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".txt", ".text":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		if i := strings.IndexByte(mt, ';'); i > 0 {
			return mt[:i]
		}
		return mt
	}
	return "application/octet-stream"
}
