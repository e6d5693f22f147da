package services

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

// Course material uploads are PDF only, capped at 20 MB.
const maxUploadBytes = 20 << 20

var pdfMagic = []byte("%PDF-")

type FileService struct {
	storagePath string
}

func NewFileService(storagePath string) *FileService {
	return &FileService{storagePath: storagePath}
}

// SaveUpload validates and stores an uploaded PDF, returning the stored path.
func (s *FileService) SaveUpload(filename string, size int64, r io.Reader) (string, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return "", &ValidationError{Fields: map[string]string{"file": "Only PDF files are accepted"}}
	}
	if size > maxUploadBytes {
		return "", &ValidationError{Fields: map[string]string{"file": "File exceeds the 20 MB limit"}}
	}

	if err := os.MkdirAll(s.storagePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage dir: %w", err)
	}

	dest := filepath.Join(s.storagePath, uuid.New().String()+".pdf")
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	if written > maxUploadBytes {
		os.Remove(dest)
		return "", &ValidationError{Fields: map[string]string{"file": "File exceeds the 20 MB limit"}}
	}

	head := make([]byte, len(pdfMagic))
	if _, err := f.ReadAt(head, 0); err != nil || !bytes.Equal(head, pdfMagic) {
		os.Remove(dest)
		return "", &ValidationError{Fields: map[string]string{"file": "File is not a valid PDF"}}
	}

	return dest, nil
}

// ExtractText pulls the plain text out of a stored PDF for subsection content.
func (s *FileService) ExtractText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	text := normalizeExtractedText(b.String())
	if text == "" {
		return "", fmt.Errorf("no extractable text found in pdf")
	}

	return text, nil
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	buf := bytes.Buffer{}

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}
