package core

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Hand-rolled multipart/form-data decoding for file-bearing uploads.
// mime/multipart is stream-oriented and swallows framing details we need to
// control (single-attachment slot, permissive part skipping), so parts are
// tokenized at the byte level here instead.

var ErrNoBoundary = errors.New("no boundary found in content type")

type (
	// FileUpload is the single binary attachment of a decoded form.
	FileUpload struct {
		FieldName string
		Filename  string
		Data      []byte
	}

	// FormData maps text field names to their trimmed values, plus at most
	// one file attachment. The first file-bearing part wins; later ones are
	// dropped.
	FormData struct {
		Fields map[string]string
		File   *FileUpload
	}
)

func (fd *FormData) Get(name string) string { return fd.Fields[name] }

// GetInt returns the named field parsed as an int, or `fallback` if the field
// is absent or not numeric.
func (fd *FormData) GetInt(name string, fallback int) int {
	if v, err := strconv.Atoi(fd.Fields[name]); err == nil {
		return v
	}
	return fallback
}

func (fd *FormData) HasFile() bool {
	return fd.File != nil && fd.File.Filename != "" && fd.File.Data != nil
}

// BoundaryFromContentType extracts the boundary token from a
// "multipart/form-data; boundary=..." content type header value.
func BoundaryFromContentType(contentType string) (string, error) {
	for _, part := range strings.Split(contentType, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "boundary=") {
			boundary := strings.TrimPrefix(part, "boundary=")
			if strings.HasPrefix(boundary, `"`) && strings.HasSuffix(boundary, `"`) && len(boundary) >= 2 {
				boundary = boundary[1 : len(boundary)-1]
			}
			if boundary == "" {
				break
			}
			return boundary, nil
		}
	}
	return "", ErrNoBoundary
}

// DecodeFormData splits `body` on the "--boundary" delimiter and decodes each
// part. Malformed parts (no blank-line separator, no Content-Disposition
// name) are skipped without failing the rest of the form. Text field values
// are whitespace-trimmed; file payloads only lose the protocol framing bytes,
// never their own content.
func DecodeFormData(body []byte, boundary string) *FormData {
	fd := &FormData{Fields: make(map[string]string)}

	delim := []byte("--" + boundary)
	for _, part := range bytes.Split(body, delim) {
		trimmed := bytes.TrimSpace(part)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("--")) {
			continue // empty fragment or terminal "--boundary--" marker
		}

		head, content, ok := splitPart(part)
		if !ok {
			continue
		}

		name, filename, isFile := parseDisposition(head)
		if name == "" {
			continue
		}

		if isFile && filename != "" {
			if fd.File == nil { // first file wins
				fd.File = &FileUpload{FieldName: name, Filename: filename, Data: content}
			}
		} else {
			fd.Fields[name] = strings.TrimSpace(string(content))
		}
	}
	return fd
}

// splitPart divides a part into its header block and body at the first blank
// line, then strips the trailing line-break framing from the body. The body
// trimming is byte-exact; file payloads may hold arbitrary binary data.
func splitPart(part []byte) (head, content []byte, ok bool) {
	sep := []byte("\r\n\r\n")
	i := bytes.Index(part, sep)
	if i < 0 {
		sep = []byte("\n\n")
		i = bytes.Index(part, sep)
	}
	if i < 0 {
		return nil, nil, false
	}
	head = part[:i]
	content = part[i+len(sep):]

	// only the line break that frames the next delimiter is protocol bytes;
	// the terminal "--" marker splits into its own fragment and never
	// reaches here, so anything else belongs to the payload
	return head, trimTrailingBreak(content), true
}

func trimTrailingBreak(b []byte) []byte {
	if bytes.HasSuffix(b, []byte("\r\n")) {
		return b[:len(b)-2]
	}
	if bytes.HasSuffix(b, []byte("\n")) {
		return b[:len(b)-1]
	}
	return b
}

// parseDisposition pulls `name` and `filename` out of a part's
// Content-Disposition header. A present filename parameter marks the part as
// a file candidate even when its value is empty.
func parseDisposition(head []byte) (name, filename string, isFile bool) {
	for _, line := range strings.Split(string(head), "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(strings.ToLower(line), "content-disposition:") {
			continue
		}
		disposition := line[len("content-disposition:"):]
		for _, param := range strings.Split(disposition, ";") {
			param = strings.TrimSpace(param)
			switch {
			case strings.HasPrefix(param, "name="):
				name = unquote(strings.TrimPrefix(param, "name="))
			case strings.HasPrefix(param, "filename="):
				filename = unquote(strings.TrimPrefix(param, "filename="))
				isFile = true
			}
		}
	}
	return name, filename, isFile
}

func unquote(v string) string {
	if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) && len(v) >= 2 {
		return v[1 : len(v)-1]
	}
	return v
}
