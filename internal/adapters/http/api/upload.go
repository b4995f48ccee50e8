package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/okian/mmo/internal/domain/dataset"
)

// multipartOverhead leaves room for boundaries and headers around the file.
const multipartOverhead = 64 << 10

// readUpload returns the uploaded file name and content. Multipart bodies
// carry the file in the "file" field; a text/csv body is the file itself.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return "", nil, uploadError(err)
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "upload.csv"
		}
		return name, data, nil
	}

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return "", nil, uploadError(err)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return "", nil, ErrMissingFile
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, uploadError(err)
	}
	return hdr.Filename, data, nil
}

func uploadError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return fmt.Errorf("%w: %w", dataset.ErrParse, dataset.ErrTooLarge)
	}
	return fmt.Errorf("%w: %w", ErrBadRequest, err)
}

// writeUploadFailure answers a readUpload error.
func writeUploadFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dataset.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "parse_error", err)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", err)
	}
}
