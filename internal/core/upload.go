// AngelaMos | 2026
// upload.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

// MultipartOverhead is the room left for form fields and part headers on
// top of the largest accepted file.
const MultipartOverhead int64 = 1 << 20

// ParseUpload parses a multipart form without reading more than maxFile
// plus MultipartOverhead bytes of body.
func ParseUpload(w http.ResponseWriter, r *http.Request, maxFile, maxMemory int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFile+MultipartOverhead)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ValidationError(fmt.Sprintf("upload must be at most %d MB", maxFile>>20))
		}
		return NewAppError(ErrInvalidInput, "invalid multipart form", http.StatusBadRequest, "BAD_REQUEST")
	}

	return nil
}
