// AngelaMos | 2026
// upload.go

package testutil

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

const uploadBoundary = "studentshelf-upload-boundary"

// CountingReader records how many bytes a handler pulled from a request body.
type CountingReader struct {
	r io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.N += int64(n)
	return n, err
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// StreamingUpload builds a multipart body whose file part is size bytes long
// without holding it in memory. It returns the body and its content type.
func StreamingUpload(fields map[string]string, fileField, filename string, size int64) (*CountingReader, string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var head strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&head, "--%s\r\nContent-Disposition: form-data; name=%q\r\n\r\n%s\r\n",
			uploadBoundary, k, fields[k])
	}
	fmt.Fprintf(&head,
		"--%s\r\nContent-Disposition: form-data; name=%q; filename=%q\r\nContent-Type: application/octet-stream\r\n\r\n",
		uploadBoundary, fileField, filename)

	body := io.MultiReader(
		strings.NewReader(head.String()),
		io.LimitReader(zeros{}, size),
		strings.NewReader("\r\n--"+uploadBoundary+"--\r\n"),
	)

	return &CountingReader{r: body}, "multipart/form-data; boundary=" + uploadBoundary
}
