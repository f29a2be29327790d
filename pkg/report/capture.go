package report

import (
	"bytes"
	"fmt"
	"io"
)

// Capture runs fn with a writer backed by an in-memory buffer and returns
// what fn wrote. A panic in fn is returned as an error along with the text
// written up to that point.
func Capture(fn func(w io.Writer) error) (out string, err error) {
	var buf bytes.Buffer

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capture: %v", r)
		}
		out = buf.String()
	}()

	err = fn(&buf)
	return buf.String(), err
}
