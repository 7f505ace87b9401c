package youtube

import (
	"errors"
	"fmt"
	"net/http"
)

// UpstreamError is a non-success answer from the API, kept verbatim so it
// can be passed through to the caller.
type UpstreamError struct {
	Endpoint    string
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("youtube: GET %s: upstream status %d", e.Endpoint, e.StatusCode)
}

// Temporary reports whether retrying later may succeed.
func (e *UpstreamError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsPermanent reports whether err is an upstream client error that will
// fail the same way on retry (bad parameters, quota, unknown ids).
func IsPermanent(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return !ue.Temporary()
	}
	return false
}
