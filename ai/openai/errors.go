package openai

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"syscall"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/poiesic/vidsearch/ai"
)

// ErrEmptyResponse is returned when the model answers with no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// errStreamStopped is returned from the streaming callback once the
// consumer has stopped reading.
var errStreamStopped = errors.New("stream consumer stopped")

// langchaingo reports HTTP failures only through the error text.
var statusPattern = regexp.MustCompile(`status code:? (\d{3})`)

// IsTransient reports whether err is worth retrying: connection failures,
// timeouts, rate limiting and server-side errors. Cancellation by the
// caller is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ai.ErrTransient) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, errStreamStopped) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *gopenai.RequestError
	if errors.As(err, &reqErr) {
		return transientStatus(reqErr.HTTPStatusCode)
	}

	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return transientStatus(code)
	}
	return false
}

func transientStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}
