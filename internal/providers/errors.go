package providers

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	openai "github.com/meguminnnnnnnnn/go-openai"
)

var (
	statusPattern     = regexp.MustCompile(`(?i)(?:status(?: code)?|http)[ :=]*(\d{3})\b`)
	retryAfterPattern = regexp.MustCompile(`(?i)retry[- ]after[: ]*(\d+)`)
)

// extractErrorMetadata extracts the HTTP status code and Retry-After value
// from an SDK error. Typed SDK errors are used when available; otherwise the
// message is scanned.
func extractErrorMetadata(err error) (int, string) {
	if err == nil {
		return 0, ""
	}

	var httpStatus int
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var anthErr *anthropic.RequestError
	switch {
	case errors.As(err, &apiErr):
		httpStatus = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		httpStatus = reqErr.HTTPStatusCode
	case errors.As(err, &anthErr):
		httpStatus = anthErr.StatusCode
	}

	errStr := err.Error()
	if httpStatus == 0 {
		httpStatus = statusFromMessage(errStr)
	}

	var retryAfter string
	if m := retryAfterPattern.FindStringSubmatch(errStr); len(m) > 1 {
		retryAfter = m[1]
	}
	return httpStatus, retryAfter
}

func statusFromMessage(msg string) int {
	if m := statusPattern.FindStringSubmatch(msg); len(m) > 1 {
		if code, err := strconv.Atoi(m[1]); err == nil {
			return code
		}
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return http.StatusTooManyRequests
	case strings.Contains(lower, "503"):
		return http.StatusServiceUnavailable
	case strings.Contains(lower, "502"):
		return http.StatusBadGateway
	case strings.Contains(lower, "504"):
		return http.StatusGatewayTimeout
	case strings.Contains(lower, "500"):
		return http.StatusInternalServerError
	case strings.Contains(lower, "401"):
		return http.StatusUnauthorized
	case strings.Contains(lower, "403"):
		return http.StatusForbidden
	case strings.Contains(lower, "402"):
		return http.StatusPaymentRequired
	}
	return 0
}
