package dropbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/flogger/internal/common"
	"golang.org/x/oauth2"
)

type apiError struct {
	ErrorSummary string `json:"error_summary"`
}

// mapStatus turns a non-2xx response into a sentinel-wrapping error.
//
//	401                           -> common.ErrorUnauthorized
//	409 .../not_found/...         -> common.ErrorNotFound
//	409 .../conflict/... and rest -> *common.ConflictError
//	429, 5xx                      -> common.ErrUnavailable
func mapStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var ae apiError
	_ = json.Unmarshal(body, &ae)
	summary := ae.ErrorSummary
	if summary == "" {
		summary = strings.TrimSpace(string(body))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", common.ErrorUnauthorized, summary)
	case resp.StatusCode == http.StatusConflict:
		if strings.Contains(summary, "not_found") {
			return fmt.Errorf("%w: %s", common.ErrorNotFound, summary)
		}
		return &common.ConflictError{Message: summary}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: http %d: %s", common.ErrUnavailable, resp.StatusCode, summary)
	}
	return fmt.Errorf("dropbox: http %d: %s", resp.StatusCode, summary)
}

// mapTransportError classifies errors returned by http.Client.Do. A missing
// token surfaces here as common.ErrorUnauthorized, a failed token refresh as
// *oauth2.RetrieveError.
func mapTransportError(err error) error {
	if errors.Is(err, common.ErrorUnauthorized) {
		return err
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	if strings.Contains(err.Error(), "oauth2: token expired and refresh token is not set") {
		return fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
	}
	return unavailable(err)
}

func unavailable(err error) error {
	if errors.Is(err, common.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
}

// withConflictPath fills in the path of a *common.ConflictError in err.
func withConflictPath(err error, path, rev string) error {
	var ce *common.ConflictError
	if errors.As(err, &ce) && ce.Path == "" {
		ce.Path = path
		ce.Revision = rev
	}
	return err
}
