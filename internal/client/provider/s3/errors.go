package s3

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/dmitrijs2005/flogger/internal/common"
)

// mapError classifies SDK errors by API error code, falling back to the
// HTTP status of the response.
func mapError(err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return fmt.Errorf("%w: %s", common.ErrorNotFound, ae.ErrorMessage())
		case "PreconditionFailed", "ConditionalRequestConflict":
			return &common.ConflictError{Message: ae.ErrorCode() + ": " + ae.ErrorMessage()}
		case "AccessDenied", "InvalidAccessKeyId", "ExpiredToken", "SignatureDoesNotMatch", "InvalidToken":
			return fmt.Errorf("%w: %s", common.ErrorUnauthorized, ae.ErrorCode())
		case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
			return fmt.Errorf("%w: %s", common.ErrUnavailable, ae.ErrorCode())
		}
	}

	var re *smithyhttp.ResponseError
	if errors.As(err, &re) {
		switch status := re.HTTPStatusCode(); {
		case status == http.StatusNotFound:
			return fmt.Errorf("%w: %v", common.ErrorNotFound, err)
		case status == http.StatusPreconditionFailed || status == http.StatusConflict:
			return &common.ConflictError{Message: err.Error()}
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
		case status == http.StatusTooManyRequests || status >= 500:
			return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
		}
		return err
	}

	if ae != nil {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
}

func withConflict(err error, path, rev string) error {
	var ce *common.ConflictError
	if errors.As(err, &ce) {
		ce.Path = path
		ce.Revision = rev
	}
	return err
}
