package anthropic

import (
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	ai "github.com/spetersoncode/perpetual"
)

// wrapError categorizes Anthropic API errors, including 529 overloaded as
// transient. Transport errors pass through for the retry heuristics.
func wrapError(err error) error {
	var apiErr *anthropic.Error
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	var header http.Header
	if apiErr.Response != nil {
		header = apiErr.Response.Header
	}
	return ai.NewStatusError("anthropic", apiErr.StatusCode, ai.RetryAfterHeader(header), err)
}
