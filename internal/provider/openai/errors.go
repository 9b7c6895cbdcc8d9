package openai

import (
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	ai "github.com/spetersoncode/perpetual"
)

// wrapError categorizes OpenAI API errors. Transport errors pass through
// for the retry heuristics.
func wrapError(err error) error {
	var apiErr *openai.Error
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	var header http.Header
	if apiErr.Response != nil {
		header = apiErr.Response.Header
	}
	return ai.NewStatusError("openai", apiErr.StatusCode, ai.RetryAfterHeader(header), err)
}
