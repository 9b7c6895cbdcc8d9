package google

import (
	"errors"

	ai "github.com/spetersoncode/perpetual"
	"google.golang.org/genai"
)

// wrapError categorizes Gemini API errors. genai.APIError carries no
// headers, so no Retry-After delay is available.
func wrapError(err error) error {
	var apiErr genai.APIError
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	return ai.NewStatusError("google", apiErr.Code, 0, err)
}
