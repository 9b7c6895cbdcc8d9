package agent

import (
	"context"
	"regexp"
	"strings"

	ai "github.com/spetersoncode/perpetual"
)

// maxDirectiveSentences bounds an improved request.
const maxDirectiveSentences = 5

// Improver rewrites a raw request into a more specific directive.
type Improver struct {
	llm  Chatter
	opts []ai.Option
}

// NewImprover creates an improver. opts apply to every chat call.
func NewImprover(llm Chatter, opts ...ai.Option) *Improver {
	return &Improver{llm: llm, opts: opts}
}

// Improve returns the rewritten request: prose without bullet points, at
// most five sentences. An empty reply keeps the request as it is.
func (i *Improver) Improve(ctx context.Context, request string) (string, error) {
	resp, err := i.llm.Chat(ctx, []ai.Message{
		ai.SystemMessage(improverSystem),
		ai.UserMessage(request),
	}, i.opts...)
	if err != nil {
		return "", err
	}
	out := limitSentences(flattenProse(resp.Content), maxDirectiveSentences)
	if out == "" {
		return request, nil
	}
	return out, nil
}

var listMarker = regexp.MustCompile(`^(?:[-*+•]|\d+[.)])\s+`)

// flattenProse joins the lines of text into one paragraph, dropping list
// markers and headings.
func flattenProse(text string) string {
	var parts []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = listMarker.ReplaceAllString(line, "")
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// limitSentences keeps the first n sentences of text.
func limitSentences(text string, n int) string {
	count := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 < len(text) && text[i+1] != ' ' {
				continue
			}
			count++
			if count == n {
				return strings.TrimSpace(text[:i+1])
			}
		}
	}
	return strings.TrimSpace(text)
}
