package agent

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	ai "github.com/spetersoncode/perpetual"
	"github.com/spetersoncode/perpetual/index"
	"github.com/spetersoncode/perpetual/tool"
)

// Tools is the registry surface the loop works against. *tool.Registry
// implements it.
type Tools interface {
	Nearest(ctx context.Context, text string, k int) ([]index.Match, error)
	ToolOf(name string) (*tool.Tool, error)
	Catalog() []tool.Entry
	Modules() map[string]string
	InstallTemp(ctx context.Context, source string) (*tool.Tool, error)
	Install(ctx context.Context, source string) (*tool.Tool, error)
}

// Synthesizer asks the model to write a new tool for a step and loads it
// into the registry's temporary slot.
type Synthesizer struct {
	llm   Chatter
	tools Tools
	opts  []ai.Option
}

// NewSynthesizer creates a synthesizer. opts apply to every chat call.
func NewSynthesizer(llm Chatter, tools Tools, opts ...ai.Option) *Synthesizer {
	return &Synthesizer{llm: llm, tools: tools, opts: opts}
}

// Synthesize returns a loaded, not yet installed tool for step.
func (s *Synthesizer) Synthesize(ctx context.Context, step string) (*tool.Tool, error) {
	resp, err := s.llm.Chat(ctx, []ai.Message{
		ai.SystemMessage(fmt.Sprintf(synthesizerSystem, renderModules(s.tools.Modules()))),
		ai.UserMessage(fmt.Sprintf(synthesizerUser, step, renderCatalog(s.tools.Catalog()))),
	}, s.opts...)
	if err != nil {
		return nil, err
	}

	source, err := extractCode(resp.Content)
	if err != nil {
		return nil, err
	}
	t, err := s.tools.InstallTemp(ctx, source)
	if err != nil {
		return nil, &SynthesisError{Reason: "invalid tool", Source: source, Err: err}
	}
	if _, err := s.tools.ToolOf(t.Name); err == nil {
		return nil, &SynthesisError{Reason: fmt.Sprintf("a tool named %s is already installed", t.Name), Source: source}
	} else if !tool.IsNotFound(err) {
		return nil, err
	}
	if strings.HasPrefix(t.Name, "_") {
		return nil, &SynthesisError{Reason: "tool names must not start with an underscore", Source: source}
	}
	if err := t.Descriptor.Validate(t.Descriptor.ExampleArgs); err != nil {
		return nil, &SynthesisError{Reason: "example does not match the signature", Source: source, Err: err}
	}
	return t, nil
}

var fence = regexp.MustCompile("(?s)```[ \t]*([A-Za-z0-9_+-]*)[ \t]*\r?\n(.*?)```")

// extractCode returns the single code block of a reply. A reply without
// fences is accepted when it is nothing but a function definition.
func extractCode(content string) (string, error) {
	var blocks []string
	for _, m := range fence.FindAllStringSubmatch(content, -1) {
		if strings.Contains(m[2], "def ") {
			blocks = append(blocks, m[2])
		}
	}
	switch {
	case len(blocks) == 1:
		return strings.TrimSpace(blocks[0]) + "\n", nil
	case len(blocks) > 1:
		return "", &SynthesisError{Reason: fmt.Sprintf("reply holds %d code blocks", len(blocks))}
	}
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "def ") && !strings.Contains(text, "```") {
		return text + "\n", nil
	}
	return "", &SynthesisError{Reason: "no code block in reply"}
}

func renderCatalog(entries []tool.Entry) string {
	if len(entries) == 0 {
		return "(none)\n"
	}
	var sb strings.Builder
	for _, e := range entries {
		desc, _, _ := strings.Cut(e.Description, "\n")
		fmt.Fprintf(&sb, "- %s: %s\n", e.Name, desc)
	}
	return sb.String()
}

func renderModules(modules map[string]string) string {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "  - %s: %s\n", name, modules[name])
	}
	return strings.TrimRight(sb.String(), "\n")
}
