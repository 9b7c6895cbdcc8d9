package llm

import (
	ai "github.com/spetersoncode/perpetual"
)

const ellipsis = "…"

// Fit returns the longest suffix of messages that fits in budget tokens next
// to the given tools. Leading system messages are kept whenever they fit on
// their own. The oldest surviving message may have its content cut from the
// left, marked with an ellipsis, to use the remaining room.
func Fit(tok Tokenizer, messages []ai.Message, tools []ai.ToolDef, budget int) ([]ai.Message, error) {
	fixed := replyPriming + CountTools(tok, tools)

	pinned := 0
	pinnedTokens := 0
	for pinned < len(messages) && messages[pinned].Role == ai.RoleSystem {
		pinnedTokens += CountMessage(tok, messages[pinned])
		pinned++
	}
	if pinned == len(messages) || fixed+pinnedTokens > budget {
		pinned, pinnedTokens = 0, 0
	}

	remaining := budget - fixed - pinnedTokens
	var kept []ai.Message
	for i := len(messages) - 1; i >= pinned; i-- {
		m := messages[i]
		n := CountMessage(tok, m)
		if n <= remaining {
			kept = append(kept, m)
			remaining -= n
			continue
		}
		if cut, ok := truncateLeft(tok, m, remaining); ok {
			kept = append(kept, cut)
		}
		break
	}

	if len(kept) == 0 && len(messages) > 0 {
		return nil, &BudgetError{Budget: budget, Needed: fixed + pinnedTokens + CountMessage(tok, messages[len(messages)-1])}
	}

	result := make([]ai.Message, 0, pinned+len(kept))
	result = append(result, messages[:pinned]...)
	for i := len(kept) - 1; i >= 0; i-- {
		result = append(result, kept[i])
	}
	return result, nil
}

// truncateLeft shortens m's content from the left until the message fits in
// room tokens. It fails when the message cannot fit even with one content
// token left.
func truncateLeft(tok Tokenizer, m ai.Message, room int) (ai.Message, bool) {
	if m.Content == "" {
		return m, false
	}
	overhead := CountMessage(tok, m) - tok.Count(m.Content)
	keep := room - overhead - tok.Count(ellipsis)
	for keep > 0 {
		cut := m
		cut.Content = ellipsis + tok.Tail(m.Content, keep)
		n := CountMessage(tok, cut)
		if n <= room {
			return cut, true
		}
		keep -= max(1, n-room)
	}
	return m, false
}
