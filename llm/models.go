package llm

import (
	"sort"
	"strings"

	ai "github.com/spetersoncode/perpetual"
)

// ModelInfo describes a chat model the client can route to.
type ModelInfo struct {
	ID           string
	Provider     ai.Provider
	ContextLimit int
}

type modelFamily struct {
	prefix   string
	provider ai.Provider
	limit    int
}

// Longest prefix wins, so specific entries may shadow family defaults.
var modelFamilies = []modelFamily{
	{"gpt-4o", ai.ProviderOpenAI, 128000},
	{"gpt-4.1", ai.ProviderOpenAI, 1047576},
	{"gpt-4-turbo", ai.ProviderOpenAI, 128000},
	{"gpt-4-32k", ai.ProviderOpenAI, 32768},
	{"gpt-4", ai.ProviderOpenAI, 8192},
	{"gpt-3.5-turbo", ai.ProviderOpenAI, 16385},
	{"gpt-5", ai.ProviderOpenAI, 400000},
	{"o1", ai.ProviderOpenAI, 200000},
	{"o3", ai.ProviderOpenAI, 200000},
	{"o4", ai.ProviderOpenAI, 200000},
	{"claude-", ai.ProviderAnthropic, 200000},
	{"gemini-1.5", ai.ProviderGoogle, 1048576},
	{"gemini-2", ai.ProviderGoogle, 1048576},
	{"gemini-", ai.ProviderGoogle, 32760},
}

func init() {
	sort.SliceStable(modelFamilies, func(i, j int) bool {
		return len(modelFamilies[i].prefix) > len(modelFamilies[j].prefix)
	})
}

// LookupModel resolves a model identifier to its provider and context limit.
// Entries in overrides replace the built-in limit for an exact model ID.
func LookupModel(id string, overrides map[string]int) (ModelInfo, error) {
	for _, f := range modelFamilies {
		if !strings.HasPrefix(id, f.prefix) {
			continue
		}
		info := ModelInfo{ID: id, Provider: f.provider, ContextLimit: f.limit}
		if limit, ok := overrides[id]; ok && limit > 0 {
			info.ContextLimit = limit
		}
		return info, nil
	}
	return ModelInfo{}, &UnknownModelError{Model: id}
}
