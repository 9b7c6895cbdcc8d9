package descriptor

import (
	"regexp"
	"strings"
)

// Docstring is a parsed Google-style docstring.
type Docstring struct {
	Short   string
	Long    string
	Args    []DocArg
	Returns string
	Raises  string
	Example string // the ">>> " call with its prompt stripped, continuations joined
}

// DocArg is one entry of the Args section.
type DocArg struct {
	Name        string
	Type        string
	Description string
}

// Description is the short and long descriptions joined by a blank line.
func (d *Docstring) Description() string {
	if d.Long == "" {
		return d.Short
	}
	return d.Short + "\n\n" + d.Long
}

var (
	sectionHeader = regexp.MustCompile(`^([A-Za-z][A-Za-z ]*):\s*$`)
	argEntry      = regexp.MustCompile(`^\*{0,2}([A-Za-z_][A-Za-z0-9_]*)\s*(?:\(([^)]*)\))?\s*:\s*(.*)$`)
)

var sectionAliases = map[string]string{
	"args":       "args",
	"arguments":  "args",
	"parameters": "args",
	"params":     "args",
	"returns":    "returns",
	"return":     "returns",
	"yields":     "returns",
	"raises":     "raises",
	"example":    "example",
	"examples":   "example",
}

// ParseDocstring splits a docstring into its description and sections.
// Unknown sections are kept as part of the long description.
func ParseDocstring(text string) *Docstring {
	lines := strings.Split(cleandoc(text), "\n")
	doc := &Docstring{}

	var (
		section string
		body    []string
		desc    []string
	)
	flush := func() {
		switch section {
		case "":
			desc = append(desc, body...)
		case "args":
			doc.Args = append(doc.Args, parseArgs(body)...)
		case "returns":
			doc.Returns = joinParagraph(body)
		case "raises":
			doc.Raises = joinParagraph(body)
		case "example":
			if doc.Example == "" {
				doc.Example = exampleCall(body)
			}
		}
		body = nil
	}

	for _, line := range lines {
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			if kind, ok := sectionAliases[strings.ToLower(strings.TrimSpace(m[1]))]; ok {
				flush()
				section = kind
				continue
			}
		}
		body = append(body, line)
	}
	flush()

	short, long := splitDescription(desc)
	doc.Short = short
	doc.Long = long
	return doc
}

func splitDescription(lines []string) (string, string) {
	lines = trimBlank(lines)
	if len(lines) == 0 {
		return "", ""
	}
	end := 0
	for end < len(lines) && strings.TrimSpace(lines[end]) != "" {
		end++
	}
	short := joinParagraph(lines[:end])
	long := strings.Join(trimBlank(lines[end:]), "\n")
	return short, long
}

func parseArgs(lines []string) []DocArg {
	indent := -1
	var args []DocArg
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := leadingSpace(line)
		if indent < 0 {
			indent = n
		}
		trimmed := strings.TrimSpace(line)
		if n <= indent {
			if m := argEntry.FindStringSubmatch(trimmed); m != nil {
				args = append(args, DocArg{
					Name:        m[1],
					Type:        strings.TrimSpace(m[2]),
					Description: strings.TrimSpace(m[3]),
				})
				continue
			}
		}
		if len(args) > 0 {
			last := &args[len(args)-1]
			if last.Description == "" {
				last.Description = trimmed
			} else {
				last.Description += " " + trimmed
			}
		}
	}
	return args
}

// exampleCall returns the first ">>> " statement of an Example section with
// any "... " continuation lines appended.
func exampleCall(lines []string) string {
	var call []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case call == nil && strings.HasPrefix(trimmed, ">>>"):
			call = append(call, strings.TrimSpace(strings.TrimPrefix(trimmed, ">>>")))
		case call != nil && strings.HasPrefix(trimmed, "..."):
			call = append(call, strings.TrimSpace(strings.TrimPrefix(trimmed, "...")))
		case call != nil:
			return strings.Join(call, "\n")
		}
	}
	return strings.Join(call, "\n")
}

// cleandoc removes the common indentation of all lines after the first and
// trims leading and trailing blank lines.
func cleandoc(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\t", "    "), "\n")
	margin := -1
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if n := leadingSpace(line); margin < 0 || n < margin {
			margin = n
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Join(trimBlank(lines), "\n")
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func joinParagraph(lines []string) string {
	var words []string
	for _, line := range lines {
		if s := strings.TrimSpace(line); s != "" {
			words = append(words, s)
		}
	}
	return strings.Join(words, " ")
}

func leadingSpace(s string) int {
	return len(s) - len(strings.TrimLeft(s, " "))
}
