package descriptor

import (
	"regexp"
	"strings"
)

var topLevelDef = regexp.MustCompile(`(?m)^def[ \t]+([A-Za-z_][A-Za-z0-9_]*)[ \t]*\(`)

// rawParam is one parameter as written in the signature.
type rawParam struct {
	name       string
	annotation string
	def        string
	hasDefault bool
}

// header is the located function header of a tool source.
type header struct {
	name       string
	signature  string // parenthesized parameter list, verbatim
	returns    string // return annotation, if any
	params     []rawParam
	execSource string // source with annotations removed
}

// parseHeader finds the single top-level def and splits its signature.
// Annotations are not Starlark syntax, so they are cut out here and the
// rewritten source is what gets compiled.
func parseHeader(src string) (*header, error) {
	matches := topLevelDef.FindAllStringSubmatchIndex(src, -1)
	switch len(matches) {
	case 0:
		return nil, newError(KindNoFunction, "", "source defines no top-level function")
	case 1:
	default:
		return nil, newError(KindMultipleFunctions, "", "source defines %d top-level functions, want exactly one", len(matches))
	}

	m := matches[0]
	name := src[m[2]:m[3]]
	open := m[1] - 1
	rparen := matchingParen(src, open)
	if rparen < 0 {
		return nil, newError(KindSyntax, "", "unbalanced parentheses in signature of %s", name)
	}

	colon := scanUntil(src, rparen+1, ':')
	if colon < 0 {
		return nil, newError(KindSyntax, "", "missing ':' after signature of %s", name)
	}
	returns := ""
	if tail := strings.TrimSpace(src[rparen+1 : colon]); tail != "" {
		if !strings.HasPrefix(tail, "->") {
			return nil, newError(KindSyntax, "", "unexpected %q after signature of %s", tail, name)
		}
		returns = strings.TrimSpace(strings.TrimPrefix(tail, "->"))
	}

	params, err := splitParams(src[open+1 : rparen])
	if err != nil {
		return nil, err
	}

	stripped := make([]string, len(params))
	for i, p := range params {
		stripped[i] = p.name
		if p.hasDefault {
			stripped[i] += "=" + p.def
		}
	}
	execSource := src[:m[0]] + "def " + name + "(" + strings.Join(stripped, ", ") + "):" + src[colon+1:]

	return &header{
		name:       name,
		signature:  src[open : rparen+1],
		returns:    returns,
		params:     params,
		execSource: execSource,
	}, nil
}

func splitParams(list string) ([]rawParam, error) {
	var params []rawParam
	for _, piece := range splitTopLevel(list, ',') {
		piece = strings.TrimSpace(stripComments(piece))
		if piece == "" {
			continue
		}
		if strings.HasPrefix(piece, "*") || piece == "/" {
			return nil, newError(KindUnsupportedParam, piece, "variadic, keyword-only and positional-only markers are not supported")
		}

		var p rawParam
		rest := piece
		if eq := scanUntil(rest, 0, '='); eq >= 0 {
			p.def = strings.TrimSpace(rest[eq+1:])
			p.hasDefault = true
			rest = rest[:eq]
		}
		if colon := scanUntil(rest, 0, ':'); colon >= 0 {
			p.annotation = strings.TrimSpace(rest[colon+1:])
			rest = rest[:colon]
		}
		p.name = strings.TrimSpace(rest)
		if !isIdent(p.name) {
			return nil, newError(KindSyntax, p.name, "invalid parameter name")
		}
		if p.hasDefault && p.def == "" {
			return nil, newError(KindInvalidDefault, p.name, "empty default value")
		}
		params = append(params, p)
	}
	return params, nil
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func isIdent(s string) bool { return identRe.MatchString(s) }

// matchingParen returns the index of the ')' closing the '(' at open,
// skipping string literals and nested brackets.
func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch c := s[i]; c {
		case '\'', '"':
			i = skipString(s, i)
			if i < 0 {
				return -1
			}
		case '#':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				if c != ')' {
					return -1
				}
				return i
			}
		}
	}
	return -1
}

// scanUntil returns the index of the first target byte at bracket depth 0
// outside string literals, starting at from. A '=' that belongs to a
// comparison operator does not count.
func scanUntil(s string, from int, target byte) int {
	depth := 0
	for i := from; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\'', '"':
			i = skipString(s, i)
			if i < 0 {
				return -1
			}
			continue
		case '(', '[', '{':
			depth++
			continue
		case ')', ']', '}':
			depth--
			continue
		}
		if depth != 0 || c != target {
			continue
		}
		if target == '=' {
			if i+1 < len(s) && s[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && strings.ContainsRune("=!<>", rune(s[i-1])) {
				continue
			}
		}
		return i
	}
	return -1
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	for {
		i := scanUntil(s, 0, sep)
		if i < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:i])
		s = s[i+1:]
	}
}

// skipString returns the index of the last byte of the string literal that
// starts at i, handling triple quotes and escapes.
func skipString(s string, i int) int {
	quote := s[i]
	triple := strings.HasPrefix(s[i:], strings.Repeat(string(quote), 3))
	if triple {
		end := strings.Index(s[i+3:], strings.Repeat(string(quote), 3))
		if end < 0 {
			return -1
		}
		return i + 3 + end + 2
	}
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j
		case '\n':
			return -1
		}
	}
	return -1
}

func stripComments(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if i := scanUntil(line, 0, '#'); i >= 0 {
			line = line[:i]
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
