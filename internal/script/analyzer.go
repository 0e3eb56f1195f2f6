// Package script statically analyzes the restricted scripting sublanguage
// embedded in script steps. The scan is lexical: string literals and
// comments are blanked out, then lines are inspected for the five bounded
// properties the compliance rules require. There is deliberately no full
// grammar here; constructs disguised through obscure syntax are an
// accepted blind spot, but false positives inside strings are not.
package script

import (
	"strings"
	"unicode"

	"github.com/compoundkit/compoundc/pkg/schema"
)

// MaxScriptBytes is the encoded size ceiling for script code.
const MaxScriptBytes = 4096

// Analyze checks code and returns diagnostics anchored at path
// (e.g. "steps[2].script.code"). It never evaluates the script.
func Analyze(code, path string) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	if len(code) > MaxScriptBytes {
		result.AddErrorf(path, schema.DiagScriptTooLarge,
			"script is %d bytes; the limit is %d", len(code), MaxScriptBytes)
	}

	stripped := blankLiterals(code)
	lines := strings.Split(stripped, "\n")

	sawReturn := false
	sawTopLevelReturn := false
	topLevelReturnBare := false

	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		fields := strings.Fields(trimmed)
		head := fields[0]

		switch head {
		case "import":
			result.AddErrorf(path, schema.DiagScriptImportForbidden,
				"line %d: import statements are not allowed", lineNo)
		case "from":
			if len(fields) >= 3 && fields[2] == "import" {
				result.AddErrorf(path, schema.DiagScriptImportForbidden,
					"line %d: import statements are not allowed", lineNo)
			}
		case "class":
			result.AddErrorf(path, schema.DiagScriptClassForbidden,
				"line %d: class definitions are not allowed", lineNo)
		case "def":
			if len(fields) >= 2 && strings.HasPrefix(fields[1], "_") {
				result.AddErrorf(path, schema.DiagScriptPrivateMemberForbidden,
					"line %d: definition of privately-named %q is not allowed", lineNo, defName(fields[1]))
			}
		case "return":
			sawReturn = true
			if line == trimmed { // no indentation: top-level statement
				sawTopLevelReturn = true
				topLevelReturnBare = len(fields) == 1
			}
		}

		if head != "return" && hasReturnToken(trimmed) {
			// return as a non-leading token (e.g. "if x: return y")
			// or glued to its value ("return{}").
			sawReturn = true
			if line == trimmed && strings.HasPrefix(trimmed, "return") && !isIdentByte(trimmed[len("return")]) {
				sawTopLevelReturn = true
			}
		}

		scanPrivateAccess(trimmed, lineNo, path, result)
	}

	switch {
	case !sawReturn:
		result.AddError(path, schema.DiagScriptMissingReturn,
			"script has no return statement; the last reachable statement must return a value")
	case !sawTopLevelReturn:
		// Returns exist but only inside nested blocks; proving every
		// path returns is beyond this analyzer, so warn rather than err.
		result.AddWarning(path, schema.DiagScriptMissingReturn,
			"script only returns inside conditional blocks; some control-flow paths may not return a value")
	case topLevelReturnBare:
		result.AddWarning(path, schema.DiagScriptMissingReturn,
			"top-level return carries no value")
	}

	return result
}

// scanPrivateAccess flags attribute accesses of the form x._name.
func scanPrivateAccess(line string, lineNo int, path string, result *schema.ValidationResult) {
	for i := 0; i+1 < len(line); i++ {
		if line[i] != '.' || line[i+1] != '_' {
			continue
		}
		// A leading digit before the dot would be a float literal, and
		// "._" cannot follow one anyway; just extract the identifier.
		end := i + 1
		for end < len(line) && isIdentByte(line[end]) {
			end++
		}
		result.AddErrorf(path, schema.DiagScriptPrivateMemberForbidden,
			"line %d: access to privately-named member %q is not allowed", lineNo, line[i+1:end])
		i = end - 1
	}
}

// hasReturnToken reports whether line contains "return" as a whole word.
func hasReturnToken(line string) bool {
	idx := 0
	for {
		rel := strings.Index(line[idx:], "return")
		if rel < 0 {
			return false
		}
		start := idx + rel
		end := start + len("return")
		beforeOK := start == 0 || !isIdentByte(line[start-1])
		afterOK := end == len(line) || !isIdentByte(line[end])
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

// defName trims a trailing parameter list from a def name token.
func defName(tok string) string {
	if p := strings.IndexByte(tok, '('); p >= 0 {
		return tok[:p]
	}
	return tok
}

func isIdentByte(b byte) bool {
	return b == '_' || unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
}

// blankLiterals replaces string-literal contents and comments with spaces,
// preserving line structure so diagnostics keep their line numbers.
// Handles single- and double-quoted strings, backslash escapes, and
// triple-quoted multi-line strings.
func blankLiterals(code string) string {
	out := []byte(code)
	i := 0
	for i < len(out) {
		c := out[i]
		switch c {
		case '#':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case '\'', '"':
			i = blankString(out, i)
		default:
			i++
		}
	}
	return string(out)
}

// blankString blanks one string literal starting at i, returning the index
// just past it. The opening and closing quotes are blanked too.
func blankString(out []byte, i int) int {
	quote := out[i]
	triple := i+2 < len(out) && out[i+1] == quote && out[i+2] == quote
	if triple {
		out[i], out[i+1], out[i+2] = ' ', ' ', ' '
		i += 3
		for i < len(out) {
			if out[i] == quote && i+2 < len(out) && out[i+1] == quote && out[i+2] == quote {
				out[i], out[i+1], out[i+2] = ' ', ' ', ' '
				return i + 3
			}
			if out[i] != '\n' {
				out[i] = ' '
			}
			i++
		}
		return i
	}

	out[i] = ' '
	i++
	for i < len(out) {
		switch out[i] {
		case '\\':
			out[i] = ' '
			if i+1 < len(out) {
				out[i+1] = ' '
				i += 2
				continue
			}
			i++
		case quote:
			out[i] = ' '
			return i + 1
		case '\n':
			return i + 1 // unterminated single-line string
		default:
			out[i] = ' '
			i++
		}
	}
	return i
}
