package edge

import (
	"strconv"
	"strings"
)

// IsESModule scans source for an export or import keyword (followed by a
// space) at an identifier boundary, skipping string/template literals and
// comments. Nesting depth is not tracked, so a match inside a block counts
// too. It
// is the detector used by the worker loader (SPEC_FULL.md section 4.3 step
// 2) to decide whether Transform must run before evaluation.
func IsESModule(source string) bool {
	i := 0
	n := len(source)
	for i < n {
		c := source[i]
		switch {
		case c == '/' && i+1 < n && source[i+1] == '/':
			i = skipLineComment(source, i)
		case c == '/' && i+1 < n && source[i+1] == '*':
			i = skipBlockComment(source, i)
		case c == '"' || c == '\'' || c == '`':
			i = skipString(source, i)
		default:
			if (hasKeywordAt(source, i, "export") || hasKeywordAt(source, i, "import")) &&
				boundaryBefore(source, i) {
				return true
			}
			i++
		}
	}
	return false
}

// hasKeywordAt reports whether source[i:] begins with kw followed by a
// space (the rules only match "export " / "import ", not identifiers that
// merely start with those letters, e.g. "exportValue").
func hasKeywordAt(source string, i int, kw string) bool {
	end := i + len(kw)
	if end >= len(source) {
		return false
	}
	return source[i:end] == kw && source[end] == ' '
}

// boundaryBefore reports whether the byte preceding index i is not an
// identifier character (or i is the start of the source).
func boundaryBefore(source string, i int) bool {
	if i == 0 {
		return true
	}
	return !isIdentChar(source[i-1])
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// hasKeywordPrefix reports whether s starts with kw at an identifier
// boundary, i.e. kw is not immediately followed by another identifier
// character (so "export default" matches but "export defaultThing" does
// not, the same boundary rule IsESModule applies at statement position).
func hasKeywordPrefix(s, kw string) bool {
	if !strings.HasPrefix(s, kw) {
		return false
	}
	return len(s) == len(kw) || !isIdentChar(s[len(kw)])
}

// skipLineComment returns the index just past the end of a "//" comment.
func skipLineComment(source string, i int) int {
	for i < len(source) && source[i] != '\n' {
		i++
	}
	return i
}

// skipBlockComment returns the index just past a "/* ... */" comment.
func skipBlockComment(source string, i int) int {
	i += 2
	for i+1 < len(source) {
		if source[i] == '*' && source[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(source)
}

// skipString returns the index just past a quoted string or template
// literal starting at i, honoring backslash escapes.
func skipString(source string, i int) int {
	quote := source[i]
	i++
	for i < len(source) {
		if source[i] == '\\' {
			i += 2
			continue
		}
		if source[i] == quote {
			return i + 1
		}
		i++
	}
	return len(source)
}

// Transform rewrites ES-module import/export forms in source into a
// CommonJS-equivalent buffer, per SPEC_FULL.md section 4.2. It is a
// single-pass, non-parser, line-oriented scanner: only lines whose
// whitespace-stripped prefix matches one of the five recognized forms are
// rewritten; every other line is copied through unchanged. Each line is
// matched on its own, so a line inside a multi-line comment or template
// literal that begins with one of the forms is rewritten as well.
func Transform(source string) string {
	var out strings.Builder
	lines := splitKeepingTerminators(source)

	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimLeft(stripTerminator(line), " \t")

		switch {
		case hasKeywordPrefix(trimmed, "export default"):
			rest := trimmed[len("export default"):]
			out.WriteString("module.exports =")
			out.WriteString(rest)
			out.WriteString(terminatorOf(line))
			i++

		case strings.HasPrefix(trimmed, "export {"):
			full, consumed := collectStatement(lines, i)
			writeExportList(&out, full)
			i += consumed

		case strings.HasPrefix(trimmed, "import "):
			full, consumed := collectImportStatement(lines, i)
			writeImport(&out, full)
			i += consumed

		case strings.HasPrefix(trimmed, "export const ") ||
			strings.HasPrefix(trimmed, "export let ") ||
			strings.HasPrefix(trimmed, "export var "):
			full, consumed := collectStatement(lines, i)
			writeExportedDecl(&out, full, "export ")
			i += consumed

		case strings.HasPrefix(trimmed, "export function ") ||
			strings.HasPrefix(trimmed, "export class ") ||
			strings.HasPrefix(trimmed, "export async function "):
			full, consumed := collectBlockDecl(lines, i)
			writeExportedBlock(&out, full)
			i += consumed

		default:
			out.WriteString(line)
			i++
		}
	}

	return out.String()
}

// splitKeepingTerminators splits source into lines, each still carrying its
// trailing "\n" (or "\r\n") so the original byte sequence can be
// reconstructed verbatim for untouched lines.
func splitKeepingTerminators(source string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			lines = append(lines, source[start:i+1])
			start = i + 1
		}
	}
	if start < len(source) {
		lines = append(lines, source[start:])
	}
	return lines
}

func stripTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line
}

func terminatorOf(line string) string {
	return line[len(stripTerminator(line)):]
}

// collectStatement gathers lines starting at i until the statement-end
// scanner (semicolon or a newline not followed by a continuation token, at
// brace/paren depth 0, outside strings) finds the end. Returns the
// collected text and the number of lines consumed.
func collectStatement(lines []string, i int) (string, int) {
	var buf strings.Builder
	depth := 0
	j := i
	for j < len(lines) {
		line := lines[j]
		body := stripTerminator(line)
		k := 0
		for k < len(body) {
			c := body[k]
			switch c {
			case '"', '\'', '`':
				end := skipString(body, k)
				buf.WriteString(body[k:end])
				k = end
				continue
			case '{', '(', '[':
				depth++
			case '}', ')', ']':
				depth--
			case ';':
				if depth == 0 {
					buf.WriteByte(';')
					return buf.String(), j - i + 1
				}
			}
			buf.WriteByte(c)
			k++
		}
		buf.WriteString(terminatorOf(line))
		if depth == 0 && !continuesOnNextLine(lines, j+1) {
			return buf.String(), j - i + 1
		}
		j++
	}
	return buf.String(), j - i
}

// continuesOnNextLine reports whether the next line begins with a
// continuation token (one of .+-*/?:), meaning the statement the scanner
// is collecting is not actually finished.
func continuesOnNextLine(lines []string, i int) bool {
	if i >= len(lines) {
		return false
	}
	next := strings.TrimLeft(stripTerminator(lines[i]), " \t")
	if next == "" {
		return false
	}
	switch next[0] {
	case '.', '+', '-', '*', '/', '?', ':':
		return true
	default:
		return false
	}
}

// collectImportStatement gathers an import statement, which always ends at
// the first top-level semicolon or end of line (imports never span a
// continuation token the way export-const initializers can).
func collectImportStatement(lines []string, i int) (string, int) {
	return collectStatement(lines, i)
}

// collectBlockDecl gathers an "export function"/"export class" declaration:
// the line(s) up to and including the matching closing brace of its body.
func collectBlockDecl(lines []string, i int) (string, int) {
	var buf strings.Builder
	braceSeen := false
	depth := 0
	j := i
	for j < len(lines) {
		line := lines[j]
		body := stripTerminator(line)
		k := 0
		for k < len(body) {
			c := body[k]
			switch c {
			case '"', '\'', '`':
				end := skipString(body, k)
				buf.WriteString(body[k:end])
				k = end
				continue
			case '{':
				depth++
				braceSeen = true
			case '}':
				depth--
			}
			buf.WriteByte(c)
			k++
			if braceSeen && depth == 0 {
				buf.WriteString(terminatorOf(line))
				return buf.String(), j - i + 1
			}
		}
		buf.WriteString(terminatorOf(line))
		j++
	}
	return buf.String(), j - i
}

// writeExportedDecl handles rule 4: "export const NAME = ..." becomes the
// declaration without "export ", followed by an assignment onto
// module.exports.
func writeExportedDecl(out *strings.Builder, stmt, prefix string) {
	stripped := strings.TrimPrefix(stmt, prefix)
	out.WriteString(stripped)

	name := declaredName(stripped)
	if name != "" {
		out.WriteString("\nmodule.exports.")
		out.WriteString(name)
		out.WriteString(" = ")
		out.WriteString(name)
		out.WriteString(";")
	}
}

// declaredName extracts NAME from "const NAME = ..." / "let NAME = ..." /
// "var NAME = ...".
func declaredName(decl string) string {
	decl = strings.TrimLeft(decl, " \t")
	for _, kw := range []string{"const ", "let ", "var "} {
		if strings.HasPrefix(decl, kw) {
			rest := strings.TrimLeft(decl[len(kw):], " \t")
			end := 0
			for end < len(rest) && isIdentChar(rest[end]) {
				end++
			}
			return rest[:end]
		}
	}
	return ""
}

// writeExportedBlock handles rule 5: "export function NAME(...) {...}" and
// "export class NAME {...}" become the declaration without "export ",
// followed by an assignment onto module.exports.
func writeExportedBlock(out *strings.Builder, decl string) {
	stripped := strings.TrimPrefix(decl, "export ")
	out.WriteString(stripped)

	name := blockDeclName(stripped)
	if name != "" {
		out.WriteString("module.exports.")
		out.WriteString(name)
		out.WriteString(" = ")
		out.WriteString(name)
		out.WriteString(";\n")
	}
}

func blockDeclName(decl string) string {
	decl = strings.TrimLeft(decl, " \t")
	for _, kw := range []string{"async function ", "function ", "class "} {
		if strings.HasPrefix(decl, kw) {
			rest := strings.TrimLeft(decl[len(kw):], " \t")
			end := 0
			for end < len(rest) && isIdentChar(rest[end]) {
				end++
			}
			return rest[:end]
		}
	}
	return ""
}

// writeExportList handles rule 2: "export { a, b as c };" becomes one
// module.exports.<name> = <local>; assignment per binding.
func writeExportList(out *strings.Builder, stmt string) {
	start := strings.Index(stmt, "{")
	end := strings.LastIndex(stmt, "}")
	if start < 0 || end < 0 || end < start {
		out.WriteString(stmt)
		return
	}

	body := stmt[start+1 : end]
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		local, exported := part, part
		if idx := strings.Index(part, " as "); idx >= 0 {
			local = strings.TrimSpace(part[:idx])
			exported = strings.TrimSpace(part[idx+len(" as "):])
		}
		out.WriteString("module.exports.")
		out.WriteString(exported)
		out.WriteString(" = ")
		out.WriteString(local)
		out.WriteString(";\n")
	}
}

// writeImport handles rule 3, in its three sub-forms: named, namespace,
// default.
func writeImport(out *strings.Builder, stmt string) {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(stmt), "import"))
	rest = strings.TrimSuffix(strings.TrimSpace(rest), ";")

	fromIdx := firstTopLevelFrom(rest)
	if fromIdx < 0 {
		// Bare "import 'module';" side-effect import.
		path := extractQuoted(rest)
		out.WriteString("require(")
		out.WriteString(strconv.Quote(path))
		out.WriteString(");\n")
		return
	}

	clause := strings.TrimSpace(rest[:fromIdx])
	pathPart := strings.TrimSpace(rest[fromIdx+len(" from "):])
	modPath := extractQuoted(pathPart)
	modVar := "__mod_" + sanitize(modPath)

	switch {
	case strings.HasPrefix(clause, "* as "):
		name := strings.TrimSpace(strings.TrimPrefix(clause, "* as "))
		out.WriteString("const ")
		out.WriteString(name)
		out.WriteString(" = require(")
		out.WriteString(strconv.Quote(modPath))
		out.WriteString(");\n")

	case strings.HasPrefix(clause, "{"):
		out.WriteString("const ")
		out.WriteString(modVar)
		out.WriteString(" = require(")
		out.WriteString(strconv.Quote(modPath))
		out.WriteString(");\n")

		body := strings.TrimSuffix(strings.TrimPrefix(clause, "{"), "}")
		for _, part := range strings.Split(body, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			orig, alias := part, part
			if idx := strings.Index(part, " as "); idx >= 0 {
				orig = strings.TrimSpace(part[:idx])
				alias = strings.TrimSpace(part[idx+len(" as "):])
			}
			out.WriteString("const ")
			out.WriteString(alias)
			out.WriteString(" = ")
			out.WriteString(modVar)
			out.WriteString(".")
			out.WriteString(orig)
			out.WriteString(";\n")
		}

	default:
		// Default import: "import D from 'M'".
		name := clause
		out.WriteString("const ")
		out.WriteString(name)
		out.WriteString(" = (function() { const m = require(")
		out.WriteString(strconv.Quote(modPath))
		out.WriteString("); return m && m.default ? m.default : m; })();\n")
	}
}

// firstTopLevelFrom finds the index of the first " from " outside any string
// literal.
func firstTopLevelFrom(s string) int {
	i := 0
	for i < len(s) {
		if s[i] == '"' || s[i] == '\'' || s[i] == '`' {
			i = skipString(s, i)
			continue
		}
		if strings.HasPrefix(s[i:], " from ") {
			return i
		}
		i++
	}
	return -1
}

// extractQuoted returns the contents of the first quoted string in s.
func extractQuoted(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\'' {
			end := skipString(s, i)
			return s[i+1 : end-1]
		}
	}
	return ""
}

// sanitize returns a module path's basename without its extension, for use
// as part of a generated require() local variable name.
func sanitize(path string) string {
	base := path
	if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	base = strings.Map(func(r rune) rune {
		if isIdentChar(byte(r)) {
			return r
		}
		return '_'
	}, base)
	if base == "" {
		return "mod"
	}
	return base
}
