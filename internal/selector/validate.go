package selector

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/dominspect/inspect"
)

// Test runs a user-supplied selector against the mirrored document and
// reports a structured result. It never panics and never returns an error:
// syntax problems, including the classic unescaped-slash mistake, come
// back as {success:false} with repair suggestions, after one automatic
// repair attempt.
func Test(doc *html.Node, query string) inspect.SelectorResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return inspect.SelectorResult{
			Success: false,
			Query:   query,
			Error:   "empty selector",
		}
	}

	matches, err := QueryAll(doc, query)
	if err == nil {
		return resultFor(query, "", matches)
	}

	// One repair pass, then retry. IDs pasted straight into a selector are
	// the common invalid input: file-path IDs like "files/readme.md" need
	// both the slash and the dot escaped, so a bare '#id' gets its whole
	// identifier escaped rather than just the slashes.
	for _, fixed := range repairCandidates(query) {
		if matches, ferr := QueryAll(doc, fixed); ferr == nil && len(matches) > 0 {
			return resultFor(query, fixed, matches)
		}
	}

	return errorResult(query, err)
}

func resultFor(query, fixed string, matches []*html.Node) inspect.SelectorResult {
	res := inspect.SelectorResult{
		Success: len(matches) > 0,
		Query:   query,
		Fixed:   fixed,
		Matches: len(matches),
	}
	if len(matches) == 0 {
		res.Error = "no elements match"
		return res
	}
	res.ElementID = GetAttr(matches[0], "data-di-id")
	return res
}

// errorResult builds the failure report with actionable suggestions rather
// than a bare failure message.
func errorResult(query string, err error) inspect.SelectorResult {
	res := inspect.SelectorResult{
		Success: false,
		Query:   query,
		Error:   err.Error(),
	}

	res.Suggestions = repairCandidates(query)
	return res
}

// repairCandidates proposes rewrites of an invalid selector, most specific
// first: a slash-escaped form, the fully escaped '#id' form, and the
// attribute form, which needs no escaping at all.
func repairCandidates(query string) []string {
	var out []string
	seen := map[string]bool{query: true}
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	add(escapeSlashes(query))
	if id, ok := plainID(query); ok {
		add("#" + Escape(id))
		add(`[id="` + id + `"]`)
	}
	return out
}

// plainID reports whether query is a bare '#id' selector, returning the
// identifier with any existing escapes stripped.
func plainID(query string) (string, bool) {
	if !strings.HasPrefix(query, "#") || len(query) < 2 {
		return "", false
	}
	rest := query[1:]
	if strings.ContainsAny(rest, " \t>[]:,") {
		return "", false
	}
	return strings.ReplaceAll(rest, `\`, ""), true
}

// escapeSlashes backslash-escapes every '/' not already escaped.
func escapeSlashes(query string) string {
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '/' && (i == 0 || query[i-1] != '\\') {
			b.WriteByte('\\')
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
