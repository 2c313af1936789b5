package ops

import (
	"encoding/json"
	"net/http"
	"strings"
)

// writeResponse sets the common headers and renders resp. text is called only for
// successful text responses; HEAD requests get headers only.
func writeResponse(w http.ResponseWriter, r *http.Request, f Format, code int, resp any, ok bool, errMsg string, text func() string) {
	w.Header().Set("Cache-Control", "no-store")
	switch f {
	case FormatJSON:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		if r.Method == http.MethodHead {
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(code)
		if r.Method == http.MethodHead {
			return
		}
		if !ok {
			writeTextError(w, escapeTextField(errMsg))
			return
		}
		_, _ = w.Write([]byte(text()))
	}
}

func writeTextError(w http.ResponseWriter, msg string) {
	if msg != "" {
		_, _ = w.Write([]byte(msg + "\n"))
		return
	}
	_, _ = w.Write([]byte("error\n"))
}

// lineWriter builds stable, greppable output: <section>\t<name>\t<field>\t<value>\n.
type lineWriter struct {
	b strings.Builder
}

func (lw *lineWriter) line(fields ...string) {
	for i, f := range fields {
		if i > 0 {
			lw.b.WriteByte('\t')
		}
		lw.b.WriteString(escapeTextField(f))
	}
	lw.b.WriteByte('\n')
}

func (lw *lineWriter) String() string { return lw.b.String() }

func escapeTextField(s string) string {
	// Text outputs in ops are line-based and tab-separated.
	// Escape control characters to prevent output injection / parsing ambiguity.
	//
	// Rules:
	//   - '\'  => '\\'
	//   - '\t' => '\t'
	//   - '\r' => '\r'
	//   - '\n' => '\n'
	//   - other ASCII control chars (0x00-0x1f) => \u00XX
	//
	// If no escaping is needed, returns s as-is.
	need := false
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '\\' || c < 0x20 {
			need = true
			break
		}
	}
	if !need {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		default:
			if c < 0x20 {
				const hex = "0123456789abcdef"
				b.WriteString(`\u00`)
				b.WriteByte(hex[c>>4])
				b.WriteByte(hex[c&0x0f])
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}
