package wrangle

import (
	"regexp"
	"strconv"
	"strings"
)

// texCell is one "&"-separated cell of a tabular row.
type texCell struct {
	Span  int
	Align string
	Text  string
	Multi bool
}

type texRow struct {
	Line  int
	Cells []texCell
}

// Raw reconstructs a short human-readable rendition of the row for
// diagnostics.
func (r texRow) Raw() string {
	var parts []string
	for _, c := range r.Cells {
		t := normalizeCell(c.Text)
		if t == "" {
			continue
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " | ")
}

type texTable struct {
	Line int
	Rows []texRow
}

var texRuleCommands = regexp.MustCompile(`\\(?:cline|cmidrule)\s*\{[^}]*\}|\\(?:hline|toprule|midrule|bottomrule|noalign\s*\{[^}]*\})`)

// stripTexComments removes "%" comments while keeping line structure, so
// that offsets still map onto the original line numbers.
func stripTexComments(src string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		for j := 0; j < len(line); j++ {
			if line[j] == '%' && (j == 0 || line[j-1] != '\\') {
				lines[i] = line[:j]
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

// readTexTables finds every tabular environment in src and splits it into
// rows and cells.
func readTexTables(src string) []texTable {
	src = stripTexComments(src)

	const begin = `\begin{tabular}`
	const end = `\end{tabular}`

	var ret []texTable
	pos := 0
	for {
		i := strings.Index(src[pos:], begin)
		if i < 0 {
			break
		}
		start := pos + i + len(begin)
		start = skipTabularSpec(src, start)
		j := strings.Index(src[start:], end)
		if j < 0 {
			j = len(src) - start
		}
		body := src[start : start+j]
		ret = append(ret, texTable{
			Line: lineAt(src, start),
			Rows: splitTexRows(body, lineAt(src, start)),
		})
		pos = start + j
		if pos < len(src) {
			pos += len(end)
		}
	}
	return ret
}

// skipTabularSpec skips the optional position argument and the column
// specification that follow \begin{tabular}.
func skipTabularSpec(src string, pos int) int {
	pos = skipSpace(src, pos)
	if pos < len(src) && src[pos] == '[' {
		if k := strings.IndexByte(src[pos:], ']'); k >= 0 {
			pos = skipSpace(src, pos+k+1)
		}
	}
	if pos < len(src) && src[pos] == '{' {
		_, next := readGroup(src, pos)
		pos = next
	}
	return pos
}

func skipSpace(src string, pos int) int {
	for pos < len(src) && (src[pos] == ' ' || src[pos] == '\t' || src[pos] == '\n' || src[pos] == '\r') {
		pos++
	}
	return pos
}

// readGroup reads a brace-delimited group starting at src[pos] == '{' and
// returns its contents and the offset just past the closing brace.
func readGroup(src string, pos int) (string, int) {
	depth := 0
	for i := pos; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++ // skip escaped character
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return src[pos+1 : i], i + 1
			}
		}
	}
	return src[pos+1:], len(src)
}

func lineAt(src string, offset int) int {
	return strings.Count(src[:offset], "\n") + 1
}

// splitTexRows splits a tabular body at top-level "\\" row separators.
func splitTexRows(body string, firstLine int) []texRow {
	var ret []texRow
	depth := 0
	rowStart := 0
	flush := func(end int) {
		raw := texRuleCommands.ReplaceAllStringFunc(body[rowStart:end], blankOut)
		if strings.TrimSpace(raw) == "" {
			return
		}
		line := firstLine + strings.Count(body[:rowStart], "\n")
		line += strings.Count(raw[:len(raw)-len(strings.TrimLeft(raw, " \t\r\n"))], "\n")
		ret = append(ret, texRow{Line: line, Cells: splitTexCells(raw)})
	}
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '\\':
			if depth == 0 && i+1 < len(body) && body[i+1] == '\\' {
				flush(i)
				i++
				rowStart = i + 1
				continue
			}
			i++ // skip the escaped character
		}
	}
	flush(len(body))
	return ret
}

// blankOut replaces everything but line breaks with spaces.
func blankOut(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		return ' '
	}, s)
}

func splitTexCells(row string) []texCell {
	var ret []texCell
	depth := 0
	start := 0
	for i := 0; i < len(row); i++ {
		switch row[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '\\':
			i++
		case '&':
			if depth == 0 {
				ret = append(ret, parseTexCell(row[start:i]))
				start = i + 1
			}
		}
	}
	ret = append(ret, parseTexCell(row[start:]))
	return ret
}

func parseTexCell(raw string) texCell {
	raw = strings.TrimSpace(raw)
	const multi = `\multicolumn`
	if !strings.HasPrefix(raw, multi) {
		return texCell{Span: 1, Text: raw}
	}
	pos := skipSpace(raw, len(multi))
	var args [3]string
	for n := 0; n < 3; n++ {
		pos = skipSpace(raw, pos)
		if pos >= len(raw) || raw[pos] != '{' {
			return texCell{Span: 1, Text: raw}
		}
		args[n], pos = readGroup(raw, pos)
	}
	span, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || span < 1 {
		span = 1
	}
	text := args[2]
	if rest := strings.TrimSpace(raw[pos:]); rest != "" {
		text += " " + rest
	}
	return texCell{
		Span:  span,
		Align: strings.Trim(args[1], "|"),
		Text:  strings.TrimSpace(text),
		Multi: true,
	}
}

var (
	instBitPattern   = regexp.MustCompile(`\\instbit\s*\{\s*(\d+)\s*\}`)
	instRangePattern = regexp.MustCompile(`\\instbitrange\s*\{\s*(\d+)\s*\}\s*\{\s*(\d+)\s*\}`)
	boldPattern      = regexp.MustCompile(`\\bf\b|\\textbf\b`)
)

// bitLabel returns the bit range a header cell labels.
func bitLabel(text string) (hi, lo int, ok bool) {
	if m := instRangePattern.FindStringSubmatch(text); m != nil {
		hi, _ = strconv.Atoi(m[1])
		lo, _ = strconv.Atoi(m[2])
		return hi, lo, true
	}
	if m := instBitPattern.FindStringSubmatch(text); m != nil {
		hi, _ = strconv.Atoi(m[1])
		return hi, hi, true
	}
	return 0, 0, false
}
