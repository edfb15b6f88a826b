package wrangle

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

var (
	mnemonicPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.]*$`)
	formNamePattern = regexp.MustCompile(`^C[A-Z]+$`)
)

// gridLabel is the bit range one header column stands for.
type gridLabel struct {
	Col    int
	Hi, Lo int
}

type gridHeader []gridLabel

func (h gridHeader) at(col int) (gridLabel, bool) {
	i := sort.Search(len(h), func(i int) bool { return h[i].Col >= col })
	if i < len(h) && h[i].Col == col {
		return h[i], true
	}
	return gridLabel{}, false
}

// rangeOf returns the bits covered by a cell spanning columns
// [col, col+span). A cell ends where the next labeled column begins.
func (h gridHeader) rangeOf(col, span int) (hi, lo int, ok bool) {
	first, ok := h.at(col)
	if !ok {
		return 0, 0, false
	}
	last := h[len(h)-1]
	if col+span > last.Col+1 {
		return 0, 0, false
	}
	i := sort.Search(len(h), func(i int) bool { return h[i].Col >= col+span })
	if i == len(h) {
		return first.Hi, last.Lo, true
	}
	return first.Hi, h[i].Hi + 1, true
}

func (h gridHeader) width() Width {
	top := 0
	for _, l := range h {
		if l.Hi > top {
			top = l.Hi
		}
	}
	return Width(top + 1)
}

func readGridHeader(row texRow) gridHeader {
	var ret gridHeader
	col := 0
	for _, c := range row.Cells {
		if hi, lo, ok := bitLabel(c.Text); ok {
			ret = append(ret, gridLabel{Col: col, Hi: hi, Lo: lo})
		}
		col += c.Span
	}
	if len(ret) < 2 {
		return nil
	}
	return ret
}

type gridParser struct {
	doc    Document
	log    log.Logger
	header gridHeader
	cur    Standard
	ret    *ParsedDocument
	cats   Standards
	seen   map[string]Location
	errs   ErrorList
}

func parseGridTables(doc Document, src string, logger log.Logger) (*ParsedDocument, error) {
	tables := readTexTables(src)
	if len(tables) == 0 {
		return nil, malformed(doc.loc(0), "", "", "no tabular environment found")
	}
	p := &gridParser{
		doc:  doc,
		log:  logger,
		cur:  doc.Default,
		ret:  &ParsedDocument{Doc: doc},
		cats: make(Standards),
		seen: make(map[string]Location),
	}
	for _, t := range tables {
		for _, row := range t.Rows {
			p.row(row)
		}
	}
	if err := p.errs.Err(); err != nil {
		return nil, err
	}
	return p.ret, nil
}

func (p *gridParser) addCategory(std Standard) {
	if !p.cats.Has(std) {
		p.cats.Add(std)
		p.ret.Categories = append(p.ret.Categories, std)
	}
}

func (p *gridParser) row(row texRow) {
	if h := readGridHeader(row); h != nil {
		p.header = h
		return
	}
	if p.heading(row) {
		return
	}

	nameIdx := -1
	for i := len(row.Cells) - 1; i >= 0; i-- {
		if normalizeCell(row.Cells[i].Text) != "" {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return
	}
	name, notes := splitNameCell(row.Cells[nameIdx].Text)
	loc := p.doc.loc(row.Line)

	isForm := strings.HasSuffix(strings.ToLower(name), "-type")
	if !isForm && !mnemonicPattern.MatchString(name) {
		p.log.Debug("Skipping row without a mnemonic", "line", row.Line, "text", row.Raw())
		return
	}
	if p.header == nil {
		p.errs = append(p.errs, malformed(loc, row.Raw(), "", "row appears before any bit-position header"))
		return
	}

	fields, err := p.fields(row, nameIdx, isForm)
	if err != nil {
		p.errs = append(p.errs, err)
		return
	}
	width := p.header.width()
	if err := checkWidth(fields, width); err != nil {
		p.errs = append(p.errs, malformed(loc, row.Raw(), "", "%s", err))
		return
	}

	if isForm {
		p.ret.Forms = append(p.ret.Forms, FormDecl{
			Name:   strings.ReplaceAll(strings.ToUpper(name), "-", "_"),
			Width:  width,
			Fields: fields,
			Source: loc,
		})
		return
	}

	if p.cur == Invalid {
		p.errs = append(p.errs, malformed(loc, row.Raw(), "", "instruction %s appears outside any category", name))
		return
	}
	key := p.cur.String() + "::" + name
	if prev, exists := p.seen[key]; exists {
		p.errs = append(p.errs, malformed(loc, row.Raw(), "", "%s is already defined for %s at %s", name, p.cur, prev))
		return
	}
	p.seen[key] = loc
	p.addCategory(p.cur)

	xlens := p.cur.XLENs()
	if note, ok := ParseXLENNote(notes); ok {
		xlens = note
	}
	p.ret.Specs = append(p.ret.Specs, InstructionSpec{
		Mnemonic: name,
		Width:    width,
		Family:   familyForWidth(width),
		Standard: p.cur,
		XLENs:    xlens,
		Fields:   fields,
		Notes:    notes,
		Source:   loc,
	})
}

// heading handles bold category rows. A bold row that names no standard
// starts a section of the document's default category, or of no category
// when the document has none.
func (p *gridParser) heading(row texRow) bool {
	for _, c := range row.Cells {
		if !boldPattern.MatchString(c.Text) {
			continue
		}
		text := normalizeCell(c.Text)
		if std, ok := ParseCategory(text); ok {
			p.cur = std
			p.log.Trace("Category", "line", row.Line, "standard", std)
		} else {
			p.cur = p.doc.Default
			p.log.Debug("Section heading", "line", row.Line, "text", text, "standard", p.cur)
		}
		return true
	}
	return false
}

func (p *gridParser) fields(row texRow, nameIdx int, isForm bool) ([]FieldSpec, error) {
	loc := p.doc.loc(row.Line)
	firstCol := p.header[0].Col
	classify := classifyField
	if isForm {
		classify = classifySlot
	}

	var ret []FieldSpec
	col := 0
	for _, c := range row.Cells[:nameIdx] {
		span := c.Span
		text := normalizeCell(c.Text)
		if col+span <= firstCol {
			if text != "" {
				return nil, malformed(loc, row.Raw(), text, "text in unlabeled column %d", col)
			}
			col += span
			continue
		}
		hi, lo, ok := p.header.rangeOf(col, span)
		if !ok {
			return nil, malformed(loc, row.Raw(), text, "columns %d..%d have no defined bit range", col, col+span-1)
		}
		f, err := classify(text, uint8(hi), uint8(lo))
		if err != nil {
			return nil, malformed(loc, row.Raw(), text, "%s", err)
		}
		ret = append(ret, f)
		col += span
	}
	return ret, nil
}

// splitNameCell separates the mnemonic from any trailing annotation, as in
// "C.LQ {\em\tiny (RV128)}".
func splitNameCell(raw string) (name, notes string) {
	text := normalizeCell(raw)
	name, notes = partition(text, " ")
	return name, strings.TrimSpace(notes)
}

// parseFormList reads the compressed format table, which has no bit-label
// header: every grid column after the name and meaning is one bit, most
// significant first.
func parseFormList(doc Document, src string, logger log.Logger) (*ParsedDocument, error) {
	const width = Width16
	ret := &ParsedDocument{Doc: doc}
	var errs ErrorList

	for _, t := range readTexTables(src) {
		for _, row := range t.Rows {
			if len(row.Cells) < 3 {
				continue
			}
			name := normalizeCell(row.Cells[0].Text)
			if !formNamePattern.MatchString(name) {
				continue
			}
			loc := doc.loc(row.Line)

			total := 0
			for _, c := range row.Cells[2:] {
				total += c.Span
			}
			if total != int(width) {
				errs = append(errs, malformed(loc, row.Raw(), "", "format %s spans %d bits, want %d", name, total, width))
				continue
			}

			var fields []FieldSpec
			bit := int(width) - 1
			var ferr error
			for _, c := range row.Cells[2:] {
				text := normalizeCell(c.Text)
				f, err := classifySlot(text, uint8(bit), uint8(bit-c.Span+1))
				if err != nil {
					ferr = malformed(loc, row.Raw(), text, "%s", err)
					break
				}
				fields = append(fields, f)
				bit -= c.Span
			}
			if ferr != nil {
				errs = append(errs, ferr)
				continue
			}
			ret.Forms = append(ret.Forms, FormDecl{
				Name:   name,
				Width:  width,
				Fields: fields,
				Source: loc,
			})
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	if len(ret.Forms) == 0 {
		logger.Warn("No compressed formats found")
	}
	return ret, nil
}
