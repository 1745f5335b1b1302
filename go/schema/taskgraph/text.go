package taskgraph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Line is the legacy single-line text projection of a GianttItem,
// described in spec.md §4.6. It is a standalone representation used only
// for interop with legacy files; it round-trips independently of the
// CRDT engine (parse(serialize(l)) == l, serialize(parse(s)) == s for
// well-formed s, modulo whitespace collapsing in the pre-title segment).
type Line struct {
	ItemID      string
	Status      Status
	Priority    Priority
	Duration    string
	Title       string
	Charts      []string
	Tags        []string
	// Relations preserves the order relation groups appeared in the
	// source line, so re-serialization reproduces the same byte order.
	Relations   []RelationGroup
	Constraints []TimeConstraint
	UserComment string
	AutoComment string
}

// RelationGroup is one "<symbol>[targets...]" group of a line.
type RelationGroup struct {
	SetName string
	Targets []string
}

// TargetsOf returns the target ids of the first group named setName, or
// nil if absent; later groups with the same name are not included.
func (l Line) TargetsOf(setName string) []string {
	for _, g := range l.Relations {
		if g.SetName == setName {
			return g.Targets
		}
	}
	return nil
}

type TimeConstraintKind string

const (
	KindWindow TimeConstraintKind = "window"
	KindDue    TimeConstraintKind = "due"
	KindEvery  TimeConstraintKind = "every"
)

type Severity string

const (
	SeverityWarn       Severity = "warn"
	SeveritySevere     Severity = "severe"
	SeverityEscalating Severity = "escalating"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityWarn, SeveritySevere, SeverityEscalating:
		return true
	default:
		return false
	}
}

// TimeConstraint is one window(...)/due(...)/every(...) clause. Stack is
// only meaningful (and only ever set) for KindEvery; spec.md §9 pins this
// detail — window/due never carry a stack flag.
type TimeConstraint struct {
	Kind     TimeConstraintKind
	Spec     string // duration for window/every, YYYY-MM-DD date for due
	Grace    string // duration
	Severity Severity
	Stack    bool
}

var statusSymbol = map[Status]string{
	NotStarted: "○",
	InProgress: "◑",
	Blocked:    "⊘",
	Completed:  "●",
}

var symbolStatus = invert(statusSymbol)

var prioritySymbol = map[Priority]string{
	Lowest:   ",,,",
	Low:      "...",
	Neutral:  "",
	Unsure:   "?",
	Medium:   "!",
	High:     "!!",
	Critical: "!!!",
}

// prioritySuffixesLongestFirst lists non-empty priority symbols ordered
// so the longest (most specific) suffix is tried first when splitting an
// "<id><symbol>" token.
var prioritySuffixesLongestFirst = []Priority{Critical, High, Lowest, Low, Unsure, Medium}

var relationSymbol = map[string]string{
	SetRequires:     "⊢",
	SetAnyOf:        "⋲",
	SetSupercharges: "≫",
	SetIndicates:    "∴",
	SetTogether:     "∪",
	SetConflicts:    "⊟",
	SetBlocks:       "►",
	SetSufficient:   "≻",
}

var symbolRelation = invert(relationSymbol)

func invert[K comparable](m map[K]string) map[string]K {
	var out = make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// Serialize renders l in the text form of spec.md §4.6.
func (l Line) Serialize() string {
	var b strings.Builder
	b.WriteString(statusSymbol[l.Status])
	b.WriteByte(' ')
	b.WriteString(l.ItemID)
	b.WriteString(prioritySymbol[l.Priority])
	b.WriteByte(' ')
	b.WriteString(l.Duration)
	b.WriteByte(' ')

	var titleJSON, _ = json.Marshal(l.Title)
	b.Write(titleJSON)
	b.WriteByte(' ')

	b.WriteByte('{')
	for i, c := range l.Charts {
		if i > 0 {
			b.WriteByte(',')
		}
		var cj, _ = json.Marshal(c)
		b.Write(cj)
	}
	b.WriteByte('}')
	b.WriteByte(' ')
	b.WriteString(strings.Join(l.Tags, ","))

	if len(l.Relations) > 0 {
		b.WriteString(" >>>")
		for _, g := range l.Relations {
			b.WriteByte(' ')
			b.WriteString(relationSymbol[g.SetName])
			b.WriteByte('[')
			b.WriteString(strings.Join(g.Targets, ","))
			b.WriteByte(']')
		}
	}

	if len(l.Constraints) > 0 {
		b.WriteString(" @@@")
		for _, c := range l.Constraints {
			b.WriteByte(' ')
			b.WriteString(serializeConstraint(c))
		}
	}

	if l.UserComment != "" {
		b.WriteString(" # ")
		b.WriteString(l.UserComment)
	}
	if l.AutoComment != "" {
		b.WriteString(" ### ")
		b.WriteString(l.AutoComment)
	}
	return b.String()
}

func serializeConstraint(c TimeConstraint) string {
	switch c.Kind {
	case KindEvery:
		if c.Stack {
			return fmt.Sprintf("every(%s:%s,%s,stack)", c.Spec, c.Grace, c.Severity)
		}
		return fmt.Sprintf("every(%s:%s,%s)", c.Spec, c.Grace, c.Severity)
	case KindDue:
		return fmt.Sprintf("due(%s:%s,%s)", c.Spec, c.Grace, c.Severity)
	default:
		return fmt.Sprintf("window(%s:%s,%s)", c.Spec, c.Grace, c.Severity)
	}
}

// ErrMalformedLine is returned by ParseLine when s does not conform to
// the §4.6 grammar.
var ErrMalformedLine = fmt.Errorf("malformed task-graph line")

// ParseLine parses a single well-formed text line, per spec.md §4.6.
func ParseLine(s string) (Line, error) {
	var p = &lineParser{s: s}
	return p.parse()
}

type lineParser struct {
	s string
	i int
}

func (p *lineParser) parse() (Line, error) {
	var l Line

	p.skipSpaces()
	var statusTok, err = p.token()
	if err != nil {
		return l, err
	}
	status, ok := symbolStatus[statusTok]
	if !ok {
		return l, fmt.Errorf("%w: unrecognized status symbol %q", ErrMalformedLine, statusTok)
	}
	l.Status = status

	p.skipSpaces()
	idTok, err := p.token()
	if err != nil {
		return l, err
	}
	l.ItemID, l.Priority = splitIDPriority(idTok)

	p.skipSpaces()
	duration, err := p.token()
	if err != nil {
		return l, err
	}
	l.Duration = duration

	p.skipSpaces()
	title, err := p.quotedString()
	if err != nil {
		return l, fmt.Errorf("%w: title: %v", ErrMalformedLine, err)
	}
	l.Title = title

	p.skipSpaces()
	charts, err := p.bracedSet('{', '}')
	if err != nil {
		return l, fmt.Errorf("%w: charts: %v", ErrMalformedLine, err)
	}
	l.Charts = charts

	p.skipSpaces()
	tagsTok, _ := p.peekToken()
	if !isMarker(tagsTok) {
		tagsTok, _ = p.token()
		if tagsTok != "" {
			l.Tags = strings.Split(tagsTok, ",")
		}
		p.skipSpaces()
	}

	if p.consumeMarker(">>>") {
		for {
			p.skipSpaces()
			var tok, ok2 = p.peekToken()
			if !ok2 || isMarker(tok) {
				break
			}
			p.token()
			var setName, ids, err2 = parseRelationGroup(tok)
			if err2 != nil {
				return l, fmt.Errorf("%w: relation: %v", ErrMalformedLine, err2)
			}
			l.Relations = append(l.Relations, RelationGroup{SetName: setName, Targets: ids})
		}
	}

	if p.consumeMarker("@@@") {
		for {
			p.skipSpaces()
			var tok, ok2 = p.peekToken()
			if !ok2 || isMarker(tok) {
				break
			}
			p.token()
			var c, err2 = parseConstraint(tok)
			if err2 != nil {
				return l, fmt.Errorf("%w: constraint: %v", ErrMalformedLine, err2)
			}
			l.Constraints = append(l.Constraints, c)
		}
	}

	l.UserComment, l.AutoComment = p.remainingComments()

	return l, nil
}

func isMarker(tok string) bool {
	return tok == ">>>" || tok == "@@@" || tok == "#" || tok == "###"
}

func splitIDPriority(tok string) (string, Priority) {
	for _, pr := range prioritySuffixesLongestFirst {
		var suf = prioritySymbol[pr]
		if suf != "" && strings.HasSuffix(tok, suf) {
			return strings.TrimSuffix(tok, suf), pr
		}
	}
	return tok, Neutral
}

func parseRelationGroup(tok string) (setName string, ids []string, err error) {
	var open = strings.IndexByte(tok, '[')
	if open < 0 || !strings.HasSuffix(tok, "]") {
		return "", nil, fmt.Errorf("malformed relation group %q", tok)
	}
	var symbol = tok[:open]
	var set, ok = symbolRelation[symbol]
	if !ok {
		return "", nil, fmt.Errorf("unrecognized relation symbol %q", symbol)
	}
	var inner = tok[open+1 : len(tok)-1]
	if inner == "" {
		return set, nil, nil
	}
	return set, strings.Split(inner, ","), nil
}

func parseConstraint(tok string) (TimeConstraint, error) {
	var open = strings.IndexByte(tok, '(')
	if open < 0 || !strings.HasSuffix(tok, ")") {
		return TimeConstraint{}, fmt.Errorf("malformed constraint %q", tok)
	}
	var kind = TimeConstraintKind(tok[:open])
	if kind != KindWindow && kind != KindDue && kind != KindEvery {
		return TimeConstraint{}, fmt.Errorf("unrecognized constraint kind %q", kind)
	}
	var inner = tok[open+1 : len(tok)-1]
	var specGrace = strings.SplitN(inner, ":", 2)
	if len(specGrace) != 2 {
		return TimeConstraint{}, fmt.Errorf("malformed constraint body %q", inner)
	}
	var rest = strings.Split(specGrace[1], ",")
	if len(rest) < 2 {
		return TimeConstraint{}, fmt.Errorf("malformed constraint body %q", inner)
	}
	var c = TimeConstraint{Kind: kind, Spec: specGrace[0], Grace: rest[0], Severity: Severity(rest[1])}
	if !c.Severity.Valid() {
		return TimeConstraint{}, fmt.Errorf("unrecognized severity %q", rest[1])
	}
	if len(rest) == 3 {
		if rest[2] != "stack" || kind != KindEvery {
			return TimeConstraint{}, fmt.Errorf("%w: stack flag only valid on every(...)", ErrMalformedLine)
		}
		c.Stack = true
	}
	return c, nil
}

// --- low-level scanning ---

func (p *lineParser) skipSpaces() {
	for p.i < len(p.s) && p.s[p.i] == ' ' {
		p.i++
	}
}

// token reads up to the next space (or end of string).
func (p *lineParser) token() (string, error) {
	var start = p.i
	for p.i < len(p.s) && p.s[p.i] != ' ' {
		p.i++
	}
	if p.i == start {
		return "", fmt.Errorf("%w: expected token at position %d", ErrMalformedLine, start)
	}
	return p.s[start:p.i], nil
}

func (p *lineParser) peekToken() (string, bool) {
	var saved = p.i
	p.skipSpaces()
	var start = p.i
	for p.i < len(p.s) && p.s[p.i] != ' ' {
		p.i++
	}
	var tok = p.s[start:p.i]
	p.i = saved
	return tok, tok != ""
}

func (p *lineParser) consumeMarker(marker string) bool {
	p.skipSpaces()
	if strings.HasPrefix(p.s[p.i:], marker) {
		var end = p.i + len(marker)
		if end == len(p.s) || p.s[end] == ' ' {
			p.i = end
			return true
		}
	}
	return false
}

// quotedString parses a JSON-double-quoted string starting at the
// current (post-space) position.
func (p *lineParser) quotedString() (string, error) {
	if p.i >= len(p.s) || p.s[p.i] != '"' {
		return "", fmt.Errorf("expected '\"' at position %d", p.i)
	}
	var start = p.i
	p.i++
	for p.i < len(p.s) {
		if p.s[p.i] == '\\' {
			p.i += 2
			continue
		}
		if p.s[p.i] == '"' {
			p.i++
			var raw = p.s[start:p.i]
			var out string
			if err := json.Unmarshal([]byte(raw), &out); err != nil {
				return "", fmt.Errorf("invalid json string %q: %w", raw, err)
			}
			return out, nil
		}
		p.i++
	}
	return "", fmt.Errorf("unterminated quoted string")
}

// bracedSet parses a {"a","b"} style set of quoted strings.
func (p *lineParser) bracedSet(open, close byte) ([]string, error) {
	if p.i >= len(p.s) || p.s[p.i] != open {
		return nil, fmt.Errorf("expected %q at position %d", open, p.i)
	}
	p.i++
	var out []string
	for {
		if p.i < len(p.s) && p.s[p.i] == close {
			p.i++
			return out, nil
		}
		if len(out) > 0 {
			if p.i >= len(p.s) || p.s[p.i] != ',' {
				return nil, fmt.Errorf("expected ',' at position %d", p.i)
			}
			p.i++
		}
		var elem, err = p.quotedString()
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
}

// remainingComments splits whatever is left of the line into a user
// comment ("# ...") and/or auto comment ("### ..."), in the order
// Serialize writes them: user first. Everything after the first "### "
// is the auto comment, so a user comment written after it is not split
// out.
func (p *lineParser) remainingComments() (user, auto string) {
	var rest = strings.TrimLeft(p.s[p.i:], " ")
	if rest == "" {
		return "", ""
	}
	if idx := strings.Index(rest, "### "); idx >= 0 {
		var before = strings.TrimSpace(rest[:idx])
		auto = strings.TrimSpace(rest[idx+4:])
		if strings.HasPrefix(before, "# ") {
			user = strings.TrimSpace(strings.TrimPrefix(before, "# "))
		}
		return user, auto
	}
	if strings.HasPrefix(rest, "### ") {
		return "", strings.TrimSpace(strings.TrimPrefix(rest, "### "))
	}
	if strings.HasPrefix(rest, "# ") {
		return strings.TrimSpace(strings.TrimPrefix(rest, "# ")), ""
	}
	return "", ""
}
