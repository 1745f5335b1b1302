// Package taskgraph implements the task-graph schema binding of
// spec.md §4.6: the GianttItem item type, its typed relations, the
// op-builder conventions (including bidirectional relation mirroring and
// advisory cycle prevention), and the legacy text serialization.
package taskgraph

import (
	"fmt"
	"regexp"

	"github.com/giantt-project/convergent/go/crdt"
)

// ItemType is the single recognized item_type of this schema.
const ItemType = "GianttItem"

// Scalar field names.
const (
	FieldTitle        = "title"
	FieldStatus       = "status"
	FieldPriority     = "priority"
	FieldDuration     = "duration"
	FieldUserComment  = "user_comment"
	FieldAutoComment  = "auto_comment"
)

// Set-valued property names.
const (
	SetTags         = "tags"
	SetCharts       = "charts"
	SetRequires     = "REQUIRES"
	SetAnyOf        = "ANYOF"
	SetSupercharges = "SUPERCHARGES"
	SetIndicates    = "INDICATES"
	SetTogether     = "TOGETHER"
	SetConflicts    = "CONFLICTS"
	SetBlocks       = "BLOCKS"
	SetSufficient   = "SUFFICIENT"
)

// Status is one of the four recognized lifecycle states.
type Status string

const (
	NotStarted Status = "NOT_STARTED"
	InProgress Status = "IN_PROGRESS"
	Blocked    Status = "BLOCKED"
	Completed  Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case NotStarted, InProgress, Blocked, Completed:
		return true
	default:
		return false
	}
}

// Priority is one of the seven recognized priority levels.
type Priority string

const (
	Lowest   Priority = "LOWEST"
	Low      Priority = "LOW"
	Neutral  Priority = "NEUTRAL"
	Unsure   Priority = "UNSURE"
	Medium   Priority = "MEDIUM"
	High     Priority = "HIGH"
	Critical Priority = "CRITICAL"
)

func (p Priority) Valid() bool {
	switch p {
	case Lowest, Low, Neutral, Unsure, Medium, High, Critical:
		return true
	default:
		return false
	}
}

// ErrSchemaViolation is returned when an op-builder refuses to emit an
// operation (e.g. because it would introduce a REQUIRES/ANYOF cycle).
var ErrSchemaViolation = fmt.Errorf("schema violation")

// durationTermPattern matches one (<float><unit>) term of the compound
// duration grammar of spec.md §4.6.
var durationTermPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)(s|min|h|d|w|mo|y)$`)
var durationSplitPattern = regexp.MustCompile(`\d+(?:\.\d+)?(?:s|min|h|d|w|mo|y)`)

// ValidateDuration checks that s matches (<float><unit>)+ with units in
// {s, min, h, d, w, mo, y}, and that the terms exactly cover the string
// (no gaps, no trailing garbage).
func ValidateDuration(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty duration", ErrSchemaViolation)
	}
	var terms = durationSplitPattern.FindAllString(s, -1)
	var reconstructed string
	for _, t := range terms {
		reconstructed += t
	}
	if reconstructed != s {
		return fmt.Errorf("%w: malformed duration %q", ErrSchemaViolation, s)
	}
	for _, t := range terms {
		if !durationTermPattern.MatchString(t) {
			return fmt.Errorf("%w: malformed duration term %q", ErrSchemaViolation, t)
		}
	}
	return nil
}

// GianttItem is the schema-native projection of a materialized item.
type GianttItem struct {
	ItemID      string
	Title       string
	Status      Status
	Priority    Priority
	Duration    string
	UserComment string
	AutoComment string
	Tags        []string
	Charts      []string
	Relations   map[string][]string // set name -> sorted target item ids
}

// Project reads the GianttItem view out of a materialized DocumentState
// item, returning (nil, false) if the item doesn't exist or isn't a
// GianttItem.
func Project(doc crdt.DocumentState, itemID string) (*GianttItem, bool) {
	var item, ok = doc.Items[itemID]
	if !ok || item.ItemType != ItemType {
		return nil, false
	}

	var g = &GianttItem{
		ItemID:    itemID,
		Status:    Status(scalarString(item, FieldStatus)),
		Priority:  Priority(scalarString(item, FieldPriority)),
		Duration:  scalarString(item, FieldDuration),
		Title:     scalarString(item, FieldTitle),
		UserComment: scalarString(item, FieldUserComment),
		AutoComment: scalarString(item, FieldAutoComment),
		Relations: make(map[string][]string),
	}

	g.Tags = setStrings(item, SetTags)
	g.Charts = setStrings(item, SetCharts)
	for _, setName := range []string{SetRequires, SetAnyOf, SetSupercharges, SetIndicates, SetTogether, SetConflicts, SetBlocks, SetSufficient} {
		g.Relations[setName] = setStrings(item, setName)
	}
	return g, true
}

func scalarString(item *crdt.Item, field string) string {
	if sv, ok := item.Scalars[field]; ok {
		if s, ok := sv.Value.AsString(); ok {
			return s
		}
	}
	return ""
}

func setStrings(item *crdt.Item, setName string) []string {
	var keys = item.SortedSetKeys(setName)
	var out = make([]string, 0, len(keys))
	for _, k := range keys {
		var elem = item.Sets[setName][k]
		if s, ok := elem.Element.AsString(); ok {
			out = append(out, s)
		}
	}
	return out
}
