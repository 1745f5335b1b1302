// Package inventory implements the inventory schema binding: the
// InventoryItem item type, its container convention (opaque
// "container_<id>" tags rather than a dedicated relation set), and the
// structured JSON drip projection used by the Inventory app.
package inventory

import (
	"fmt"

	"github.com/giantt-project/convergent/go/crdt"
)

// ItemType is the single recognized item_type of this schema.
const ItemType = "InventoryItem"

// Scalar field names.
const (
	FieldName        = "name"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldQuantity    = "quantity"
)

// Set-valued property names.
const (
	SetTags = "tags"
)

// containerTagPrefix is the opaque convention used to mark containment:
// an item tagged "container_<id>" is considered to live inside <id>.
// There is no dedicated relation set for this, matching how the app
// originally piggybacked containment on the free-form tag set.
const containerTagPrefix = "container_"

// ErrSchemaViolation is returned when an op-builder refuses to emit an
// operation.
var ErrSchemaViolation = fmt.Errorf("schema violation")

// InventoryItem is the schema-native projection of a materialized item.
type InventoryItem struct {
	ItemID      string
	Name        string
	Category    string
	Description string
	Location    string
	Quantity    string
	Tags        []string
	ContainerOf []string // not populated by Project; the container is derived from Tags by ContainerID
}

// ContainerID returns the id of the container this item is tagged into,
// and true, if any container_<id> tag is present. Only the first match
// is returned; items should carry at most one container tag.
func ContainerID(tags []string) (string, bool) {
	for _, t := range tags {
		if len(t) > len(containerTagPrefix) && t[:len(containerTagPrefix)] == containerTagPrefix {
			return t[len(containerTagPrefix):], true
		}
	}
	return "", false
}

// ContainerTag builds the opaque tag string for containerID.
func ContainerTag(containerID string) string {
	return containerTagPrefix + containerID
}

// Project reads the InventoryItem view out of a materialized
// DocumentState item, returning (nil, false) if the item doesn't exist
// or isn't an InventoryItem.
func Project(doc crdt.DocumentState, itemID string) (*InventoryItem, bool) {
	var item, ok = doc.Items[itemID]
	if !ok || item.ItemType != ItemType {
		return nil, false
	}

	var inv = &InventoryItem{
		ItemID:      itemID,
		Name:        scalarString(item, FieldName),
		Category:    scalarString(item, FieldCategory),
		Description: scalarString(item, FieldDescription),
		Location:    scalarString(item, FieldLocation),
		Quantity:    scalarString(item, FieldQuantity),
		Tags:        setStrings(item, SetTags),
	}
	return inv, true
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
