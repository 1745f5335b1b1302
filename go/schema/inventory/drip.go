package inventory

import (
	"encoding/json"
	"sort"

	"github.com/giantt-project/convergent/go/crdt"
)

// DripItem is the JSON-wire shape of a single InventoryItem as exposed
// by read_drip — a structured projection, unlike the task-graph
// schema's single-line text serialization.
type DripItem struct {
	ItemID      string   `json:"item_id"`
	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Quantity    string   `json:"quantity,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ContainerID string   `json:"container_id,omitempty"`
}

// Drip renders every InventoryItem in doc as sorted-by-id JSON, the
// drip format consumed by the Inventory app's read path.
func Drip(doc crdt.DocumentState) ([]byte, error) {
	var ids = make([]string, 0, len(doc.Items))
	for id, item := range doc.Items {
		if item.ItemType == ItemType {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var out = make([]DripItem, 0, len(ids))
	for _, id := range ids {
		inv, _ := Project(doc, id)
		var d = DripItem{
			ItemID:      inv.ItemID,
			Name:        inv.Name,
			Category:    inv.Category,
			Description: inv.Description,
			Location:    inv.Location,
			Quantity:    inv.Quantity,
			Tags:        inv.Tags,
		}
		if containerID, ok := ContainerID(inv.Tags); ok {
			d.ContainerID = containerID
		}
		out = append(out, d)
	}
	return json.Marshal(out)
}
