package inventory

import (
	"fmt"

	"github.com/giantt-project/convergent/go/crdt"
	"github.com/giantt-project/convergent/go/value"
)

// NewInventoryItem builds the AddItem op for a fresh inventory item.
func NewInventoryItem(itemID string) crdt.Operation {
	return crdt.AddItem{ItemID: itemID, ItemType: ItemType}
}

// RemoveInventoryItem builds the RemoveItem op for itemID.
func RemoveInventoryItem(itemID string) crdt.Operation {
	return crdt.RemoveItem{ItemID: itemID}
}

func SetName(itemID, name string) crdt.Operation {
	return crdt.SetField{ItemID: itemID, Field: FieldName, Value: value.NewString(name)}
}

func SetCategory(itemID, category string) crdt.Operation {
	return crdt.SetField{ItemID: itemID, Field: FieldCategory, Value: value.NewString(category)}
}

func SetDescription(itemID, description string) crdt.Operation {
	return crdt.SetField{ItemID: itemID, Field: FieldDescription, Value: value.NewString(description)}
}

func SetLocation(itemID, location string) crdt.Operation {
	return crdt.SetField{ItemID: itemID, Field: FieldLocation, Value: value.NewString(location)}
}

func SetQuantity(itemID, quantity string) crdt.Operation {
	return crdt.SetField{ItemID: itemID, Field: FieldQuantity, Value: value.NewString(quantity)}
}

func AddTag(itemID, tag string) crdt.Operation {
	return crdt.AddToSet{ItemID: itemID, SetName: SetTags, Element: value.NewString(tag)}
}

func RemoveTag(itemID, tag string, observedAddIds []value.OpId) crdt.Operation {
	return crdt.RemoveFromSet{ItemID: itemID, SetName: SetTags, Element: value.NewString(tag), ObservedAddIds: observedAddIds}
}

// TagAsContainedIn builds the AddToSet op that tags itemID as contained
// within containerID, refusing (ErrSchemaViolation) the degenerate case
// of an item tagging itself as its own container, per the container
// cycle guard decided against an explicit relation set for containment.
func TagAsContainedIn(itemID, containerID string) (crdt.Operation, error) {
	if itemID == containerID {
		return nil, fmt.Errorf("%w: %s cannot be contained in itself", ErrSchemaViolation, itemID)
	}
	return AddTag(itemID, ContainerTag(containerID)), nil
}

// UntagContainer builds the RemoveFromSet op clearing itemID's
// container_<containerID> tag.
func UntagContainer(itemID, containerID string, observedAddIds []value.OpId) crdt.Operation {
	return RemoveTag(itemID, ContainerTag(containerID), observedAddIds)
}
