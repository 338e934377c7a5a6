package engine

import "clothstock/ledger"

const (
	EventEntitySaved EventType = iota + 1
	EventEntityDeleted
	EventDeleteRefused
	EventMovementRecorded
	EventCategoriesImported
)

// Entity names used in event payloads and metrics labels.
const (
	EntityItem     = "item"
	EntityCategory = "category"
	EntitySupplier = "supplier"
)

type EntitySavedEvent struct {
	Entity string
	ID     int64
	Name   string
	Action string // "created" or "updated"
	Actor  string
}

type EntityDeletedEvent struct {
	Entity string
	ID     int64
	Actor  string
}

type DeleteRefusedEvent struct {
	Entity     string
	ID         int64
	References int
	Actor      string
}

type MovementRecordedEvent struct {
	MovementID int64
	ItemID     int64
	Type       ledger.MovementType
	Quantity   int64
	Delta      int64
	SupplierID *int64
	Actor      string
}

type CategoriesImportedEvent struct {
	Inserted int
	Rejected int
	Actor    string
}
