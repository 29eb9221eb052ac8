// models/item.go
package models

import "time"

const ItemTable = "lending_items"
const InstanceTable = "lending_item_instances"

type InstanceStatus string

const (
	InstanceAvailable  InstanceStatus = "AVAILABLE"
	InstanceInUse      InstanceStatus = "IN_USE"
	InstanceFaulty     InstanceStatus = "FAULTY"
	InstanceInRepair   InstanceStatus = "IN_REPAIR"
	InstanceOutOfStock InstanceStatus = "OUT_OF_STOCK"
)

var instanceDisplay = map[InstanceStatus]string{
	InstanceAvailable:  "Available",
	InstanceInUse:      "In Use",
	InstanceFaulty:     "Faulty",
	InstanceInRepair:   "In Repair",
	InstanceOutOfStock: "Out of Stock",
}

func (s InstanceStatus) Valid() bool { _, ok := instanceDisplay[s]; return ok }

func (s InstanceStatus) DisplayName() string {
	if d, ok := instanceDisplay[s]; ok {
		return d
	}
	return string(s)
}

// Item is a borrowable template; Quantity/Available mirror its instances.
type Item struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CategoryID  *uint     `gorm:"index" json:"category_id,omitempty"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"-"`
	Quantity    int       `gorm:"not null;default:0" json:"quantity"`
	Available   int       `gorm:"not null;default:0" json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemInstance is one physical unit, identified by a printed reference id.
type ItemInstance struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID      string         `gorm:"type:uuid;index;not null" json:"item_id"`
	Item        *Item          `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"-"`
	ReferenceID string         `gorm:"size:50;uniqueIndex;not null" json:"reference_id"`
	Status      InstanceStatus `gorm:"size:20;not null;default:'AVAILABLE';index" json:"status"`
	Notes       string         `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Item) TableName() string         { return ItemTable }
func (ItemInstance) TableName() string { return InstanceTable }
