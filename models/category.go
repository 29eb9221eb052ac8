package models

import "time"

type CategoryType string

const (
	CategoryDevices       CategoryType = "DEVICES"
	CategoryComputerParts CategoryType = "COMPUTER_PARTS"
	CategoryEjectables    CategoryType = "EJECTABLES"
	CategoryRoboticsParts CategoryType = "ROBOTICS_PARTS"
)

var categoryDisplay = map[CategoryType]string{
	CategoryDevices:       "Devices",
	CategoryComputerParts: "Computer Parts",
	CategoryEjectables:    "Ejectables",
	CategoryRoboticsParts: "Robotics Parts",
}

// DefaultCategories are seeded at boot, in display order.
var DefaultCategories = []Category{
	{Name: CategoryDevices, Description: "Electronic devices like laptops, tablets, phones"},
	{Name: CategoryComputerParts, Description: "Computer components like RAM, hard drives, keyboards"},
	{Name: CategoryEjectables, Description: "Removable storage like USB drives, SD cards"},
	{Name: CategoryRoboticsParts, Description: "Robotics components like sensors, motors, controllers"},
}

func (c CategoryType) DisplayName() string {
	if s, ok := categoryDisplay[c]; ok {
		return s
	}
	return string(c)
}

const CategoryTable = "lending_categories"

type Category struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        CategoryType `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Category) TableName() string { return CategoryTable }
