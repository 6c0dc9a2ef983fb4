package domain

// InventoryStatus is the sale state of a room type on a day
type InventoryStatus string

const (
	InventoryStatusOpen    InventoryStatus = "open"
	InventoryStatusLimited InventoryStatus = "limited"
	InventoryStatusSoldOut InventoryStatus = "sold_out"
	InventoryStatusClosed  InventoryStatus = "closed"
)

// Rank orders statuses from most to least sellable.
func (s InventoryStatus) Rank() int {
	switch s {
	case InventoryStatusOpen:
		return 0
	case InventoryStatusLimited:
		return 1
	case InventoryStatusSoldOut:
		return 2
	default:
		return 3
	}
}

// DayClass is the weekday/weekend/holiday tag of a date
type DayClass string

const (
	DayClassWeekday DayClass = "weekday"
	DayClassWeekend DayClass = "weekend"
	DayClassHoliday DayClass = "holiday"
)
