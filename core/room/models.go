package room

import "sort"

type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Inventory maps a room ID to the count of each facility type in that room.
// Counts are display-only.
type Inventory map[string]map[string]int

// Count returns the number of facility items in the room, 0 when unknown.
func (inv Inventory) Count(roomID, facility string) int {
	if items, ok := inv[roomID]; ok {
		return items[facility]
	}
	return 0
}

// Facilities returns the sorted union of facility types across every room.
func (inv Inventory) Facilities() []string {
	seen := make(map[string]struct{})
	for _, items := range inv {
		for name := range items {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (inv Inventory) IsEmpty() bool { return len(inv) == 0 }
