package models

import "fmt"

// Seed layout: 3 floors with 5 rooms each.
const (
	SeedFloors        = 3
	SeedRoomsPerFloor = 5
)

// GetDefaultRooms returns the fixed room layout: 101..105, 201..205, 301..305
func GetDefaultRooms() []Room {
	rooms := make([]Room, 0, SeedFloors*SeedRoomsPerFloor)
	for f := 1; f <= SeedFloors; f++ {
		for r := 1; r <= SeedRoomsPerFloor; r++ {
			room := Room{
				RoomNo:   fmt.Sprintf("%d0%d", f, r),
				Floor:    f,
				Capacity: RoomCapacity,
			}
			room.SetOccupants([]string{})
			rooms = append(rooms, room)
		}
	}
	return rooms
}
