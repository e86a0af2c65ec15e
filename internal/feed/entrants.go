package feed

import "fmt"

// Entrant is static directory data for a known driver number.
type Entrant struct {
	Name    string
	Team    string
	Country string
}

// entrants maps driver numbers to directory data. Unknown numbers get a
// placeholder from EntrantInfo.
var entrants = map[int]Entrant{
	1:  {Name: "Max Verstappen", Team: "Red Bull Racing", Country: "NLD"},
	4:  {Name: "Lando Norris", Team: "McLaren", Country: "GBR"},
	11: {Name: "Sergio Perez", Team: "Red Bull Racing", Country: "MEX"},
	14: {Name: "Fernando Alonso", Team: "Aston Martin", Country: "ESP"},
	16: {Name: "Charles Leclerc", Team: "Ferrari", Country: "MCO"},
	18: {Name: "Lance Stroll", Team: "Aston Martin", Country: "CAN"},
	44: {Name: "Lewis Hamilton", Team: "Mercedes", Country: "GBR"},
	55: {Name: "Carlos Sainz", Team: "Ferrari", Country: "ESP"},
	63: {Name: "George Russell", Team: "Mercedes", Country: "GBR"},
	81: {Name: "Oscar Piastri", Team: "McLaren", Country: "AUS"},
}

// EntrantInfo returns directory data for a driver number, falling back to a
// placeholder for unknown entrants.
func EntrantInfo(entrantID int) Entrant {
	if e, ok := entrants[entrantID]; ok {
		return e
	}
	return Entrant{
		Name:    fmt.Sprintf("Driver #%d", entrantID),
		Team:    "Unknown",
		Country: "UNK",
	}
}
