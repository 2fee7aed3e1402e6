package rewards

type titleThreshold struct {
	minTrips int
	title    string
}

// titleTable is ordered by descending threshold; the first match wins.
var titleTable = []titleThreshold{
	{150, "NomadNova Elite"},
	{100, "Legendary Voyager"},
	{75, "World Wanderer"},
	{50, "Globe Trotter"},
	{30, "Continental Hopper"},
	{15, "Seasoned Explorer"},
	{5, "Adventurer"},
	{1, "Rookie Explorer"},
	{0, DefaultTitle},
}

// TitleFor maps a total trip count to its traveler title.
func TitleFor(totalTrips int) string {
	for _, t := range titleTable {
		if totalTrips >= t.minTrips {
			return t.title
		}
	}
	return DefaultTitle
}
