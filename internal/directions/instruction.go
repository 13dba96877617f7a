package directions

import (
	"fmt"
	"strings"
)

// Instruction renders an OSRM maneuver as an English sentence. It returns
// "" for maneuvers that need no announcement.
func Instruction(kind, modifier, street string, bearing float64, exit int) string {
	onto := ""
	if street != "" {
		onto = " onto " + street
	}

	switch kind {
	case "depart":
		s := "Head " + Compass(bearing)
		if street != "" {
			s += " on " + street
		}
		return s
	case "arrive":
		return "You have arrived at your destination"
	case "roundabout", "rotary":
		if exit > 0 {
			return fmt.Sprintf("Enter the roundabout and take exit %d%s", exit, onto)
		}
		return "Enter the roundabout" + onto
	case "exit roundabout", "exit rotary", "roundabout turn":
		return "Exit the roundabout" + onto
	case "notification":
		return ""
	case "new name":
		if street == "" {
			return ""
		}
		return "Continue onto " + street
	}

	switch modifier {
	case "uturn":
		return "Make a U-turn" + onto
	case "straight", "":
		return "Continue straight" + onto
	case "left", "right":
		return "Turn " + modifier + onto
	case "slight left", "slight right", "sharp left", "sharp right":
		return "Make a " + modifier + onto
	default:
		return strings.TrimSpace("Continue" + onto)
	}
}

var compassPoints = [...]string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}

// Compass names the nearest of the eight compass points to a bearing in
// degrees.
func Compass(bearing float64) string {
	i := int((bearing+22.5)/45) % 8
	if i < 0 {
		i += 8
	}
	return compassPoints[i]
}
