package navigation

import "strings"

// SimplifyInstruction reduces a provider's maneuver text to a short
// canonical phrase. The first matching keyword wins; text matching no
// keyword is returned unchanged.
func SimplifyInstruction(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "u-turn") || strings.Contains(t, "u turn"):
		return "Make a U-turn"
	case strings.Contains(t, "roundabout"):
		return "Enter the roundabout"
	case strings.Contains(t, "left"):
		return "Turn left"
	case strings.Contains(t, "right"):
		return "Turn right"
	case strings.Contains(t, "destination") || strings.Contains(t, "arrive"):
		return ArrivalPhrase
	case strings.Contains(t, "continue") || strings.Contains(t, "straight"):
		return "Continue straight"
	case strings.Contains(t, "start on") || strings.Contains(t, "onto") || strings.HasPrefix(t, "head"):
		return "Go ahead"
	}
	return text
}
