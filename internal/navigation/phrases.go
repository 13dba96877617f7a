package navigation

// Spoken phrases.
const (
	PromptPhrase             = "Route from start to destination is set up. Say start or cancel"
	OffRoutePhrase           = "Warning! You may be off route. Please check your direction."
	BackOnRoutePhrase        = "You're back on the right track."
	OnTrackPhrase            = "You're on the right track."
	CancelledPhrase          = "Navigation cancelled. Route cleared."
	BusyPhrase               = "Please wait for cleanup to complete."
	InvalidCoordinatesPhrase = "Invalid coordinates. Please enter valid numbers."
	NoRoutePhrase            = "Unable to find walking route."
	LocationPhrase           = "Location services are not available. Please check your settings."

	// ArrivalPhrase is the instruction text for a destination step.
	// ArrivedPhrase is spoken once the walker reaches the end of the route.
	ArrivalPhrase = "You have arrived at your destination"
	ArrivedPhrase = ArrivalPhrase + "."

	arrivedInstruction = "Arrived"
)
