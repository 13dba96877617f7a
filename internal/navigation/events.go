package navigation

import "time"

// EventType names the kind of a published Event.
type EventType string

const (
	EventState       EventType = "state"
	EventInstruction EventType = "instruction"
	EventDeviation   EventType = "deviation"
	EventUtterance   EventType = "utterance"
	EventWarning     EventType = "warning"
	EventError       EventType = "error"
)

// Event is a notification published by the controller. Only the fields
// relevant to Type are set.
type Event struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`

	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	Text      string `json:"text,omitempty"`
	StepIndex *int   `json:"step_index,omitempty"`
	StepCount int    `json:"step_count,omitempty"`

	Deviation *DeviationEvent `json:"deviation,omitempty"`

	// Spoken is false for utterances suppressed by the voice feedback
	// setting.
	Spoken    bool   `json:"spoken,omitempty"`
	Interrupt bool   `json:"interrupt,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Status is a read-only snapshot of the session.
type Status struct {
	State          State           `json:"state"`
	Instruction    string          `json:"instruction"`
	StepIndex      int             `json:"step_index"`
	StepCount      int             `json:"step_count"`
	SegmentIndex   int             `json:"segment_index"`
	OffRoute       bool            `json:"off_route"`
	DeviationCount int             `json:"deviation_count"`
	LastDeviation  *DeviationEvent `json:"last_deviation,omitempty"`
	AnnouncedEarly []int           `json:"announced_early"`
	AnnouncedFinal []int           `json:"announced_final"`
	HasRoute       bool            `json:"has_route"`
	TestingMode    bool            `json:"testing_mode"`
	LocationPaused bool            `json:"location_paused"`
	Listening      bool            `json:"listening"`
	CleaningUp     bool            `json:"cleaning_up"`
	Mode           string          `json:"mode,omitempty"`
	RouteLength    float64         `json:"route_length_m,omitempty"`
}
