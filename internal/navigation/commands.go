package navigation

import (
	"strings"
	"unicode"
)

// Command is the intent recognized in a voice transcript.
type Command int

const (
	NoCommand Command = iota
	StartCommand
	CancelCommand
)

func (c Command) String() string {
	switch c {
	case StartCommand:
		return "start"
	case CancelCommand:
		return "cancel"
	default:
		return "none"
	}
}

var (
	startWords  = map[string]bool{"start": true, "go": true, "begin": true, "proceed": true}
	cancelWords = map[string]bool{"cancel": true, "stop": true, "no": true, "exit": true, "abort": true}
)

// ParseCommand looks for start or cancel synonyms among the words of a
// transcript. Words are matched whole, so "going" or "know" match nothing.
// A start synonym wins when both kinds appear.
func ParseCommand(transcript string) Command {
	words := strings.FieldsFunc(strings.ToLower(transcript), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	cmd := NoCommand
	for _, w := range words {
		if startWords[w] {
			return StartCommand
		}
		if cancelWords[w] {
			cmd = CancelCommand
		}
	}
	return cmd
}
