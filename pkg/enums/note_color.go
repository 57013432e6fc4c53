package enums

import "fmt"

// NoteColor is the card colour of a note.
type NoteColor string

const (
	NoteColorDefault NoteColor = "default"
	NoteColorRed     NoteColor = "red"
	NoteColorOrange  NoteColor = "orange"
	NoteColorYellow  NoteColor = "yellow"
	NoteColorGreen   NoteColor = "green"
	NoteColorBlue    NoteColor = "blue"
)

var validNoteColors = []NoteColor{
	NoteColorDefault,
	NoteColorRed,
	NoteColorOrange,
	NoteColorYellow,
	NoteColorGreen,
	NoteColorBlue,
}

// IsValid checks whether the value matches the canonical enum.
func (v NoteColor) IsValid() bool {
	for _, candidate := range validNoteColors {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseNoteColor converts raw strings into NoteColor.
func ParseNoteColor(value string) (NoteColor, error) {
	for _, candidate := range validNoteColors {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid note color %q", value)
}
