package spellbooks

import (
	"fmt"

	"github.com/asteroid-belt/spellbook/internal/models"
)

// Level classifies how an action turned out.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Outcome is the user-facing report of a completed action. Err carries the
// underlying cause for warning and error outcomes.
type Outcome struct {
	Level     Level
	Message   string
	Spellbook *models.Spellbook
	Added     int
	Failed    int
	Err       error
}

// OK reports whether the action fully succeeded.
func (o Outcome) OK() bool {
	return o.Level == LevelSuccess
}

func (o Outcome) String() string {
	return fmt.Sprintf("[%s] %s", o.Level, o.Message)
}

// ValidationError rejects user input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
