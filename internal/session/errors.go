package session

import "errors"

var (
	// ErrInvalidDriver is returned by NewStore for an unknown driver name.
	ErrInvalidDriver = errors.New("invalid session store driver")

	// ErrInvalidConfig is returned when a driver is missing a required option.
	ErrInvalidConfig = errors.New("invalid session store configuration")

	// ErrSystemTurnManaged is returned by Append for turns with the system
	// role; the leading system turn is owned by SetSystemPrompt.
	ErrSystemTurnManaged = errors.New("system turns are managed through the system prompt")
)
