package agent

import "errors"

// Sentinel errors for tool execution.
var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrInvalidArgs = errors.New("invalid arguments")
)
