package models

// CommandStatus is the client-local lifecycle of a recognized gesture.
type CommandStatus string

const (
	StatusProcessing CommandStatus = "processing"
	StatusRecognized CommandStatus = "recognized"
	StatusExecuted   CommandStatus = "executed"
	StatusFailed     CommandStatus = "failed"
)

// CommandExecution is the display view of one interpretation. Not tracked server side.
type CommandExecution struct {
	ID              string        `json:"id"`
	GestureType     string        `json:"gestureType"`
	InterpretedText string        `json:"interpretedText"`
	Command         string        `json:"command,omitempty"`
	Status          CommandStatus `json:"status"`
	Timestamp       int64         `json:"timestamp"`
	Confidence      int           `json:"confidence"`
}
