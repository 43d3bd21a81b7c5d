package interpret

import (
	"fmt"
	"strings"

	"glove-backend/internal/models"
)

const systemPrompt = `You are an expert sign language interpreter assistant. Analyze hand gestures and sensor data to determine the intended sign language gesture or command.

Respond with JSON in this exact format:
{
  "interpretedText": "A clear, natural description of the gesture or command",
  "command": "action_name" (optional, e.g., "send_message", "play_music", "open_app"),
  "confidence": number (0-100),
  "actionDescription": "Brief description of what action would be taken" (optional)
}

Common gestures to recognize:
- Thumbs up/down
- Peace sign
- Pointing gestures
- Open/closed hand
- Specific letter signs (ASL)
- Custom commands like "Message [name]", "Call [person]", "Play music", "Open [app]"

Consider both the hand position/shape AND the sensor flex values to determine the gesture accurately.`

// BuildPrompt renders the user message for the external model.
func BuildPrompt(req *models.InterpretationRequest) string {
	var b strings.Builder
	b.WriteString("Analyze this sign language gesture:\n\n")

	if s := req.SensorData; s != nil {
		b.WriteString("Flex Sensor Data (0-1023 range, higher = more bent):\n")
		fmt.Fprintf(&b, "- Thumb: %d\n", s.Thumb)
		fmt.Fprintf(&b, "- Index: %d\n", s.Index)
		fmt.Fprintf(&b, "- Middle: %d\n", s.Middle)
		fmt.Fprintf(&b, "- Ring: %d\n", s.Ring)
		fmt.Fprintf(&b, "- Pinky: %d\n\n", s.Pinky)
	}

	if n := len(req.HandLandmarks); n > 0 {
		fmt.Fprintf(&b, "Hand landmark data detected with %d points.\n", n)
		b.WriteString("Hand appears to be in a specific configuration based on webcam tracking.\n\n")
	}

	if req.Context != "" {
		fmt.Fprintf(&b, "Additional context: %s\n\n", req.Context)
	}

	b.WriteString("Based on this data, what gesture or command is the user performing?")
	return b.String()
}
