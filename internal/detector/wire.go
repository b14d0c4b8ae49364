package detector

import (
	"encoding/json"
	"fmt"
)

// frameResult is one line of the landmark service protocol. The replay and
// recorder formats use the same shape so recordings can be fed back in.
type frameResult struct {
	Hands     []jsonHand `json:"hands"`
	Timestamp int64      `json:"timestamp,omitempty"`
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}

func fromHandLandmarks(h HandLandmarks) jsonHand {
	points := make([]jsonPoint, NumLandmarks)
	for i, p := range h.Points {
		points[i] = jsonPoint{X: p.X, Y: p.Y, Z: p.Z}
	}
	return jsonHand{Points: points, Handedness: h.Handedness, Score: h.Score}
}

// decodeFrame parses one protocol line. Hands that do not carry the full set
// of landmarks are rejected rather than zero-filled, since a zeroed point
// would silently flip finger states. The timestamp is in Unix milliseconds
// and zero when the line carries none.
func decodeFrame(line []byte) ([]HandLandmarks, int64, error) {
	var frame frameResult
	if err := json.Unmarshal(line, &frame); err != nil {
		return nil, 0, fmt.Errorf("parse response: %w", err)
	}

	result := make([]HandLandmarks, 0, len(frame.Hands))
	for i, h := range frame.Hands {
		if len(h.Points) != NumLandmarks {
			return nil, 0, fmt.Errorf("hand %d: got %d landmarks, want %d", i, len(h.Points), NumLandmarks)
		}
		result = append(result, h.toHandLandmarks())
	}
	return result, frame.Timestamp, nil
}

func encodeFrame(hands []HandLandmarks, timestamp int64) ([]byte, error) {
	frame := frameResult{
		Hands:     make([]jsonHand, len(hands)),
		Timestamp: timestamp,
	}
	for i, h := range hands {
		frame.Hands[i] = fromHandLandmarks(h)
	}
	return json.Marshal(frame)
}
