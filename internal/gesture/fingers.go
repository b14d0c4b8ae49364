package gesture

import (
	"fmt"
	"strings"

	"github.com/ayusman/handrunner/internal/detector"
)

// Finger positions within a FingerState.
const (
	Thumb = iota
	Index
	Middle
	Ring
	Pinky
)

// FingerState holds one bit per finger, 1 meaning extended, in the order
// thumb, index, middle, ring, pinky.
type FingerState [5]uint8

// String formats the state as "[1,0,0,0,1]".
func (f FingerState) String() string {
	parts := make([]string, len(f))
	for i, v := range f {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// ThumbRule decides whether the thumb counts as extended. The thumb folds
// sideways rather than down, so it is judged on the X axis, which only works
// for one hand orientation.
type ThumbRule string

const (
	// ThumbTipRightOfIP treats the thumb as extended when its tip lies to
	// the right of the IP joint in image coordinates. This holds for a right
	// hand, palm toward a camera whose frame has been mirrored.
	ThumbTipRightOfIP ThumbRule = "tip-right-of-ip"

	// ThumbTipLeftOfIP is the opposite test, for a left hand on a mirrored
	// frame or a right hand on an unmirrored one.
	ThumbTipLeftOfIP ThumbRule = "tip-left-of-ip"
)

// ParseThumbRule validates a rule name. An empty name selects the default.
func ParseThumbRule(name string) (ThumbRule, error) {
	switch ThumbRule(name) {
	case "":
		return ThumbTipRightOfIP, nil
	case ThumbTipRightOfIP, ThumbTipLeftOfIP:
		return ThumbRule(name), nil
	default:
		return "", fmt.Errorf("unknown thumb rule %q (want %q or %q)", name, ThumbTipRightOfIP, ThumbTipLeftOfIP)
	}
}

func (r ThumbRule) extended(tip, ip detector.Point3D) bool {
	if r == ThumbTipLeftOfIP {
		return tip.X < ip.X
	}
	return tip.X > ip.X
}

// fingerTips are the tips of the four non-thumb fingers. Each PIP joint sits
// two landmarks before its tip.
var fingerTips = [4]int{detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip}

// Extractor converts landmarks to finger states.
type Extractor struct {
	Thumb ThumbRule
}

// NewExtractor returns an Extractor using the given thumb rule.
func NewExtractor(rule ThumbRule) *Extractor {
	return &Extractor{Thumb: rule}
}

// Fingers computes the finger state of one hand. A finger other than the
// thumb is extended when its tip is higher on screen (smaller Y) than its PIP
// joint.
func (e *Extractor) Fingers(hand *detector.HandLandmarks) FingerState {
	var state FingerState
	if hand == nil {
		return state
	}

	p := &hand.Points
	if e.Thumb.extended(p[detector.ThumbTip], p[detector.ThumbIP]) {
		state[Thumb] = 1
	}
	for i, tip := range fingerTips {
		if p[tip].Y < p[tip-2].Y {
			state[Index+i] = 1
		}
	}
	return state
}
