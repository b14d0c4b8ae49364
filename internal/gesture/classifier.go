package gesture

// poses is the exact-match table. Entries are disjoint.
var poses = map[FingerState]Gesture{
	{1, 0, 0, 0, 0}: Roll,
	{1, 1, 1, 1, 1}: Jump,
	{1, 1, 0, 0, 0}: Left,
	{1, 0, 0, 0, 1}: Right,
}

// Classify returns the gesture whose pattern equals state exactly, or None.
// Near misses are deliberately not matched so that transitional hand poses
// never fire a key.
func Classify(state FingerState) Gesture {
	return poses[state]
}

// Pattern returns the finger state that classifies as g.
func Pattern(g Gesture) (FingerState, bool) {
	for state, pose := range poses {
		if pose == g {
			return state, true
		}
	}
	return FingerState{}, false
}
