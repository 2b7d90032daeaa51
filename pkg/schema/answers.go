package schema

// Answers holds the live form state keyed by stable field id. This is the
// canonical shape; evaluation and migration never key by label.
type Answers map[string]Value

// Clone returns a shallow copy of the map (Values are immutable).
func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// LabelAnswers is the legacy label-keyed projection used at the UI binding
// boundary. Keys change whenever the active language changes.
type LabelAnswers map[string]Value

// Clone returns a shallow copy of the map.
func (a LabelAnswers) Clone() LabelAnswers {
	if a == nil {
		return nil
	}
	out := make(LabelAnswers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
