package race

// Diff classifies track names between two consecutive frames.
type Diff struct {
	Enter  []string `json:"enter"`
	Update []string `json:"update"`
	Exit   []string `json:"exit"`
}

// Reconcile compares the previously visible keys with the keys of the new
// frame. Enter and Update follow the order of current, Exit the order of
// previous.
func Reconcile(previous, current []string) Diff {
	prev := make(map[string]struct{}, len(previous))
	for _, k := range previous {
		prev[k] = struct{}{}
	}
	cur := make(map[string]struct{}, len(current))
	for _, k := range current {
		cur[k] = struct{}{}
	}

	d := Diff{
		Enter:  []string{},
		Update: []string{},
		Exit:   []string{},
	}
	for _, k := range current {
		if _, ok := prev[k]; ok {
			d.Update = append(d.Update, k)
		} else {
			d.Enter = append(d.Enter, k)
		}
	}
	for _, k := range previous {
		if _, ok := cur[k]; !ok {
			d.Exit = append(d.Exit, k)
		}
	}
	return d
}
