package record

// Task is one decoded task record.
type Task struct {
	Name    string
	Depends []string
	Args    [][]byte
}

// Clone returns a deep copy so callers can hand a task across goroutines.
func (t Task) Clone() Task {
	out := Task{Name: t.Name}
	if t.Depends != nil {
		out.Depends = append([]string(nil), t.Depends...)
	}
	if t.Args != nil {
		out.Args = make([][]byte, len(t.Args))
		for i, arg := range t.Args {
			out.Args[i] = append([]byte(nil), arg...)
		}
	}
	return out
}

// ArgStrings returns the argument vector as strings.
func (t Task) ArgStrings() []string {
	out := make([]string, len(t.Args))
	for i, arg := range t.Args {
		out[i] = string(arg)
	}
	return out
}
