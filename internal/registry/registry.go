package registry

import (
	"sort"

	"github.com/danmuck/taskrunner/internal/protocol/record"
)

// Registry stores tasks by name. It is not safe for concurrent use; the
// Owner confines it to one goroutine.
type Registry struct {
	tasks map[string]record.Task
}

func New() *Registry {
	return &Registry{tasks: make(map[string]record.Task)}
}

// Put inserts t, replacing any task with the same name.
func (r *Registry) Put(t record.Task) (replaced bool) {
	_, replaced = r.tasks[t.Name]
	r.tasks[t.Name] = t
	return replaced
}

func (r *Registry) Get(name string) (record.Task, bool) {
	t, ok := r.tasks[name]
	if !ok {
		return record.Task{}, false
	}
	return t.Clone(), true
}

func (r *Registry) Len() int {
	return len(r.tasks)
}

// Snapshot returns copies of all tasks ordered by name.
func (r *Registry) Snapshot() []record.Task {
	list := make([]record.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		list = append(list, t.Clone())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}
