package tinylisp

import "sort"

// Env is a stack of binding frames. Lookups search from the innermost frame
// outward; writes always go to the innermost frame.
type Env struct {
	frames []map[string]*Node
}

// NewEnv returns an environment holding one empty outermost frame.
func NewEnv() *Env {
	return &Env{frames: []map[string]*Node{{}}}
}

func (e *Env) PushFrame() {
	e.frames = append(e.frames, map[string]*Node{})
}

func (e *Env) PopFrame() {
	if len(e.frames) == 0 {
		panic("tinylisp: pop on empty environment")
	}
	e.frames = e.frames[:len(e.frames)-1]
}

// Depth returns the number of live frames.
func (e *Env) Depth() int {
	return len(e.frames)
}

func (e *Env) Lookup(name string) (*Node, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if val, ok := e.frames[i][name]; ok {
			return val, true
		}
	}
	return nil, false
}

func (e *Env) Bind(name string, value *Node) {
	e.innermost()[name] = value
}

func (e *Env) Unbind(name string) {
	delete(e.innermost(), name)
}

func (e *Env) innermost() map[string]*Node {
	if len(e.frames) == 0 {
		panic("tinylisp: no frame to bind into")
	}
	return e.frames[len(e.frames)-1]
}

// Binding is a name and the value visible under it.
type Binding struct {
	Name  string
	Value *Node
}

// Bindings returns every visible binding, shadowed names resolved to their
// innermost value, sorted by name.
func (e *Env) Bindings() []Binding {
	seen := make(map[string]bool)
	var out []Binding
	for i := len(e.frames) - 1; i >= 0; i-- {
		for name, val := range e.frames[i] {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, Binding{Name: name, Value: val})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted names of every visible binding.
func (e *Env) Names() []string {
	bs := e.Bindings()
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = b.Name
	}
	return names
}
