package external

import "fmt"

// responseFromBody lifts the common response shape out of a decoded
// JSON body, defaulting to success when the back end omits the field.
func responseFromBody(body map[string]any) Response {
	succeeded := true
	if v, ok := body["succeeded"].(bool); ok {
		succeeded = v
	}
	token, _ := body["rollback_token"].(string)
	return Response{Succeeded: succeeded, RollbackToken: token, Detail: body}
}

// Registry resolves an Action.System name to the System that executes
// it, the mapping the playbook catalog's action requirements assume.
type Registry struct {
	systems map[string]System
}

// NewRegistry builds a Registry over the given Systems, keyed by their
// own Name().
func NewRegistry(systems ...System) *Registry {
	r := &Registry{systems: make(map[string]System, len(systems))}
	for _, s := range systems {
		r.systems[s.Name()] = s
	}
	return r
}

// Lookup returns the System registered under name.
func (r *Registry) Lookup(name string) (System, error) {
	s, ok := r.systems[name]
	if !ok {
		return nil, fmt.Errorf("external: no system registered for %q", name)
	}
	return s, nil
}
