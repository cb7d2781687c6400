package native

import (
	"fmt"

	"github.com/roach88/odatabridge/internal/builder"
	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/schema"
)

// Register adds a builder for every entity type of m. Each builder hands
// out a root query over the session it is given, which must be a
// *Session.
func Register(r *builder.Registry, m *schema.Model) error {
	for _, t := range m.Entities() {
		if err := r.Register(t, constructor); err != nil {
			return err
		}
	}
	return nil
}

func constructor(t *expr.Type) (*builder.Entry, error) {
	return builder.NewEntry(t, func(s builder.Session) (builder.NativeQuery, error) {
		ns, ok := s.(*Session)
		if !ok {
			return nil, fmt.Errorf("session %T is not a native session", s)
		}
		return ns.Source(t)
	}), nil
}
