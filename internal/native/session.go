package native

import (
	"fmt"

	"github.com/roach88/odatabridge/internal/builder"
	"github.com/roach88/odatabridge/internal/querysql"
	"github.com/roach88/odatabridge/internal/schema"
	"github.com/roach88/odatabridge/internal/store"
)

// Session is a connection to the backend: a store plus the model that
// types its records.
type Session struct {
	id       string
	store    *store.Store
	model    *schema.Model
	compiler *querysql.SQLCompiler
}

var _ builder.Session = (*Session)(nil)

// NewSession binds st and m under a fresh time-ordered id.
func NewSession(st *store.Store, m *schema.Model) (*Session, error) {
	return NewSessionWithIDs(st, m, UUIDv7Generator{})
}

// NewSessionWithIDs binds st and m under the next id from ids.
func NewSessionWithIDs(st *store.Store, m *schema.Model, ids IDGenerator) (*Session, error) {
	if st == nil {
		return nil, fmt.Errorf("new session: store is required")
	}
	if m == nil {
		return nil, fmt.Errorf("new session: model is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("new session: id generator is required")
	}
	return &Session{
		id:       ids.Generate(),
		store:    st,
		model:    m,
		compiler: querysql.NewSQLCompiler(m),
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Model returns the entity model.
func (s *Session) Model() *schema.Model { return s.model }
