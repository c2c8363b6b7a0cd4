package schema

import "errors"

var (
	ErrUnknownEdgeKind = errors.New("unknown edge kind")
	ErrUnknownNodeKind = errors.New("unknown node kind")
	ErrUnknownField    = errors.New("unknown relation field")
	ErrSchemaMismatch  = errors.New("edge kind incompatible with endpoint kinds")
)
