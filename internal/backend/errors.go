package backend

import (
	"errors"

	"github.com/samber/lo"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	executor "github.com/hanpama/gqljit/internal/executor"
	language "github.com/hanpama/gqljit/internal/language"
)

// GraphQLErrors converts parser, validator and document errors into
// response errors, keeping source locations.
func GraphQLErrors(err error) []executor.GraphQLError {
	var list gqlerror.List
	if errors.As(err, &list) {
		return lo.Map(list, func(e *gqlerror.Error, _ int) executor.GraphQLError { return fromGQLError(e) })
	}
	var single *gqlerror.Error
	if errors.As(err, &single) {
		return []executor.GraphQLError{fromGQLError(single)}
	}
	return []executor.GraphQLError{{Message: err.Error()}}
}

func fromGQLError(e *language.Error) executor.GraphQLError {
	out := executor.GraphQLError{
		Message:    e.Message,
		Extensions: e.Extensions,
		Locations: lo.Map(e.Locations, func(l gqlerror.Location, _ int) executor.Location {
			return executor.Location{Line: l.Line, Column: l.Column}
		}),
	}
	if len(out.Locations) == 0 {
		out.Locations = nil
	}
	if len(e.Path) > 0 {
		out.Path = lo.Map(e.Path, func(el ast.PathElement, _ int) executor.PathElement {
			switch v := el.(type) {
			case ast.PathIndex:
				return int(v)
			case ast.PathName:
				return string(v)
			}
			return nil
		})
	}
	return out
}
