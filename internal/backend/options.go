package backend

import schema "github.com/hanpama/gqljit/internal/schema"

// DefaultCacheSize is the number of compiled documents kept per backend.
const DefaultCacheSize = 1024

type options struct {
	middleware    []schema.Middleware
	cacheSize     int
	introspection bool
	root          any
	operationName string
}

// Option configures a Backend.
type Option func(*options)

// WithMiddleware decorates every field resolver. The first middleware is
// the outermost.
func WithMiddleware(mws ...schema.Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mws...) }
}

// WithCacheSize sets the document cache capacity. Zero disables caching.
func WithCacheSize(n int) Option { return func(o *options) { o.cacheSize = n } }

// WithIntrospection toggles the __schema and __type fields.
func WithIntrospection(enable bool) Option { return func(o *options) { o.introspection = enable } }

// WithRootValue sets the root value used when Execute is given none.
func WithRootValue(root any) Option { return func(o *options) { o.root = root } }

// WithOperationName selects the operation compiled by Compile.
func WithOperationName(name string) Option { return func(o *options) { o.operationName = name } }
