package httpserver

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// requestScopeMiddleware runs the registered before-request hooks in order
// and guarantees the teardown hooks run once the scope ends, in reverse
// registration order, on normal return, handler error, failed before-hook
// and panic alike. A panic is re-raised after teardown for Recover.
func (s *Server) requestScopeMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			if len(s.beforeRequest) == 0 && len(s.teardownRequest) == 0 {
				return next(c)
			}
			if s.hookSkipper != nil && s.hookSkipper(c) {
				return next(c)
			}

			defer func() {
				r := recover()
				scopeErr := err
				if r != nil {
					scopeErr = fmt.Errorf("panic: %v", r)
				}

				ctx := c.Request().Context()
				for i := len(s.teardownRequest) - 1; i >= 0; i-- {
					s.teardownRequest[i](ctx, scopeErr)
				}

				if r != nil {
					panic(r)
				}
			}()

			for _, fn := range s.beforeRequest {
				ctx, hookErr := fn(c.Request().Context())
				if ctx != nil {
					c.SetRequest(c.Request().WithContext(ctx))
				}
				if hookErr != nil {
					return hookErr
				}
			}

			return next(c)
		}
	}
}
