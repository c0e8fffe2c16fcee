package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RegisterHealthRoute mounts GET /health. It never touches the database.
func (s *Server) RegisterHealthRoute() {
	s.echo.GET("/health", handleHealth)
}

func handleHealth(c echo.Context) error {
	if err := c.JSON(http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to write health response: %w", err)
	}
	return nil
}
