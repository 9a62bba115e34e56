package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
)

// TestUnknownRouteReturns404 verifies that requests to undefined paths receive a 404 response. Fiber v3 treats
// app.Use() middleware as route matches, so without the catch-all handler at the end of registerRoutes the router
// would return 200 with an empty body for unmatched paths.
func TestUnknownRouteReturns404(t *testing.T) {
	t.Parallel()

	app := fiber.New()

	// Register middleware so the router has app.Use() handlers that match all paths, reproducing the condition that
	// causes Fiber v3 to treat unmatched requests as handled.
	app.Use(func(c fiber.Ctx) error {
		return c.Next()
	})

	app.Get("/known", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Catch-all: mirrors the handler at the end of registerRoutes.
	app.Use(func(_ fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown path", "/no-such-route", fiber.StatusNotFound},
		{"favicon", "/favicon.ico", fiber.StatusNotFound},
		{"known path", "/known", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

// TestShutdownEndpoint_RequiresMatchingToken exercises a stand-in handler that mirrors the shutdown route's body-token
// check: a request whose token does not match is rejected and does not trigger shutdown. It does not use the handler
// registered in registerRoutes and needs no running service.
func TestShutdownEndpoint_RequiresMatchingToken(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	triggered := false
	app.Post("/shutdown", func(c fiber.Ctx) error {
		var body struct {
			Token string `json:"token"`
		}
		_ = c.Bind().Body(&body)
		if body.Token != "correct-token" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		triggered = true
		return c.JSON(fiber.Map{"status": "shutting down"})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/shutdown",
		jsonBody(t, map[string]string{"token": "wrong-token"})))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for wrong token", resp.StatusCode)
	}
	if triggered {
		t.Errorf("shutdown triggered with wrong token")
	}
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &byteReader{data: data}
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
