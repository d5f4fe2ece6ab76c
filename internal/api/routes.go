package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vinylgrove/companion/domain/character"
	"github.com/vinylgrove/companion/domain/conversation"
	"github.com/vinylgrove/companion/domain/game"
	"github.com/vinylgrove/companion/internal/observability"
	"github.com/vinylgrove/companion/usecase"
)

// Deps are the collaborators the HTTP layer exposes.
type Deps struct {
	Store     *conversation.Store
	Ingestor  *usecase.Ingestor
	Companion *usecase.Companion
	Tracker   *game.Tracker
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Deps) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "companion",
		})
	})

	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
			deps.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	g := e.Group("/api")

	g.GET("/messages", func(c echo.Context) error {
		return getMessages(c, deps)
	})
	g.GET("/state", func(c echo.Context) error {
		return getState(c, deps)
	})
	g.POST("/chat", func(c echo.Context) error {
		return postChat(c, deps)
	})

	g.GET("/characters", func(c echo.Context) error {
		return c.JSON(http.StatusOK, character.Catalog())
	})
	g.POST("/character/select", func(c echo.Context) error {
		return postSelect(c, deps)
	})

	g.GET("/items", func(c echo.Context) error {
		return c.JSON(http.StatusOK, character.Items())
	})
	g.POST("/feed", func(c echo.Context) error {
		return postFeed(c, deps)
	})

	g.POST("/game/move", func(c echo.Context) error {
		return postGameMove(c, deps)
	})
}

func getMessages(c echo.Context, deps Deps) error {
	msgs := deps.Store.Snapshot().Messages
	if msgs == nil {
		msgs = []conversation.Message{}
	}
	return c.JSON(http.StatusOK, MessagesResponse{Messages: msgs})
}

func getState(c echo.Context, deps Deps) error {
	return c.JSON(http.StatusOK, StateResponse{
		Companion:  deps.Companion.View(),
		Game:       deps.Tracker.View(),
		Processing: deps.Ingestor.Processing(),
	})
}

func postChat(c echo.Context, deps Deps) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_content",
			Message: "Message content is required",
		})
	}
	if deps.Ingestor.Processing() {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "busy",
			Message: "A response is already in progress",
		})
	}

	if err := deps.Ingestor.SendChat(req.Content); err != nil {
		deps.Logger.Error("Failed to send chat", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "send_failed",
			Message: "Could not reach the agent",
		})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "sent"})
}

func postSelect(c echo.Context, deps Deps) error {
	var req SelectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if err := deps.Companion.Select(req.ID); err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "unknown_character",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, deps.Companion.View())
}

func postFeed(c echo.Context, deps Deps) error {
	var req FeedRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if err := deps.Companion.Feed(c.Request().Context(), req.Item); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "feed_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, deps.Companion.View())
}

func postGameMove(c echo.Context, deps Deps) error {
	var req MoveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if err := deps.Tracker.TryMove(req.Row, req.Col); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, game.ErrNoGame) {
			status = http.StatusConflict
		}
		return c.JSON(status, ErrorResponse{
			Error:   "invalid_move",
			Message: err.Error(),
		})
	}

	// The move stays an optimistic overlay until the agent confirms it
	// through a board tool result.
	prompt := fmt.Sprintf("I place my mark at row %d, column %d. Update the board and make your move.", req.Row, req.Col)
	if err := deps.Ingestor.SendChat(prompt); err != nil {
		deps.Logger.Error("Failed to send move", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "send_failed",
			Message: "Could not reach the agent",
		})
	}
	return c.JSON(http.StatusAccepted, deps.Tracker.View())
}
