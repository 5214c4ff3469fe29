package event

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JonasLeetTheWay/eventreg-go/internal/httpx"
	"github.com/JonasLeetTheWay/eventreg-go/internal/middleware"
)

func (s *Service) SetupRoutes(r *gin.RouterGroup, protect gin.HandlerFunc) {
	g := r.Group("/events")
	{
		g.GET("", s.GetEvents)
		g.GET("/my", protect, s.GetMyEvents)
		g.GET("/:id", s.GetEvent)
		g.POST("", protect, s.CreateEvent)
		g.PUT("/:id", protect, s.UpdateEvent)
		g.DELETE("/:id", protect, s.DeleteEvent)
	}
}

func (s *Service) GetEvents(c *gin.Context) {
	events, err := s.List(c.Request.Context())
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

func (s *Service) GetEvent(c *gin.Context) {
	id, err := httpx.ParamID(c, "id", "event")
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	event, err := s.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

func (s *Service) GetMyEvents(c *gin.Context) {
	events, err := s.Mine(c.Request.Context(), middleware.MustPrincipal(c))
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

func (s *Service) CreateEvent(c *gin.Context) {
	var in CreateInput
	if err := httpx.BindJSON(c, &in); err != nil {
		httpx.Fail(c, err)
		return
	}

	event, err := s.Create(c.Request.Context(), middleware.MustPrincipal(c), in)
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

func (s *Service) UpdateEvent(c *gin.Context) {
	id, err := httpx.ParamID(c, "id", "event")
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	var in UpdateInput
	if err := httpx.BindJSON(c, &in); err != nil {
		httpx.Fail(c, err)
		return
	}

	event, err := s.Update(c.Request.Context(), middleware.MustPrincipal(c), id, in)
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

func (s *Service) DeleteEvent(c *gin.Context) {
	id, err := httpx.ParamID(c, "id", "event")
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	if err := s.Delete(c.Request.Context(), middleware.MustPrincipal(c), id); err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event removed",
	})
}
