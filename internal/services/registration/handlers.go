package registration

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JonasLeetTheWay/eventreg-go/internal/httpx"
	"github.com/JonasLeetTheWay/eventreg-go/internal/middleware"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

// SetupRoutes mounts /registrations. throttle runs after authentication
// on the admission route only.
func (s *Service) SetupRoutes(r *gin.RouterGroup, protect gin.HandlerFunc, throttle ...gin.HandlerFunc) {
	admit := append(append([]gin.HandlerFunc{}, throttle...), s.RegisterForEvent)

	g := r.Group("/registrations", protect)
	{
		g.POST("", admit...)
		g.GET("", s.GetAllRegistrations)
		g.GET("/my", s.GetMyRegistrations)
		g.GET("/organizer", s.GetOrganizerRegistrations)
		g.GET("/event/:eventId", s.GetEventParticipants)
		g.PUT("/:id/pay", s.UpdatePaymentStatus)
	}
}

type registerRequest struct {
	// either key names the event
	Event   uint   `json:"event"`
	EventID uint   `json:"eventId"`
	Seats   *int   `json:"seats"`
	Name    string `json:"name" validate:"max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=50"`
}

func (s *Service) RegisterForEvent(c *gin.Context) {
	var req registerRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.Fail(c, err)
		return
	}

	eventID := req.Event
	if eventID == 0 {
		eventID = req.EventID
	}

	reg, err := s.Register(c.Request.Context(), middleware.MustPrincipal(c), RegisterInput{
		EventID: eventID,
		Seats:   req.Seats,
		Attendee: models.AttendeeDetails{
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
		},
	})
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, reg)
}

func (s *Service) GetEventParticipants(c *gin.Context) {
	eventID, err := httpx.ParamID(c, "eventId", "event")
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	regs, err := s.Participants(c.Request.Context(), middleware.MustPrincipal(c), eventID, c.Query("search"))
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, regs)
}

func (s *Service) GetOrganizerRegistrations(c *gin.Context) {
	regs, err := s.ForOrganizer(c.Request.Context(), middleware.MustPrincipal(c), c.Query("search"))
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, regs)
}

func (s *Service) GetMyRegistrations(c *gin.Context) {
	regs, err := s.Mine(c.Request.Context(), middleware.MustPrincipal(c))
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, regs)
}

func (s *Service) GetAllRegistrations(c *gin.Context) {
	regs, err := s.All(c.Request.Context(), middleware.MustPrincipal(c))
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, regs)
}

func (s *Service) UpdatePaymentStatus(c *gin.Context) {
	id, err := httpx.ParamID(c, "id", "registration")
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	reg, err := s.ConfirmPayment(c.Request.Context(), middleware.MustPrincipal(c), id)
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, reg)
}
