package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JonasLeetTheWay/eventreg-go/internal/httpx"
	"github.com/JonasLeetTheWay/eventreg-go/internal/middleware"
)

// SetupRoutes mounts /auth and /users. throttle guards the public auth
// routes.
func (s *Service) SetupRoutes(r *gin.RouterGroup, protect gin.HandlerFunc, throttle ...gin.HandlerFunc) {
	authRoutes := r.Group("/auth", throttle...)
	{
		authRoutes.POST("/register", s.RegisterUser)
		authRoutes.POST("/login", s.LoginUser)
	}

	users := r.Group("/users", protect)
	{
		users.GET("", s.GetUsers)
		users.PUT("/profile", s.UpdateUserProfile)
		users.PUT("/:id", s.UpdateUser)
		users.DELETE("/:id", s.DeleteUser)
	}
}

func (s *Service) RegisterUser(c *gin.Context) {
	var in RegisterInput
	if err := httpx.BindJSON(c, &in); err != nil {
		httpx.Fail(c, err)
		return
	}

	resp, err := s.Register(c.Request.Context(), in)
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Service) LoginUser(c *gin.Context) {
	var in LoginInput
	if err := httpx.BindJSON(c, &in); err != nil {
		httpx.Fail(c, err)
		return
	}

	resp, err := s.Login(c.Request.Context(), in)
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Service) GetUsers(c *gin.Context) {
	users, err := s.List(c.Request.Context(), middleware.MustPrincipal(c))
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (s *Service) UpdateUser(c *gin.Context) {
	id, err := httpx.ParamID(c, "id", "user")
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	var in UpdateInput
	if err := httpx.BindJSON(c, &in); err != nil {
		httpx.Fail(c, err)
		return
	}

	user, err := s.Update(c.Request.Context(), middleware.MustPrincipal(c), id, in)
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *Service) UpdateUserProfile(c *gin.Context) {
	var in UpdateInput
	if err := httpx.BindJSON(c, &in); err != nil {
		httpx.Fail(c, err)
		return
	}

	user, err := s.UpdateProfile(c.Request.Context(), middleware.MustPrincipal(c), in)
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *Service) DeleteUser(c *gin.Context) {
	id, err := httpx.ParamID(c, "id", "user")
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	if err := s.Delete(c.Request.Context(), middleware.MustPrincipal(c), id); err != nil {
		httpx.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User removed",
	})
}
