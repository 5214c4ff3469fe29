package menu

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/httpx"
	"github.com/JonasLeetTheWay/eventreg-go/internal/middleware"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

const defaultIcon = "menu"

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) SetupRoutes(r *gin.RouterGroup, protect gin.HandlerFunc) {
	g := r.Group("/menus", protect)
	{
		g.GET("", s.GetMenus)
		g.POST("", s.CreateMenu)
	}
}

type CreateInput struct {
	Name         string        `json:"name" validate:"notblank"`
	Route        string        `json:"route" validate:"notblank"`
	Icon         string        `json:"icon"`
	RolesAllowed []models.Role `json:"rolesAllowed" validate:"omitempty,dive,oneof=admin organizer user"`
}

// ForRole returns the menus visible to the caller's role.
func (s *Service) ForRole(ctx context.Context, p auth.Principal) ([]models.Menu, error) {
	var all []models.Menu
	if err := s.db.WithContext(ctx).Order("id").Find(&all).Error; err != nil {
		return nil, apperr.Unknown("Failed to fetch menus", err)
	}

	menus := make([]models.Menu, 0, len(all))
	for _, m := range all {
		if m.Allows(p.Role) {
			menus = append(menus, m)
		}
	}
	return menus, nil
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*models.Menu, error) {
	if err := auth.RequireRole(p, models.RoleAdmin).Err(); err != nil {
		return nil, err
	}

	menu := models.Menu{
		Name:         in.Name,
		Route:        in.Route,
		Icon:         in.Icon,
		RolesAllowed: in.RolesAllowed,
	}
	if menu.Icon == "" {
		menu.Icon = defaultIcon
	}
	if len(menu.RolesAllowed) == 0 {
		menu.RolesAllowed = []models.Role{models.RoleUser}
	}

	if err := s.db.WithContext(ctx).Create(&menu).Error; err != nil {
		return nil, apperr.Unknown("Failed to create menu", err)
	}
	return &menu, nil
}

func (s *Service) GetMenus(c *gin.Context) {
	menus, err := s.ForRole(c.Request.Context(), middleware.MustPrincipal(c))
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, menus)
}

func (s *Service) CreateMenu(c *gin.Context) {
	var in CreateInput
	if err := httpx.BindJSON(c, &in); err != nil {
		httpx.Fail(c, err)
		return
	}

	menu, err := s.Create(c.Request.Context(), middleware.MustPrincipal(c), in)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, menu)
}
