package category

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/httpx"
	"github.com/JonasLeetTheWay/eventreg-go/internal/middleware"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) SetupRoutes(r *gin.RouterGroup, protect gin.HandlerFunc) {
	g := r.Group("/categories")
	{
		g.GET("", s.GetCategories)
		g.POST("", protect, s.CreateCategory)
		g.PUT("/:id", protect, s.UpdateCategory)
		g.DELETE("/:id", protect, s.DeleteCategory)
	}
}

type Input struct {
	Name        *string `json:"name" validate:"omitnil,notblank,max=100"`
	Description *string `json:"description" validate:"omitnil,max=500"`
}

func (s *Service) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, apperr.Unknown("Failed to fetch categories", err)
	}
	return categories, nil
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in Input) (*models.Category, error) {
	if err := auth.RequireRole(p, models.RoleAdmin).Err(); err != nil {
		return nil, err
	}
	if in.Name == nil {
		return nil, apperr.Validation("Field is required: name")
	}

	category := models.Category{Name: strings.TrimSpace(*in.Name)}
	if in.Description != nil {
		category.Description = *in.Description
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, apperr.Unknown("Failed to create category", err)
	}
	return &category, nil
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id uint, in Input) (*models.Category, error) {
	if err := auth.RequireRole(p, models.RoleAdmin).Err(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	category, err := find(db, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if in.Name != nil {
		changes["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		changes["description"] = *in.Description
	}
	if len(changes) > 0 {
		if err := db.Model(category).Updates(changes).Error; err != nil {
			return nil, apperr.Unknown("Failed to update category", err)
		}
	}
	return find(db, id)
}

// Delete refuses to orphan events that still use the category.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id uint) error {
	if err := auth.RequireRole(p, models.RoleAdmin).Err(); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	category, err := find(db, id)
	if err != nil {
		return err
	}

	var inUse int64
	if err := db.Model(&models.Event{}).Where("category_id = ?", id).Count(&inUse).Error; err != nil {
		return apperr.Unknown("Failed to check category usage", err)
	}
	if inUse > 0 {
		return apperr.Validationf("Category is used by %d events", inUse)
	}

	if err := db.Delete(category).Error; err != nil {
		return apperr.Unknown("Failed to delete category", err)
	}
	return nil
}

func find(db *gorm.DB, id uint) (*models.Category, error) {
	var category models.Category
	if err := db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Category not found")
		}
		return nil, apperr.Unknown("Failed to fetch category", err)
	}
	return &category, nil
}

func (s *Service) GetCategories(c *gin.Context) {
	categories, err := s.List(c.Request.Context())
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (s *Service) CreateCategory(c *gin.Context) {
	var in Input
	if err := httpx.BindJSON(c, &in); err != nil {
		httpx.Fail(c, err)
		return
	}

	category, err := s.Create(c.Request.Context(), middleware.MustPrincipal(c), in)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (s *Service) UpdateCategory(c *gin.Context) {
	id, err := httpx.ParamID(c, "id", "category")
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	var in Input
	if err := httpx.BindJSON(c, &in); err != nil {
		httpx.Fail(c, err)
		return
	}

	category, err := s.Update(c.Request.Context(), middleware.MustPrincipal(c), id, in)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (s *Service) DeleteCategory(c *gin.Context) {
	id, err := httpx.ParamID(c, "id", "category")
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	if err := s.Delete(c.Request.Context(), middleware.MustPrincipal(c), id); err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category removed"})
}
