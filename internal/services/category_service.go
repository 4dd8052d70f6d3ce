package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "famfin/internal/errors"
	"famfin/internal/models"
)

// categoryService reads the category tree. The tree is maintained by an
// external service; budget scoping only needs lookups and descendant sets.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// GetCategoryByID retrieves a category by ID.
func (s *categoryService) GetCategoryByID(categoryID uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// DescendantIDs returns the category and every category below it in the
// tree, walking parent links level by level.
func (s *categoryService) DescendantIDs(categoryID uint) ([]uint, error) {
	if _, err := s.GetCategoryByID(categoryID); err != nil {
		return nil, err
	}

	ids := []uint{categoryID}
	frontier := []uint{categoryID}

	for len(frontier) > 0 {
		var children []uint
		if err := s.db.Model(&models.Category{}).
			Where("parent_id IN ?", frontier).
			Pluck("id", &children).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		ids = append(ids, children...)
		frontier = children
	}

	return ids, nil
}
