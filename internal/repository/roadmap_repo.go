package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/skillpath-api/internal/models"
)

// GeneratedRoadmapFilter describes filters applied to roadmap history queries.
type GeneratedRoadmapFilter struct {
	UserID   string
	Career   string
	Page     int
	PageSize int
}

// GeneratedRoadmapRepository exposes roadmap history persistence helpers.
type GeneratedRoadmapRepository interface {
	Create(ctx context.Context, roadmap *models.GeneratedRoadmap) error
	GetByID(ctx context.Context, id uint) (models.GeneratedRoadmap, error)
	List(ctx context.Context, filter GeneratedRoadmapFilter) ([]models.GeneratedRoadmap, int64, error)
}

type generatedRoadmapRepository struct {
	db *gorm.DB
}

// NewGeneratedRoadmapRepository constructs a repository.
func NewGeneratedRoadmapRepository(db *gorm.DB) GeneratedRoadmapRepository {
	return &generatedRoadmapRepository{db: db}
}

func (r *generatedRoadmapRepository) Create(ctx context.Context, roadmap *models.GeneratedRoadmap) error {
	return r.db.WithContext(ctx).Create(roadmap).Error
}

func (r *generatedRoadmapRepository) GetByID(ctx context.Context, id uint) (models.GeneratedRoadmap, error) {
	var roadmap models.GeneratedRoadmap
	if err := r.db.WithContext(ctx).First(&roadmap, id).Error; err != nil {
		return models.GeneratedRoadmap{}, err
	}
	return roadmap, nil
}

func (r *generatedRoadmapRepository) List(ctx context.Context, filter GeneratedRoadmapFilter) ([]models.GeneratedRoadmap, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.GeneratedRoadmap{}).Where("user_id = ?", filter.UserID)

	if filter.Career != "" {
		query = query.Where(`career_key LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(filter.Career))+"%")
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var roadmaps []models.GeneratedRoadmap
	if err := query.Find(&roadmaps).Error; err != nil {
		return nil, 0, err
	}
	return roadmaps, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes user search text match literally inside a LIKE pattern.
func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
