package insight

import (
	"errors"

	"github.com/subsight/core/internal/models"
	"github.com/subsight/core/internal/modules/identity"
	"github.com/subsight/core/internal/modules/reddit"
	"gorm.io/gorm"
)

// Service fronts the saved-analysis store. Every read and delete re-checks
// ownership against the requester's external identity.
type Service struct {
	db  *gorm.DB
	ids *identity.Service
}

func NewService(db *gorm.DB, ids *identity.Service) *Service {
	return &Service{db: db, ids: ids}
}

// Save persists one extraction result for the external subject, creating the
// identity row on first use. The URL is canonicalized (format suffix
// stripped) before storage.
func (s *Service) Save(externalID, email, url, title string, result models.InsightResult) (string, error) {
	u, err := s.ids.FindOrCreate(externalID, email)
	if err != nil {
		return "", err
	}

	row := models.SavedAnalysisModel{
		UserID:       u.ID,
		URL:          reddit.CanonicalURL(url),
		Title:        title,
		PainPoints:   asArray(result.PainPoints),
		BuyingIntent: asArray(result.BuyingIntent),
		Patterns:     asArray(result.RepeatedPatterns),
		Quotes:       asArray(result.ExactUserQuotes),
		FullResponse: result,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return "", err
	}
	return row.ID, nil
}

// Get returns one saved analysis, owner-only.
func (s *Service) Get(id, externalID string) (*models.SavedAnalysisModel, error) {
	var row models.SavedAnalysisModel
	if err := s.db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	owner, err := s.ids.GetByExternalID(externalID)
	if err != nil {
		return nil, err
	}
	if owner == nil || row.UserID != owner.ID {
		return nil, ErrForbidden
	}
	return &row, nil
}

// List returns every analysis owned by the subject, newest first. An unknown
// identity yields an empty slice, not an error.
func (s *Service) List(externalID string) ([]models.SavedAnalysisModel, error) {
	owner, err := s.ids.GetByExternalID(externalID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return []models.SavedAnalysisModel{}, nil
	}

	rows := []models.SavedAnalysisModel{}
	err = s.db.
		Where("user_id = ?", owner.ID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// Delete removes one analysis irrevocably. A missing row and an ownership
// mismatch are indistinguishable to the caller.
func (s *Service) Delete(id, externalID string) error {
	var row models.SavedAnalysisModel
	if err := s.db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	owner, err := s.ids.GetByExternalID(externalID)
	if err != nil {
		return err
	}
	if owner == nil || row.UserID != owner.ID {
		return ErrNotFound
	}

	return s.db.Delete(&models.SavedAnalysisModel{}, "id = ?", id).Error
}

func asArray(in []string) models.StringArray {
	if in == nil {
		return models.StringArray{}
	}
	return models.StringArray(in)
}
