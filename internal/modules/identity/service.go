package identity

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/subsight/core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const apiTokenPrefix = "sst"

// ErrTokenNotFound means no API token exists under the given id for the
// requesting identity.
var ErrTokenNotFound = errors.New("api token not found")

// Service resolves external identity-provider subjects to local user rows.
type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// FindOrCreate resolves the user row for an external subject, creating it on
// first use. The insert is conditional on the unique external_id index so
// concurrent first saves cannot produce duplicate rows.
func (s *Service) FindOrCreate(externalID, email string) (*models.UserModel, error) {
	u := models.UserModel{ExternalID: externalID, Email: email}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&u).Error
	if err != nil {
		return nil, err
	}

	// The conditional insert may have been a no-op; read back the winner.
	var out models.UserModel
	if err := s.db.First(&out, "external_id = ?", externalID).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateToken mints a random API token for programmatic access under the
// same external subject.
func (s *Service) CreateToken(externalID, name string, expiredAt *time.Time) (*models.APIToken, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}

	t := models.APIToken{
		ExternalID: externalID,
		Token:      apiTokenPrefix + hex.EncodeToString(b),
		Name:       name,
		ExpiredAt:  expiredAt,
	}
	return &t, s.db.Create(&t).Error
}

// ListTokens returns every API token issued to the subject.
func (s *Service) ListTokens(externalID string) ([]models.APIToken, error) {
	tokens := []models.APIToken{}
	err := s.db.Where("external_id = ?", externalID).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

// DeleteToken revokes one token. Foreign or missing ids report not found.
func (s *Service) DeleteToken(externalID, tokenID string) error {
	result := s.db.Where("id = ? AND external_id = ?", tokenID, externalID).
		Delete(&models.APIToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// GetByExternalID returns the user row for a subject, or nil when the
// identity has never saved anything.
func (s *Service) GetByExternalID(externalID string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "external_id = ?", externalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
