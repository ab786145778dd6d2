package models

import "time"

// UserModel is the owning identity for saved analyses. Rows are created
// lazily: the first successful save for an external subject creates one.
type UserModel struct {
	Base
	ExternalID string               `json:"externalId" gorm:"uniqueIndex;not null"`
	Email      string               `json:"email"`
	Analyses   []SavedAnalysisModel `json:"analyses,omitempty" gorm:"foreignKey:UserID"`
}

func (UserModel) TableName() string { return "users" }

// APIToken is a personal token for programmatic access, resolving to the same
// external identity as the issuing provider subject.
type APIToken struct {
	Base
	ExternalID string     `json:"-"          gorm:"index;not null"`
	Token      string     `json:"token"      gorm:"uniqueIndex;not null"`
	Name       string     `json:"name"`
	ExpiredAt  *time.Time `json:"expiredAt"`
}

func (APIToken) TableName() string { return "api_tokens" }
