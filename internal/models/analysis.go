package models

// InsightResult is the structured payload produced by one extraction call.
// All four arrays are present (possibly empty) whenever extraction succeeds.
type InsightResult struct {
	Title            string   `json:"title,omitempty"`
	PainPoints       []string `json:"pain_points"`
	BuyingIntent     []string `json:"buying_intent"`
	RepeatedPatterns []string `json:"repeated_patterns"`
	ExactUserQuotes  []string `json:"exact_user_quotes"`
}

// SavedAnalysisModel persists one extraction result for an owning identity.
// The four category arrays are denormalized alongside the full payload so
// list views can show counts without decoding the blob. Rows are immutable
// after creation; the only destructive path is an ownership-checked delete.
type SavedAnalysisModel struct {
	Base
	UserID       string        `json:"userId"       gorm:"index;not null"`
	User         *UserModel    `json:"-"            gorm:"foreignKey:UserID"`
	URL          string        `json:"url"          gorm:"not null"`
	Title        string        `json:"title"`
	PainPoints   StringArray   `json:"painPoints"   gorm:"type:json"`
	BuyingIntent StringArray   `json:"buyingIntent" gorm:"type:json"`
	Patterns     StringArray   `json:"patterns"     gorm:"type:json"`
	Quotes       StringArray   `json:"quotes"       gorm:"type:json"`
	FullResponse InsightResult `json:"fullResponse" gorm:"type:json;serializer:json"`
}

func (SavedAnalysisModel) TableName() string { return "saved_analyses" }
