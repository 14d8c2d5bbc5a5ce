package model

// ApplicantModel mirrors the read-only 'applicants' projection of the record store.
type ApplicantModel struct {
	ID          string `gorm:"type:varchar(64);primaryKey"`
	DisplayName string `gorm:"type:varchar(255)"`
	SecretHash  string `gorm:"type:varchar(255);not null"`
	Archived    bool   `gorm:"not null;default:false"`
	TokenEpoch  int64  `gorm:"not null;default:0"`
}

// TableName explicitly sets the table name for GORM.
func (ApplicantModel) TableName() string {
	return "applicants"
}

// ReferrerModel mirrors the read-only 'referrers' projection of the record store.
type ReferrerModel struct {
	ID                 string `gorm:"type:varchar(64);primaryKey"`
	DisplayName        string `gorm:"type:varchar(255)"`
	Archived           bool   `gorm:"not null;default:false"`
	PortalTokenVersion int64  `gorm:"not null;default:0"`
}

// TableName explicitly sets the table name for GORM.
func (ReferrerModel) TableName() string {
	return "referrers"
}
