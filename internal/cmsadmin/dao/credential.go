package dao

import (
	"time"

	"gorm.io/gorm"
)

// Credential - токены доступа к API вошедшего сотрудника. В таблице одна запись.
type Credential struct {
	ID           int    `gorm:"primaryKey"`
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	UpdatedAt    time.Time
}

const credentialID = 1

func SaveCredential(db *gorm.DB, c *Credential) error {
	c.ID = credentialID
	return db.Save(c).Error
}

func GetCredential(db *gorm.DB) (*Credential, error) {
	var c Credential
	if err := db.Where("id = ?", credentialID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func DeleteCredential(db *gorm.DB) error {
	return db.Where("id = ?", credentialID).Delete(&Credential{}).Error
}
