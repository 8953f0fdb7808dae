// DAO (Data Access Object) - локальное хранилище административной панели.
//
// Основные возможности:
//   - Черновики форм, которые не удалось отправить в API, для повторной отправки.
//   - Сохраненные токены доступа к API.
//   - Постраничная выборка.
package dao

import (
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

func GenUUID() uuid.UUID {
	u2, _ := uuid.NewV4()
	return u2
}

// Migrate создает таблицы локального хранилища
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Draft{}, &Credential{})
}

type PaginationResponse struct {
	Count  int64 `json:"count"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
	Result any   `json:"result"`
}

func PaginationRequest(offset int, limit int, query *gorm.DB, target any) (res PaginationResponse, err error) {
	if err := query.Session(&gorm.Session{}).Model(target).Count(&res.Count).Error; err != nil {
		return res, err
	}

	if err := query.Offset(offset).Limit(limit).Find(target).Error; err != nil {
		return res, err
	}

	res.Result = target
	res.Limit = limit
	res.Offset = offset

	return res, nil
}
