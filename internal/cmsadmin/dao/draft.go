package dao

import (
	"encoding/json"
	"time"

	"github.com/djofo/cmsadmin/internal/cmsadmin/editor"
	"github.com/djofo/cmsadmin/internal/cmsadmin/editor/edtypes"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Виды черновиков, совпадают с ресурсами API
const (
	DraftContent   = "content"
	DraftPodcast   = "podcast"
	DraftFormation = "formation"
	DraftCourse    = "course"
)

// Draft - форма, отправка которой в API не удалась. Хранится, чтобы пользователь мог повторить отправку без повторного ввода.
type Draft struct {
	ID        uuid.UUID `json:"id" gorm:"column:id;primaryKey;type:uuid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`

	Kind     string `json:"kind" gorm:"index"`
	RecordID string `json:"record_id,omitempty"` // id записи в API для обновления, пусто для новой
	Title    string `json:"title"`

	// Текст записи хранится HTML через edtypes.Document
	Content     edtypes.Document `json:"-"`
	ContentHTML string           `json:"content" gorm:"-"`

	// Остальные поля формы как пришли от клиента
	Payload   json.RawMessage `json:"payload,omitempty" gorm:"type:text"`
	LastError string          `json:"last_error,omitempty"`
}

func (d *Draft) BeforeSave(tx *gorm.DB) error {
	if d.ID.IsNil() {
		d.ID = GenUUID()
	}
	if d.ContentHTML != "" {
		doc, err := editor.ParseString(d.ContentHTML)
		if err != nil {
			return err
		}
		d.Content = *doc
	}
	return nil
}

func (d *Draft) AfterFind(tx *gorm.DB) error {
	d.ContentHTML = editor.RenderHTML(&d.Content)
	return nil
}

func SaveDraft(db *gorm.DB, d *Draft) error {
	return db.Save(d).Error
}

func GetDraft(db *gorm.DB, id uuid.UUID) (*Draft, error) {
	var d Draft
	if err := db.Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDrafts - черновики, новые первыми. Пустой kind - все виды.
func ListDrafts(db *gorm.DB, kind string, offset, limit int) (PaginationResponse, error) {
	query := db.Order("updated_at desc")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	var drafts []Draft
	return PaginationRequest(offset, limit, query, &drafts)
}

func DeleteDraft(db *gorm.DB, id uuid.UUID) error {
	res := db.Where("id = ?", id).Delete(&Draft{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteDraftsOlderThan удаляет черновики, не обновлявшиеся с before
func DeleteDraftsOlderThan(db *gorm.DB, before time.Time) (int64, error) {
	res := db.Where("updated_at < ?", before).Delete(&Draft{})
	return res.RowsAffected, res.Error
}
