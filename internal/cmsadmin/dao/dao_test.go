package dao

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestDrafts(t *testing.T) {
	db := openDB(t)

	d := &Draft{
		Kind:        DraftContent,
		Title:       "Élections",
		ContentHTML: "<p>Hello <b>world</b></p>",
		Payload:     json.RawMessage(`{"type":1,"tags":["news"]}`),
		LastError:   "remote api is unavailable",
	}
	require.NoError(t, SaveDraft(db, d))
	assert.False(t, d.ID.IsNil())

	got, err := GetDraft(db, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Élections", got.Title)
	assert.Equal(t, "<p>Hello <strong>world</strong></p>", got.ContentHTML)
	assert.JSONEq(t, `{"type":1,"tags":["news"]}`, string(got.Payload))

	require.NoError(t, SaveDraft(db, &Draft{Kind: DraftPodcast, Title: "Épisode 1"}))

	page, err := ListDrafts(db, DraftContent, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Count)

	page, err = ListDrafts(db, "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Count)

	require.NoError(t, DeleteDraft(db, d.ID))
	assert.ErrorIs(t, DeleteDraft(db, d.ID), gorm.ErrRecordNotFound)
	_, err = GetDraft(db, d.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteDraftsOlderThan(t *testing.T) {
	db := openDB(t)
	require.NoError(t, SaveDraft(db, &Draft{Kind: DraftCourse, Title: "old"}))
	require.NoError(t, db.Model(&Draft{}).Where("title = ?", "old").UpdateColumn("updated_at", time.Now().Add(-48*time.Hour)).Error)
	require.NoError(t, SaveDraft(db, &Draft{Kind: DraftCourse, Title: "fresh"}))

	n, err := DeleteDraftsOlderThan(db, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCredential(t *testing.T) {
	db := openDB(t)

	_, err := GetCredential(db)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, SaveCredential(db, &Credential{Email: "admin@djofo.bj", AccessToken: "a1"}))
	require.NoError(t, SaveCredential(db, &Credential{Email: "admin@djofo.bj", AccessToken: "a2"}))

	c, err := GetCredential(db)
	require.NoError(t, err)
	assert.Equal(t, "a2", c.AccessToken)

	require.NoError(t, DeleteCredential(db))
	_, err = GetCredential(db)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
