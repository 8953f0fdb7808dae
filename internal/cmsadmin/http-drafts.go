package cmsadmin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/djofo/cmsadmin/internal/cmsadmin/apiclient"
	"github.com/djofo/cmsadmin/internal/cmsadmin/apierrors"
	"github.com/djofo/cmsadmin/internal/cmsadmin/dao"
	errStack "github.com/djofo/cmsadmin/internal/cmsadmin/stack-error"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func (s *Services) AddDraftServices(g *echo.Group) {
	g.GET("drafts/", s.listDrafts)
	g.GET("drafts/:draftId/", s.getDraft)
	g.DELETE("drafts/:draftId/", s.deleteDraft)
	g.POST("drafts/:draftId/retry/", s.retryDraft)
}

func (s *Services) listDrafts(c echo.Context) error {
	offset := 0
	limit := 20
	kind := ""
	if err := echo.QueryParamsBinder(c).
		Int("offset", &offset).
		Int("limit", &limit).
		String("kind", &kind).
		BindError(); err != nil {
		return EErrorDefined(c, apierrors.ErrValidation.WithFormattedMessage(err.Error()))
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	resp, err := dao.ListDrafts(s.db, kind, offset, limit)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Services) draftFromParam(c echo.Context) (*dao.Draft, error) {
	id, err := uuid.FromString(c.Param("draftId"))
	if err != nil {
		return nil, apierrors.ErrInvalidID
	}
	draft, err := dao.GetDraft(s.db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierrors.ErrDraftNotFound
	}
	return draft, err
}

func (s *Services) getDraft(c echo.Context) error {
	draft, err := s.draftFromParam(c)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, draft)
}

func (s *Services) deleteDraft(c echo.Context) error {
	draft, err := s.draftFromParam(c)
	if err != nil {
		return EError(c, err)
	}
	if err := dao.DeleteDraft(s.db, draft.ID); err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// retryDraft повторяет отправку формы из черновика. При успехе черновик удаляется,
// при новом сбое обновляется его last_error.
func (s *Services) retryDraft(c echo.Context) error {
	draft, err := s.draftFromParam(c)
	if err != nil {
		return EError(c, err)
	}

	sub, err := s.draftSubmission(draft)
	if err != nil {
		return EError(c, errStack.TrackErrorStack(err).AddDraft(draft.Kind, &draft.ID))
	}
	return s.submit(c, sub, &draft.ID)
}

func (s *Services) draftSubmission(draft *dao.Draft) (submission, error) {
	decode := func(v any) error {
		if err := json.Unmarshal(draft.Payload, v); err != nil {
			return apierrors.ErrValidation.WithFormattedMessage("payload")
		}
		return nil
	}

	switch draft.Kind {
	case dao.DraftContent:
		var content apiclient.Content
		if err := decode(&content); err != nil {
			return submission{}, err
		}
		if draft.ContentHTML != "" {
			content.Content = draft.ContentHTML
		}
		return s.contentSubmission(content, draft.RecordID)
	case dao.DraftPodcast:
		var p apiclient.Podcast
		if err := decode(&p); err != nil {
			return submission{}, err
		}
		if draft.ContentHTML != "" {
			p.Podcast = draft.ContentHTML
		}
		return s.podcastSubmission(p)
	case dao.DraftFormation:
		var f apiclient.Formation
		if err := decode(&f); err != nil {
			return submission{}, err
		}
		return s.formationSubmission(f), nil
	case dao.DraftCourse:
		var course apiclient.Course
		if err := decode(&course); err != nil {
			return submission{}, err
		}
		if draft.ContentHTML != "" {
			course.Content = draft.ContentHTML
		}
		return s.courseSubmission(course)
	}
	return submission{}, apierrors.ErrValidation.WithFormattedMessage("kind")
}
