package cmsadmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/djofo/cmsadmin/internal/cmsadmin/apiclient"
	"github.com/djofo/cmsadmin/internal/cmsadmin/apierrors"
	"github.com/djofo/cmsadmin/internal/cmsadmin/dao"
	"github.com/djofo/cmsadmin/internal/cmsadmin/notifications"
	"github.com/djofo/cmsadmin/internal/cmsadmin/policy"
	errStack "github.com/djofo/cmsadmin/internal/cmsadmin/stack-error"
	"github.com/djofo/cmsadmin/internal/cmsadmin/taginput"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Services) AddContentServices(g *echo.Group) {
	g.GET("contents/", s.listContents)
	g.POST("contents/", s.createContent)
	g.PUT("contents/:id/", s.updateContent)
	g.DELETE("contents/:id/", s.deleteContent)

	g.POST("podcasts/", s.createPodcast)
	g.GET("media/", s.listMedia)
	g.POST("upload/", s.uploadFile)

	g.GET("formations/", s.listFormations)
	g.POST("formations/", s.createFormation)
	g.GET("courses/", s.listCourses)
	g.POST("courses/", s.createCourse)

	g.GET("subscribers/", s.listSubscribers)
	g.GET("surveys/", s.listSurveys)
	g.GET("investigations/", s.listInvestigations)
}

// submission - отправка формы в API. При сбое форма сохраняется черновиком.
type submission struct {
	kind     string
	recordID string
	title    string
	content  string
	payload  any
	success  string
	status   int
	send     func(ctx context.Context) (any, error)
}

// RemoteFailure - ответ при сбое отправки, draft_id указывает на сохраненную форму
type RemoteFailure struct {
	apierrors.DefinedError
	DraftID uuid.UUID `json:"draft_id"`
}

func (s *Services) submit(c echo.Context, sub submission, draftID *uuid.UUID) error {
	res, err := sub.send(c.Request().Context())
	if err == nil {
		if draftID != nil {
			if err := dao.DeleteDraft(s.db, *draftID); err != nil {
				slog.Warn("Delete submitted draft", "draftId", draftID, "err", err)
			}
		}
		notifications.Success(s.notify, sub.success)
		return c.JSON(sub.status, res)
	}

	de := remoteError(err)
	notifications.Error(s.notify, de.FrErr)

	draft, derr := s.saveDraft(sub, draftID, err)
	if derr != nil {
		errStack.GetError(c, errStack.TrackErrorStack(derr).AddDraft(sub.kind, draftID).AddErr(err))
		return EErrorDefined(c, de)
	}
	slog.Info("Submission saved as draft", "kind", sub.kind, "draftId", draft.ID, "err", err)

	status := de.StatusCode
	if http.StatusText(status) == "" {
		status = http.StatusBadRequest
	}
	return c.JSON(status, RemoteFailure{DefinedError: de, DraftID: draft.ID})
}

func (s *Services) saveDraft(sub submission, draftID *uuid.UUID, cause error) (*dao.Draft, error) {
	payload, err := json.Marshal(sub.payload)
	if err != nil {
		return nil, err
	}
	draft := &dao.Draft{
		Kind:        sub.kind,
		RecordID:    sub.recordID,
		Title:       sub.title,
		ContentHTML: sub.content,
		Payload:     payload,
		LastError:   cause.Error(),
	}
	if draftID != nil {
		old, err := dao.GetDraft(s.db, *draftID)
		if err == nil {
			draft.ID = old.ID
			draft.CreatedAt = old.CreatedAt
		}
	}
	if err := dao.SaveDraft(s.db, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func cleanTags(tags []string) []string {
	in := taginput.New(nil)
	for _, t := range tags {
		in.Add(policy.StripTags(t))
	}
	return in.Tags()
}

func cleanHTML(content string) (string, error) {
	return policy.Prepare(content, cfg.MinifyContent)
}

func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apierrors.ErrValidation.WithFormattedMessage(err.Error())
	}
	if err := c.Validate(req); err != nil {
		return apierrors.ErrValidation.WithFormattedMessage(err.Error())
	}
	return nil
}

func listResponse[T any](c echo.Context, list []T, err error) error {
	if err != nil {
		return EErrorDefined(c, remoteError(err))
	}
	return c.JSON(http.StatusOK, list)
}

// ############# Contents ###################

type ContentRequest struct {
	apiclient.Content
	DraftID *uuid.UUID `json:"draft_id,omitempty"`
}

func (s *Services) contentSubmission(content apiclient.Content, recordID string) (submission, error) {
	content.Title = policy.StripTags(content.Title)
	content.Tags = cleanTags(content.Tags)
	if content.Files == nil {
		content.Files = []string{}
	}
	var err error
	if content.Content, err = cleanHTML(content.Content); err != nil {
		return submission{}, err
	}

	sub := submission{
		kind:     dao.DraftContent,
		recordID: recordID,
		title:    content.Title,
		content:  content.Content,
		payload:  content,
		success:  "Contenu créé avec succès",
		status:   http.StatusCreated,
		send: func(ctx context.Context) (any, error) {
			return s.api.CreateContent(ctx, content)
		},
	}
	if recordID != "" {
		sub.success = "Contenu mis à jour avec succès"
		sub.status = http.StatusOK
		sub.send = func(ctx context.Context) (any, error) {
			return s.api.UpdateContent(ctx, recordID, content)
		}
	}
	return sub, nil
}

func (s *Services) listContents(c echo.Context) error {
	list, err := s.api.ListContents(c.Request().Context())
	return listResponse(c, list, err)
}

func (s *Services) createContent(c echo.Context) error {
	var req ContentRequest
	if err := bindValid(c, &req); err != nil {
		return EError(c, err)
	}
	sub, err := s.contentSubmission(req.Content, "")
	if err != nil {
		return EError(c, err)
	}
	return s.submit(c, sub, req.DraftID)
}

func (s *Services) updateContent(c echo.Context) error {
	var req ContentRequest
	if err := bindValid(c, &req); err != nil {
		return EError(c, err)
	}
	sub, err := s.contentSubmission(req.Content, c.Param("id"))
	if err != nil {
		return EError(c, err)
	}
	return s.submit(c, sub, req.DraftID)
}

func (s *Services) deleteContent(c echo.Context) error {
	if err := s.api.DeleteContent(c.Request().Context(), c.Param("id")); err != nil {
		de := remoteError(err)
		notifications.Error(s.notify, de.FrErr)
		return EErrorDefined(c, de)
	}
	notifications.Success(s.notify, "Contenu supprimé")
	return c.NoContent(http.StatusOK)
}

// ############# Podcasts & media ###################

type PodcastRequest struct {
	apiclient.Podcast
	DraftID *uuid.UUID `json:"draft_id,omitempty"`
}

func (s *Services) podcastSubmission(p apiclient.Podcast) (submission, error) {
	p.Title = policy.StripTags(p.Title)
	p.Description = policy.StripTags(p.Description)
	p.Tags = cleanTags(p.Tags)
	if p.Files == nil {
		p.Files = []string{}
	}
	var err error
	if p.Podcast, err = cleanHTML(p.Podcast); err != nil {
		return submission{}, err
	}
	return submission{
		kind:    dao.DraftPodcast,
		title:   p.Title,
		content: p.Podcast,
		payload: p,
		success: "Podcast créé avec succès",
		status:  http.StatusCreated,
		send: func(ctx context.Context) (any, error) {
			return s.api.CreatePodcast(ctx, p)
		},
	}, nil
}

func (s *Services) createPodcast(c echo.Context) error {
	var req PodcastRequest
	if err := bindValid(c, &req); err != nil {
		return EError(c, err)
	}
	sub, err := s.podcastSubmission(req.Podcast)
	if err != nil {
		return EError(c, err)
	}
	return s.submit(c, sub, req.DraftID)
}

func (s *Services) listMedia(c echo.Context) error {
	list, err := s.api.ListMedia(c.Request().Context())
	return listResponse(c, list, err)
}

// uploadFile пересылает файл из поля "file" в API и отдает его адрес
func (s *Services) uploadFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return EErrorDefined(c, apierrors.ErrUploadFileRequired)
	}
	f, err := fh.Open()
	if err != nil {
		return EError(c, err)
	}
	defer f.Close()

	notifications.Loading(s.notify, fmt.Sprintf("Téléversement de %s", fh.Filename))
	u, err := s.api.Upload(c.Request().Context(), fh.Filename, f)
	if err != nil {
		de := remoteError(err)
		if errors.Is(err, apiclient.ErrNoUploadURL) {
			de = apierrors.ErrRemoteAPI.WithFormattedMessage(err.Error())
		}
		notifications.Error(s.notify, fmt.Sprintf("%s: %s", de.FrErr, fh.Filename))
		return EErrorDefined(c, de)
	}
	notifications.Success(s.notify, "Fichier téléversé")
	return c.JSON(http.StatusOK, map[string]string{"url": u})
}

// ############# Formations & courses ###################

type FormationRequest struct {
	apiclient.Formation
	DraftID *uuid.UUID `json:"draft_id,omitempty"`
}

func (s *Services) formationSubmission(f apiclient.Formation) submission {
	f.Title = policy.StripTags(f.Title)
	f.Description = policy.StripTags(f.Description)
	f.Tags = cleanTags(f.Tags)
	if f.Object == nil {
		f.Object = []string{}
	}
	return submission{
		kind:    dao.DraftFormation,
		title:   f.Title,
		payload: f,
		success: "Formation créée avec succès",
		status:  http.StatusCreated,
		send: func(ctx context.Context) (any, error) {
			return s.api.CreateFormation(ctx, f)
		},
	}
}

func (s *Services) listFormations(c echo.Context) error {
	list, err := s.api.ListFormations(c.Request().Context(), c.QueryParam("q"))
	return listResponse(c, list, err)
}

func (s *Services) createFormation(c echo.Context) error {
	var req FormationRequest
	if err := bindValid(c, &req); err != nil {
		return EError(c, err)
	}
	return s.submit(c, s.formationSubmission(req.Formation), req.DraftID)
}

type CourseRequest struct {
	apiclient.Course
	DraftID *uuid.UUID `json:"draft_id,omitempty"`
}

func (s *Services) courseSubmission(course apiclient.Course) (submission, error) {
	course.Title = policy.StripTags(course.Title)
	var err error
	if course.Content, err = cleanHTML(course.Content); err != nil {
		return submission{}, err
	}
	return submission{
		kind:    dao.DraftCourse,
		title:   course.Title,
		content: course.Content,
		payload: course,
		success: "Cours créé avec succès",
		status:  http.StatusCreated,
		send: func(ctx context.Context) (any, error) {
			return s.api.CreateCourse(ctx, course)
		},
	}, nil
}

func (s *Services) listCourses(c echo.Context) error {
	list, err := s.api.ListCourses(c.Request().Context())
	return listResponse(c, list, err)
}

func (s *Services) createCourse(c echo.Context) error {
	var req CourseRequest
	if err := bindValid(c, &req); err != nil {
		return EError(c, err)
	}
	sub, err := s.courseSubmission(req.Course)
	if err != nil {
		return EError(c, err)
	}
	return s.submit(c, sub, req.DraftID)
}

// ############# Audience ###################

func (s *Services) listSubscribers(c echo.Context) error {
	list, err := s.api.ListSubscribers(c.Request().Context(), c.QueryParam("q"))
	return listResponse(c, list, err)
}

func (s *Services) listSurveys(c echo.Context) error {
	list, err := s.api.ListSurveys(c.Request().Context())
	return listResponse(c, list, err)
}

func (s *Services) listInvestigations(c echo.Context) error {
	list, err := s.api.ListInvestigations(c.Request().Context())
	return listResponse(c, list, err)
}
