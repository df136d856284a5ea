package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"tally/engine"
	"tally/engine/db"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
)

type SubmissionView struct {
	Filename   string `json:"filename"`
	UploadTime int    `json:"upload_time"`
	Late       bool   `json:"late"`
}

type TeamInject struct {
	Uuid        string           `json:"uuid"`
	Name        string           `json:"name"`
	Start       int              `json:"start"`
	Duration    int              `json:"duration"`
	Sticky      bool             `json:"sticky"`
	Status      string           `json:"status"`
	Submissions []SubmissionView `json:"submissions"`
}

type TeamInjectList struct {
	ActiveInjects    []TeamInject `json:"active_injects"`
	CompletedInjects []TeamInject `json:"completed_injects"`
}

type InjectData struct {
	Desc string `json:"desc"`
	Html string `json:"html"`
}

// GetTeamInjects splits the team's visible injects into active and
// completed. Pending injects stay hidden until their start minute.
func GetTeamInjects(w http.ResponseWriter, r *http.Request) {
	team, ok := RequireTeamScope(w, r)
	if !ok {
		return
	}

	injects, err := db.GetInjects()
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	elapsed := eng.Clock.ElapsedMinutes()
	list := TeamInjectList{ActiveInjects: []TeamInject{}, CompletedInjects: []TeamInject{}}

	for _, inject := range injects {
		state := engine.InjectState(inject, elapsed)
		if state == engine.InjectPending {
			continue
		}

		submissions, err := db.GetSubmissionsForTeamInject(inject.ID, team.ID)
		if err != nil {
			WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}

		view := TeamInject{
			Uuid:        inject.Uuid,
			Name:        inject.Name,
			Start:       inject.StartMinute,
			Duration:    inject.DurationMinutes,
			Sticky:      inject.Sticky,
			Status:      string(state),
			Submissions: []SubmissionView{},
		}
		for _, submission := range submissions {
			view.Submissions = append(view.Submissions, SubmissionView{
				Filename:   submission.Filename,
				UploadTime: submission.UploadTime,
				Late:       submission.Late,
			})
		}

		if inject.Completed || state == engine.InjectExpired || len(submissions) > 0 {
			list.CompletedInjects = append(list.CompletedInjects, view)
		} else {
			list.ActiveInjects = append(list.ActiveInjects, view)
		}
	}

	WriteJSON(w, http.StatusOK, list)
}

// GetTeamInject returns one inject's markdown and its rendered HTML
func GetTeamInject(w http.ResponseWriter, r *http.Request) {
	if _, ok := RequireTeamScope(w, r); !ok {
		return
	}

	inject, err := db.GetInjectByUuid(r.PathValue("uuid"))
	if err != nil {
		WriteDBError(w, err, "inject")
		return
	}

	if !IsAdmin(r) && eng.Clock.ElapsedMinutes() < inject.StartMinute {
		WriteJSON(w, http.StatusNotFound, map[string]any{"error": "inject not found"})
		return
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(inject.Markdown), &html); err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to render inject"})
		return
	}

	WriteJSON(w, http.StatusOK, InjectData{Desc: inject.Markdown, Html: html.String()})
}

// CreateSubmission stores a multipart upload as one more submission for
// the team. Earlier submissions are kept.
func CreateSubmission(w http.ResponseWriter, r *http.Request) {
	team, ok := RequireTeamScope(w, r)
	if !ok {
		return
	}
	if !CheckCompetitionStarted(w, r) {
		return
	}

	inject, err := db.GetInjectByUuid(r.PathValue("uuid"))
	if err != nil {
		WriteDBError(w, err, "inject")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "Failed to parse multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing file"})
		return
	}
	defer file.Close()

	submission, err := eng.RecordSubmission(inject, team.ID, header.Filename, uuid.New().String())
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	baseDir := conf.MiscSettings.SubmissionDir
	if err := SafeMkdirAll(baseDir, inject.Uuid, 0750); err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to create directory"})
		return
	}

	dst, err := SafeCreate(baseDir, inject.Uuid+"/"+submission.StoredName)
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to create file on disk"})
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to save file on disk"})
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"message": "submission received", "late": submission.Late})
}

// GetInjects returns every inject with all teams' submissions (admin)
func GetInjects(w http.ResponseWriter, r *http.Request) {
	injects, err := db.GetInjects()
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	for i, inject := range injects {
		injects[i].Submissions, err = db.GetSubmissionsForInject(inject.ID)
		if err != nil {
			WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
	}

	WriteJSON(w, http.StatusOK, injects)
}

type injectBody struct {
	Name        string          `json:"name"`
	Markdown    string          `json:"markdown"`
	Start       *int            `json:"start"`
	Duration    *int            `json:"duration"`
	Sticky      *bool           `json:"sticky"`
	FileTypes   []string        `json:"file_types"`
	SideEffects json.RawMessage `json:"side_effects"`
	Completed   *bool           `json:"completed"`
}

func CreateInject(w http.ResponseWriter, r *http.Request) {
	var body injectBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed payload"})
		return
	}
	if body.Name == "" || body.Start == nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "name and start are required"})
		return
	}

	inject := db.InjectSchema{
		Uuid:        uuid.New().String(),
		Name:        body.Name,
		Markdown:    body.Markdown,
		StartMinute: *body.Start,
		SideEffects: body.SideEffects,
	}
	if body.Sticky != nil {
		inject.Sticky = *body.Sticky
	}
	if body.Duration != nil {
		inject.DurationMinutes = *body.Duration
	}
	if !inject.Sticky && inject.DurationMinutes <= 0 {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "a non-sticky inject needs a positive duration"})
		return
	}
	if body.FileTypes != nil {
		inject.RestrictUploads = true
		inject.FileTypes = body.FileTypes
	}

	inject, err := db.CreateInject(inject)
	if err != nil {
		WriteDBError(w, err, "inject")
		return
	}
	WriteJSON(w, http.StatusCreated, inject)
}

func UpdateInject(w http.ResponseWriter, r *http.Request) {
	inject, err := db.GetInjectByUuid(r.PathValue("uuid"))
	if err != nil {
		WriteDBError(w, err, "inject")
		return
	}

	var body injectBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed payload"})
		return
	}

	if body.Name != "" {
		inject.Name = body.Name
	}
	if body.Markdown != "" {
		inject.Markdown = body.Markdown
	}
	if body.Start != nil {
		inject.StartMinute = *body.Start
	}
	if body.Duration != nil {
		inject.DurationMinutes = *body.Duration
	}
	if body.Sticky != nil {
		inject.Sticky = *body.Sticky
	}
	if body.FileTypes != nil {
		inject.RestrictUploads = true
		inject.FileTypes = body.FileTypes
	}
	if body.SideEffects != nil {
		inject.SideEffects = body.SideEffects
	}
	if body.Completed != nil {
		inject.Completed = *body.Completed
	}

	if !inject.Sticky && inject.DurationMinutes <= 0 {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "a non-sticky inject needs a positive duration"})
		return
	}

	if _, err := db.UpdateInject(inject); err != nil {
		WriteDBError(w, err, "inject")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "inject updated"})
}

func DeleteInject(w http.ResponseWriter, r *http.Request) {
	inject, err := db.GetInjectByUuid(r.PathValue("uuid"))
	if err != nil {
		WriteDBError(w, err, "inject")
		return
	}

	if err := db.DeleteInject(inject); err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "inject deleted"})
}
