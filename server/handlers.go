package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alwitt/catalog/editor"
	"github.com/alwitt/catalog/models"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// errBadRequest the request could not be understood
var errBadRequest = errors.New("bad request")

// editorResponse editor view plus the outcome of the operation
type editorResponse struct {
	goutils.RestAPIBaseResponse
	editor.EditorView
}

// listResponse one page of the list plus the session editor view
type listResponse struct {
	goutils.RestAPIBaseResponse
	// Columns list columns
	Columns []editor.Column `json:"columns"`
	// Rows the rows of the page
	Rows []editor.Row `json:"rows"`
	// Page zero based page index
	Page int `json:"page"`
	// Size page size
	Size int `json:"size"`
	// TotalKnown whether the data set end was reached by this page
	TotalKnown bool `json:"total_known"`
	// Total number of records matching the list filter
	Total int64 `json:"total"`
	// Selected the selected row, empty if none
	Selected string `json:"selected,omitempty"`
	// Editor the session editor view
	Editor editor.EditorView `json:"editor"`
}

// historyEntry one audit event of a record
type historyEntry struct {
	// Event the event type
	Event models.RecordEventTypeENUMType `json:"event"`
	// Version record version after the event
	Version int64 `json:"version"`
	// Timestamp when the event happened
	Timestamp string `json:"timestamp"`
}

// historyResponse audit events of one record, oldest first
type historyResponse struct {
	goutils.RestAPIBaseResponse
	// Entries the events
	Entries []historyEntry `json:"entries"`
}

// entityHandler HTTP handlers of one entity kind
type entityHandler struct {
	goutils.RestAPIHandler
	kind        string
	sessions    *SessionManager
	maxPageSize int
	validator   *validator.Validate
}

/*
newEntityHandler define the handlers of one entity kind

	@param kind string - the entity kind
	@param sessions *SessionManager - the session table
	@param cfg *Config - server configuration
	@returns new handler
*/
func newEntityHandler(
	kind string, sessions *SessionManager, cfg *Config,
) (*entityHandler, error) {
	validate := validator.New()
	if err := models.RegisterWithValidator(validate); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}
	return &entityHandler{
		RestAPIHandler: newRestAPIHandler(
			cfg, log.Fields{"module": "server", "component": "entity-handler", "kind": kind},
		),
		kind:        kind,
		sessions:    sessions,
		maxPageSize: cfg.MaxPageSize,
		validator:   validate,
	}, nil
}

// loadEngine fetch the session of the request and its engine, replying on failure
func (h *entityHandler) loadEngine(
	w http.ResponseWriter, r *http.Request,
) (*Session, *editor.Engine, bool) {
	ctx := r.Context()
	session, err := h.sessions.Load(w, r)
	if err != nil {
		log.WithError(err).WithFields(h.GetLogTagsForContext(ctx)).Error("Failed to load session")
		respondError(
			ctx, h.RestAPIHandler, w, http.StatusInternalServerError, "session unavailable", err.Error(),
		)
		return nil, nil, false
	}
	engine, ok := session.Engine(h.kind)
	if !ok {
		respondError(
			ctx, h.RestAPIHandler, w, http.StatusNotFound,
			fmt.Sprintf("unknown entity kind '%s'", h.kind), "",
		)
		return nil, nil, false
	}
	return session, engine, true
}

// failure the standard error body of an editor operation failure
func (h *entityHandler) failure(
	ctx context.Context, status int, err error,
) goutils.RestAPIBaseResponse {
	return h.GetStdRESTErrorMsg(ctx, status, http.StatusText(status), err.Error())
}

// statusOf the HTTP status reporting the outcome of an editor operation
func statusOf(err error) int {
	var invalid editor.ValidationErrors
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, models.ErrNoSelection):
		return http.StatusOK
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrOptimisticLockConflict), errors.Is(err, editor.ErrPageSuperseded):
		return http.StatusConflict
	case errors.Is(err, models.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, editor.ErrUnknownLocation),
		errors.Is(err, editor.ErrUnknownField),
		errors.Is(err, editor.ErrAttachmentTooLarge),
		errors.Is(err, editor.ErrAttachmentNotImage),
		errors.Is(err, editor.ErrAttachmentEmpty),
		errors.Is(err, editor.ErrAttachmentNotSupported),
		errors.As(err, &tooLarge):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

/*
serve run an engine operation within the request session and respond with the editor view

	@param w http.ResponseWriter - the response
	@param r *http.Request - the request
	@param operation func(context.Context, *editor.Engine) error - the operation
*/
func (h *entityHandler) serve(
	w http.ResponseWriter,
	r *http.Request,
	operation func(ctx context.Context, engine *editor.Engine) error,
) {
	ctx := r.Context()

	session, engine, ok := h.loadEngine(w, r)
	if !ok {
		return
	}

	response := editorResponse{RestAPIBaseResponse: h.GetStdRESTSuccessMsg(ctx)}
	err := session.Serialized(func() error {
		opErr := operation(ctx, engine)
		response.EditorView = engine.View(true)
		return opErr
	})

	status := statusOf(err)
	if err != nil && status != http.StatusOK {
		response.RestAPIBaseResponse = h.failure(ctx, status, err)
		if status == http.StatusInternalServerError {
			log.WithError(err).WithFields(h.GetLogTagsForContext(ctx)).Error("Editor operation failed")
		}
	}
	respond(ctx, h.RestAPIHandler, w, status, response)
}

/*
parsePageRequest read the list window request from the query

	@param r *http.Request - the request
	@param schema models.EntitySchema - the listed entity schema
	@returns the page request
*/
func (h *entityHandler) parsePageRequest(
	r *http.Request, schema models.EntitySchema,
) (models.PageRequest, error) {
	query := r.URL.Query()
	request := models.PageRequest{}

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			return request, fmt.Errorf("page '%s' [%w]", raw, errBadRequest)
		}
		request.PageIndex = page
	}
	if raw := query.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return request, fmt.Errorf("size '%s' [%w]", raw, errBadRequest)
		}
		if size > h.maxPageSize {
			size = h.maxPageSize
		}
		request.PageSize = size
	}

	for _, raw := range query["sort"] {
		fieldName, direction, _ := strings.Cut(raw, ":")
		field, ok := schema.Field(fieldName)
		if !ok || !field.Sortable {
			return request, fmt.Errorf("sort field '%s' [%w]", fieldName, errBadRequest)
		}
		order := models.SortOrder{Field: field.Name, Direction: models.SortAscending}
		switch strings.ToLower(direction) {
		case "", "asc":
		case "desc":
			order.Direction = models.SortDescending
		default:
			return request, fmt.Errorf("sort direction '%s' [%w]", direction, errBadRequest)
		}
		request.Sort = append(request.Sort, order)
	}

	filterField, filterText := query.Get("filter_field"), query.Get("filter")
	if filterField != "" || filterText != "" {
		if _, ok := schema.Field(filterField); !ok || filterText == "" {
			return request, fmt.Errorf("filter on '%s' [%w]", filterField, errBadRequest)
		}
		request.Filter = &models.RecordFilter{Field: filterField, Contains: filterText}
	}

	return request, nil
}

// List GET /{kind}
func (h *entityHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, engine, ok := h.loadEngine(w, r)
	if !ok {
		return
	}

	request, err := h.parsePageRequest(r, engine.Schema())
	if err != nil {
		respond(ctx, h.RestAPIHandler, w, http.StatusBadRequest, h.failure(ctx, http.StatusBadRequest, err))
		return
	}

	var response listResponse
	err = session.Serialized(func() error {
		list := engine.List()
		page, err := list.FetchPage(ctx, request)
		if err != nil {
			return err
		}
		total := page.Total
		if !page.TotalKnown {
			if total, err = list.Total(ctx); err != nil {
				return err
			}
		}
		rows := make([]editor.Row, 0, len(page.Items))
		for _, record := range page.Items {
			rows = append(rows, list.RenderRow(record))
		}
		response = listResponse{
			RestAPIBaseResponse: h.GetStdRESTSuccessMsg(ctx),
			Columns:             list.Columns(),
			Rows:                rows,
			Page:                page.Request.PageIndex,
			Size:                page.Request.PageSize,
			TotalKnown:          page.TotalKnown,
			Total:               total,
			Selected:            list.Selected(),
			Editor:              engine.View(true),
		}
		return nil
	})
	if err != nil {
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			log.WithError(err).WithFields(h.GetLogTagsForContext(ctx)).Error("List fetch failed")
		}
		respond(ctx, h.RestAPIHandler, w, status, h.failure(ctx, status, err))
		return
	}
	respond(ctx, h.RestAPIHandler, w, http.StatusOK, response)
}

// Enter GET /{kind}/{id}/edit
func (h *entityHandler) Enter(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Path
	h.serve(w, r, func(ctx context.Context, engine *editor.Engine) error {
		return engine.Enter(ctx, location)
	})
}

// Editor GET /{kind}/editor
func (h *entityHandler) Editor(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(context.Context, *editor.Engine) error { return nil })
}

// Select POST /{kind}/select/{id}
func (h *entityHandler) Select(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")
	h.serve(w, r, func(ctx context.Context, engine *editor.Engine) error {
		return engine.SelectRow(ctx, recordID)
	})
}

// Deselect POST /{kind}/deselect
func (h *entityHandler) Deselect(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, engine *editor.Engine) error {
		return engine.SelectRow(ctx, "")
	})
}

// StartNew POST /{kind}/new
func (h *entityHandler) StartNew(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, engine *editor.Engine) error {
		engine.List().Highlight("")
		return engine.Controller().StartNew(ctx)
	})
}

// SetFields PATCH /{kind}/editor/fields
func (h *entityHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	defer r.Body.Close()
	decodeErr := json.NewDecoder(r.Body).Decode(&values)
	h.serve(w, r, func(ctx context.Context, engine *editor.Engine) error {
		if decodeErr != nil {
			return fmt.Errorf("field values [%w]", errors.Join(errBadRequest, decodeErr))
		}
		return engine.Controller().SetFields(ctx, values)
	})
}

// Upload POST /{kind}/editor/attachment
func (h *entityHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Room for the multipart framing around the file
	r.Body = http.MaxBytesReader(w, r.Body, int64(models.MaxAttachmentBytes)+64*1024)
	file, header, formErr := r.FormFile("file")
	if formErr == nil {
		defer file.Close()
	}
	h.serve(w, r, func(ctx context.Context, engine *editor.Engine) error {
		if formErr != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(formErr, &tooLarge) {
				return fmt.Errorf("upload [%w]", editor.ErrAttachmentTooLarge)
			}
			return fmt.Errorf("upload form [%w]", errors.Join(errBadRequest, formErr))
		}
		return engine.Controller().Upload(ctx, header.Header.Get("Content-Type"), file)
	})
}

// Save POST /{kind}/editor/save
func (h *entityHandler) Save(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, engine *editor.Engine) error {
		return engine.Controller().Save(ctx)
	})
}

// Delete POST /{kind}/editor/delete
func (h *entityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, engine *editor.Engine) error {
		return engine.Controller().Delete(ctx)
	})
}

// Cancel POST /{kind}/editor/cancel
func (h *entityHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, engine *editor.Engine) error {
		return engine.Controller().Cancel(ctx)
	})
}

// History GET /{kind}/{id}/history
func (h *entityHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logTags := h.GetLogTagsForContext(ctx)
	recordID := chi.URLParam(r, "id")

	_, engine, ok := h.loadEngine(w, r)
	if !ok {
		return
	}

	events, err := engine.History(ctx, recordID)
	if err != nil {
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			log.WithError(err).WithFields(logTags).Error("History read failed")
		}
		respond(ctx, h.RestAPIHandler, w, status, h.failure(ctx, status, err))
		return
	}
	if len(events) == 0 {
		respondError(
			ctx, h.RestAPIHandler, w, http.StatusNotFound,
			fmt.Sprintf("no history for %s %s", h.kind, recordID), "",
		)
		return
	}

	response := historyResponse{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(ctx),
		Entries:             make([]historyEntry, 0, len(events)),
	}
	for _, event := range events {
		entry := historyEntry{
			Event:     event.EventType,
			Timestamp: event.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		parsed, err := event.ParseMetadata(h.validator)
		if err != nil {
			log.WithError(err).WithFields(logTags).Error("Unreadable audit entry")
			respondError(
				ctx, h.RestAPIHandler, w, http.StatusInternalServerError,
				"unreadable audit entry", err.Error(),
			)
			return
		}
		if metadata, ok := parsed.(models.RecordEventMetadata); ok {
			entry.Version = metadata.Version
		}
		response.Entries = append(response.Entries, entry)
	}
	respond(ctx, h.RestAPIHandler, w, http.StatusOK, response)
}
