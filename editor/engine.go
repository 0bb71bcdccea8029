package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/alwitt/catalog/models"
	"github.com/alwitt/catalog/store"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
)

// EngineParams master-detail engine parameters
type EngineParams struct {
	// Repository the record repository of the entity kind
	Repository store.Repository `validate:"required"`
	// DefaultPageSize page size of list requests not giving one
	DefaultPageSize int `validate:"required,gt=0,lte=500"`
}

// Engine master-detail editor of one entity kind for one session
type Engine struct {
	goutils.Component
	schema        models.EntitySchema
	repo          store.Repository
	routes        Routes
	list          *ListProvider
	binder        *FormBinder
	controller    *EditController
	notifications *NotificationQueue
	location      *LocationTracker
}

/*
NewEngine define a new master-detail engine

	@param ctx context.Context - execution context
	@param params EngineParams - engine parameters
	@returns new engine
*/
func NewEngine(ctx context.Context, params EngineParams) (*Engine, error) {
	validate := validator.New()
	if err := validate.Struct(&params); err != nil {
		return nil, fmt.Errorf("invalid engine parameters [%w]", err)
	}

	schema := params.Repository.Schema()
	routes := NewRoutes(schema.Kind)

	binder, err := NewFormBinder(schema)
	if err != nil {
		return nil, err
	}

	instance := &Engine{
		Component: goutils.Component{
			LogTags: log.Fields{"module": "editor", "component": "engine", "kind": schema.Kind},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		schema:        schema,
		repo:          params.Repository,
		routes:        routes,
		list:          NewListProvider(params.Repository, params.DefaultPageSize),
		binder:        binder,
		notifications: NewNotificationQueue(),
		location:      NewLocationTracker(routes.BaseURL()),
	}

	instance.controller, err = NewEditController(EditControllerParams{
		Repository: params.Repository,
		Binder:     binder,
		List:       instance.list,
		Navigator:  instance.location,
		Notifier:   instance.notifications,
		Routes:     routes,
	})
	if err != nil {
		return nil, err
	}

	instance.list.OnSelectionChange(instance.onRowSelection)

	log.WithFields(instance.GetLogTagsForContext(ctx)).Debug("Editor engine ready")

	return instance, nil
}

// Schema the entity schema
func (e *Engine) Schema() models.EntitySchema {
	return e.schema
}

// Routes the entity routes
func (e *Engine) Routes() Routes {
	return e.routes
}

// List the list provider
func (e *Engine) List() *ListProvider {
	return e.list
}

// Controller the edit controller
func (e *Engine) Controller() *EditController {
	return e.controller
}

// Notifications the session notifications
func (e *Engine) Notifications() *NotificationQueue {
	return e.notifications
}

// Location the session location
func (e *Engine) Location() *LocationTracker {
	return e.location
}

/*
View snapshot of the editor including location and pending notifications

	@param drain bool - whether to drain the pending notifications
	@returns the view
*/
func (e *Engine) View(drain bool) EditorView {
	view := e.controller.View()
	view.Location = e.location.Location()
	if drain {
		view.Notifications = e.notifications.Drain()
	} else {
		view.Notifications = e.notifications.Pending()
	}
	return view
}

// onRowSelection reconcile the edit controller with a user driven list selection
func (e *Engine) onRowSelection(ctx context.Context, recordID string) error {
	if recordID == "" {
		return e.controller.Deselect(ctx)
	}
	record, ok := e.list.Lookup(recordID)
	if !ok {
		var err error
		if record, err = e.repo.Get(ctx, recordID); err != nil {
			if errors.Is(err, models.ErrRecordNotFound) {
				return e.handleMissing(ctx, recordID)
			}
			return err
		}
	}
	return e.controller.Select(ctx, record)
}

/*
SelectRow select a list row, or clear the list selection when the ID is empty

	@param ctx context.Context - execution context
	@param recordID string - the row record ID
*/
func (e *Engine) SelectRow(ctx context.Context, recordID string) error {
	return e.list.Select(ctx, recordID)
}

// handleMissing reconcile the session with a record which no longer exists
func (e *Engine) handleMissing(ctx context.Context, recordID string) error {
	log.WithFields(e.GetLogTagsForContext(ctx)).
		WithField("record", recordID).
		Info("Requested record not found")

	e.notifications.Notify(ctx, NotificationError, msgNotFound(e.schema.Title, recordID))

	if selected, ok := e.controller.Selection(); ok && selected.ID == recordID {
		if err := e.controller.Deselect(ctx); err != nil {
			return err
		}
	}
	if err := e.list.Refresh(ctx); err != nil {
		log.WithError(err).WithFields(e.GetLogTagsForContext(ctx)).Error("List refresh failed")
	}
	e.location.Navigate(ctx, e.routes.BaseURL())

	return fmt.Errorf("%s %s [%w]", e.schema.Kind, recordID, models.ErrRecordNotFound)
}

/*
Enter reconcile the session with a location it is entering

With a record ID the record is looked up and selected. A record which no longer exists is
reported, the list is refreshed and the session is redirected to the list location.

	@param ctx context.Context - execution context
	@param location string - the location
*/
func (e *Engine) Enter(ctx context.Context, location string) error {
	parsed, err := e.routes.Parse(location)
	if err != nil {
		return err
	}

	if parsed.RecordID == "" {
		e.location.Navigate(ctx, e.routes.BaseURL())
		return nil
	}

	record, err := e.repo.Get(ctx, parsed.RecordID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return e.handleMissing(ctx, parsed.RecordID)
		}
		return fmt.Errorf("failed to enter %s [%w]", location, err)
	}

	// Already editing this record, keep the unsaved form values
	if selected, ok := e.controller.Selection(); ok &&
		e.controller.State() == models.EditStateEditingExisting && selected.ID == record.ID {
		e.list.Highlight(record.ID)
		e.location.Navigate(ctx, e.routes.EditURL(record.ID))
		return nil
	}

	if err := e.controller.Select(ctx, record); err != nil {
		return err
	}
	e.list.Highlight(record.ID)
	return nil
}

/*
History list the audit events of one record

	@param ctx context.Context - execution context
	@param recordID string - record ID
	@returns the events, oldest first
*/
func (e *Engine) History(ctx context.Context, recordID string) ([]models.RecordEventAudit, error) {
	return e.repo.History(ctx, recordID)
}
