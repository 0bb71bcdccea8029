package editor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/alwitt/catalog/models"
	"github.com/alwitt/catalog/store"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
)

// EditorView snapshot of the edit form
type EditorView struct {
	// Kind the entity kind
	Kind string `json:"kind"`
	// State the edit state
	State models.EditStateENUMType `json:"state"`
	// RecordID the selected record, empty if none or not yet persisted
	RecordID string `json:"record_id,omitempty"`
	// Version the version of the selected record as last read
	Version int64 `json:"version"`
	// Values the form values
	Values map[string]string `json:"values"`
	// Preview the attachment preview data URI
	Preview string `json:"preview"`
	// Errors failing fields of the last save attempt
	Errors map[string]string `json:"errors,omitempty"`
	// Location the session location
	Location string `json:"location,omitempty"`
	// Notifications notifications raised since the last view
	Notifications []Notification `json:"notifications,omitempty"`
}

// EditControllerParams edit controller collaborators
type EditControllerParams struct {
	// Repository the record repository
	Repository store.Repository
	// Binder the edit form
	Binder *FormBinder
	// List the list refreshed after a change
	List Refresher
	// Navigator the navigation sink
	Navigator Navigator
	// Notifier the notification sink
	Notifier Notifier
	// Routes the entity routes
	Routes Routes
}

// EditController owns the selected record of one edit session
type EditController struct {
	goutils.Component
	schema      models.EntitySchema
	repo        store.Repository
	binder      *FormBinder
	list        Refresher
	navigator   Navigator
	notifier    Notifier
	routes      Routes
	metrics     editorMetrics
	state       models.EditStateENUMType
	selection   *models.Record
	attachments *AttachmentBuffer
	lastErrors  ValidationErrors
}

/*
NewEditController define a new edit controller

	@param params EditControllerParams - collaborators
	@returns new controller in the EMPTY state
*/
func NewEditController(params EditControllerParams) (*EditController, error) {
	if params.Repository == nil || params.Binder == nil || params.List == nil ||
		params.Navigator == nil || params.Notifier == nil {
		return nil, fmt.Errorf("edit controller is missing collaborators")
	}
	schema := params.Repository.Schema()
	instance := &EditController{
		Component: goutils.Component{
			LogTags: log.Fields{
				"module": "editor", "component": "edit-controller", "kind": schema.Kind,
			},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		schema:    schema,
		repo:      params.Repository,
		binder:    params.Binder,
		list:      params.List,
		navigator: params.Navigator,
		notifier:  params.Notifier,
		routes:    params.Routes,
		metrics:   newEditorMetrics(schema.Kind),
		state:     models.EditStateEmpty,
	}
	instance.attachments = NewAttachmentBuffer(schema.AttachmentLimit())
	return instance, nil
}

// State the edit state
func (c *EditController) State() models.EditStateENUMType {
	return c.state
}

// Selection copy of the selected record, if any
func (c *EditController) Selection() (models.Record, bool) {
	if c.selection == nil {
		return models.Record{}, false
	}
	return c.selection.Clone(), true
}

// View snapshot of the edit form
func (c *EditController) View() EditorView {
	view := EditorView{
		Kind:    c.schema.Kind,
		State:   c.state,
		Values:  c.binder.Values(),
		Preview: c.binder.Preview(),
	}
	if c.selection != nil {
		view.RecordID = c.selection.ID
		view.Version = c.selection.Version
	}
	if len(c.lastErrors) > 0 {
		view.Errors = c.lastErrors.AsMap()
	}
	return view
}

// transition move to the state reached by an operation
func (c *EditController) transition(
	ctx context.Context, operation models.EditOperationENUMType,
) error {
	newState, err := c.state.NextState(operation)
	if err != nil {
		return err
	}
	if c.state != newState {
		log.WithFields(c.GetLogTagsForContext(ctx)).
			WithField("from", c.state).
			WithField("to", newState).
			Debug("Edit state change")
	}
	c.state = newState
	return nil
}

// bind make a record the selection, or clear the selection when nil
func (c *EditController) bind(record *models.Record) {
	c.selection = record
	c.binder.Bind(record)
	c.attachments = NewAttachmentBuffer(c.schema.AttachmentLimit())
	c.lastErrors = nil
}

/*
Select make a persisted record the selection and navigate to its edit location

	@param ctx context.Context - execution context
	@param record models.Record - the record
*/
func (c *EditController) Select(ctx context.Context, record models.Record) error {
	if record.IsNew() {
		return fmt.Errorf("only persisted %s records can be selected", c.schema.Kind)
	}
	if err := c.transition(ctx, models.EditOperationSelect); err != nil {
		return err
	}
	selected := record.Clone()
	c.bind(&selected)
	c.navigator.Navigate(ctx, c.routes.EditURL(record.ID))
	return nil
}

// clear drop the selection and return to EMPTY
func (c *EditController) clear(ctx context.Context, operation models.EditOperationENUMType) error {
	if err := c.transition(ctx, operation); err != nil {
		return err
	}
	c.bind(nil)
	return nil
}

/*
Deselect clear the form and navigate to the list location

	@param ctx context.Context - execution context
*/
func (c *EditController) Deselect(ctx context.Context) error {
	if err := c.clear(ctx, models.EditOperationClear); err != nil {
		return err
	}
	c.navigator.Navigate(ctx, c.routes.BaseURL())
	return nil
}

/*
Cancel abandon the edit, refresh the list and navigate to the list location

Any unsaved attachment is discarded.

	@param ctx context.Context - execution context
*/
func (c *EditController) Cancel(ctx context.Context) error {
	if err := c.clear(ctx, models.EditOperationClear); err != nil {
		return err
	}
	refreshErr := c.list.Refresh(ctx)
	c.navigator.Navigate(ctx, c.routes.BaseURL())
	if refreshErr != nil {
		return fmt.Errorf("%s list refresh after cancel failed [%w]", c.schema.Kind, refreshErr)
	}
	return nil
}

/*
StartNew begin editing a fresh record

	@param ctx context.Context - execution context
*/
func (c *EditController) StartNew(ctx context.Context) error {
	if err := c.transition(ctx, models.EditOperationStartNew); err != nil {
		return err
	}
	fresh := models.NewRecord(c.schema.Kind)
	c.bind(&fresh)
	c.navigator.Navigate(ctx, c.routes.BaseURL())
	return nil
}

// ensureSelection start a new record when nothing is selected
func (c *EditController) ensureSelection(ctx context.Context) error {
	if c.state == models.EditStateEmpty {
		return c.StartNew(ctx)
	}
	return nil
}

/*
SetField update one form value, starting a new record when nothing is selected

	@param ctx context.Context - execution context
	@param field string - the field name
	@param value string - the new value
*/
func (c *EditController) SetField(ctx context.Context, field string, value string) error {
	if _, ok := c.schema.Field(field); !ok {
		return fmt.Errorf("%s field '%s' [%w]", c.schema.Kind, field, ErrUnknownField)
	}
	if err := c.ensureSelection(ctx); err != nil {
		return err
	}
	return c.binder.SetValue(field, value)
}

/*
SetFields update several form values, starting a new record when nothing is selected

No value is applied unless every field exists.

	@param ctx context.Context - execution context
	@param values map[string]string - the new values
*/
func (c *EditController) SetFields(ctx context.Context, values map[string]string) error {
	for field := range values {
		if _, ok := c.schema.Field(field); !ok {
			return fmt.Errorf("%s field '%s' [%w]", c.schema.Kind, field, ErrUnknownField)
		}
	}
	for _, field := range c.schema.FieldNames() {
		value, ok := values[field]
		if !ok {
			continue
		}
		if err := c.SetField(ctx, field, value); err != nil {
			return err
		}
	}
	return nil
}

/*
Upload receive an uploaded image into the attachment buffer, then attach it

	@param ctx context.Context - execution context
	@param mimeType string - the declared content type of the upload
	@param src io.Reader - the upload content
*/
func (c *EditController) Upload(ctx context.Context, mimeType string, src io.Reader) error {
	if c.schema.Attachment == nil {
		return fmt.Errorf("%s upload refused [%w]", c.schema.Kind, ErrAttachmentNotSupported)
	}
	// A new record is only started once the upload is accepted
	buffer := NewAttachmentBuffer(c.schema.AttachmentLimit())
	if err := buffer.Receive(mimeType, src); err != nil {
		c.metrics.upload(outcomeFailure)
		c.notifier.Notify(ctx, NotificationError, fmt.Sprintf("%s: %s", msgUploadFailed, err))
		return err
	}
	if err := c.OnUploadComplete(ctx, buffer.Bytes()); err != nil {
		return err
	}
	c.attachments = buffer
	return nil
}

/*
OnUploadComplete attach an uploaded payload to the selected record

A new record is started when nothing is selected. Nothing is persisted until the next save.

	@param ctx context.Context - execution context
	@param payload []byte - the uploaded payload
*/
func (c *EditController) OnUploadComplete(ctx context.Context, payload []byte) error {
	if c.schema.Attachment == nil {
		return fmt.Errorf("%s upload refused [%w]", c.schema.Kind, ErrAttachmentNotSupported)
	}
	if len(payload) == 0 {
		c.metrics.upload(outcomeFailure)
		return fmt.Errorf("%s upload refused [%w]", c.schema.Kind, ErrAttachmentEmpty)
	}
	if len(payload) > c.schema.AttachmentLimit() {
		c.metrics.upload(outcomeFailure)
		return fmt.Errorf(
			"%s upload of %d bytes refused [%w]", c.schema.Kind, len(payload), ErrAttachmentTooLarge,
		)
	}
	if err := c.ensureSelection(ctx); err != nil {
		return err
	}
	c.selection.Attachment = append([]byte{}, payload...)
	c.binder.SetPreview(models.AttachmentDataURI(c.selection.Attachment))
	c.metrics.upload(outcomeSuccess)

	log.WithFields(c.GetLogTagsForContext(ctx)).
		WithField("bytes", len(payload)).
		Debug("Attachment received")
	return nil
}

// complete finish a successful save or delete
func (c *EditController) complete(
	ctx context.Context, operation models.EditOperationENUMType, message string,
) error {
	if err := c.clear(ctx, operation); err != nil {
		return err
	}
	if err := c.list.Refresh(ctx); err != nil {
		log.WithError(err).WithFields(c.GetLogTagsForContext(ctx)).Error("List refresh failed")
	}
	c.notifier.Notify(ctx, NotificationSuccess, message)
	c.navigator.Navigate(ctx, c.routes.BaseURL())
	return nil
}

// reportNoSelection emit the no selection notice
func (c *EditController) reportNoSelection(ctx context.Context, operation string) error {
	c.notifier.Notify(ctx, NotificationInfo, msgNoSelection(c.schema.Title))
	return fmt.Errorf("%s %s ignored [%w]", c.schema.Kind, operation, models.ErrNoSelection)
}

/*
Save validate the form and persist the selected record

On validation failure or a version conflict the selection and form are kept as is.

	@param ctx context.Context - execution context
*/
func (c *EditController) Save(ctx context.Context) error {
	logTags := c.GetLogTagsForContext(ctx)

	if c.state == models.EditStateEmpty || c.selection == nil {
		c.metrics.save(outcomeNoop)
		return c.reportNoSelection(ctx, "save")
	}

	extracted, err := c.binder.ValidateAndExtract(*c.selection)
	if err != nil {
		var invalid ValidationErrors
		if errors.As(err, &invalid) {
			c.lastErrors = invalid
			c.metrics.save(outcomeInvalid)
			c.notifier.Notify(
				ctx, NotificationError, fmt.Sprintf("%s: %s", msgValidationFailed, invalid.Summary()),
			)
			return err
		}
		c.metrics.save(outcomeFailure)
		c.notifier.Notify(ctx, NotificationError, msgSaveFailed)
		return err
	}
	c.lastErrors = nil

	saved, err := c.repo.Save(ctx, extracted)
	if err != nil {
		if errors.Is(err, models.ErrOptimisticLockConflict) {
			c.metrics.save(outcomeConflict)
			log.WithFields(logTags).WithField("record", c.selection.ID).Info("Save conflict")
			c.notifier.Notify(ctx, NotificationError, msgConflict)
			return err
		}
		c.metrics.save(outcomeFailure)
		log.WithError(err).WithFields(logTags).Error("Save failed")
		c.notifier.Notify(ctx, NotificationError, msgSaveFailed)
		return err
	}

	c.metrics.save(outcomeSuccess)
	log.WithFields(logTags).
		WithField("record", saved.ID).
		WithField("version", saved.Version).
		Debug("Record saved")
	return c.complete(ctx, models.EditOperationSaved, msgDataUpdated)
}

/*
Delete delete the selected persisted record

	@param ctx context.Context - execution context
*/
func (c *EditController) Delete(ctx context.Context) error {
	logTags := c.GetLogTagsForContext(ctx)

	if c.state != models.EditStateEditingExisting || c.selection == nil {
		c.metrics.delete(outcomeNoop)
		return c.reportNoSelection(ctx, "delete")
	}

	target := *c.selection
	if err := c.repo.Delete(ctx, target.ID, target.Version); err != nil {
		if errors.Is(err, models.ErrOptimisticLockConflict) {
			c.metrics.delete(outcomeConflict)
			log.WithFields(logTags).WithField("record", target.ID).Info("Delete conflict")
			c.notifier.Notify(ctx, NotificationError, msgConflict)
			return err
		}
		c.metrics.delete(outcomeFailure)
		log.WithError(err).WithFields(logTags).Error("Delete failed")
		c.notifier.Notify(ctx, NotificationError, msgDeleteFailed)
		return err
	}

	c.metrics.delete(outcomeSuccess)
	log.WithFields(logTags).WithField("record", target.ID).Debug("Record deleted")
	return c.complete(ctx, models.EditOperationDeleted, msgDataDeleted)
}
