package editor

import (
	"context"
	"fmt"
	"sync"

	"github.com/alwitt/catalog/models"
	"github.com/alwitt/catalog/store"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
)

// Refresher a list which can be reloaded
type Refresher interface {
	/*
		Refresh drop the visible window and the list selection, then reload the window

			@param ctx context.Context - execution context
	*/
	Refresh(ctx context.Context) error
}

// Column one list column
type Column struct {
	// Field the field name
	Field string `json:"field"`
	// Label the column header
	Label string `json:"label"`
	// Type the field type, empty for the attachment column
	Type models.FieldTypeENUMType `json:"type,omitempty"`
	// Sortable whether the list can be sorted by this column
	Sortable bool `json:"sortable"`
	// Attachment whether this column renders the attachment as a data URI
	Attachment bool `json:"attachment,omitempty"`
}

// Row one list row
type Row struct {
	// ID record ID
	ID string `json:"id"`
	// Version record version
	Version int64 `json:"version"`
	// Values cell values keyed by column field
	Values map[string]string `json:"values"`
}

// SelectionListener called when the user changes the list selection; empty ID means cleared
type SelectionListener func(ctx context.Context, recordID string) error

// ListProvider lazily paged list of one entity kind
type ListProvider struct {
	goutils.Component
	repo            store.Repository
	schema          models.EntitySchema
	defaultPageSize int
	metrics         editorMetrics

	lock        sync.Mutex
	generation  uint64
	lastRequest *models.PageRequest
	window      *models.Page
	selected    string
	onSelection []SelectionListener
}

/*
NewListProvider define a new list provider

	@param repo store.Repository - the record repository
	@param defaultPageSize int - page size used when the request does not give one
	@returns new list provider
*/
func NewListProvider(repo store.Repository, defaultPageSize int) *ListProvider {
	schema := repo.Schema()
	return &ListProvider{
		Component: goutils.Component{
			LogTags: log.Fields{
				"module": "editor", "component": "list-provider", "kind": schema.Kind,
			},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		repo:            repo,
		schema:          schema,
		defaultPageSize: defaultPageSize,
		metrics:         newEditorMetrics(schema.Kind),
	}
}

// Columns the list columns derived from the schema
func (l *ListProvider) Columns() []Column {
	columns := make([]Column, 0, len(l.schema.Fields)+1)
	for _, field := range l.schema.Fields {
		columns = append(columns, Column{
			Field: field.Name, Label: field.Label, Type: field.Type, Sortable: field.Sortable,
		})
	}
	if l.schema.Attachment != nil {
		columns = append(columns, Column{
			Field: l.schema.Attachment.Name, Label: l.schema.Attachment.Label, Attachment: true,
		})
	}
	return columns
}

// RenderRow render one record as a list row
func (l *ListProvider) RenderRow(record models.Record) Row {
	row := Row{ID: record.ID, Version: record.Version, Values: map[string]string{}}
	for _, field := range l.schema.Fields {
		row.Values[field.Name] = record.Field(field.Name)
	}
	if l.schema.Attachment != nil {
		row.Values[l.schema.Attachment.Name] = record.AttachmentDataURI()
	}
	return row
}

/*
FetchPage fetch one window of records, which becomes the visible window

A fetch which completes after a newer fetch or refresh was issued returns ErrPageSuperseded
and its result is discarded.

	@param ctx context.Context - execution context
	@param request models.PageRequest - the window to fetch
	@returns the page
*/
func (l *ListProvider) FetchPage(
	ctx context.Context, request models.PageRequest,
) (models.Page, error) {
	if request.PageSize == 0 {
		request.PageSize = l.defaultPageSize
	}

	l.lock.Lock()
	l.generation++
	generation := l.generation
	issued := request
	l.lastRequest = &issued
	l.lock.Unlock()

	return l.fetch(ctx, request, generation)
}

// fetch query the repository and install the window unless superseded
func (l *ListProvider) fetch(
	ctx context.Context, request models.PageRequest, generation uint64,
) (models.Page, error) {
	logTags := l.GetLogTagsForContext(ctx)

	items, err := l.repo.List(ctx, request)
	if err != nil {
		l.metrics.pageFetch(outcomeFailure)
		return models.Page{}, fmt.Errorf("failed to fetch %s page [%w]", l.schema.Kind, err)
	}

	page := models.Page{Request: request, Items: items}
	// A short page reached the end of the data set
	if len(items) < request.PageSize && (len(items) > 0 || request.PageIndex == 0) {
		page.TotalKnown = true
		page.Total = int64(request.Offset() + len(items))
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	if generation != l.generation {
		l.metrics.pageFetch(outcomeNoop)
		log.WithFields(logTags).
			WithField("page", request.PageIndex).
			Debug("Discarding superseded page")
		return models.Page{}, fmt.Errorf(
			"%s page %d [%w]", l.schema.Kind, request.PageIndex, ErrPageSuperseded,
		)
	}
	l.window = &page
	l.metrics.pageFetch(outcomeSuccess)
	return page, nil
}

// Window the visible window, if any
func (l *ListProvider) Window() (models.Page, bool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.window == nil {
		return models.Page{}, false
	}
	return *l.window, true
}

/*
Total the number of records matching the filter of the last request

	@param ctx context.Context - execution context
	@returns the number of records
*/
func (l *ListProvider) Total(ctx context.Context) (int64, error) {
	l.lock.Lock()
	var filter *models.RecordFilter
	if l.lastRequest != nil {
		filter = l.lastRequest.Filter
	}
	l.lock.Unlock()
	return l.repo.CountMatching(ctx, filter)
}

/*
Refresh drop the visible window and the list selection, then reload the window

Selection listeners are not notified of the cleared selection.

	@param ctx context.Context - execution context
*/
func (l *ListProvider) Refresh(ctx context.Context) error {
	logTags := l.GetLogTagsForContext(ctx)

	l.lock.Lock()
	l.generation++
	generation := l.generation
	l.window = nil
	l.selected = ""
	var request *models.PageRequest
	if l.lastRequest != nil {
		reissue := *l.lastRequest
		request = &reissue
	}
	l.lock.Unlock()

	l.metrics.refresh()
	log.WithFields(logTags).Debug("Refreshing list")

	if request == nil {
		return nil
	}
	_, err := l.fetch(ctx, *request, generation)
	return err
}

// Lookup find a record in the visible window
func (l *ListProvider) Lookup(recordID string) (models.Record, bool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.window == nil {
		return models.Record{}, false
	}
	for _, record := range l.window.Items {
		if record.ID == recordID {
			return record, true
		}
	}
	return models.Record{}, false
}

// OnSelectionChange register a listener for user driven selection changes
func (l *ListProvider) OnSelectionChange(listener SelectionListener) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.onSelection = append(l.onSelection, listener)
}

/*
Select change the list selection on behalf of the user, notifying the selection listeners

	@param ctx context.Context - execution context
	@param recordID string - the selected record, empty to clear the selection
*/
func (l *ListProvider) Select(ctx context.Context, recordID string) error {
	l.lock.Lock()
	l.selected = recordID
	listeners := append([]SelectionListener{}, l.onSelection...)
	l.lock.Unlock()

	for _, listener := range listeners {
		if err := listener(ctx, recordID); err != nil {
			return err
		}
	}
	return nil
}

// Highlight change the list selection without notifying the selection listeners
func (l *ListProvider) Highlight(recordID string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.selected = recordID
}

// Selected the selected record ID, empty if none
func (l *ListProvider) Selected() string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.selected
}
