package editor_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alwitt/catalog/editor"
	mockstore "github.com/alwitt/catalog/mocks/store"
	"github.com/alwitt/catalog/models"
	"github.com/apex/log"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// countingRefresher Refresher which counts its calls
type countingRefresher struct {
	calls int
}

func (r *countingRefresher) Refresh(_ context.Context) error {
	r.calls++
	return nil
}

type controllerFixture struct {
	uut           *editor.EditController
	repo          *mockstore.Repository
	list          *countingRefresher
	location      *editor.LocationTracker
	notifications *editor.NotificationQueue
}

func newControllerFixture(t *testing.T, schema models.EntitySchema) controllerFixture {
	mockRepo := mockstore.NewRepository(t)
	mockRepo.On("Schema").Return(schema)

	binder, err := editor.NewFormBinder(schema)
	assert.Nil(t, err)

	fixture := controllerFixture{
		repo:          mockRepo,
		list:          &countingRefresher{},
		location:      editor.NewLocationTracker("/" + schema.Kind),
		notifications: editor.NewNotificationQueue(),
	}
	fixture.uut, err = editor.NewEditController(editor.EditControllerParams{
		Repository: mockRepo,
		Binder:     binder,
		List:       fixture.list,
		Navigator:  fixture.location,
		Notifier:   fixture.notifications,
		Routes:     editor.NewRoutes(schema.Kind),
	})
	assert.Nil(t, err)
	return fixture
}

func persistedCategory(name string, version int64) models.Record {
	record := models.NewRecord("category")
	record.ID = ulid.Make().String()
	record.Version = version
	record.Fields["name"] = name
	return record
}

func TestControllerNoSelection(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	fixture := newControllerFixture(t, models.CategorySchema)
	uut := fixture.uut

	assert.Equal(models.EditStateEmpty, uut.State())

	// Delete with nothing selected never reaches the repository
	err := uut.Delete(utCtx)
	assert.ErrorIs(err, models.ErrNoSelection)
	notes := fixture.notifications.Drain()
	assert.Len(notes, 1)
	assert.Equal(editor.NotificationInfo, notes[0].Level)
	assert.Equal("No category selected", notes[0].Message)

	// Save with nothing selected
	err = uut.Save(utCtx)
	assert.ErrorIs(err, models.ErrNoSelection)
	notes = fixture.notifications.Drain()
	assert.Len(notes, 1)
	assert.Equal(editor.NotificationInfo, notes[0].Level)

	// Delete of a record which was never saved
	assert.Nil(uut.StartNew(utCtx))
	err = uut.Delete(utCtx)
	assert.ErrorIs(err, models.ErrNoSelection)
	assert.Equal(models.EditStateEditingNew, uut.State())

	assert.Equal(0, fixture.list.calls)
	fixture.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	fixture.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestControllerSaveNew(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	fixture := newControllerFixture(t, models.CategorySchema)
	uut := fixture.uut

	// First edit implicitly starts a new record
	assert.Nil(uut.SetFields(utCtx, map[string]string{
		"name": "Widgets", "slug": "widgets", "total": "10",
	}))
	assert.Equal(models.EditStateEditingNew, uut.State())
	assert.NotNil(uut.SetField(utCtx, "color", "red"))

	fixture.repo.On(
		"Save",
		mock.AnythingOfType("context.backgroundCtx"),
		mock.MatchedBy(func(record models.Record) bool {
			return record.IsNew() && record.Kind == "category" &&
				record.Fields["name"] == "Widgets" &&
				record.Fields["slug"] == "widgets" &&
				record.Fields["total"] == "10"
		}),
	).Return(func(_ context.Context, record models.Record) (models.Record, error) {
		record.ID = ulid.Make().String()
		record.Version = 1
		return record, nil
	}).Once()

	assert.Nil(uut.Save(utCtx))
	assert.Equal(models.EditStateEmpty, uut.State())
	_, selected := uut.Selection()
	assert.False(selected)
	assert.Equal(1, fixture.list.calls)
	assert.Equal("/category", fixture.location.Location())

	notes := fixture.notifications.Drain()
	assert.Len(notes, 1)
	assert.Equal(editor.NotificationSuccess, notes[0].Level)
	assert.Equal("Data updated", notes[0].Message)

	view := uut.View()
	assert.Equal(map[string]string{"name": "", "slug": "", "total": ""}, view.Values)
	assert.Empty(view.Preview)
}

func TestControllerSaveValidationFailure(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	fixture := newControllerFixture(t, models.CategorySchema)
	uut := fixture.uut

	assert.Nil(uut.SetField(utCtx, "total", "ten"))
	err := uut.Save(utCtx)
	var failures editor.ValidationErrors
	assert.True(errors.As(err, &failures))
	assert.Len(failures, 2)

	assert.Equal(models.EditStateEditingNew, uut.State())
	view := uut.View()
	assert.Contains(view.Errors, "name")
	assert.Contains(view.Errors, "total")
	assert.Equal("ten", view.Values["total"])

	notes := fixture.notifications.Drain()
	assert.Len(notes, 1)
	assert.Equal(editor.NotificationError, notes[0].Level)
	assert.Contains(notes[0].Message, "Failed to update the data. Check again that all values are valid")

	assert.Equal(0, fixture.list.calls)
	fixture.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestControllerSaveConflict(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	fixture := newControllerFixture(t, models.CategorySchema)
	uut := fixture.uut

	original := persistedCategory("Widgets", 3)
	assert.Nil(uut.Select(utCtx, original))
	assert.Equal(models.EditStateEditingExisting, uut.State())
	assert.Equal(fmt.Sprintf("/category/%s/edit", original.ID), fixture.location.Location())

	assert.Nil(uut.SetField(utCtx, "name", "Gadgets"))

	fixture.repo.On(
		"Save",
		mock.AnythingOfType("context.backgroundCtx"),
		mock.MatchedBy(func(record models.Record) bool {
			return record.ID == original.ID && record.Version == 3 && record.Fields["name"] == "Gadgets"
		}),
	).Return(models.Record{}, fmt.Errorf("stale [%w]", models.ErrOptimisticLockConflict)).Once()

	err := uut.Save(utCtx)
	assert.ErrorIs(err, models.ErrOptimisticLockConflict)

	// Nothing changes: state, selected record, unsaved form values
	assert.Equal(models.EditStateEditingExisting, uut.State())
	selection, ok := uut.Selection()
	assert.True(ok)
	assert.Equal(original, selection)
	assert.Equal("Gadgets", uut.View().Values["name"])
	assert.Equal(0, fixture.list.calls)
	assert.Equal(fmt.Sprintf("/category/%s/edit", original.ID), fixture.location.Location())

	notes := fixture.notifications.Drain()
	assert.Len(notes, 1)
	assert.Equal(editor.NotificationError, notes[0].Level)
	assert.Equal(
		"Error updating the data. Somebody else has updated the record while you were making changes.",
		notes[0].Message,
	)

	// Other failures are reported but also keep the edit
	fixture.repo.On(
		"Save", mock.AnythingOfType("context.backgroundCtx"), mock.Anything,
	).Return(models.Record{}, fmt.Errorf("disk on fire")).Once()
	assert.NotNil(uut.Save(utCtx))
	assert.Equal(models.EditStateEditingExisting, uut.State())
	assert.Equal(0, fixture.list.calls)
}

func TestControllerDelete(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	fixture := newControllerFixture(t, models.CategorySchema)
	uut := fixture.uut

	// Case 0: conflict
	stale := persistedCategory("Widgets", 2)
	assert.Nil(uut.Select(utCtx, stale))
	fixture.repo.On(
		"Delete", mock.AnythingOfType("context.backgroundCtx"), stale.ID, int64(2),
	).Return(fmt.Errorf("stale [%w]", models.ErrOptimisticLockConflict)).Once()
	assert.ErrorIs(uut.Delete(utCtx), models.ErrOptimisticLockConflict)
	assert.Equal(models.EditStateEditingExisting, uut.State())
	assert.Equal(0, fixture.list.calls)
	fixture.notifications.Drain()

	// Case 1: success
	current := persistedCategory("Widgets", 5)
	assert.Nil(uut.Select(utCtx, current))
	fixture.repo.On(
		"Delete", mock.AnythingOfType("context.backgroundCtx"), current.ID, int64(5),
	).Return(nil).Once()
	assert.Nil(uut.Delete(utCtx))
	assert.Equal(models.EditStateEmpty, uut.State())
	assert.Equal(1, fixture.list.calls)
	assert.Equal("/category", fixture.location.Location())
	notes := fixture.notifications.Drain()
	assert.Len(notes, 1)
	assert.Equal("Data deleted", notes[0].Message)
}

func TestControllerCancel(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	fixture := newControllerFixture(t, models.CategorySchema)
	uut := fixture.uut

	cleared := map[string]string{"name": "", "slug": "", "total": ""}

	prepare := []func(){
		// EMPTY
		func() {},
		// EDITING_NEW with an attachment
		func() {
			assert.Nil(uut.SetField(utCtx, "name", "Draft"))
			assert.Nil(uut.OnUploadComplete(utCtx, []byte("image")))
		},
		// EDITING_EXISTING with edits
		func() {
			assert.Nil(uut.Select(utCtx, persistedCategory("Widgets", 1)))
			assert.Nil(uut.SetField(utCtx, "slug", "x"))
		},
	}
	for idx, setup := range prepare {
		setup()
		assert.Nil(uut.Cancel(utCtx))
		assert.Equal(models.EditStateEmpty, uut.State())
		view := uut.View()
		assert.Equal(cleared, view.Values)
		assert.Empty(view.Preview)
		assert.Equal("/category", fixture.location.Location())
		assert.Equal(idx+1, fixture.list.calls)
	}

	fixture.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestControllerUpload(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	fixture := newControllerFixture(t, models.ProductSchema)
	uut := fixture.uut

	// Refused uploads with nothing selected do not start a record
	err := uut.Upload(utCtx, "application/pdf", bytes.NewReader([]byte("%PDF")))
	assert.ErrorIs(err, editor.ErrAttachmentNotImage)
	assert.Equal(models.EditStateEmpty, uut.State())
	err = uut.Upload(utCtx, "image/png", bytes.NewReader(nil))
	assert.ErrorIs(err, editor.ErrAttachmentEmpty)
	assert.Equal(models.EditStateEmpty, uut.State())
	assert.Empty(uut.View().Preview)
	_, ok := uut.Selection()
	assert.False(ok)
	assert.Len(fixture.notifications.Drain(), 2)

	// Upload with nothing selected starts a new record
	payload := bytes.Repeat([]byte{0xAB}, 50)
	assert.Nil(uut.Upload(utCtx, "image/png", bytes.NewReader(payload)))
	assert.Equal(models.EditStateEditingNew, uut.State())
	assert.Equal(models.AttachmentDataURI(payload), uut.View().Preview)
	selection, ok := uut.Selection()
	assert.True(ok)
	assert.Equal(payload, selection.Attachment)

	// Refused uploads leave the attachment alone
	err = uut.Upload(utCtx, "application/pdf", bytes.NewReader([]byte("%PDF")))
	assert.ErrorIs(err, editor.ErrAttachmentNotImage)
	assert.Equal(models.AttachmentDataURI(payload), uut.View().Preview)
	notes := fixture.notifications.Drain()
	assert.Len(notes, 1)
	assert.Equal(editor.NotificationError, notes[0].Level)

	err = uut.OnUploadComplete(utCtx, make([]byte, models.MaxAttachmentBytes+1))
	assert.ErrorIs(err, editor.ErrAttachmentTooLarge)
	err = uut.OnUploadComplete(utCtx, []byte{})
	assert.ErrorIs(err, editor.ErrAttachmentEmpty)
	assert.Equal(models.AttachmentDataURI(payload), uut.View().Preview)

	// A saved record carries the attachment
	assert.Nil(uut.SetField(utCtx, "name", "Bolt"))
	fixture.repo.On(
		"Save",
		mock.AnythingOfType("context.backgroundCtx"),
		mock.MatchedBy(func(record models.Record) bool {
			return bytes.Equal(record.Attachment, payload)
		}),
	).Return(func(_ context.Context, record models.Record) (models.Record, error) {
		record.ID = ulid.Make().String()
		record.Version = 1
		return record, nil
	}).Once()
	assert.Nil(uut.Save(utCtx))
	assert.Empty(uut.View().Preview)
}
