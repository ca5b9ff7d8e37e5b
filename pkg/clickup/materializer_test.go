package clickup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordja/taskbridge/pkg/config"
	"github.com/nordja/taskbridge/pkg/models"
)

func promptFixture() *config.PromptConfig {
	return &config.PromptConfig{
		Categories: []string{"Logistica", "Compras"},
		CategoryIDs: map[string]string{
			"Logistica": "cat-logistica-uuid",
			"Compras":   "cat-compras-uuid",
		},
		Subcategories: map[string]map[string]config.SubcategoryOption{
			"Logistica": {
				"Corrida de motoboy": {ID: "sub-motoboy-uuid", Stars: 1},
			},
		},
		ActivityTypes: []config.ActivityTypeOption{
			{Name: "Rotineira", ID: "type-rotineira-uuid"},
		},
		StatusOptions: []config.StatusOption{
			{Name: "Executar", ID: "status-executar-uuid"},
		},
		FieldIDs: config.FieldIDs{
			Category:     "field-category",
			Subcategory:  "field-subcategory",
			ActivityType: "field-type",
			Status:       "field-status",
			Requester:    "field-requester",
			Account:      "field-account",
		},
	}
}

type fakeTaskAPI struct {
	tasks       []Task
	created     []CreateTaskRequest
	updated     []UpdateTaskRequest
	comments    []string
	fieldsSet   []CustomFieldPayload
	createdTask Task
}

func (f *fakeTaskAPI) GetListTasks(context.Context, string) ([]Task, error) {
	return f.tasks, nil
}

func (f *fakeTaskAPI) CreateTask(_ context.Context, _ string, req CreateTaskRequest) (*Task, error) {
	f.created = append(f.created, req)
	return &f.createdTask, nil
}

func (f *fakeTaskAPI) UpdateTask(_ context.Context, taskID string, req UpdateTaskRequest) (*Task, error) {
	f.updated = append(f.updated, req)
	return &Task{ID: taskID, Name: req.Name, Description: req.Description}, nil
}

func (f *fakeTaskAPI) SetTaskCustomField(_ context.Context, _ string, field CustomFieldPayload) error {
	f.fieldsSet = append(f.fieldsSet, field)
	return nil
}

func (f *fakeTaskAPI) CreateTaskComment(_ context.Context, _ string, text string) error {
	f.comments = append(f.comments, text)
	return nil
}

func draftFixture() models.TaskDraft {
	return models.TaskDraft{
		Title:       "[ChatGuru] Corrida de motoboy",
		Description: "Preciso de um motoboy para retirar documentos hoje",
		Status:      models.StatusExecute,
		CustomFields: []models.CustomFieldValue{
			{FieldID: "field-category", Value: "cat-logistica-uuid"},
			{FieldID: "field-requester", Value: "Cliente X"},
		},
		SourceKind: "chatguru",
	}
}

func TestMaterialize_CreatesWhenAbsent(t *testing.T) {
	api := &fakeTaskAPI{createdTask: Task{ID: "t-1", Name: "[ChatGuru] Corrida de motoboy"}}
	m := NewMaterializer(api, promptFixture())

	result, err := m.Materialize(context.Background(), "list-1", draftFixture())
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.False(t, result.Updated)

	require.Len(t, api.created, 1)
	assert.Equal(t, "[ChatGuru] Corrida de motoboy", api.created[0].Name)
	assert.Equal(t, "Executar", api.created[0].Status)
	assert.Len(t, api.created[0].CustomFields, 2)
	assert.Empty(t, api.comments)
	assert.Empty(t, api.updated)
}

func TestMaterialize_UpdatesWithHistoryComment(t *testing.T) {
	api := &fakeTaskAPI{
		tasks: []Task{{
			ID:          "t-9",
			Name:        "[ChatGuru] Compra de presentes",
			Description: "descrição antiga",
			DateUpdated: "1730000000000",
		}},
	}
	m := NewMaterializer(api, promptFixture())
	m.now = func() time.Time { return time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC) }

	draft := draftFixture()
	draft.Title = "[ChatGuru] Compra de presentes"
	draft.Description = "descrição nova"

	result, err := m.Materialize(context.Background(), "list-1", draft)
	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.False(t, result.Created)

	// Exactly one comment, carrying the previous state.
	require.Len(t, api.comments, 1)
	assert.Contains(t, api.comments[0], "2025-10-20")
	assert.Contains(t, api.comments[0], "chatguru")
	assert.Contains(t, api.comments[0], "[ChatGuru] Compra de presentes")
	assert.Contains(t, api.comments[0], "descrição antiga")
	assert.Contains(t, api.comments[0], "1730000000000")

	require.Len(t, api.updated, 1)
	assert.Equal(t, "descrição nova", api.updated[0].Description)
	assert.Empty(t, api.created, "no new task when the title already exists")
}

func TestMaterialize_ExactTitleMatchOnly(t *testing.T) {
	api := &fakeTaskAPI{
		tasks:       []Task{{ID: "t-2", Name: "[ChatGuru] Corrida de motoboy urgente"}},
		createdTask: Task{ID: "t-3"},
	}
	m := NewMaterializer(api, promptFixture())

	result, err := m.Materialize(context.Background(), "list-1", draftFixture())
	require.NoError(t, err)
	assert.True(t, result.Created, "near-matching titles must not dedupe")
}

func TestMaterialize_DropsUnmappedDropdownValues(t *testing.T) {
	api := &fakeTaskAPI{createdTask: Task{ID: "t-4"}}
	m := NewMaterializer(api, promptFixture())

	draft := draftFixture()
	draft.CustomFields = []models.CustomFieldValue{
		{FieldID: "field-category", Value: "free text, not an option id"},
		{FieldID: "field-status", Value: "status-executar-uuid"},
		{FieldID: "field-account", Value: "Conta Principal"}, // text field, kept as-is
	}

	_, err := m.Materialize(context.Background(), "list-1", draft)
	require.NoError(t, err)

	require.Len(t, api.created, 1)
	fields := api.created[0].CustomFields
	require.Len(t, fields, 2)
	assert.Equal(t, "field-status", fields[0].ID)
	assert.Equal(t, "field-account", fields[1].ID)
}
