package clickup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nordja/taskbridge/pkg/config"
	"github.com/nordja/taskbridge/pkg/models"
)

// TaskAPI is the slice of the downstream client the materializer uses.
type TaskAPI interface {
	GetListTasks(ctx context.Context, listID string) ([]Task, error)
	CreateTask(ctx context.Context, listID string, req CreateTaskRequest) (*Task, error)
	UpdateTask(ctx context.Context, taskID string, req UpdateTaskRequest) (*Task, error)
	SetTaskCustomField(ctx context.Context, taskID string, field CustomFieldPayload) error
	CreateTaskComment(ctx context.Context, taskID, text string) error
}

// TaskResult reports what a materialization did.
type TaskResult struct {
	Task    *Task
	Created bool
	Updated bool
}

// Materializer implements create-or-update task semantics with history
// preservation. Title equality is the dedupe key; at-most-one-create is
// best-effort at this layer (duplicates reconcile on the next update).
type Materializer struct {
	api    TaskAPI
	prompt *config.PromptConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewMaterializer creates a materializer bound to the downstream API and the
// prompt configuration that carries the dropdown option maps.
func NewMaterializer(api TaskAPI, prompt *config.PromptConfig) *Materializer {
	return &Materializer{
		api:    api,
		prompt: prompt,
		logger: slog.Default().With("component", "materializer"),
		now:    time.Now,
	}
}

// Materialize looks up an existing task by exact title. Absent, it creates
// one from the draft; present, it appends a history comment with the previous
// state and then updates the task in place.
func (m *Materializer) Materialize(ctx context.Context, listID string, draft models.TaskDraft) (*TaskResult, error) {
	fields := m.filterCustomFields(draft.CustomFields)

	existing, err := m.findByTitle(ctx, listID, draft.Title)
	if err != nil {
		return nil, fmt.Errorf("task lookup: %w", err)
	}

	if existing == nil {
		task, err := m.api.CreateTask(ctx, listID, CreateTaskRequest{
			Name:         draft.Title,
			Description:  draft.Description,
			Status:       string(draft.Status),
			Priority:     draft.Priority,
			CustomFields: fields,
		})
		if err != nil {
			return nil, fmt.Errorf("task create: %w", err)
		}
		m.logger.Info("Task created", "task_id", task.ID, "title", draft.Title, "list_id", listID)
		return &TaskResult{Task: task, Created: true}, nil
	}

	comment := m.historyComment(existing, draft.SourceKind)
	if err := m.api.CreateTaskComment(ctx, existing.ID, comment); err != nil {
		return nil, fmt.Errorf("history comment: %w", err)
	}

	task, err := m.api.UpdateTask(ctx, existing.ID, UpdateTaskRequest{
		Name:        draft.Title,
		Description: draft.Description,
		Status:      string(draft.Status),
		Priority:    draft.Priority,
	})
	if err != nil {
		return nil, fmt.Errorf("task update: %w", err)
	}
	for _, f := range fields {
		if err := m.api.SetTaskCustomField(ctx, existing.ID, f); err != nil {
			m.logger.Warn("Failed to set custom field on updated task",
				"task_id", existing.ID, "field_id", f.ID, "error", err)
		}
	}

	m.logger.Info("Task updated with history comment", "task_id", existing.ID, "title", draft.Title)
	return &TaskResult{Task: task, Updated: true}, nil
}

func (m *Materializer) findByTitle(ctx context.Context, listID, title string) (*Task, error) {
	tasks, err := m.api.GetListTasks(ctx, listID)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].Name == title {
			return &tasks[i], nil
		}
	}
	return nil, nil
}

// filterCustomFields drops dropdown values whose option UUID is not in the
// configured map. A dropdown field must never receive free text.
func (m *Materializer) filterCustomFields(values []models.CustomFieldValue) []CustomFieldPayload {
	out := make([]CustomFieldPayload, 0, len(values))
	for _, v := range values {
		if m.isDropdownField(v.FieldID) && !m.isKnownOption(v.Value) {
			m.logger.Warn("Dropping unmapped dropdown value",
				"field_id", v.FieldID, "value", v.Value)
			continue
		}
		out = append(out, CustomFieldPayload{ID: v.FieldID, Value: v.Value})
	}
	return out
}

func (m *Materializer) isDropdownField(fieldID string) bool {
	ids := m.prompt.FieldIDs
	switch fieldID {
	case ids.Category, ids.Subcategory, ids.ActivityType, ids.Status:
		return true
	}
	return false
}

func (m *Materializer) isKnownOption(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	for _, id := range m.prompt.CategoryIDs {
		if id == s {
			return true
		}
	}
	for _, subs := range m.prompt.Subcategories {
		for _, opt := range subs {
			if opt.ID == s {
				return true
			}
		}
	}
	for _, t := range m.prompt.ActivityTypes {
		if t.ID == s {
			return true
		}
	}
	for _, st := range m.prompt.StatusOptions {
		if st.ID == s {
			return true
		}
	}
	return false
}

// historyComment composes the Markdown comment preserving the task state
// being replaced.
func (m *Materializer) historyComment(prev *Task, sourceKind string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 **Histórico de atualização** — %s\n\n", m.now().UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- Origem: %s\n", sourceKind)
	fmt.Fprintf(&b, "- Título anterior: %s\n", prev.Name)
	if prev.Description != "" {
		fmt.Fprintf(&b, "- Descrição anterior:\n\n%s\n", prev.Description)
	}
	if prev.DateUpdated != "" {
		fmt.Fprintf(&b, "\n- Última atualização anterior: %s\n", prev.DateUpdated)
	}
	return b.String()
}
