// Package pipeline glues a ready batch through media extraction,
// classification, structure resolution, task materialization, and chat
// annotation. Media and classification failures are recovered and the batch
// goes on. A missing folder mapping ends the batch with an operator
// annotation; any other failure to resolve the folder or the monthly list,
// or to materialize the task, is logged and ends the batch with no task and
// no chat annotation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nordja/taskbridge/pkg/ai"
	"github.com/nordja/taskbridge/pkg/chatguru"
	"github.com/nordja/taskbridge/pkg/clickup"
	"github.com/nordja/taskbridge/pkg/config"
	"github.com/nordja/taskbridge/pkg/media"
	"github.com/nordja/taskbridge/pkg/models"
	"github.com/nordja/taskbridge/pkg/structure"
)

const (
	titlePrefix   = "[ChatGuru] "
	titleMaxLen   = 80
	batchDeadline = 5 * time.Minute
)

const nonActivityAnnotation = "Tarefa: Não é uma atividade"

// Classifier produces a structured classification from the batch context.
type Classifier interface {
	Classify(ctx context.Context, batchContext string) (models.Classification, ai.Meta)
}

// MediaProcessor extracts text and an annotation from one attachment.
type MediaProcessor interface {
	Process(ctx context.Context, mediaURL, mediaType string) (*media.Result, error)
}

// StructureResolver maps names to folders and folders to monthly lists.
type StructureResolver interface {
	ResolveFolder(ctx context.Context, clientName, attendantName string) (models.FolderInfo, error)
	FindAttendantForClient(ctx context.Context, clientName string) (string, error)
	ResolveMonthlyList(ctx context.Context, folderID, folderPathHint string) (string, error)
}

// Materializer creates or updates the downstream task.
type Materializer interface {
	Materialize(ctx context.Context, listID string, draft models.TaskDraft) (*clickup.TaskResult, error)
}

// Orchestrator runs one pipeline per ready batch. Constructed with all of
// its collaborators bound; the queue only ever sees its OnBatchReady method.
type Orchestrator struct {
	mediaProc  MediaProcessor
	classifier Classifier
	resolver   StructureResolver
	tasks      Materializer
	chat       *chatguru.Service
	prompt     *config.PromptConfig
	logger     *slog.Logger
	now        func() time.Time
}

// New creates the orchestrator.
func New(
	mediaProc MediaProcessor,
	classifier Classifier,
	resolver StructureResolver,
	tasks Materializer,
	chat *chatguru.Service,
	prompt *config.PromptConfig,
) *Orchestrator {
	return &Orchestrator{
		mediaProc:  mediaProc,
		classifier: classifier,
		resolver:   resolver,
		tasks:      tasks,
		chat:       chat,
		prompt:     prompt,
		logger:     slog.Default().With("component", "pipeline"),
		now:        time.Now,
	}
}

// OnBatchReady is the queue's batch callback.
func (o *Orchestrator) OnBatchReady(chatID string, msgs []models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), batchDeadline)
	defer cancel()

	if len(msgs) == 0 {
		return
	}
	o.run(ctx, chatID, msgs)
}

func (o *Orchestrator) run(ctx context.Context, chatID string, msgs []models.Message) {
	log := o.logger.With("chat_id", chatID, "batch_size", len(msgs))
	first := msgs[0]

	// 1. Aggregate the batch into one classification context.
	aggregated := aggregateText(msgs, o.now())

	// 2. Extract media. Failures are non-fatal: the pipeline proceeds with
	// text-only context.
	var mediaAnnotations []string
	var mediaTexts []string
	for _, msg := range msgs {
		if !msg.HasMedia() {
			continue
		}
		result, err := o.mediaProc.Process(ctx, msg.MediaURL, msg.MediaType)
		if err != nil {
			log.Warn("Media extraction failed, continuing without it",
				"media_url", msg.MediaURL, "media_type", msg.MediaType, "error", err)
			continue
		}
		if result.ExtractedText != "" {
			mediaTexts = append(mediaTexts, result.ExtractedText)
		}
		if result.Annotation != "" {
			mediaAnnotations = append(mediaAnnotations, result.Annotation)
		}
	}

	classifyContext := aggregated
	if len(mediaTexts) > 0 {
		classifyContext += "\n\nCONTEÚDO EXTRAÍDO DE MÍDIA:\n" + strings.Join(mediaTexts, "\n\n")
	}

	// 3. Classify.
	classification, meta := o.classifier.Classify(ctx, classifyContext)
	if meta.Degraded {
		log.Warn("Classification degraded, annotation only")
	}

	// 4. Non-activity: annotate and stop.
	if !classification.IsActivity {
		o.chat.Annotate(ctx, chatID, first.Phone, nonActivityAnnotation)
		o.sendMediaAnnotations(ctx, chatID, first.Phone, mediaAnnotations)
		log.Info("Batch closed without task", "reason", classification.Reason, "provider", meta.Provider)
		return
	}

	// 5. Resolve structure from requester (Info_2) and attendant.
	clientName := first.Requester()
	attendantName := first.Attendant
	if strings.TrimSpace(attendantName) == "" && clientName != "" {
		found, err := o.resolver.FindAttendantForClient(ctx, clientName)
		if err != nil {
			log.Warn("No attendant mapped for client", "client", clientName, "error", err)
		} else {
			attendantName = found
		}
	}

	folder, err := o.resolver.ResolveFolder(ctx, clientName, attendantName)
	if err != nil {
		if errors.Is(err, structure.ErrNotFound) {
			o.chat.Annotate(ctx, chatID, first.Phone, structureMissingAnnotation(clientName, attendantName))
			log.Warn("Structure not found, no task created",
				"client", clientName, "attendant", attendantName)
			return
		}
		log.Error("Folder resolution failed", "error", err)
		return
	}

	// 6. Resolve the monthly list.
	listID, err := o.resolver.ResolveMonthlyList(ctx, folder.FolderID, folder.FolderPath)
	if err != nil {
		log.Error("Monthly list resolution failed", "folder_id", folder.FolderID, "error", err)
		return
	}

	// 7. Build and 8. materialize the task.
	draft := o.buildDraft(classification, msgs, string(first.Source))
	result, err := o.tasks.Materialize(ctx, listID, draft)
	if err != nil {
		log.Error("Task materialization failed", "list_id", listID, "error", err)
		return
	}

	// 9. Confirm back to the chat.
	o.chat.Confirm(ctx, first.Phone, "Ok ✅")
	o.chat.Annotate(ctx, chatID, first.Phone, activityAnnotation(classification))
	o.sendMediaAnnotations(ctx, chatID, first.Phone, mediaAnnotations)

	log.Info("Batch materialized",
		"task_id", result.Task.ID,
		"created", result.Created,
		"updated", result.Updated,
		"folder", folder.FolderPath,
		"provider", meta.Provider)
}

func (o *Orchestrator) sendMediaAnnotations(ctx context.Context, chatID, phone string, annotations []string) {
	for _, a := range annotations {
		o.chat.Annotate(ctx, chatID, phone, a)
	}
}

// aggregateText renders the batch as one blob, each message prefixed with
// its position and age.
func aggregateText(msgs []models.Message, now time.Time) string {
	var b strings.Builder
	for i, msg := range msgs {
		age := int(now.Sub(msg.ReceivedAt).Seconds())
		if age < 0 {
			age = 0
		}
		fmt.Fprintf(&b, "[Mensagem %d - há %ds]\n%s\n\n", i+1, age, msg.Text)
	}
	first := msgs[0]
	fmt.Fprintf(&b, "Contato: %s (%s)\n", first.Name, first.Phone)
	fmt.Fprintf(&b, "batch_size: %d\nbatch_chat_id: %s\n", len(msgs), first.ChatID)
	return b.String()
}

func (o *Orchestrator) buildDraft(c models.Classification, msgs []models.Message, sourceKind string) models.TaskDraft {
	first := msgs[0]

	var body strings.Builder
	for _, msg := range msgs {
		if msg.Text != "" {
			body.WriteString(msg.Text)
			body.WriteString("\n")
		}
	}
	fmt.Fprintf(&body, "\nContato: %s (%s)\n", first.Name, first.Phone)
	fmt.Fprintf(&body, "Categoria: %s", c.Category)
	if c.Subcategory != "" {
		fmt.Fprintf(&body, " / %s", c.Subcategory)
	}
	body.WriteString("\n")
	for _, msg := range msgs {
		if msg.HasMedia() {
			fmt.Fprintf(&body, "\n[Anexo](%s)\n", msg.MediaURL)
		}
	}

	status := c.Status
	if status == "" {
		status = models.StatusExecute
	}

	return models.TaskDraft{
		Title:        buildTitle(c.Reason),
		Description:  body.String(),
		Status:       status,
		CustomFields: o.customFields(c, first),
		SourceKind:   sourceKind,
	}
}

// customFields maps the classification onto configured field UUIDs. Dropdown
// values resolve to option ids here; anything unmapped is left out (the
// materializer drops stragglers too).
func (o *Orchestrator) customFields(c models.Classification, first models.Message) []models.CustomFieldValue {
	ids := o.prompt.FieldIDs
	var fields []models.CustomFieldValue

	if id, ok := o.prompt.CategoryOptionID(c.Category); ok && ids.Category != "" {
		fields = append(fields, models.CustomFieldValue{FieldID: ids.Category, Value: id})
	}
	if id, ok := o.prompt.SubcategoryOptionID(c.Category, c.Subcategory); ok && ids.Subcategory != "" {
		fields = append(fields, models.CustomFieldValue{FieldID: ids.Subcategory, Value: id})
	}
	if id, ok := o.prompt.ActivityTypeOptionID(string(c.ActivityType)); ok && ids.ActivityType != "" {
		fields = append(fields, models.CustomFieldValue{FieldID: ids.ActivityType, Value: id})
	}
	if id, ok := o.prompt.StatusOptionID(string(c.Status)); ok && ids.Status != "" {
		fields = append(fields, models.CustomFieldValue{FieldID: ids.Status, Value: id})
	}
	if requester := first.Requester(); requester != "" && ids.Requester != "" {
		fields = append(fields, models.CustomFieldValue{FieldID: ids.Requester, Value: requester})
	}
	if account := first.Account(); account != "" && ids.Account != "" {
		fields = append(fields, models.CustomFieldValue{FieldID: ids.Account, Value: account})
	}
	return fields
}

// titleBoilerplate lists model-generated lead-ins stripped from reasons
// before they become task titles.
var titleBoilerplate = []string{
	"A mensagem contém",
	"O usuário solicitou",
	"A solicitação é sobre",
	"Trata-se de",
	"É uma solicitação de",
	"um pedido específico de",
	"um pedido de",
	"uma solicitação de",
	"uma solicitação para",
	"A ação envolve",
	"O pedido é para",
}

// buildTitle derives the task title from the classification reason:
// boilerplate stripped, first letter capitalized, truncated to the limit,
// prefixed with the source marker.
func buildTitle(reason string) string {
	title := reason
	for _, prefix := range titleBoilerplate {
		title = strings.ReplaceAll(title, prefix, "")
	}
	title = strings.Join(strings.Fields(title), " ")

	runes := []rune(title)
	if len(runes) > 0 {
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	}
	if len(runes) > titleMaxLen {
		runes = append(runes[:titleMaxLen-3], []rune("...")...)
	}
	title = string(runes)

	if strings.TrimSpace(title) == "" {
		title = "Atividade Profissional"
	}
	return titlePrefix + title
}

func activityAnnotation(c models.Classification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tarefa: %s\n", strings.TrimPrefix(buildTitle(c.Reason), titlePrefix))
	fmt.Fprintf(&b, "Categoria: %s\n", c.Category)
	if c.Subcategory != "" {
		fmt.Fprintf(&b, "Subcategoria: %s\n", c.Subcategory)
	}
	if c.ActivityType != "" {
		fmt.Fprintf(&b, "Tipo: %s\n", c.ActivityType)
	}
	return strings.TrimRight(b.String(), "\n")
}

func structureMissingAnnotation(client, attendant string) string {
	return fmt.Sprintf(
		"⚠️ Estrutura não encontrada para Cliente='%s' e Atendente='%s'. "+
			"Crie a pasta no ClickUp e adicione o mapeamento no banco de dados.",
		client, attendant)
}
