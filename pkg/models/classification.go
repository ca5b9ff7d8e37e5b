package models

// ActivityType distinguishes how a work item recurs.
type ActivityType string

const (
	ActivityRoutine   ActivityType = "Rotineira"
	ActivitySpecific  ActivityType = "Especifica"
	ActivityDedicated ActivityType = "Dedicada"
)

// TaskStatus is the back-office status a new task starts in.
type TaskStatus string

const (
	StatusExecute  TaskStatus = "Executar"
	StatusAwaiting TaskStatus = "Aguardando instruções"
	StatusDone     TaskStatus = "Concluído"
)

// Classification is the structured output of the AI classifier.
// When IsActivity is false only Reason is meaningful.
type Classification struct {
	IsActivity   bool         `json:"is_activity"`
	Reason       string       `json:"reason"`
	ActivityType ActivityType `json:"tipo_atividade,omitempty"`
	Category     string       `json:"category,omitempty"`
	Subcategory  string       `json:"sub_categoria,omitempty"`
	Status       TaskStatus   `json:"status_back_office,omitempty"`
	Subtasks     []string     `json:"subtasks,omitempty"`
}

// FolderInfo is the result of structure resolution: where in the downstream
// hierarchy a client's tasks live.
type FolderInfo struct {
	FolderID   string `json:"folder_id"`
	FolderPath string `json:"folder_path"` // "Attendant / Client"
	SpaceID    string `json:"space_id,omitempty"`
}

// CustomFieldValue is one custom field set on a task. Dropdown values carry
// the option UUID, checkboxes the strings "true"/"false", dates epoch millis.
type CustomFieldValue struct {
	FieldID string `json:"id"`
	Value   any    `json:"value"`
}

// TaskDraft is the input to task materialization, derived from a
// Classification plus the original message aggregate.
type TaskDraft struct {
	Title        string
	Description  string
	Status       TaskStatus
	Priority     int
	CustomFields []CustomFieldValue
	SourceKind   string // which webhook shape originated the batch
}
