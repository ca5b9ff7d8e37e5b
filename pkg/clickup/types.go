package clickup

// Task is the downstream task resource, reduced to the fields the
// materializer reads.
type Task struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	DateUpdated string     `json:"date_updated,omitempty"`
	URL         string     `json:"url,omitempty"`
	Status      TaskStatus `json:"status,omitempty"`
}

// TaskStatus is the workflow status a task sits in.
type TaskStatus struct {
	Status string `json:"status,omitempty"`
}

// List is a downstream list resource.
type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Folder is a downstream folder resource.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Space is a downstream space resource.
type Space struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FieldOption is one allowed value of a dropdown custom field.
type FieldOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Field is a custom-field definition on a list.
type Field struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	TypeConfig struct {
		Options []FieldOption `json:"options,omitempty"`
	} `json:"type_config"`
}

// CustomFieldPayload is one custom-field value sent on task create/update.
// Dropdown values carry option UUIDs, checkbox values the strings
// "true"/"false", dates integer epoch milliseconds.
type CustomFieldPayload struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// CreateTaskRequest is the body of POST /list/{id}/task.
type CreateTaskRequest struct {
	Name         string               `json:"name"`
	Description  string               `json:"description,omitempty"`
	Status       string               `json:"status,omitempty"`
	Priority     int                  `json:"priority,omitempty"`
	CustomFields []CustomFieldPayload `json:"custom_fields,omitempty"`
}

// UpdateTaskRequest is the body of PUT /task/{id}.
type UpdateTaskRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    int    `json:"priority,omitempty"`
}

// CreateListRequest is the body of POST /folder/{id}/list.
type CreateListRequest struct {
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
}
