package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed is returned when a payload matches none of the known webhook
// shapes. The ingress handler rejects these with 400 before enqueue.
var ErrMalformed = errors.New("webhook payload matches no known shape")

// WebhookKind tags which ingress shape a payload arrived in.
type WebhookKind string

const (
	KindChatGuru WebhookKind = "chatguru"
	KindEvent    WebhookKind = "event_type"
	KindGeneric  WebhookKind = "generic"
)

// ChatGuruPayload is the current chat-platform webhook shape.
type ChatGuruPayload struct {
	CampanhaID       string                     `json:"campanha_id"`
	CampanhaNome     string                     `json:"campanha_nome"`
	Origem           string                     `json:"origem"`
	Email            string                     `json:"email"`
	Nome             string                     `json:"nome"`
	Tags             []string                   `json:"tags"`
	TextoMensagem    string                     `json:"texto_mensagem"`
	MediaURL         string                     `json:"media_url,omitempty"`
	MediaType        string                     `json:"media_type,omitempty"`
	CamposPersonal   map[string]json.RawMessage `json:"campos_personalizados"`
	ResponsavelNome  string                     `json:"responsavel_nome,omitempty"`
	ResponsavelEmail string                     `json:"responsavel_email,omitempty"`
	LinkChat         string                     `json:"link_chat"`
	Celular          string                     `json:"celular"`
	PhoneID          string                     `json:"phone_id,omitempty"`
	ChatID           string                     `json:"chat_id,omitempty"`
	ChatCreated      string                     `json:"chat_created,omitempty"`
}

// EventPayload is the legacy event_type webhook shape.
type EventPayload struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	Timestamp string    `json:"timestamp"`
	Data      EventData `json:"data"`
}

// EventData carries the lead fields of an EventPayload.
type EventData struct {
	LeadName   string                     `json:"lead_name,omitempty"`
	Phone      string                     `json:"phone,omitempty"`
	Email      string                     `json:"email,omitempty"`
	TaskTitle  string                     `json:"task_title,omitempty"`
	Annotation string                     `json:"annotation,omitempty"`
	Status     string                     `json:"status,omitempty"`
	Extra      map[string]json.RawMessage `json:"-"`
}

// GenericPayload is the minimal fallback webhook shape.
type GenericPayload struct {
	Nome     string `json:"nome,omitempty"`
	Celular  string `json:"celular,omitempty"`
	Email    string `json:"email,omitempty"`
	Mensagem string `json:"mensagem,omitempty"`
}

// Webhook is the tagged union of the three ingress shapes. Exactly one of the
// payload fields is set, indicated by Kind.
type Webhook struct {
	Kind     WebhookKind
	ChatGuru *ChatGuruPayload
	Event    *EventPayload
	Generic  *GenericPayload
}

// ParseWebhook auto-detects the payload shape by structure: presence of
// campanha_nome selects ChatGuru, event_type selects Event, otherwise the
// generic shape is accepted when it carries at least one identifying field.
func ParseWebhook(body []byte) (*Webhook, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if _, ok := probe["campanha_nome"]; ok {
		var p ChatGuruPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("%w: chatguru shape: %v", ErrMalformed, err)
		}
		return &Webhook{Kind: KindChatGuru, ChatGuru: &p}, nil
	}

	if _, ok := probe["event_type"]; ok {
		var p EventPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("%w: event shape: %v", ErrMalformed, err)
		}
		return &Webhook{Kind: KindEvent, Event: &p}, nil
	}

	var p GenericPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: generic shape: %v", ErrMalformed, err)
	}
	if p.Nome == "" && p.Celular == "" && p.Mensagem == "" {
		return nil, ErrMalformed
	}
	return &Webhook{Kind: KindGeneric, Generic: &p}, nil
}

// Message converts the webhook into the internal Message record, stamped with
// the ingress time.
func (w *Webhook) Message(receivedAt time.Time) Message {
	switch w.Kind {
	case KindChatGuru:
		p := w.ChatGuru
		chatID := p.ChatID
		if chatID == "" {
			chatID = p.Celular
		}
		fields := make(map[string]string, len(p.CamposPersonal))
		for k, raw := range p.CamposPersonal {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				fields[k] = s
				continue
			}
			fields[k] = string(raw)
		}
		return Message{
			ChatID:       chatID,
			Phone:        p.Celular,
			PhoneID:      p.PhoneID,
			Name:         p.Nome,
			Text:         p.TextoMensagem,
			MediaURL:     p.MediaURL,
			MediaType:    p.MediaType,
			Attendant:    p.ResponsavelNome,
			Source:       KindChatGuru,
			CustomFields: fields,
			ReceivedAt:   receivedAt,
		}
	case KindEvent:
		p := w.Event
		return Message{
			ChatID:       p.Data.Phone,
			Phone:        p.Data.Phone,
			Name:         p.Data.LeadName,
			Text:         p.Data.Annotation,
			Source:       KindEvent,
			CustomFields: map[string]string{},
			ReceivedAt:   receivedAt,
		}
	default:
		p := w.Generic
		return Message{
			ChatID:       p.Celular,
			Phone:        p.Celular,
			Name:         p.Nome,
			Text:         p.Mensagem,
			Source:       KindGeneric,
			CustomFields: map[string]string{},
			ReceivedAt:   receivedAt,
		}
	}
}
