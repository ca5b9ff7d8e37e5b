// Package media turns audio, image, and PDF attachments into extracted text
// plus a human-readable annotation for the chat.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/nordja/taskbridge/pkg/config"
)

const (
	downloadTimeout = 10 * time.Second
	maxDownloadSize = 25 << 20

	// extractedTextLimit bounds how much PDF text feeds downstream LLMs.
	extractedTextLimit = 8000

	transcriptionLanguage = "pt"
)

const imageDescriptionPrompt = "Descreva detalhadamente esta imagem em português do Brasil. " +
	"Foque em elementos relevantes para contexto de atendimento ao cliente ou solicitação de serviços. " +
	"Inclua: o que está visível na imagem, texto que apareça na imagem (se houver), e contexto ou situação representada. " +
	"Seja objetivo e claro."

// Result carries what a processed attachment contributes: text for the
// classification context and an annotation for the chat.
type Result struct {
	ExtractedText string
	Annotation    string
}

// Processor downloads attachments and runs them through the speech, vision,
// and summarization providers.
type Processor struct {
	client      openai.Client
	httpClient  *http.Client
	chatModel   string
	visionModel string
	logger      *slog.Logger
}

// NewProcessor creates a media processor.
func NewProcessor(cfg config.AIConfig) *Processor {
	return &Processor{
		client:      openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey)),
		httpClient:  &http.Client{Timeout: downloadTimeout},
		chatModel:   cfg.OpenAIModel,
		visionModel: cfg.VisionModel,
		logger:      slog.Default().With("component", "media-processor"),
	}
}

// Process dispatches on the media-type prefix. Unknown types fail with the
// unsupported kind; all provider and fetch failures come back as *Error.
func (p *Processor) Process(ctx context.Context, mediaURL, mediaType string) (*Result, error) {
	switch {
	case strings.HasPrefix(mediaType, "audio/"):
		return p.processAudio(ctx, mediaURL, mediaType)
	case strings.HasPrefix(mediaType, "image/"):
		return p.processImage(ctx, mediaURL, mediaType)
	case mediaType == "application/pdf":
		return p.processPDF(ctx, mediaURL)
	default:
		return nil, newError(KindUnsupported, fmt.Errorf("media type %q", mediaType))
	}
}

func (p *Processor) processAudio(ctx context.Context, mediaURL, mediaType string) (*Result, error) {
	data, err := p.download(ctx, mediaURL)
	if err != nil {
		return nil, err
	}

	filename := filenameFor(mediaURL, mediaType, "audio.ogg")
	resp, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(data), filename, mediaType),
		Model:    openai.AudioModelWhisper1,
		Language: openai.String(transcriptionLanguage),
	})
	if err != nil {
		return nil, newError(KindTranscription, err)
	}

	p.logger.Info("Audio transcribed", "url", mediaURL, "chars", len(resp.Text))

	annotation := fmt.Sprintf(
		"🎵 **Áudio Transcrito**\n\n\"%s\"\n\nℹ️ A transcrição do áudio foi gerada e será usada para classificação da atividade.",
		resp.Text)

	return &Result{ExtractedText: resp.Text, Annotation: annotation}, nil
}

func (p *Processor) processImage(ctx context.Context, mediaURL, mediaType string) (*Result, error) {
	data, err := p.download(ctx, mediaURL)
	if err != nil {
		return nil, err
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.visionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(imageDescriptionPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
	})
	if err != nil {
		return nil, newError(KindVision, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, newError(KindVision, fmt.Errorf("empty vision response"))
	}
	description := resp.Choices[0].Message.Content

	p.logger.Info("Image described", "url", mediaURL, "chars", len(description))

	annotation := fmt.Sprintf(
		"🖼️ **Imagem Processada**\n\n%s\n\nℹ️ A descrição da imagem foi gerada e será usada para classificação da atividade.",
		description)

	return &Result{ExtractedText: description, Annotation: annotation}, nil
}

func (p *Processor) processPDF(ctx context.Context, mediaURL string) (*Result, error) {
	data, err := p.download(ctx, mediaURL)
	if err != nil {
		return nil, err
	}

	extracted, err := extractPDFText(data)
	if err != nil {
		return nil, err
	}

	summary, err := p.summarizePDF(ctx, extracted)
	if err != nil {
		return nil, err
	}

	p.logger.Info("PDF processed", "url", mediaURL, "chars", len(extracted))

	annotation := fmt.Sprintf(
		"📄 **PDF Processado**\n\n%s\n\nℹ️ O conteúdo do documento foi extraído e será usado para classificação da atividade.",
		summary)

	return &Result{ExtractedText: truncate(extracted, extractedTextLimit), Annotation: annotation}, nil
}

// summarizePDF asks the text provider for a short description of the
// extracted content to use as the chat annotation.
func (p *Processor) summarizePDF(ctx context.Context, extracted string) (string, error) {
	prompt := fmt.Sprintf(
		"Analise o seguinte texto extraído de um documento PDF e crie uma descrição resumida em português do Brasil, "+
			"com no máximo 4 frases, focando no assunto e em solicitações presentes.\n\nTEXTO DO PDF:\n%s",
		truncate(extracted, extractedTextLimit))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", newError(KindVision, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", newError(KindVision, fmt.Errorf("empty summary response"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Processor) download(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, newError(KindDownload, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, newError(KindDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError(KindDownload, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, newError(KindDownload, err)
	}
	return data, nil
}

// filenameFor derives a provider-friendly filename from the URL path or the
// media type's preferred extension.
func filenameFor(mediaURL, mediaType, fallback string) string {
	if u, err := url.Parse(mediaURL); err == nil {
		if name := path.Base(u.Path); name != "" && name != "." && name != "/" && path.Ext(name) != "" {
			return name
		}
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return "audio" + exts[0]
	}
	return fallback
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	// Avoid splitting a multi-byte rune at the boundary.
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + "..."
}
