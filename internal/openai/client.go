package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client wraps the OpenAI SDK and provides utility helpers.
type Client struct {
	apiKey string
	client *openai.Client
	model  openai.ChatModel
}

// ErrClientNotInitialised is returned when attempting to call the API without a configured client.
var ErrClientNotInitialised = errors.New("openai client not initialised")

// New returns an OpenAI client when apiKey is provided, otherwise a disabled client.
func New(apiKey string) *Client {
	if apiKey == "" {
		return &Client{}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		apiKey: apiKey,
		client: &client,
		model:  openai.ChatModelGPT4oMini,
	}
}

// Enabled reports whether the client can reach the API.
func (c *Client) Enabled() bool {
	return c.client != nil
}

type extraction struct {
	Task string `json:"task"`
	When string `json:"when"`
}

// ExtractReminder asks the model to pull {task, when} out of an
// ambiguous reminder phrase. A nil due time means the model found no
// clear time. Malformed responses are reported as errors, never panics.
func (c *Client) ExtractReminder(ctx context.Context, text string, now time.Time) (string, *time.Time, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil, fmt.Errorf("text cannot be empty")
	}
	if c.client == nil {
		return "", nil, ErrClientNotInitialised
	}

	system := fmt.Sprintf(
		"You extract reminder information. Current timezone: %s. Current time: %s. "+
			"Extract the task and when it should happen from the user's message. "+
			`Respond with JSON only: {"task": "cleaned task text", "when": "ISO-8601 datetime or null"}. `+
			"If no clear time is mentioned, return null for \"when\".",
		now.Location(), now.Format("2006-01-02 15:04"),
	)

	req := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(system),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(text),
					},
				},
			},
		},
		Temperature:         openai.Float(0.1),
		MaxCompletionTokens: openai.Int(150),
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", nil, err
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("no completion received")
	}

	return parseExtraction(resp.Choices[0].Message.Content, text)
}

// parseExtraction decodes the model's JSON answer. The raw content may
// be fenced or padded; only the first JSON object is considered.
func parseExtraction(content, fallbackTask string) (string, *time.Time, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", nil, fmt.Errorf("no JSON object in completion")
	}

	var result extraction
	if err := json.Unmarshal([]byte(content[start:end+1]), &result); err != nil {
		return "", nil, fmt.Errorf("decode completion: %w", err)
	}

	task := strings.TrimSpace(result.Task)
	if task == "" {
		task = fallbackTask
	}

	when := strings.TrimSpace(result.When)
	if when == "" || strings.EqualFold(when, "null") {
		return task, nil, nil
	}

	due, err := parseISO(when)
	if err != nil {
		return task, nil, nil
	}
	return task, &due, nil
}

func parseISO(value string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", value)
}

// TranscribeVoice runs a voice note through Whisper and returns the text.
func (c *Client) TranscribeVoice(ctx context.Context, audio []byte, contentType string) (string, error) {
	if c.client == nil {
		return "", ErrClientNotInitialised
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("audio cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModelWhisper1,
		File:  openai.File(bytes.NewReader(audio), "voice-note"+extensionFor(contentType), contentType),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "ogg"):
		return ".ogg"
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return ".mp3"
	case strings.Contains(contentType, "wav"):
		return ".wav"
	default:
		return ".audio"
	}
}
