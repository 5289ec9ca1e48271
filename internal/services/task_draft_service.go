package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/employee-admin-api/internal/constants"
)

// ChatCompleter is the subset of the OpenAI client used for drafting.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// TaskDraft is a suggested task extracted from free text. Drafts are never persisted.
type TaskDraft struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// TaskDraftService turns meeting notes or similar text into task drafts.
type TaskDraftService struct {
	tasks  *TaskService
	client ChatCompleter
	model  string
}

// NewTaskDraftService builds the service; an empty apiKey disables drafting.
func NewTaskDraftService(tasks *TaskService, apiKey string) *TaskDraftService {
	var client ChatCompleter
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}
	return NewTaskDraftServiceWithClient(tasks, client)
}

func NewTaskDraftServiceWithClient(tasks *TaskService, client ChatCompleter) *TaskDraftService {
	return &TaskDraftService{tasks: tasks, client: client, model: openai.GPT4o}
}

type DraftTasksInput struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// DraftTasks asks the model for task drafts. The requester needs the same
// access as for listing the project's tasks.
func (s *TaskDraftService) DraftTasks(ctx context.Context, requesterID, projectID uint64, in DraftTasksInput) ([]TaskDraft, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if err := s.tasks.authorizeProject(ctx, s.tasks.uow, requesterID, projectID); err != nil {
		return nil, err
	}
	project, err := s.tasks.uow.Projects.FindByID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if s.client == nil {
		return nil, ErrDraftingNotConfigured
	}

	prompt := fmt.Sprintf(`You extract concrete work items for the project %q from the text below.

Text:
%s

Answer with a JSON array only, no prose:
[
  {"name": "short task name (at most %d characters)", "description": "details or null"}
]
Return [] when the text contains no task.`, project.Name, in.Text, constants.MaxTaskNameLength)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return parseDrafts(resp.Choices[0].Message.Content)
}

func parseDrafts(content string) ([]TaskDraft, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var drafts []TaskDraft
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	valid := make([]TaskDraft, 0, len(drafts))
	for _, d := range drafts {
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			continue
		}
		d.Name = truncateRunes(d.Name, constants.MaxTaskNameLength)
		if d.Description != nil {
			trimmed := truncateRunes(*d.Description, constants.MaxTaskDescriptionLength)
			d.Description = &trimmed
		}
		valid = append(valid, d)
	}
	return valid, nil
}

// truncateRunes cuts s to at most limit characters without splitting a rune.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
