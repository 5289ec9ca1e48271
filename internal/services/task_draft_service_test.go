package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/employee-admin-api/internal/models"
)

type fakeCompleter struct {
	content string
	err     error
	prompts []string
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.prompts = append(f.prompts, req.Messages[0].Content)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.content}}},
	}, nil
}

func (s *ServiceSuite) TestDraftTasks() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	outsider := s.createUser("outsider@corp.test", models.RoleEmployee)
	p := s.createProject("Apollo")

	completer := &fakeCompleter{content: "```json\n" +
		`[{"name":" Book venue ","description":"for the offsite"},{"name":"","description":null},{"name":"Send invites","description":null}]` +
		"\n```"}
	drafts := NewTaskDraftServiceWithClient(s.tasks, completer)

	result, err := drafts.DraftTasks(s.ctx, admin.ID, p.ID, DraftTasksInput{Text: "We need a venue and invites."})
	s.Require().NoError(err)
	s.Require().Len(result, 2)
	s.Equal("Book venue", result[0].Name)
	s.Require().NotNil(result[0].Description)
	s.Equal("Send invites", result[1].Name)
	s.Nil(result[1].Description)
	s.Require().Len(completer.prompts, 1)
	s.Contains(completer.prompts[0], `"Apollo"`)

	_, err = drafts.DraftTasks(s.ctx, outsider.ID, p.ID, DraftTasksInput{Text: "x"})
	s.ErrorIs(err, ErrUnauthorized)

	_, err = drafts.DraftTasks(s.ctx, admin.ID, 999, DraftTasksInput{Text: "x"})
	s.ErrorIs(err, ErrProjectNotFound)

	_, err = drafts.DraftTasks(s.ctx, admin.ID, p.ID, DraftTasksInput{Text: "  "})
	s.assertKind(err, KindValidation)
	s.Len(completer.prompts, 1)
}

func (s *ServiceSuite) TestDraftTasks_NotConfigured() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	p := s.createProject("Apollo")

	_, err := NewTaskDraftService(s.tasks, "").DraftTasks(s.ctx, admin.ID, p.ID, DraftTasksInput{Text: "notes"})
	s.ErrorIs(err, ErrDraftingNotConfigured)
	s.assertKind(err, KindUnavailable)
}

func (s *ServiceSuite) TestParseDrafts_TruncatesAndRejectsGarbage() {
	long := strings.Repeat("n", 200)
	drafts, err := parseDrafts(`[{"name":"` + long + `"}]`)
	s.Require().NoError(err)
	s.Require().Len(drafts, 1)
	s.Len(drafts[0].Name, 150)

	_, err = parseDrafts("Sure! Here are your tasks.")
	s.Error(err)
}

func (s *ServiceSuite) TestParseDrafts_TruncatesByCharacter() {
	name := strings.Repeat("é", 200)
	description := strings.Repeat("日", 400)
	drafts, err := parseDrafts(`[{"name":"` + name + `","description":"` + description + `"}]`)
	s.Require().NoError(err)
	s.Require().Len(drafts, 1)

	s.Equal(150, utf8.RuneCountInString(drafts[0].Name))
	s.True(utf8.ValidString(drafts[0].Name))
	s.Require().NotNil(drafts[0].Description)
	s.Equal(350, utf8.RuneCountInString(*drafts[0].Description))
	s.True(utf8.ValidString(*drafts[0].Description))

	s.NoError(validateStruct(CreateTaskInput{Name: drafts[0].Name, Description: drafts[0].Description, AppointeeID: 1}))
}
