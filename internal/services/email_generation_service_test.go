package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanngo/rmreach/internal/models"
	"github.com/tuanngo/rmreach/internal/repositories"
)

// stubCompleter records the request and returns a canned completion
type stubCompleter struct {
	lastReq openai.ChatCompletionRequest
	content string
	err     error
}

func (s *stubCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
	}, nil
}

func setupGenerationTest(t *testing.T, completer *stubCompleter) *EmailGenerationService {
	t.Helper()
	db := setupTestDB(t)

	insertRM(t, db, 1, "Alice Nguyen", "Senior RM", strPtr("Always mention our mobile app."), nil)
	insertCustomer(t, db, &models.Customer{
		ID: 1, Name: "Minh Tran", DOB: date(1980, time.June, 1),
		Gender: models.GenderMale, JobTitle: "Architect", Segment: "Rising Prime",
		BehaviorDescription: "Frequent traveler", IsActive: true, RMID: 1,
		CreatedAt: date(2022, time.February, 1),
	})
	insertCard(t, db, 1, &models.Card{
		CardProductName: "Platinum Travel", CardType: models.CardTypeCredit,
		CardNetwork: models.CardNetworkVisa, CardDescription: "Travel rewards card",
		IsActive: true, CreatedAt: date(2024, time.June, 10),
	})

	return NewEmailGenerationService(
		repositories.NewCustomerRepository(db),
		repositories.NewRelationshipManagerRepository(db),
		completer,
		"gpt-4o",
	)
}

func TestGenerateBirthdayEmail(t *testing.T) {
	completer := &stubCompleter{content: `{"subject":"Happy Birthday!","body":"Dear Mr. Tran, happy birthday.","message":"Birthday email for Minh Tran"}`}
	service := setupGenerationTest(t, completer)

	metadata, _ := json.Marshal(models.BirthdayMetadata{BirthdayDate: "1980-06-01", Age: 45})

	subject, body, message, err := service.Generate(context.Background(), 1, 1, models.EmailTypeBirthday, metadata, "", "Keep it short.")
	require.NoError(t, err)

	assert.Equal(t, "Happy Birthday!", subject)
	assert.Equal(t, "Birthday email for Minh Tran", message)

	t.Run("Signature is appended to the body", func(t *testing.T) {
		assert.True(t, strings.HasSuffix(body, "\n\nBest regards,\nAlice Nguyen\nSenior RM"))
	})

	t.Run("Prompt restates customer context and metadata", func(t *testing.T) {
		require.Len(t, completer.lastReq.Messages, 2)
		prompt := completer.lastReq.Messages[1].Content

		assert.Contains(t, prompt, "Minh Tran")
		assert.Contains(t, prompt, "Mr.")
		assert.Contains(t, prompt, "Architect")
		assert.Contains(t, prompt, "Frequent traveler")
		assert.Contains(t, prompt, "Platinum Travel (CREDIT - VISA): Travel rewards card")
		assert.Contains(t, prompt, "turns 45")
		assert.Contains(t, prompt, "1980-06-01")
	})

	t.Run("RM standing prompt comes before the one-off prompt", func(t *testing.T) {
		prompt := completer.lastReq.Messages[1].Content
		standing := strings.Index(prompt, "Always mention our mobile app.")
		oneOff := strings.Index(prompt, "Keep it short.")
		require.NotEqual(t, -1, standing)
		require.NotEqual(t, -1, oneOff)
		assert.Less(t, standing, oneOff)
	})

	t.Run("Default model is used when none is given", func(t *testing.T) {
		assert.Equal(t, "gpt-4o", completer.lastReq.Model)
	})

	t.Run("JSON response format is requested", func(t *testing.T) {
		require.NotNil(t, completer.lastReq.ResponseFormat)
		assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, completer.lastReq.ResponseFormat.Type)
	})
}

func TestGenerateCardRenewalEmail(t *testing.T) {
	completer := &stubCompleter{content: `{"subject":"Card renewal","body":"Your card renews soon.","message":"Renewal reminder"}`}
	service := setupGenerationTest(t, completer)

	metadata, _ := json.Marshal(models.CardRenewalMetadata{
		RenewingCards: []models.RenewingCard{
			{CardProductName: "Platinum Travel", CardType: "CREDIT", CardNetwork: "VISA", RenewalDate: "2025-06-10", DaysUntilRenewal: 9},
		},
		TotalCards: 1,
	})

	_, _, _, err := service.Generate(context.Background(), 1, 1, models.EmailTypeCardRenewal, metadata, "gpt-4o-mini", "")
	require.NoError(t, err)

	prompt := completer.lastReq.Messages[1].Content
	assert.Contains(t, prompt, "Platinum Travel (renews on 2025-06-10, 9 days left)")
	assert.Contains(t, prompt, "1 card(s)")
	assert.Equal(t, "gpt-4o-mini", completer.lastReq.Model, "explicit model wins over default")
}

func TestGenerateMilestoneEmail(t *testing.T) {
	completer := &stubCompleter{content: `{"subject":"Congratulations","body":"Three great years together.","message":"Anniversary email"}`}
	service := setupGenerationTest(t, completer)

	metadata, _ := json.Marshal(models.MilestoneMetadata{
		MilestoneType: models.MilestoneAccountAnniversary,
		Years:         3,
		CustomerSince: "2022-02-01",
	})

	_, _, _, err := service.Generate(context.Background(), 1, 1, models.EmailTypeSegmentMilestone, metadata, "", "")
	require.NoError(t, err)

	prompt := completer.lastReq.Messages[1].Content
	assert.Contains(t, prompt, "3 year(s)")
	assert.Contains(t, prompt, "2022-02-01")
}

func TestGenerateErrors(t *testing.T) {
	birthdayMeta, _ := json.Marshal(models.BirthdayMetadata{BirthdayDate: "1980-06-01", Age: 45})

	t.Run("Unknown customer", func(t *testing.T) {
		service := setupGenerationTest(t, &stubCompleter{content: `{}`})
		_, _, _, err := service.Generate(context.Background(), 99, 1, models.EmailTypeBirthday, birthdayMeta, "", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Unknown relationship manager", func(t *testing.T) {
		service := setupGenerationTest(t, &stubCompleter{content: `{}`})
		_, _, _, err := service.Generate(context.Background(), 1, 99, models.EmailTypeBirthday, birthdayMeta, "", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Unsupported email type", func(t *testing.T) {
		service := setupGenerationTest(t, &stubCompleter{content: `{}`})
		_, _, _, err := service.Generate(context.Background(), 1, 1, models.EmailType("NEWSLETTER"), nil, "", "")
		assert.ErrorIs(t, err, ErrContentGeneration)
	})

	t.Run("Completion API failure", func(t *testing.T) {
		service := setupGenerationTest(t, &stubCompleter{err: errors.New("rate limited")})
		_, _, _, err := service.Generate(context.Background(), 1, 1, models.EmailTypeBirthday, birthdayMeta, "", "")
		assert.ErrorIs(t, err, ErrContentGeneration)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("Empty completion", func(t *testing.T) {
		service := setupGenerationTest(t, &stubCompleter{content: ""})
		_, _, _, err := service.Generate(context.Background(), 1, 1, models.EmailTypeBirthday, birthdayMeta, "", "")
		assert.ErrorIs(t, err, ErrContentGeneration)
	})

	t.Run("Unparseable completion", func(t *testing.T) {
		service := setupGenerationTest(t, &stubCompleter{content: "I cannot write JSON today"})
		_, _, _, err := service.Generate(context.Background(), 1, 1, models.EmailTypeBirthday, birthdayMeta, "", "")
		assert.ErrorIs(t, err, ErrContentGeneration)
	})

	t.Run("Completion missing required fields", func(t *testing.T) {
		service := setupGenerationTest(t, &stubCompleter{content: `{"subject":"","body":"","message":"x"}`})
		_, _, _, err := service.Generate(context.Background(), 1, 1, models.EmailTypeBirthday, birthdayMeta, "", "")
		assert.ErrorIs(t, err, ErrContentGeneration)
	})
}
