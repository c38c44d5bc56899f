package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/tuanngo/rmreach/internal/models"
	"github.com/tuanngo/rmreach/internal/repositories"
	"github.com/tuanngo/rmreach/pkg/logger"
)

// chatCompleter is the slice of the OpenAI client the generator needs.
// Tests substitute a stub.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const systemPrompt = `You are an assistant writing outreach emails that a bank relationship manager sends to their customers.
Respond with a JSON object containing exactly three string fields: "subject", "body" and "message".
"subject" is the email subject line. "body" is the full email text, warm and professional, without any closing signature (it is appended separately). "message" is a one-sentence internal note telling the relationship manager what this email is about.`

// EmailGenerationService produces email content for one customer and
// email type via a chat completion
type EmailGenerationService struct {
	customerRepo *repositories.CustomerRepository
	rmRepo       *repositories.RelationshipManagerRepository
	client       chatCompleter
	defaultModel string
}

// NewEmailGenerationService creates a new EmailGenerationService
func NewEmailGenerationService(
	customerRepo *repositories.CustomerRepository,
	rmRepo *repositories.RelationshipManagerRepository,
	client chatCompleter,
	defaultModel string,
) *EmailGenerationService {
	return &EmailGenerationService{
		customerRepo: customerRepo,
		rmRepo:       rmRepo,
		client:       client,
		defaultModel: defaultModel,
	}
}

// generatedContent is the shape the model is instructed to return
type generatedContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Message string `json:"message"`
}

// Generate produces subject, body and internal message for the given
// customer and email type. The metadata carries the facts the email must
// restate. An empty model falls back to the configured default.
func (s *EmailGenerationService) Generate(
	ctx context.Context,
	customerID, rmID int64,
	emailType models.EmailType,
	metadata json.RawMessage,
	model, customPrompt string,
) (subject, body, message string, err error) {
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", "", "", fmt.Errorf("customer %d: %w", customerID, ErrNotFound)
		}
		return "", "", "", err
	}

	rm, err := s.rmRepo.GetByID(rmID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", "", "", fmt.Errorf("relationship manager %d: %w", rmID, ErrNotFound)
		}
		return "", "", "", err
	}

	prompt, err := buildPrompt(customer, rm, emailType, metadata, customPrompt)
	if err != nil {
		return "", "", "", err
	}

	if model == "" {
		model = s.defaultModel
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		logger.WithError(err).WithField("customer_id", customerID).Error("Chat completion failed")
		return "", "", "", fmt.Errorf("%w: %v", ErrContentGeneration, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", "", "", fmt.Errorf("%w: empty completion", ErrContentGeneration)
	}

	var content generatedContent
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &content); err != nil {
		return "", "", "", fmt.Errorf("%w: unparseable completion: %v", ErrContentGeneration, err)
	}
	if content.Subject == "" || content.Body == "" {
		return "", "", "", fmt.Errorf("%w: completion missing subject or body", ErrContentGeneration)
	}

	body = strings.TrimRight(content.Body, "\n") + "\n\n" + rm.Signature()
	return content.Subject, body, content.Message, nil
}

// buildPrompt assembles the user prompt: customer context, then the
// type-specific instruction restating the metadata, then the RM's standing
// custom prompt, then the caller's one-off prompt.
func buildPrompt(
	customer *models.Customer,
	rm *models.RelationshipManager,
	emailType models.EmailType,
	metadata json.RawMessage,
	customPrompt string,
) (string, error) {
	var b strings.Builder

	b.WriteString("Customer context:\n")
	fmt.Fprintf(&b, "- Name: %s (address as %s)\n", customer.Name, customer.Salutation())
	fmt.Fprintf(&b, "- Job title: %s\n", customer.JobTitle)
	fmt.Fprintf(&b, "- Segment: %s\n", customer.Segment)
	fmt.Fprintf(&b, "- Behavior: %s\n", customer.BehaviorDescription)
	fmt.Fprintf(&b, "- Cards: %s\n", describeCards(customer.Cards))

	switch emailType {
	case models.EmailTypeBirthday:
		var meta models.BirthdayMetadata
		if err := json.Unmarshal(metadata, &meta); err != nil {
			return "", fmt.Errorf("%w: bad birthday metadata: %v", ErrContentGeneration, err)
		}
		b.WriteString("\nWrite a birthday greeting email. ")
		fmt.Fprintf(&b, "The customer turns %d today (%s). Congratulate them warmly on their birthday.\n", meta.Age, meta.BirthdayDate)

	case models.EmailTypeCardRenewal:
		var meta models.CardRenewalMetadata
		if err := json.Unmarshal(metadata, &meta); err != nil {
			return "", fmt.Errorf("%w: bad card renewal metadata: %v", ErrContentGeneration, err)
		}
		b.WriteString("\nWrite a card renewal reminder email. The following cards are coming up for renewal:\n")
		for _, card := range meta.RenewingCards {
			fmt.Fprintf(&b, "- %s (renews on %s, %d days left)\n", card.CardProductName, card.RenewalDate, card.DaysUntilRenewal)
		}
		fmt.Fprintf(&b, "In total %d card(s) renew soon. Remind the customer and offer help with the renewal.\n", meta.TotalCards)

	case models.EmailTypeSegmentMilestone:
		var meta models.MilestoneMetadata
		if err := json.Unmarshal(metadata, &meta); err != nil {
			return "", fmt.Errorf("%w: bad milestone metadata: %v", ErrContentGeneration, err)
		}
		b.WriteString("\nWrite a milestone celebration email. ")
		switch meta.MilestoneType {
		case models.MilestoneAccountAnniversary:
			fmt.Fprintf(&b, "The customer celebrates %d year(s) with the bank today (customer since %s). Thank them for their loyalty.\n", meta.Years, meta.CustomerSince)
		case models.MilestoneSegmentAchievement:
			fmt.Fprintf(&b, "The customer recently achieved the %s segment (on %s). Congratulate them on reaching this tier.\n", meta.Segment, meta.AchievedDate)
		default:
			fmt.Fprintf(&b, "The customer reached a milestone: %s. Congratulate them.\n", meta.MilestoneType)
		}

	default:
		return "", fmt.Errorf("%w: unsupported email type %q", ErrContentGeneration, emailType)
	}

	if rm.CustomPrompt != nil && *rm.CustomPrompt != "" {
		b.WriteString("\nStanding instructions from the relationship manager:\n")
		b.WriteString(*rm.CustomPrompt)
		b.WriteString("\n")
	}

	if customPrompt != "" {
		b.WriteString("\nAdditional instructions for this email:\n")
		b.WriteString(customPrompt)
		b.WriteString("\n")
	}

	return b.String(), nil
}

// describeCards renders the customer's card list for the prompt
func describeCards(cards []*models.Card) string {
	if len(cards) == 0 {
		return "no cards yet"
	}

	parts := make([]string, 0, len(cards))
	for _, card := range cards {
		parts = append(parts, fmt.Sprintf("%s (%s - %s): %s", card.CardProductName, card.CardType, card.CardNetwork, card.CardDescription))
	}
	return strings.Join(parts, ", ")
}
