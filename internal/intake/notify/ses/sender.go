package ses

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"safestep/internal/intake/notify"
)

// API is the subset of the SES v2 client the sender calls.
type API interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Sender delivers templated email through SES.
type Sender struct {
	client API
}

func New(client API) *Sender {
	return &Sender{client: client}
}

// NewFromConfig builds a client from shared SDK config. endpoint overrides the
// resolved endpoint when non-nil.
func NewFromConfig(cfg awssdk.Config, endpoint *string) *Sender {
	client := sesv2.NewFromConfig(cfg, func(o *sesv2.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})
	return New(client)
}

func (s *Sender) SendTemplatedEmail(ctx context.Context, msg notify.TemplatedEmail) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: awssdk.String(msg.Source),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Template: &types.Template{
				TemplateName: awssdk.String(msg.Template),
				TemplateData: awssdk.String(msg.Data),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send to template %s: %w", msg.Template, err)
	}
	return nil
}
