package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
)

type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, opts ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes alerts to a topic.
type SNSClient struct {
	svc      snsAPI
	topicArn string
}

func NewSNSClient(ctx context.Context, region, topicArn string) (*SNSClient, error) {
	cfg, err := loadAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return &SNSClient{svc: sns.NewFromConfig(cfg), topicArn: topicArn}, nil
}

// SendAlert publishes a raw subject and message.
func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) error {
	out, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	log.Debug().Str("message_id", aws.ToString(out.MessageId)).Msg("alert published")
	return nil
}

// Notify formats a machine alert for e-mail/SMS subscribers.
func (c *SNSClient) Notify(ctx context.Context, alert domain.Alert) error {
	subject := fmt.Sprintf("Machine Energy Alert: %s on %s", alert.Type, alert.MachineID)
	message := fmt.Sprintf(
		"Machine Energy Alert\n\n"+
			"Machine: %s\n"+
			"Severity: %s\n"+
			"Score: %.4f\n"+
			"Time: %s\n\n"+
			"%s",
		alert.MachineID,
		alert.Severity,
		alert.Score,
		alert.CreatedAt.Format(time.RFC3339),
		alert.Message,
	)
	return c.SendAlert(ctx, subject, message)
}
