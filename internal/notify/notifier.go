// internal/notify/notifier.go
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"venture-match-engine/internal/common/config"
	"venture-match-engine/internal/common/logger"
)

// SNSService abstracts the SNS publish call for testing.
type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// SESService abstracts the SES send call for testing.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// mutualMatchEvent is the payload published to the match events topic.
// Downstream consumers fan out push and in-app notifications from it.
type mutualMatchEvent struct {
	EventType string    `json:"eventType"`
	MatchID   string    `json:"matchId"`
	UserA     string    `json:"userA"`
	UserB     string    `json:"userB"`
	MatchedAt time.Time `json:"matchedAt"`
}

// AWSNotifier publishes match events to SNS, optionally mirroring them as
// SES email when email delivery is enabled.
type AWSNotifier struct {
	sns    SNSService
	ses    SESService
	cfg    config.NotificationConfig
	logger logger.Logger
}

func NewAWSNotifier(snsClient SNSService, sesClient SESService, cfg config.NotificationConfig, log logger.Logger) *AWSNotifier {
	return &AWSNotifier{
		sns:    snsClient,
		ses:    sesClient,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

func (n *AWSNotifier) NotifyMutualMatch(ctx context.Context, matchID, userA, userB string) error {
	event := mutualMatchEvent{
		EventType: "match.mutual",
		MatchID:   matchID,
		UserA:     userA,
		UserB:     userB,
		MatchedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.cfg.AWS.TopicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"eventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.EventType),
			},
		},
	})
	if err != nil {
		return err
	}

	n.logger.Info("mutual match event published", map[string]interface{}{
		"matchId": matchID,
	})

	if n.cfg.Email.Enabled && n.ses != nil {
		n.sendEmails(ctx, matchID, userA, userB)
	}
	return nil
}

// sendEmails mirrors the event over SES. Email is best effort; SNS is the
// delivery channel of record.
func (n *AWSNotifier) sendEmails(ctx context.Context, matchID, userA, userB string) {
	for _, userID := range []string{userA, userB} {
		_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
			Source: aws.String(n.cfg.Email.FromEmail),
			Destination: &sestypes.Destination{
				ToAddresses: []string{userID},
			},
			Message: &sestypes.Message{
				Subject: &sestypes.Content{
					Data: aws.String("You have a new match"),
				},
				Body: &sestypes.Body{
					Text: &sestypes.Content{
						Data: aws.String("You and another member liked each other. Open the app to start the conversation."),
					},
				},
			},
		})
		if err != nil {
			n.logger.WithError(err).Warn("failed to send match email", map[string]interface{}{
				"matchId": matchID,
				"userId":  userID,
			})
		}
	}
}

// NopNotifier discards all events. Used when notifications are disabled.
type NopNotifier struct{}

func (NopNotifier) NotifyMutualMatch(ctx context.Context, matchID, userA, userB string) error {
	return nil
}
