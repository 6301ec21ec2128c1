package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"report-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Alerter notifies operators about failed delivery jobs.
type Alerter interface {
	Alert(ctx context.Context, job *models.DeliveryJob) error
}

type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSAlerter publishes a JSON summary of the failed job to a topic.
type SNSAlerter struct {
	client   SNSAPI
	topicARN string
}

func NewSNSAlerter(client SNSAPI, topicARN string) *SNSAlerter {
	return &SNSAlerter{client: client, topicARN: topicARN}
}

func (a *SNSAlerter) Alert(ctx context.Context, job *models.DeliveryJob) error {
	msg, err := json.Marshal(map[string]interface{}{
		"jobId":     job.ID,
		"status":    job.Status,
		"error":     job.Error,
		"language":  job.Language,
		"updatedAt": job.UpdatedAt,
	})
	if err != nil {
		return err
	}
	_, err = a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String("Report delivery failed"),
		Message:  aws.String(string(msg)),
	})
	if err != nil {
		return fmt.Errorf("publish alert for job %s: %w", job.ID, err)
	}
	return nil
}
