// Package sqs publishes catalog identifiers to an Amazon SQS queue.
package sqs

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/queue"
)

// Config identifies the target queue. URL wins over Name when both are set.
type Config struct {
	Name     string
	URL      string
	Region   string
	Endpoint string
}

// API is the subset of *sqs.Client used by Publisher.
type API interface {
	GetQueueUrl(ctx context.Context, in *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher sends one SQS message per identifier.
type Publisher struct {
	client   API
	queueURL string
}

// NewClient builds an SQS client from the default AWS credential chain.
func NewClient(ctx context.Context, cfg Config) (*sqs.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// New resolves the queue URL once and returns a Publisher bound to it.
func New(ctx context.Context, client API, cfg Config) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("sqs client is required")
	}
	queueURL, err := ResolveQueueURL(ctx, client, cfg)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, queueURL: queueURL}, nil
}

// ResolveQueueURL returns cfg.URL or looks the queue up by name.
func ResolveQueueURL(ctx context.Context, client API, cfg Config) (string, error) {
	if cfg.URL != "" {
		return cfg.URL, nil
	}
	if strings.TrimSpace(cfg.Name) == "" {
		return "", fmt.Errorf("sqs queue name or url is required")
	}
	out, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(cfg.Name)})
	if err != nil {
		return "", fmt.Errorf("get sqs queue url for %q: %w", cfg.Name, err)
	}
	if out == nil || aws.ToString(out.QueueUrl) == "" {
		return "", fmt.Errorf("get sqs queue url for %q: empty url", cfg.Name)
	}
	return aws.ToString(out.QueueUrl), nil
}

// QueueURL returns the resolved queue URL.
func (p *Publisher) QueueURL() string {
	return p.queueURL
}

// Publish sends id as the message body.
func (p *Publisher) Publish(ctx context.Context, id string) error {
	_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(id),
	})
	if err != nil {
		return queue.PublishError(p.queueURL, id, err)
	}
	return nil
}

// Close is a no-op; the SQS client holds no connections that need releasing.
func (p *Publisher) Close() error {
	return nil
}
