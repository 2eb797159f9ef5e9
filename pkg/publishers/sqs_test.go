package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSQSPublisherSendSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{
		id:       "queue",
		queueURL: "https://example.com/queue",
		client:   client,
		log:      discardLogger{},
	}

	if err := pub.Publish(context.Background(), NewVersionEvent("c1", "", "3.4.1")); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["event_type"]
	if !ok || aws.ToString(attr.StringValue) != EventVersionChanged {
		t.Fatalf("event_type attribute missing or wrong: %#v", attr)
	}
	if aws.ToString(attr.DataType) != "String" {
		t.Fatalf("DataType should be String, got %#v", attr.DataType)
	}
	if !strings.Contains(aws.ToString(client.input.MessageBody), `"latest_version":"3.4.1"`) {
		t.Fatalf("MessageBody missing latest_version: %s", aws.ToString(client.input.MessageBody))
	}
	if client.input.MessageGroupId != nil {
		t.Fatalf("standard queues must not carry a message group id")
	}
}

func TestSQSPublisherFIFOFields(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{
		id:             "queue",
		queueURL:       "https://example.com/queue.fifo",
		messageGroupID: "magireco",
		client:         client,
		log:            discardLogger{},
	}

	if err := pub.Publish(context.Background(), NewVersionEvent("c1", "3.4.0", "3.4.1")); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if aws.ToString(client.input.MessageGroupId) != "magireco" {
		t.Fatalf("unexpected group id %v", client.input.MessageGroupId)
	}
	if aws.ToString(client.input.MessageDeduplicationId) != "version_changed:3.4.1" {
		t.Fatalf("unexpected dedup id %v", client.input.MessageDeduplicationId)
	}
}

func TestSQSPublisherSendError(t *testing.T) {
	pub := &sqsPublisher{
		id:       "queue",
		queueURL: "https://example.com/queue",
		client:   &fakeSQSClient{err: errors.New("boom")},
		log:      discardLogger{},
	}

	if err := pub.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
