package eventbus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"dms-comments/internal/domain"
	"dms-comments/internal/logging"
)

// eventBridgeAPI is the minimal EventBridge interface required by Client.
// *eventbridge.Client from aws-sdk-go-v2 satisfies this interface.
type eventBridgeAPI interface {
	PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

var _ eventBridgeAPI = (*eventbridge.Client)(nil)

// EntryError reports an event that EventBridge accepted the call for but
// refused to ingest.
type EntryError struct {
	Code    string
	Message string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("eventbus: entry rejected: %s: %s", e.Code, e.Message)
}

// Client publishes domain events to EventBridge.
type Client struct {
	api eventBridgeAPI
}

func New(api eventBridgeAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("eventbus: api must not be nil")
	}
	return &Client{api: api}, nil
}

// Publish sends one event. A response with a failed entry is returned as an
// *EntryError.
func (c *Client) Publish(ctx context.Context, event domain.Event) error {
	if err := validate(event); err != nil {
		return err
	}

	out, err := c.api.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			Detail:       aws.String(string(event.Detail)),
			DetailType:   aws.String(event.DetailType),
			EventBusName: aws.String(event.BusName),
			Source:       aws.String(event.Source),
			Resources:    []string{},
		}},
	})
	if err != nil {
		return fmt.Errorf("eventbus: put events: %w", err)
	}
	if out == nil || out.FailedEntryCount == 0 {
		return nil
	}
	for _, entry := range out.Entries {
		if entry.ErrorCode != nil {
			return &EntryError{Code: aws.ToString(entry.ErrorCode), Message: aws.ToString(entry.ErrorMessage)}
		}
	}
	return &EntryError{Code: "Unknown", Message: fmt.Sprintf("%d entries failed", out.FailedEntryCount)}
}

// LogPublisher writes events to the request logger instead of a bus. It backs
// the local development server.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	if err := validate(event); err != nil {
		return err
	}
	logging.FromContext(ctx).InfoContext(ctx, "event published",
		"bus", event.BusName,
		"source", event.Source,
		"detail_type", event.DetailType,
		"detail", string(event.Detail),
	)
	return nil
}

func validate(event domain.Event) error {
	switch {
	case strings.TrimSpace(event.DetailType) == "":
		return errors.New("eventbus: detail type is required")
	case strings.TrimSpace(event.Source) == "":
		return errors.New("eventbus: source is required")
	case strings.TrimSpace(event.BusName) == "":
		return errors.New("eventbus: bus name is required")
	case len(event.Detail) == 0:
		return errors.New("eventbus: detail is required")
	}
	return nil
}
