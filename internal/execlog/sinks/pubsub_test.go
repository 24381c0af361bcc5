package sinks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/siteproof/linkaudit/internal/execlog"
)

func newFakePubSub(t *testing.T) (*pstest.Server, []option.ClientOption) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return srv, []option.ClientOption{option.WithGRPCConn(conn)}
}

func TestPubSubSinkPublishesEntries(t *testing.T) {
	t.Parallel()

	srv, opts := newFakePubSub(t)
	admin, err := pubsub.NewClient(context.Background(), "p", opts...)
	require.NoError(t, err)
	defer admin.Close() //nolint:errcheck
	_, err = admin.CreateTopic(context.Background(), "audit-log")
	require.NoError(t, err)

	sink, err := NewPubSubSink(context.Background(), "p", "audit-log", nil, opts...)
	require.NoError(t, err)
	defer sink.Close(context.Background()) //nolint:errcheck

	entries := []execlog.Entry{
		{TS: time.Now().UTC(), Level: execlog.LevelInfo, Action: execlog.ActionWebhook, Message: "stage primary notification received"},
		{TS: time.Now().UTC(), Level: execlog.LevelError, Action: execlog.ActionTrigger, Message: "run trigger failed"},
	}
	require.NoError(t, sink.Append(context.Background(), entries))

	msgs := srv.Messages()
	require.Len(t, msgs, 2)

	var got execlog.Entry
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, execlog.ActionWebhook, got.Action)
	require.Equal(t, "INFO", msgs[0].Attributes["level"])
	require.Equal(t, execlog.ActionTrigger, msgs[1].Attributes["action"])
}

func TestNewPubSubSinkRejectsMissingTopic(t *testing.T) {
	t.Parallel()

	_, opts := newFakePubSub(t)
	_, err := NewPubSubSink(context.Background(), "p", "absent-topic", nil, opts...)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}
