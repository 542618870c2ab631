package watermill_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csadilek/epn/pkg/epn"
	"github.com/csadilek/epn/pkg/epn/codec"
	"github.com/csadilek/epn/pkg/epn/ext/watermill"
	"github.com/csadilek/epn/pkg/epn/retry"
	"github.com/csadilek/epn/pkg/epn/stream"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	logger := watermill.NewLogger(quiet)
	ps := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, logger)
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func TestRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ps := newPubSub(t)

	producer := epn.Named("producer")
	out := watermill.NewSink[int](ps, "numbers", watermill.WithNode("producer", "publish"))
	epn.Map(epn.FromSource(producer, stream.NewRangeSource(0, 5)), func(i int) int { return i * 10 }).
		ConsumedBy(out, epn.As("publish"))
	require.NoError(t, producer.Start(ctx))
	assert.Equal(t, 5, out.Published())
	assert.True(t, out.Completed())

	consumer := epn.Named("consumer")
	sink := stream.NewCollectSink[int]()
	src := watermill.NewSource[int](ps, "numbers", watermill.WithLimit(5))
	assert.Equal(t, "numbers", src.Topic())
	epn.FromSource(consumer, src).
		Filter(func(i int) bool { return i != 20 }).
		ConsumedBy(sink)

	require.NoError(t, consumer.Start(ctx))
	assert.Equal(t, []int{0, 10, 30, 40}, sink.Values())
	assert.True(t, sink.Completed())
}

func TestSink_Metadata(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ps := newPubSub(t)

	n := epn.Named("meta")
	epn.FromSource(n, stream.NewSliceSource([]string{"hello"})).
		ConsumedBy(watermill.NewSink[string](ps, "greetings", watermill.WithNode("meta", "out")))
	require.NoError(t, n.Start(ctx))

	msgs, err := ps.Subscribe(ctx, "greetings")
	require.NoError(t, err)
	select {
	case msg := <-msgs:
		assert.Equal(t, `"hello"`, string(msg.Payload))
		assert.Equal(t, "meta", msg.Metadata.Get(watermill.MetadataNetwork))
		assert.Equal(t, "out", msg.Metadata.Get(watermill.MetadataNode))
		assert.Len(t, msg.UUID, 26)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}

func TestSource_DecodeFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ps := newPubSub(t)
	require.NoError(t, ps.Publish("numbers", message.NewMessage(watermill.NewID(), []byte("not json"))))

	n := epn.Named("decode")
	sink := stream.NewCollectSink[int]()
	epn.FromSource(n, watermill.NewSource[int](ps, "numbers", watermill.WithLimit(1))).ConsumedBy(sink)

	err := n.Start(ctx)
	assert.ErrorContains(t, err, "decode message")
	assert.ErrorIs(t, err, codec.ErrDecode)
	assert.Error(t, sink.Err())
	assert.Empty(t, sink.Values())
}

func TestTextCodec(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ps := newPubSub(t)

	producer := epn.Named("lines")
	out := watermill.NewSink[string](ps, "lines").WithCodec(codec.Text())
	epn.FromSource(producer, stream.NewSliceSource([]string{"a b", "not json"})).ConsumedBy(out)
	require.NoError(t, producer.Start(ctx))

	consumer := epn.Named("reader")
	sink := stream.NewCollectSink[string]()
	epn.FromSource(consumer, watermill.NewSource[string](ps, "lines", watermill.WithLimit(2)).WithCodec(codec.Text())).
		ConsumedBy(sink)
	require.NoError(t, consumer.Start(ctx))
	assert.Equal(t, []string{"a b", "not json"}, sink.Values())
}

func TestSource_ContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ps := newPubSub(t)

	n := epn.Named("idle")
	epn.FromSource(n, watermill.NewSource[int](ps, "empty")).ConsumedBy(stream.NewCollectSink[int]())

	assert.ErrorIs(t, n.Start(ctx), context.DeadlineExceeded)
}

func TestSource_CompletesWhenSubscriptionCloses(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ps := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NewLogger(nil))
	for _, payload := range []string{"1", "2"} {
		require.NoError(t, ps.Publish("numbers", message.NewMessage(watermill.NewID(), []byte(payload))))
	}

	n := epn.Named("closing")
	sink := stream.NewCollectSink[int]()
	epn.FromSource(n, watermill.NewSource[int](ps, "numbers")).ConsumedBy(sink)

	done := make(chan error, 1)
	go func() { done <- n.Start(ctx) }()

	require.Eventually(t, func() bool { return sink.Len() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, ps.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("source did not stop")
	}
	assert.Equal(t, []int{1, 2}, sink.Values())
	assert.True(t, sink.Completed())
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("broker down") }
func (failingPublisher) Close() error { return nil }

func TestSink_PublishFailure(t *testing.T) {
	n := epn.Named("down")
	out := watermill.NewSink[int](failingPublisher{}, "numbers")
	epn.FromSource(n, stream.NewRangeSource(0, 3)).ConsumedBy(out)

	err := n.Start(context.Background())
	assert.ErrorContains(t, err, "publish to numbers: broker down")
	assert.Zero(t, out.Published())
	assert.Error(t, out.Err())
}

// flakyPublisher fails its first publishes, then delegates.
type flakyPublisher struct {
	message.Publisher
	failures int
	calls    int
}

func (p *flakyPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("broker busy")
	}
	return p.Publisher.Publish(topic, msgs...)
}

func TestSink_Retry(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ps := newPubSub(t)
	cfg := retry.New(retry.WithBackoff(time.Millisecond, time.Millisecond), retry.WithJitter(0))

	t.Run("recovers", func(t *testing.T) {
		pub := &flakyPublisher{Publisher: ps, failures: 2}
		n := epn.Named("retry")
		out := watermill.NewSink[int](pub, "retried", watermill.WithRetry(cfg), watermill.WithLogger(quiet))
		epn.FromSource(n, stream.NewRangeSource(0, 2)).ConsumedBy(out)

		require.NoError(t, n.Start(ctx))
		assert.Equal(t, 2, out.Published())
		assert.Equal(t, 4, pub.calls)
	})

	t.Run("exhausted", func(t *testing.T) {
		pub := &flakyPublisher{Publisher: ps, failures: 10}
		n := epn.Named("retry")
		out := watermill.NewSink[int](pub, "retried", watermill.WithRetry(cfg), watermill.WithLogger(quiet))
		epn.FromSource(n, stream.NewRangeSource(0, 2)).ConsumedBy(out)

		err := n.Start(ctx)
		assert.ErrorContains(t, err, "publish to retried: after 3 attempts: broker busy")
		var rerr *retry.Error
		assert.ErrorAs(t, err, &rerr)
		assert.Equal(t, 3, pub.calls)
	})
}

func TestNewID_Sortable(t *testing.T) {
	a, b := watermill.NewID(), watermill.NewID()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}

func TestConstructors_Panic(t *testing.T) {
	assert.PanicsWithValue(t, "watermill: nil subscriber", func() {
		watermill.NewSource[int](nil, "t")
	})
	assert.PanicsWithValue(t, "watermill: nil publisher", func() {
		watermill.NewSink[int](nil, "t")
	})
}
