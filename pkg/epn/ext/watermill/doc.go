// Package watermill connects networks to message brokers through
// github.com/ThreeDotsLabs/watermill.
//
// Source subscribes to a topic and emits the decoded payload of every
// message; Sink publishes every event it receives to a topic. Any watermill
// Publisher or Subscriber works, including the in-memory gochannel pub/sub:
//
//	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NewLogger(logger))
//
//	producer := epn.Named("producer")
//	epn.FromSource(producer, stream.NewRangeSource(0, 10)).
//	    ConsumedBy(watermill.NewSink[int](pubSub, "numbers"))
//
//	consumer := epn.Named("consumer")
//	epn.FromSource(consumer, watermill.NewSource[int](pubSub, "numbers", watermill.WithLimit(10))).
//	    ConsumedBy(sink)
//
// Payloads are JSON by default (package codec); WithCodec replaces it.
package watermill
