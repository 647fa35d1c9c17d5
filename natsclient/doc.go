// Package natsclient connects the profiler to NATS JetStream.
//
// The profiler needs three things from its transport: a connection that can be
// released and re-acquired around a long computation, a way to read the
// newest message of a subject, and a way to publish one message with an event
// timestamp. The package provides exactly those.
//
// # Client
//
// Client owns one NATS connection. Connect retries with exponential backoff
// (pkg/retry) and gives up immediately on authorization errors. Close drains
// the connection within the drain timeout and clears credentials, so a
// closed Client is not reused; create a new one to reconnect.
//
//	client, err := natsclient.NewClient([]string{"nats://localhost:4222"},
//	    natsclient.WithName("apcprofiler"),
//	    natsclient.WithLogger(natsclient.NewSlogLogger(logger)),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
// # LatestReader
//
// LatestReader is backed by a pull consumer with the DeliverLastPerSubject
// policy on one literal subject. Draining it with HasMessageAvailable and
// ReadNext yields the newest message on the subject:
//
//	for {
//	    more, err := reader.HasMessageAvailable(ctx)
//	    if err != nil || !more {
//	        break
//	    }
//	    latest, err = reader.ReadNext(ctx)
//	}
//
// # Producer
//
// Producer publishes to a subject captured by a stream and waits for the
// stream acknowledgement. The event timestamp travels in the
// Apc-Event-Timestamp header as Unix milliseconds.
//
// # Testing
//
// NewTestClient starts a JetStream-enabled NATS server with testcontainers.
// Tests using it carry the integration build tag:
//
//	go test -tags integration ./natsclient/...
package natsclient
