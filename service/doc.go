// Package service runs one profiler invocation against the message broker.
//
// Runner owns everything with a lifetime: the health server, the broker
// connection, the producer and the readers, all held in Resources. Whatever
// happens, Run releases them on return in a fixed order: health status off,
// feed readers, cache reader, producer (flushed first), connection, health
// server.
//
// The broker connection is not kept open across the profile computation.
// The Runner implements profiler.ComputeHooks and moves through the phases
//
//	NotConnected -> Connected -> DisconnectedForCompute -> Reconnected -> Released
//
// closing the transport in BeginCompute and reconnecting only the producer in
// EndCompute. A cycle that needs no computation publishes nothing and goes
// straight from Connected to Released.
//
// Connector abstracts the transport; NATSConnector opens JetStream readers
// and producers through natsclient.
package service
