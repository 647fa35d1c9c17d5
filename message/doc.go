// Package message defines the data the profiler exchanges over the broker.
//
// Envelope is a received message stripped of any broker handle. A feed
// publisher's catalogue decodes into VehicleAPCMapping, a list of vehicles
// with their equipment and capacities. ProfileCollection is both the
// published snapshot and, read back from the same subject on the next
// invocation, the cache of already computed profiles.
//
// Decoding and schema validation of raw message bodies happen in package
// schema; the types here carry no validation of their own.
package message
