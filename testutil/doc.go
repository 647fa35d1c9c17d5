// Package testutil provides in-memory fakes and fixtures for profiler tests.
//
// MockReader and MockProducer stand in for the JetStream reader and
// producer; StubOracle writes placeholder profiles instead of running the
// real computation. The catalog fixtures describe two feeds, Kuopio and
// Jyväskylä, with vehicles covering every aggregation rule: no passenger
// counter, several passenger counters, and a missing capacity.
package testutil
