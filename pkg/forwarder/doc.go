// Package forwarder provides the public interface of the OS message forwarder.
//
// This package defines the abstractions shared by the forwarder and its
// status surfaces:
//   - Forwarder: lifecycle and status of a running forwarder
//   - State: lifecycle states from Idle to Closed
//   - HealthStatus, Stats, PartitionStatus: read-only views for reporting
//
// The forwarder orchestrates:
//   - RoutingTable: which syslog servers receive which partition's messages
//   - Registry: the partitions forwarded in this run
//   - Console: session, message channels and the notification stream
//   - Syslog senders: one connection per configured syslog server
//
// Lifecycle:
//  1. Start logs on to the console (SessionOpen)
//  2. All partitions are enumerated and matched (Enumerated)
//  3. Message channels are opened and subscribed (Subscribed)
//  4. The dispatch loop relays messages until shutdown (Running)
//  5. Shutdown unsubscribes, stops the loop and logs off (ShuttingDown, Closed)
package forwarder
