// Package console provides interfaces for talking to a hardware management console.
//
// This package defines the collaborator boundary of the forwarder:
//   - Connector: opens sessions and notification streams
//   - Session: enumerates complexes and partitions, opens OS message channels
//   - NotificationStream: receives notifications for subscribed topics
//
// The interfaces use Go idioms:
//   - context.Context for cancellation and timeouts
//   - A blocking Next(ctx) pull that honours cancellation
//   - Typed results (OpenResult) instead of errors for expected conflicts
//   - Explicit error returns following Go conventions
//
// Example usage:
//
//	session, err := connector.Logon(ctx)
//	if err != nil {
//		return err
//	}
//	defer session.Logoff(ctx)
//
//	result, err := session.OpenMessageChannel(ctx, partition)
//	if err != nil {
//		return err
//	}
//	if result.Status != console.Unsupported {
//		err = stream.Subscribe(result.Topic)
//	}
//
//	for {
//		n, err := stream.Next(ctx)
//		if errors.Is(err, console.ErrStreamClosed) {
//			return nil
//		}
//		...
//	}
package console
