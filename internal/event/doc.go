/*
Package event provides the pub/sub bus that reports gateway activity.

Every provider call made through the gateway emits a small lifecycle:

  - call.started: provider resolved, request about to be sent
  - call.delta: one streamed text fragment
  - call.completed: final text produced (possibly a partial result)
  - call.failed: the call returned an error

config.reloaded is published when the config watcher picks up a change.

# Delivery

Subscribe and SubscribeAll register typed callbacks; Publish calls them in
separate goroutines while PublishSync calls them in order before returning.
Each event is also mirrored as JSON onto a watermill GoChannel topic, which
Messages exposes for streaming consumers:

	msgs, err := bus.Messages(ctx)
	for msg := range msgs {
		fmt.Printf("%s %s\n", msg.Metadata.Get(event.MetadataType), msg.Payload)
		msg.Ack()
	}
*/
package event
