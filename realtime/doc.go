// Package realtime delivers control events to a user's connected devices.
//
// Every user owns one channel, "user-<userId>". A [Gateway] accepts
// broadcasts without blocking and hands them to a [Publisher] on worker
// goroutines. Publishers are:
//
//   - [Hub], in-process fan-out to websocket clients served by [WSHandler]
//   - [RedisPublisher], pub/sub relay to every instance's [RedisRelay]
//   - [PusherPublisher], the hosted Pusher Channels API
//   - [MultiPublisher], several of the above at once
//
// Delivery is best effort. Nothing is retried or persisted.
package realtime
