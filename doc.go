// Package persistentws keeps a logical WebSocket connection up over an
// unreliable link.
//
// A Client owns at most one physical connection at a time. After Start it
// dials the configured address; whenever the connection fails or closes it
// reports StatusDisconnected and dials again after the wait interval, until
// Stop is called. Transport failures are never returned to the caller; they
// surface only through the status stream.
//
//	c := persistentws.New("wss://stream.example.com/v1",
//		persistentws.WithWaitInterval(5*time.Second))
//	c.SubscribeStatus(func(s persistentws.Status) { log.Println("status:", s) })
//	c.SubscribeData(func(m persistentws.Message) { handle(m.Data) })
//	c.Start()
//	defer c.Close()
//
// Sends while no connection is open are dropped, never queued.
package persistentws
