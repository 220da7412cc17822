// Package transport defines the duplex channel a persistent client rides on
// and provides its gorilla/websocket implementation.
//
// A Dialer opens one physical connection per call. A successful Dial is the
// "opened" notification; after Listen the Conn delivers every inbound
// message to Handler.OnMessage and then exactly one Handler.OnClose.
package transport
