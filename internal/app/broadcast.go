package app

import "github.com/voxroom/core/internal/pkg/realtime"

// hubForwarder breaks the construction cycle between the domain services and
// the gateway hub: services get the forwarder first, the hub is bound once it
// exists. Events fired before binding are dropped, which only happens during
// startup before any socket is accepted.
type hubForwarder struct {
	hub realtime.Broadcaster
}

func (f *hubForwarder) PublishRoom(event realtime.RoomEvent) {
	if f.hub != nil {
		f.hub.PublishRoom(event)
	}
}

func (f *hubForwarder) SendToUser(userID, event string, data interface{}) {
	if f.hub != nil {
		f.hub.SendToUser(userID, event, data)
	}
}
