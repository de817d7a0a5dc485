package fanout

// EventName identifies a published game event.
type EventName string

const (
	EventInit               EventName = "init"
	EventPlayerJoined       EventName = "playerjoined"
	EventPlayerReady        EventName = "playerready"
	EventGameReady          EventName = "gameready"
	EventRoundStarted       EventName = "roundstarted"
	EventPlayerSelectedGif  EventName = "playerselectedgif"
	EventPlayerDeselected   EventName = "playerdeselectedgif"
	EventRoundStateChanged  EventName = "roundstatechanged"
	EventRoundImagePresent  EventName = "roundimagepresented"
	EventPlayerVoted        EventName = "playervoted"
	EventGameFinished       EventName = "gamefinished"
)

// SupportedEvents lists every event a client may receive on its stream,
// sent in the stream's opening init frame.
func SupportedEvents() []EventName {
	return []EventName{
		EventInit,
		EventPlayerJoined,
		EventPlayerReady,
		EventGameReady,
		EventRoundStarted,
		EventPlayerSelectedGif,
		EventPlayerDeselected,
		EventRoundStateChanged,
		EventRoundImagePresent,
		EventPlayerVoted,
		EventGameFinished,
	}
}
