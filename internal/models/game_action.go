package models

// Inbound payloads, one per protocol event. Fields carry only what the event needs.

// JoinRoomData is the payload of join-room.
type JoinRoomData struct {
	RoomCode string `json:"room_code"`
	Player   string `json:"player"`
}

// ColorOfWildData is the payload of color-of-wild.
type ColorOfWildData struct {
	ColorOfWild Color `json:"color_of_wild"`
}

// PlayCardData is the payload of play-card.
type PlayCardData struct {
	CardPlay    *Card `json:"card_play"`
	YellUno     bool  `json:"yell_uno"`
	ColorOfWild Color `json:"color_of_wild,omitempty"`
}

// PlayDrawCardData is the payload of play-draw-card.
type PlayDrawCardData struct {
	IsPlayCard  bool  `json:"is_play_card"`
	YellUno     bool  `json:"yell_uno"`
	ColorOfWild Color `json:"color_of_wild,omitempty"`
}

// ChallengeData is the payload of challenge.
type ChallengeData struct {
	IsChallenge bool `json:"is_challenge"`
}

// PointedNotSayUnoData is the payload of pointed-not-say-uno.
type PointedNotSayUnoData struct {
	Target string `json:"target"`
}

// SpecialLogicData is the payload of special-logic.
type SpecialLogicData struct {
	Title string `json:"title"`
}
