package sorder

import (
	"github.com/israelwong/zen-sub001/pkg/eventstream"
	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/model/morder"
	"github.com/israelwong/zen-sub001/pkg/movable"
)

// Topic groups change events by studio and collection so subscribers can
// filter without decoding payloads.
type Topic struct {
	Collection morder.Collection
	StudioID   idwrap.IDWrap
}

type EventType string

const (
	EventNormalize  EventType = "normalize"
	EventMove       EventType = "move"
	EventAppend     EventType = "append"
	EventDeactivate EventType = "deactivate"
)

// ChangeEvent is published after a rank mutation commits.
type ChangeEvent struct {
	Type    EventType
	Scope   morder.Scope
	Version int64
	Ranks   []movable.RankUpdate
	Item    *morder.Item
}

type Streamer = eventstream.SyncStreamer[Topic, ChangeEvent]

func topicOf(scope morder.Scope) Topic {
	return Topic{Collection: scope.Collection, StudioID: scope.StudioID}
}
