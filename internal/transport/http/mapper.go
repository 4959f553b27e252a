package http

import (
	"github.com/vovakirdan/pollchat/internal/core"
	"github.com/vovakirdan/pollchat/internal/proto"
)

func messageToProto(msg *core.Message) proto.Message {
	return proto.Message{
		ID:          msg.ID,
		From:        msg.From,
		Body:        msg.Body,
		HTML:        msg.HTML,
		Avatar:      msg.Avatar,
		AvatarSmall: msg.AvatarSmall,
		Time:        msg.Time,
	}
}

func messagesToProto(messages []core.Message) []proto.Message {
	out := make([]proto.Message, 0, len(messages))
	for i := range messages {
		out = append(out, messageToProto(&messages[i]))
	}
	return out
}

func updatesFromResult(result core.PollResult) proto.UpdatesResponse {
	if result.Status == core.StatusTryAgain {
		return proto.UpdatesResponse{Status: proto.StatusTryAgain}
	}
	return proto.UpdatesResponse{
		Status:   proto.StatusOK,
		Messages: messagesToProto(result.Messages),
	}
}
