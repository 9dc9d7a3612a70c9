package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Command actions accepted on the live command surface.
const (
	ActionStartLiveChat = "start-live-chat"
	ActionStartRegular  = "start-regular-polling"
	ActionStopLiveChat  = "stop-live-chat"
	ActionStopRegular   = "stop-regular-polling"
)

type commandKind int

const (
	cmdUnknown commandKind = iota
	cmdManualComment
	cmdStartLiveChat
	cmdStartRegular
	cmdStopLiveChat
	cmdStopRegular
)

type inboundMessage struct {
	Action  string `json:"action"`
	VideoID string `json:"videoId"`
	Text    string `json:"text"`
	Author  string `json:"author"`
}

// classifyMessage parses an inbound client message into one of the defined
// command kinds before any handler runs. Ambiguous or malformed shapes fail
// closed as cmdUnknown.
func classifyMessage(raw json.RawMessage) (inboundMessage, commandKind) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, cmdUnknown
	}
	switch {
	case msg.Action == ActionStartLiveChat && msg.VideoID != "":
		return msg, cmdStartLiveChat
	case msg.Action == ActionStartRegular && msg.VideoID != "":
		return msg, cmdStartRegular
	case msg.Action == ActionStopLiveChat && msg.VideoID != "":
		return msg, cmdStopLiveChat
	case msg.Action == ActionStopRegular && msg.VideoID != "":
		return msg, cmdStopRegular
	case msg.Action == "" && msg.VideoID != "" && msg.Text != "":
		return msg, cmdManualComment
	default:
		return msg, cmdUnknown
	}
}

// ErrorReply is the structured error returned for malformed or contradictory
// commands. It is reported to the issuing client only.
type ErrorReply struct {
	Error string `json:"error"`
}

// AckReply confirms a stop command.
type AckReply struct {
	Status string `json:"status"`
}

// Commander is the command surface of the broadcast manager: it validates
// inbound client messages and routes them to the classifier, the registry, and
// the orchestrator.
type Commander struct {
	Pipeline *Pipeline
}

// Handle processes one inbound JSON message and returns the reply to send to
// the issuing client, or nil when the command succeeded with no synchronous
// reply (session starts run in the background; their output arrives as
// broadcast events). Errors inside a started session are never surfaced here.
func (c *Commander) Handle(ctx context.Context, raw json.RawMessage) any {
	msg, kind := classifyMessage(raw)
	switch kind {
	case cmdManualComment:
		return c.handleManualComment(ctx, msg)

	case cmdStartLiveChat:
		if status := c.Pipeline.Classify(ctx, msg.VideoID); status != Live {
			return ErrorReply{Error: "The video has no live chat."}
		}
		switch err := c.Pipeline.StartLiveChat(ctx, msg.VideoID); err {
		case nil:
			return nil
		case ErrNoLiveChat:
			return ErrorReply{Error: "The video has no live chat."}
		case ErrSessionRunning:
			return ErrorReply{Error: "A live chat session is already running for this video."}
		default:
			slog.Warn("start live chat failed", slog.String("video_id", msg.VideoID), slog.Any("err", err), slog.String("component", "commander"))
			return ErrorReply{Error: "Could not start live chat session."}
		}

	case cmdStartRegular:
		// Regular polling is reserved for non-live videos; Unknown counts as
		// not live so an upstream outage cannot block the non-destructive path.
		if status := c.Pipeline.Classify(ctx, msg.VideoID); status == Live {
			return ErrorReply{Error: "The video is live, use start-live-chat."}
		}
		if err := c.Pipeline.StartRegularPolling(ctx, msg.VideoID); err != nil {
			return ErrorReply{Error: "A polling session is already running for this video."}
		}
		return nil

	case cmdStopLiveChat:
		if !c.Pipeline.Registry.Cancel(msg.VideoID, ModeLiveChat) {
			return ErrorReply{Error: "No live chat session is running for this video."}
		}
		return AckReply{Status: "stopping"}

	case cmdStopRegular:
		if !c.Pipeline.Registry.Cancel(msg.VideoID, ModeRegularPolling) {
			return ErrorReply{Error: "No polling session is running for this video."}
		}
		return AckReply{Status: "stopping"}

	default:
		return ErrorReply{Error: "unrecognized message"}
	}
}

// handleManualComment scores and persists a single client-submitted comment
// and replies with the result. Unlike poller output, the reply goes to the
// issuing client only; nothing is broadcast.
func (c *Commander) handleManualComment(ctx context.Context, msg inboundMessage) any {
	orch := c.Pipeline.Orchestrator
	confidence, err := orch.Analyzer.Analyze(ctx, msg.Text)
	if err != nil {
		slog.Warn("manual comment analysis failed", slog.Any("err", err), slog.String("component", "commander"))
		return ErrorReply{Error: "analysis failed"}
	}
	toxic := confidence > toxicThreshold
	video, err := orch.Store.GetOrCreateVideo(ctx, msg.VideoID, "", "")
	if err != nil {
		slog.Warn("manual comment video lookup failed", slog.Any("err", err), slog.String("component", "commander"))
		return ErrorReply{Error: "persistence failed"}
	}
	saved, err := orch.Store.SaveComment(ctx, video.ID, msg.Text, msg.Author, confidence, toxic)
	if err != nil {
		slog.Warn("manual comment persist failed", slog.Any("err", err), slog.String("component", "commander"))
		return ErrorReply{Error: "persistence failed"}
	}
	return ScoredComment{Text: saved.Text, Author: saved.Author, Toxic: saved.Toxic, Confidence: saved.Confidence}
}
