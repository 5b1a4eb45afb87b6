package main

import (
	"encoding/json"

	"codeberg.org/mutker/dashmon/internal/ipc"
	"codeberg.org/mutker/dashmon/internal/logger"
	"codeberg.org/mutker/dashmon/internal/telemetry"
)

// handleMessage runs on the IPC receive goroutine. Only interactive message
// types raise the sampling priority, so a polling peer cannot keep the
// daemon out of low power.
func (a *app) handleMessage(p ipc.Packet) {
	msg, err := ipc.Decode(p.Payload)
	if err != nil {
		logger.Debug().Err(err).Str("from", p.From.String()).Msg("Ignoring malformed message")
		return
	}

	if msg.Interactive() {
		a.sampler.NotifyUserActivity()
	}

	switch msg.Type {
	case ipc.TypeModule:
		if msg.Module == nil || !telemetry.Module(*msg.Module).Valid() {
			logger.Debug().Interface("module", msg.Module).Msg("Ignoring invalid module switch")
			return
		}
		a.sampler.SetActiveModule(telemetry.Module(*msg.Module))
		logger.Debug().Str("module", telemetry.Module(*msg.Module).String()).Msg("Active module changed")

	case ipc.TypeAnimation:
		active := msg.Active == nil || *msg.Active
		a.sampler.SetAnimating(active)

	case ipc.TypePing:
		a.sendPong()

	case ipc.TypeActivity:
		// Nothing beyond the activity signal.

	default:
		logger.Debug().Str("type", msg.Type).Int("bytes", len(p.Payload)).Msg("Assistant message")
	}
}

func (a *app) sendPong() {
	data, err := json.Marshal(a.sampler.Snapshot())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to encode snapshot")
		return
	}

	if err := a.endpoint.SendJSON(ipc.Message{Type: ipc.TypePong, Data: data}); err != nil {
		logger.Warn().Err(err).Msg("Failed to answer ping")
	}
}
