package app

import (
	"github.com/IsmailofficialGithub/meeting-transcript/config"
	"github.com/IsmailofficialGithub/meeting-transcript/internal/session"
	"github.com/IsmailofficialGithub/meeting-transcript/internal/store"
	"github.com/IsmailofficialGithub/meeting-transcript/internal/transcribe"
)

type App struct {
	Recorder     *session.Controller
	Orchestrator *transcribe.Orchestrator
	History      *store.Store
}

func New(cfg *config.Config) (*App, error) {
	history, err := store.Open(cfg.HistoryDB)
	if err != nil {
		return nil, err
	}

	local := transcribe.NewLocalWorker(cfg.WhisperBin, cfg.WhisperModel)

	var remote transcribe.PoolWorker
	if len(cfg.RemoteAPIKeys) > 0 {
		remote = transcribe.NewRemotePool(cfg.RemoteEndpoint, cfg.RemoteModel, cfg.RemoteAPIKeys)
	}

	orchestrator := transcribe.NewOrchestrator(cfg.FFmpegBin, local, remote)
	orchestrator.ChunkSeconds = cfg.ChunkSeconds
	orchestrator.Concurrency = cfg.Concurrency

	return &App{
		Recorder:     session.NewController(cfg.FFmpegBin),
		Orchestrator: orchestrator,
		History:      history,
	}, nil
}

func (a *App) Close() error {
	return a.History.Close()
}
