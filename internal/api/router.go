package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Yashasrn33/RPGAI/internal/api/recovery"
	"github.com/Yashasrn33/RPGAI/internal/dialogue"
	"github.com/Yashasrn33/RPGAI/internal/health"
	"github.com/Yashasrn33/RPGAI/internal/store"
	"github.com/Yashasrn33/RPGAI/internal/voice"
)

// Deps bundles everything the router serves. Synth and STT may be nil when
// no Google API key is configured; the voice routes then answer 503.
type Deps struct {
	Store   store.MemoryStore
	Orch    *dialogue.Orchestrator
	Synth   voice.Synthesizer
	STT     voice.Transcriber
	Media   *voice.MediaStore
	Service *health.ServiceHealthChecker
	Model   string
	Log     zerolog.Logger
}

// NewRouter assembles the HTTP and WebSocket routes.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	r.Use(recovery.Middleware)

	healthHandler := NewHealthHandler(d.Store, d.Service, d.Model, d.Log)
	memoryHandler := NewMemoryHandler(d.Store, d.Log)
	voiceHandler := NewVoiceHandler(d.Synth, d.STT, d.Media, d.Log)
	sessionHandler := NewSessionHandler(d.Orch, d.Log)

	// Dialogue stream
	r.Handle("/v1/chat.stream", sessionHandler.Handler())

	// Memory endpoints
	r.HandleFunc("/v1/memory/write", memoryHandler.WriteMemory).Methods("POST")
	r.HandleFunc("/v1/memory/top", memoryHandler.TopMemories).Methods("GET")
	r.HandleFunc("/v1/memory/all/{characterId}", memoryHandler.DumpMemories).Methods("GET")

	// Voice endpoints
	r.HandleFunc("/v1/voice/tts", voiceHandler.Synthesize).Methods("POST")
	r.HandleFunc("/v1/voice/speak", voiceHandler.Speak).Methods("POST")
	r.HandleFunc("/v1/voice/stt", voiceHandler.Transcribe).Methods("POST")

	// Generated audio files
	if d.Media != nil {
		r.PathPrefix("/media/").Handler(
			http.StripPrefix("/media/", http.FileServer(http.Dir(d.Media.Dir()))))
	}

	// Utility endpoints
	r.HandleFunc("/healthz", healthHandler.Healthz).Methods("GET")
	r.HandleFunc("/", healthHandler.Root).Methods("GET")

	return r
}
