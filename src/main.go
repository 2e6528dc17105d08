package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"dndmaster-go/src/configs"
	"dndmaster-go/src/configs/database"
	"dndmaster-go/src/core/chat"
	"dndmaster-go/src/core/providers"
	"dndmaster-go/src/core/providers/llm"
	"dndmaster-go/src/core/providers/stt"
	"dndmaster-go/src/core/providers/tts"
	"dndmaster-go/src/core/utils"
	"dndmaster-go/src/game"
	"dndmaster-go/src/store"
	"dndmaster-go/src/web"

	// Register provider factories.
	_ "dndmaster-go/src/core/providers/llm/ollama"
	_ "dndmaster-go/src/core/providers/llm/openai"
	_ "dndmaster-go/src/core/providers/stt/kyutai"
	_ "dndmaster-go/src/core/providers/stt/whisper"
	_ "dndmaster-go/src/core/providers/tts/edge"
	_ "dndmaster-go/src/core/providers/tts/sherpa"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func LoadConfigAndLogger() (*configs.Config, *utils.Logger, error) {
	config, configPath, err := configs.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := utils.NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("logger ready, config loaded from %s", configPath)

	return config, logger, nil
}

// buildLLM resolves the selected generation provider. The top-level
// server URL fills in when the provider entry has none of its own.
func buildLLM(config *configs.Config) (providers.LLMProvider, string, *llm.Config, error) {
	name, ok := config.SelectedModule["LLM"]
	if !ok {
		return nil, "", nil, fmt.Errorf("selected_module.LLM is not set")
	}
	entry, ok := config.LLM[name]
	if !ok {
		return nil, "", nil, fmt.Errorf("LLM entry %q not found in config", name)
	}
	llmConfig := &llm.Config{
		Type:        entry.Type,
		ModelName:   entry.ModelName,
		BaseURL:     entry.BaseURL,
		APIKey:      entry.APIKey,
		Temperature: entry.Temperature,
		MaxTokens:   entry.MaxTokens,
	}
	if llmConfig.BaseURL == "" {
		llmConfig.BaseURL = config.Server.BaseURL
	}
	provider, err := llm.Create(entry.Type, llmConfig)
	if err != nil {
		return nil, "", nil, err
	}
	return provider, entry.Type, llmConfig, nil
}

// buildTTS resolves the selected speech provider. Returns the provider
// and the player command; both may be empty for a silent table.
func buildTTS(config *configs.Config, logger *utils.Logger) (providers.TTSProvider, string) {
	name, ok := config.SelectedModule["TTS"]
	if !ok || name == "" {
		return nil, ""
	}
	entry, ok := config.TTS[name]
	if !ok {
		logger.Warn("TTS entry %q not found in config, narration will be text only", name)
		return nil, ""
	}
	provider, err := tts.Create(entry.Type, &tts.Config{
		Type:      entry.Type,
		Voice:     entry.Voice,
		Format:    entry.Format,
		OutputDir: entry.OutputDir,
		Cluster:   entry.Cluster,
	}, config.DeleteAudio)
	if err != nil {
		logger.Warn("TTS provider %q unavailable, narration will be text only: %v", name, err)
		return nil, ""
	}
	return provider, entry.Player
}

// buildSTT resolves the selected speech recognition provider. Returns the
// provider and the record command; both may be empty for typed-only play.
func buildSTT(config *configs.Config, logger *utils.Logger) (providers.STTProvider, string) {
	name, ok := config.SelectedModule["STT"]
	if !ok || name == "" {
		return nil, ""
	}
	entry, ok := config.STT[name]
	if !ok {
		logger.Warn("STT entry %q not found in config, input will be typed only", name)
		return nil, ""
	}
	provider, err := stt.Create(entry.Type, &stt.Config{
		Type:      entry.Type,
		BaseURL:   entry.BaseURL,
		APIKey:    entry.APIKey,
		ModelName: entry.ModelName,
	})
	if err != nil {
		logger.Warn("STT provider %q unavailable, input will be typed only: %v", name, err)
		return nil, ""
	}
	return provider, entry.RecordCmd
}

func StartHttpServer(config *configs.Config, logger *utils.Logger, board *game.StatusBoard, transcripts *store.TranscriptStore, g *errgroup.Group, groupCtx context.Context) (*web.StatusService, error) {
	if config.Log.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetTrustedProxies([]string{"0.0.0.0"})

	apiGroup := router.Group("/api")
	statusService := web.NewStatusService(config, logger, board, transcripts)
	if err := statusService.Start(groupCtx, router, apiGroup); err != nil {
		logger.Error("status service failed to start: %v", err)
		return nil, err
	}

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(config.Web.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.Info("status API listening on http://0.0.0.0:%d/api", config.Web.Port)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP shutdown failed: %v", err)
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed: %v", err)
			return err
		}
		return nil
	})

	return statusService, nil
}

// GracefulShutdown waits for a signal or for the game to finish, then
// drains the group with a timeout.
func GracefulShutdown(cancel context.CancelFunc, logger *utils.Logger, g *errgroup.Group, groupCtx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received signal %v, shutting down", sig)
	case <-groupCtx.Done():
	}
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown finished with error: %v", err)
			os.Exit(1)
		}
		logger.Info("all services stopped")
	case <-time.After(15 * time.Second):
		logger.Error("shutdown timed out, forcing exit")
		os.Exit(1)
	}
}

func main() {
	config, logger, err := LoadConfigAndLogger()
	if err != nil {
		fmt.Println("failed to load config or logger:", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file, using process environment")
	}

	db, dbType, err := database.InitDB()
	if err != nil {
		logger.Error("database connection failed: %v", err)
		os.Exit(1)
	}
	var transcripts *store.TranscriptStore
	if db != nil {
		transcripts, err = store.NewTranscriptStore(db)
		if err != nil {
			logger.Error("transcript store init failed: %v", err)
			os.Exit(1)
		}
		logger.Info("transcripts persisted to %s", dbType)
	}

	llmProvider, llmType, llmConfig, err := buildLLM(config)
	if err != nil {
		fmt.Println("narrator setup failed:", err)
		logger.Error("narrator setup failed: %v", err)
		os.Exit(1)
	}
	ttsProvider, playerCmd := buildTTS(config, logger)
	sttProvider, recordCmd := buildSTT(config, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, groupCtx := errgroup.WithContext(ctx)

	display := game.NewDisplay()
	dialogue := chat.NewDialogueManager(logger)
	input := game.NewInputGateway(os.Stdin, display, sttProvider, recordCmd, logger)
	sessionID := uuid.New().String()

	narrator := game.NewNarrator(llmProvider, ttsProvider, dialogue, display, logger, game.NarratorOptions{
		SessionID:       sessionID,
		SystemPrompt:    config.DMPrompt,
		ConnectTimeout:  config.ConnectTimeout(),
		GenerateTimeout: config.GenerateTimeout(),
		Player:          playerCmd,
		DeleteAudio:     config.DeleteAudio,
	})
	g.Go(func() error { return narrator.RunSpeaker(groupCtx) })

	for {
		model, err := game.VerifyModel(groupCtx, narrator, input, display, llmConfig.ModelName)
		if err == nil {
			llmConfig.ModelName = model
			break
		}
		display.Error("Cannot reach the narrator service at %s: %v", llmConfig.BaseURL, err)
		logger.Error("model verification failed: %v", err)

		answer, readErr := input.ReadTyped("Retry connection? (y/n): ")
		if readErr != nil || strings.ToLower(answer) != "y" {
			cancel()
			os.Exit(1)
		}
	}

	party, err := game.SetupParty(input, display)
	if err != nil {
		logger.Error("party setup aborted: %v", err)
		cancel()
		os.Exit(1)
	}

	board := game.NewStatusBoard()
	if config.Web.Enabled {
		statusService, err := StartHttpServer(config, logger, board, transcripts, g, groupCtx)
		if err != nil {
			logger.Error("HTTP server failed to start: %v", err)
			cancel()
			os.Exit(1)
		}
		if token, err := statusService.IssueToken(sessionID); err != nil {
			logger.Warn("viewer token minting failed: %v", err)
		} else if token != "" {
			display.System("Status API viewer token: %s", token)
		}
	}

	session := game.NewSession(sessionID, game.SessionDeps{
		Config:    config,
		Logger:    logger,
		Display:   display,
		Party:     party,
		Dialogue:  dialogue,
		Narrator:  narrator,
		Input:     input,
		Board:     board,
		Store:     transcripts,
		LLMType:   llmType,
		LLMConfig: llmConfig,
	})
	g.Go(func() error {
		defer cancel()
		return session.Run(groupCtx)
	})

	GracefulShutdown(cancel, logger, g, groupCtx)
	logger.Info("goodbye")
}
