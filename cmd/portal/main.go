package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/zhouzirui/z-tavern/portal/internal/config"
	"github.com/zhouzirui/z-tavern/portal/internal/model/persona"
	"github.com/zhouzirui/z-tavern/portal/internal/service/capture"
	"github.com/zhouzirui/z-tavern/portal/internal/service/playback"
	"github.com/zhouzirui/z-tavern/portal/internal/service/portal"
	"github.com/zhouzirui/z-tavern/portal/internal/service/remote"
	"github.com/zhouzirui/z-tavern/portal/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// 终端界面占用 stdout，日志写入文件
	logFile, err := tea.LogToFile(cfg.UI.LogFile, "")
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()

	summoned, err := selectPersona(cfg.Persona)
	if err != nil {
		log.Fatalf("failed to load persona: %v", err)
	}
	log.Printf("summoning persona %s via %s", summoned.ID, cfg.Remote.BaseURL)

	var httpClient http.Client
	httpClient.Timeout = cfg.Remote.Timeout
	client := remote.NewClient(cfg.Remote, remote.WithHTTPClient(&httpClient))

	capturer := capture.NewCommandCapturer(cfg.Audio.RecordCommand)
	player := playback.NewCommandPlayer(cfg.Audio.PlayCommand)
	defer player.Wait()

	relay := ui.NewRelay()
	defer relay.Close()

	svc := portal.NewService(summoned, client, capturer, player, relay, portal.WithAutoSpeak(cfg.Audio.AutoSpeak))
	svc.OnChange(relay.Publish)

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}

	program := tea.NewProgram(ui.New(ctx, svc), opts...)
	relay.Attach(program)

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		log.Fatalf("portal error: %v", err)
	}
}

// selectPersona 合并内置角色与配置文件中的角色，按 ID 选出本次召唤的角色。
func selectPersona(cfg config.PersonaConfig) (persona.Persona, error) {
	items := persona.Seed()
	if cfg.File != "" {
		extra, err := persona.LoadFile(cfg.File)
		if err != nil {
			return persona.Persona{}, err
		}
		items = append(items, extra...)
	}

	store := persona.NewMemoryStore(items)
	if found, ok := store.FindByID(cfg.ID); ok {
		return found, nil
	}

	log.Printf("warning: persona %q not found, falling back to %s", cfg.ID, persona.DefaultID)
	found, _ := store.FindByID(persona.DefaultID)
	return found, nil
}
