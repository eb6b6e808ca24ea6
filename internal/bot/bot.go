package bot

import (
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"syscall"
	"time"

	"discord-invite-tracker/internal/commands"
	"discord-invite-tracker/internal/invites"
	"discord-invite-tracker/internal/membercache"
	"discord-invite-tracker/internal/store"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Bot struct {
	Session         *discordgo.Session
	Engine          *invites.Engine
	Members         *membercache.Cache
	StartTime       time.Time
	Logger          *zap.Logger
	LeaderboardSize int
}

func New(token string, st *store.Store, logger *zap.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("session error: %w", err)
	}

	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildInvites

	// State tracking off: the engine owns its own state and member lookups
	// go through the member cache.
	s.StateEnabled = false
	s.ShouldReconnectOnError = true
	s.ShouldRetryOnRateLimit = true
	s.MaxRestRetries = 3

	members, err := membercache.New(membercache.Config{})
	if err != nil {
		return nil, fmt.Errorf("member cache error: %w", err)
	}

	platform := &discordPlatform{session: s, members: members}
	engine := invites.New(st, platform, logger)

	b := &Bot{
		Session:         s,
		Engine:          engine,
		Members:         members,
		StartTime:       time.Now(),
		Logger:          logger,
		LeaderboardSize: 10,
	}

	s.AddHandler(b.Ready)
	s.AddHandler(b.GuildCreate)
	s.AddHandler(b.InteractionCreate)
	s.AddHandler(b.InviteCreate)
	s.AddHandler(b.InviteDelete)
	s.AddHandler(b.GuildMemberAdd)
	s.AddHandler(b.GuildMemberUpdate)

	return b, nil
}

func (b *Bot) Start() error {
	log.Println("⚡ Connecting to Discord Gateway...")
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("gateway connection failed: %w", err)
	}
	log.Println("✓ Connected to Discord Gateway")

	// Ensure we have the bot user (since state is disabled)
	if b.Session.State.User == nil {
		u, err := b.Session.User("@me")
		if err != nil {
			return fmt.Errorf("failed to get bot user: %w", err)
		}
		b.Session.State.User = u
	}
	log.Printf("✓ Logged in as: %s (ID: %s)",
		b.Session.State.User.Username, b.Session.State.User.ID)

	_, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", commands.Commands)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	log.Printf("✓ Registered %d commands", len(commands.Commands))

	// Debug listener: pprof plus prometheus metrics.
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Println("Starting debug server on localhost:6060")
		log.Println(http.ListenAndServe("localhost:6060", nil))
	}()

	log.Println("\n🚀 Invite tracker is running!")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	return b.Close()
}

func (b *Bot) Close() error {
	log.Println("Shutting down...")
	b.Engine.Close()
	b.Members.Close()
	if b.Logger != nil {
		b.Logger.Sync()
	}
	return b.Session.Close()
}
