package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"burnchat-backend/internal/handlers"
	"burnchat-backend/internal/realtime"
	"burnchat-backend/internal/services"
	"burnchat-backend/internal/store"
	"burnchat-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// New builds the Fiber app on top of an already-connected store and bus.
// Split from Run so tests can drive the HTTP surface directly.
func New(st store.Store, bus realtime.Bus, roomTTL time.Duration) *fiber.App {
	roomService := services.NewRoomService(st, bus, roomTTL)
	messageService := services.NewMessageService(st, bus)

	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Public room routes
	app.Post("/room/create", handlers.CreateRoomHandler(roomService, roomTTL))
	app.Post("/room/join", handlers.JoinRoomHandler(roomService, roomTTL))

	// Protected routes: bearer cookie classified against the room
	auth := handlers.RequireRoomToken(roomService)
	app.Get("/room/sudo", auth, handlers.SudoHandler(roomService))
	app.Get("/room/ttl", auth, handlers.TTLHandler(roomService))
	app.Delete("/room", auth, handlers.DestroyRoomHandler(roomService))
	app.Post("/messages", auth, handlers.PostMessageHandler(messageService))
	app.Get("/messages", auth, handlers.ListMessagesHandler(messageService))
	app.Delete("/messages", auth, handlers.DeleteMessageHandler(messageService))

	// Event gateway (SSE, plus a WebSocket mirror)
	app.Get("/realtime", handlers.RealtimeHandler(bus))
	app.Use("/realtime/ws", handlers.WSUpgradeMiddleware)
	app.Get("/realtime/ws", handlers.RealtimeSocketHandler(bus))

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := st.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "store unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return app
}

func Run() {
	// Load Env
	if err := utils.LoadEnv(); err != nil {
		log.Println("Warning: .env file not found")
	}

	roomTTL := time.Duration(utils.GetEnvInt("ROOM_TTL_SECONDS", 600)) * time.Second

	// Init store
	st, err := newStore()
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer st.Close()

	// Realtime bus: push pub/sub by default, poll ring buffer for stores
	// without native pub/sub.
	bus := newBus(st)

	app := New(st, bus, roomTTL)

	// Start Server
	port := utils.GetEnv("PORT", "3001")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	// Graceful Shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c // Block until signal
	log.Println("Gracefully shutting down...")
	_ = app.Shutdown()
	log.Println("Server shutdown complete")
}

func newStore() (store.Store, error) {
	if utils.GetEnv("STORE_BACKEND", "redis") == "memory" {
		log.Println("[store] Using in-memory store")
		return store.NewMemory(), nil
	}
	return store.NewRedis(utils.GetEnv("REDIS_URL", "redis://localhost:6379"))
}

func newBus(st store.Store) realtime.Bus {
	if utils.GetEnv("REALTIME_STRATEGY", "pubsub") == "poll" {
		log.Println("[realtime] Using poll strategy")
		return realtime.NewPollBus(st, realtime.PollOptions{})
	}
	return realtime.NewPubSubBus(st)
}
