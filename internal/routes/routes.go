package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tomurashigaraki22/ripple-websocket-server/internal/handlers"
	"github.com/tomurashigaraki22/ripple-websocket-server/internal/repository"
	"github.com/tomurashigaraki22/ripple-websocket-server/internal/services"
	chatws "github.com/tomurashigaraki22/ripple-websocket-server/internal/websocket"
)

func RegisterRoutes(app *fiber.App, db *pgxpool.Pool) {
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	chatService := services.NewChatService(orderRepo, userRepo, messageRepo)
	chatHub := chatws.NewHub()
	chatHandler := handlers.NewChatHandler(chatService, chatHub)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	orders := v1.Group("/orders")
	orders.Get("/:id/messages", chatHandler.GetOrderMessages)

	moderation := v1.Group("/moderation")
	moderation.Get("/messages", chatHandler.ListReportedMessages)

	app.Use("/ws", chatHandler.WebSocketUpgrade)
	app.Get("/ws", websocket.New(chatHandler.HandleWebSocket))
}
