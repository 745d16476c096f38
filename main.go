package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"backend/internal/cart"
	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/middleware"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureCartIndexes(db); err != nil {
		log.Printf("cart index warning: %v", err)
	}
	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("product index warning: %v", err)
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}

	cartRepo := cart.NewRepository(db, cart.Defaults{
		TaxRate:       config.AppEnv.TaxRate,
		ShippingCost:  config.AppEnv.ShippingCost,
		FreeThreshold: config.AppEnv.FreeShippingLimit,
		TTL:           config.AppEnv.CartTTL,
	})
	cartService := cart.NewService(cartRepo, cart.NewCatalog(db), cart.DefaultDiscounts(), config.AppEnv.CartTTL)

	sweepCtx, stopSweep := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSweep()
	go cart.NewSweeper(cartRepo, config.AppEnv.CartSweepInterval).Run(sweepCtx)

	r := gin.Default()

	r.GET("/api/health", handlers.Health(db))

	r.POST("/api/users/register", handlers.Register(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))
	r.POST("/api/users/login", handlers.Login(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))

	products := r.Group("/api/products")
	products.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		products.GET("", handlers.GetProducts(db))
		products.GET("/featured", handlers.GetFeaturedProducts(db))
		products.GET("/new-arrivals", handlers.GetNewArrivals(db))
		products.GET("/categories", handlers.GetProductFilters(db))
		products.GET("/:id", handlers.GetProduct(db))
	}

	user := r.Group("/api/users")
	user.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		user.GET("/profile", handlers.GetProfile(db))
	}

	cartRoutes := r.Group("/api/cart")
	cartRoutes.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		cartRoutes.GET("", handlers.GetCart(cartService))
		cartRoutes.POST("/add", handlers.AddToCart(cartService))
		cartRoutes.PUT("/update/:itemId", handlers.UpdateCartItem(cartService))
		cartRoutes.DELETE("/remove/:itemId", handlers.RemoveFromCart(cartService))
		cartRoutes.DELETE("/clear", handlers.ClearCart(cartService))
		cartRoutes.POST("/discount", handlers.ApplyCartDiscount(cartService))
		cartRoutes.DELETE("/discount", handlers.RemoveCartDiscount(cartService))
	}

	orders := r.Group("/api/orders")
	orders.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		orders.POST("", handlers.CreateOrder(db, cartRepo))
		orders.GET("", handlers.GetMyOrders(db))
		orders.GET("/:id", handlers.GetMyOrder(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
