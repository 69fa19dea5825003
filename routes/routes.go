package routes

import (
	"bookstore-backend/controllers"
	"bookstore-backend/middlewares"
	"bookstore-backend/models"

	"github.com/gin-gonic/gin"
)

// Register mounts every endpoint under /api.
func Register(server *gin.Engine, h *controllers.Handler) {
	isAuth := middlewares.IsAuth(h.Tokens, h.Store)
	admin := middlewares.AuthorizeRoles(models.RoleAdmin)

	api := server.Group("/api")

	UserRoutes(api, h, isAuth, admin)
	ProductRoutes(api, h, isAuth, admin)
	OrderRoutes(api, h, isAuth, admin)
	PaymentRoutes(api, h, isAuth)
}

func UserRoutes(api *gin.RouterGroup, h *controllers.Handler, isAuth, admin gin.HandlerFunc) {
	api.POST("/register", h.Register)
	api.POST("/verify", h.Verify)
	api.POST("/login", h.Login)
	api.GET("/logout", h.Logout)

	api.POST("/password/forgot", h.ForgotPassword)
	api.PUT("/password/reset/:token", h.ResetPassword)

	api.GET("/me", isAuth, h.Me)
	api.PUT("/me/update", isAuth, h.UpdatePassword)
	api.PUT("/me/update/infor", isAuth, h.UpdateProfile)

	users := api.Group("/admin/users", isAuth, admin)
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUserRole)
		users.DELETE("/:id", h.DeleteUser)
	}
}

func ProductRoutes(api *gin.RouterGroup, h *controllers.Handler, isAuth, admin gin.HandlerFunc) {
	api.GET("/products", h.ListProducts)
	api.GET("/product/:id", h.GetProduct)
	api.POST("/cart/sync", h.SyncCart)

	api.PUT("/review", isAuth, h.PutReview)
	api.GET("/reviews", h.GetReviews)
	api.DELETE("/reviews", isAuth, h.DeleteReview)

	products := api.Group("/admin", isAuth, admin)
	{
		products.GET("/products", h.AdminListProducts)
		products.GET("/products/export", h.ExportProducts)
		products.POST("/product/new", h.CreateProduct)
		products.PUT("/product/:id", h.UpdateProduct)
		products.DELETE("/product/:id", h.DeleteProduct)
	}
}

func OrderRoutes(api *gin.RouterGroup, h *controllers.Handler, isAuth, admin gin.HandlerFunc) {
	api.POST("/order/new", isAuth, h.NewOrder)
	api.GET("/order/:id", isAuth, h.GetOrder)
	api.GET("/orders/me", isAuth, h.MyOrders)

	orders := api.Group("/admin", isAuth, admin)
	{
		orders.GET("/orders", h.AdminListOrders)
		orders.GET("/orders/export", h.ExportOrders)
		orders.GET("/orders/feed", h.OrderFeed)
		orders.PUT("/order/:id", h.UpdateOrderStatus)
		orders.DELETE("/order/:id", h.DeleteOrder)
	}
}

func PaymentRoutes(api *gin.RouterGroup, h *controllers.Handler, isAuth gin.HandlerFunc) {
	api.POST("/payment/process", isAuth, h.ProcessPayment)
	api.GET("/stripeapikey", h.StripeAPIKey)
}
