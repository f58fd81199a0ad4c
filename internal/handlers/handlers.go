package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"legacyvault/internal/config"
	"legacyvault/internal/events"
	"legacyvault/internal/middleware"
	"legacyvault/internal/rbac"
	"legacyvault/internal/repository"
	"legacyvault/internal/service"
	"legacyvault/internal/storage"
)

type HandlerSet struct {
	log           zerolog.Logger
	cfg           *config.AppConfig
	authService   *service.AuthService
	vaultService  *service.VaultService
	memoryService *service.MemoryService
	rbacService   *service.RBACService
	db            *pgxpool.Pool
	cache         *redis.Client
	store         *storage.ObjectStore
	users         *repository.UserRepository
	sessions      *repository.SessionRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	vaultRepo := repository.NewVaultRepository(db)
	memoryRepo := repository.NewMemoryRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	publisher := events.NewPublisher(cache, cfg.Events.Stream, log)

	rbacSvc := service.NewRBACService(roleRepo, log)
	auth := service.NewAuthService(userRepo, sessionRepo, roleRepo, vaultRepo, memoryRepo, publisher, cfg.Security, log)
	vaults := service.NewVaultService(vaultRepo, memoryRepo, userRepo, store, publisher, log)
	memories := service.NewMemoryService(memoryRepo, commentRepo, vaultRepo, store, publisher, cfg.Upload.MaxSizeBytes, cfg.Security.SignatureSecret, log)

	return HandlerSet{
		log:           log,
		cfg:           cfg,
		authService:   auth,
		vaultService:  vaults,
		memoryService: memories,
		rbacService:   rbacSvc,
		db:            db,
		cache:         cache,
		store:         store,
		users:         userRepo,
		sessions:      sessionRepo,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	authed := middleware.Auth(h.cfg, h.users, h.sessions, h.rbacService)
	signed := middleware.Signature(h.cfg, h.cache)

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.SignUp)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)

		me := v1.Group("/auth")
		me.Use(authed, signed)
		me.GET("/me", h.Me)
		me.PATCH("/me", h.UpdateProfile)
		me.DELETE("/me", h.DeleteAccount)
		me.GET("/sessions", h.ListSessions)
		me.DELETE("/sessions/:deviceId", h.RevokeSession)
	}

	vaults := v1.Group("/vaults")
	vaults.Use(authed, signed)
	{
		vaults.POST("", h.CreateVault)
		vaults.GET("", h.ListVaults)
		vaults.GET("/:vaultId", h.GetVault)
		vaults.PATCH("/:vaultId", h.UpdateVault)
		vaults.DELETE("/:vaultId", h.DeleteVault)
		vaults.PUT("/:vaultId/settings", h.UpdateVaultSettings)
		vaults.POST("/:vaultId/cover", h.UploadVaultCover)

		vaults.POST("/:vaultId/members", h.AddVaultMember)
		vaults.DELETE("/:vaultId/members/:userId", h.RemoveVaultMember)
		vaults.PUT("/:vaultId/members/:userId/role", h.UpdateVaultMemberRole)

		vaults.POST("/:vaultId/memories", h.UploadMemory)
		vaults.GET("/:vaultId/memories", h.ListVaultMemories)
		vaults.GET("/:vaultId/memories/rejected", h.ListRejectedMemories)
	}

	memories := v1.Group("/memories")
	memories.Use(authed, signed)
	{
		memories.GET("/:memoryId", h.GetMemory)
		memories.PATCH("/:memoryId", h.UpdateMemory)
		memories.DELETE("/:memoryId", h.DeleteMemory)
		memories.POST("/:memoryId/approve", h.ApproveMemory)
		memories.POST("/:memoryId/reject", h.RejectMemory)
		memories.POST("/:memoryId/resubmit", h.ResubmitMemory)
		memories.GET("/:memoryId/comments", h.ListComments)
		memories.POST("/:memoryId/comments", h.AddComment)
	}

	admin := v1.Group("/admin")
	admin.Use(authed, signed, middleware.RequirePermission(rbac.PermAdminAccess))
	{
		admin.GET("/stats", h.AdminStats)
		admin.GET("/users", h.AdminListUsers)
		admin.PUT("/users/:userId/status", h.AdminSetUserStatus)

		roles := admin.Group("/roles")
		roles.Use(middleware.RequirePermission(rbac.PermAdminManageRoles))
		roles.GET("", h.ListRoles)
		roles.POST("", h.CreateRole)
		roles.GET("/:roleId", h.GetRole)
		roles.PATCH("/:roleId", h.UpdateRole)
		roles.DELETE("/:roleId", h.DeleteRole)

		users := admin.Group("/users")
		users.Use(middleware.RequirePermission(rbac.PermAdminManageRoles))
		users.GET("/:userId/roles", h.ListUserRoles)
		users.POST("/:userId/roles", h.AssignUserRole)
		users.DELETE("/:userId/roles/:roleId", h.RemoveUserRole)

		admin.GET("/permissions", h.ListPermissions)
	}
}
