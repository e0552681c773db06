package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"newsroom/internal/auth"
	"newsroom/internal/domain"
	"newsroom/internal/service"
	"newsroom/internal/storage"
)

// maxUploadSize caps article image uploads.
const maxUploadSize = 10 << 20

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	articles service.ArticleService
	tokens   *auth.TokenService
	media    storage.Service
	logger   logrus.FieldLogger
}

func NewHandler(users service.UserService, articles service.ArticleService, tokens *auth.TokenService, media storage.Service, logger logrus.FieldLogger) *Handler {
	return &Handler{
		users:    users,
		articles: articles,
		tokens:   tokens,
		media:    media,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.register)
			authGroup.POST("/login", h.login)
			authGroup.POST("/logout", RequireAuth(h.tokens), h.logout)
			authGroup.GET("/me", RequireAuth(h.tokens), h.me)
		}

		articleGroup := api.Group("/articles")
		{
			articleGroup.GET("", h.listArticles)
			articleGroup.GET("/:id", h.getArticle)
			articleGroup.GET("/slug/:slug", h.getArticleBySlug)
			articleGroup.POST("", RequireAuth(h.tokens), h.createArticle)
			articleGroup.PUT("/:id", RequireAuth(h.tokens), h.updateArticle)
			articleGroup.DELETE("/:id", RequireAuth(h.tokens), h.deleteArticle)
		}

		api.POST("/media", RequireAuth(h.tokens), h.uploadMedia)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, "+TokenHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Please provide username, email, and password."})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"msg":   "User registered successfully!",
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Please provide email and password."})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userToResponse(user),
	})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.tokens.Revoke(c.Request.Context(), c.GetHeader(TokenHeader)); err != nil {
		h.logger.Warnf("revoke token: %v", err)
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "No user authenticated, authorization denied"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), identity.UserID)
	if err != nil {
		// The token outlived the account.
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "Token is not valid"})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) listArticles(c *gin.Context) {
	articles, err := h.articles.List(c.Request.Context(), c.Query("query"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]ArticleResponse, len(articles))
	for i := range articles {
		resp[i] = articleToResponse(articles[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getArticle(c *gin.Context) {
	article, err := h.articles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, articleToResponse(*article))
}

func (h *Handler) getArticleBySlug(c *gin.Context) {
	article, err := h.articles.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, articleToResponse(*article))
}

type createArticleRequest struct {
	Title         string     `json:"title" binding:"required"`
	Content       string     `json:"content" binding:"required"`
	Category      string     `json:"category" binding:"required"`
	ImageURL      string     `json:"imageUrl"`
	PublishedDate *time.Time `json:"publishedDate"`
}

func (h *Handler) createArticle(c *gin.Context) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "No user authenticated, authorization denied"})
		return
	}

	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Please provide title, content, and category."})
		return
	}

	article, err := h.articles.Create(c.Request.Context(), identity, service.ArticleInput{
		Title:         req.Title,
		Content:       req.Content,
		Category:      req.Category,
		ImageURL:      req.ImageURL,
		PublishedDate: req.PublishedDate,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, articleToResponse(*article))
}

type updateArticleRequest struct {
	Title         *string    `json:"title"`
	Content       *string    `json:"content"`
	Category      *string    `json:"category"`
	ImageURL      *string    `json:"imageUrl"`
	PublishedDate *time.Time `json:"publishedDate"`
}

func (h *Handler) updateArticle(c *gin.Context) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "No user authenticated, authorization denied"})
		return
	}

	var req updateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body."})
		return
	}

	article, err := h.articles.Update(c.Request.Context(), identity, c.Param("id"), domain.ArticlePatch{
		Title:         req.Title,
		Content:       req.Content,
		Category:      req.Category,
		ImageURL:      req.ImageURL,
		PublishedDate: req.PublishedDate,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, articleToResponse(*article))
}

func (h *Handler) deleteArticle(c *gin.Context) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "No user authenticated, authorization denied"})
		return
	}

	if err := h.articles.Delete(c.Request.Context(), identity, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) uploadMedia(c *gin.Context) {
	if h.media == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"msg": "Media storage is not configured."})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Please provide a file."})
		return
	}
	defer file.Close()

	url, err := h.media.Put(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// respondError maps domain errors onto status codes and the {msg} error
// body shape. Unexpected errors are logged and surface as a generic 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid Credentials"})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Username or email already in use."})
	case errors.Is(err, domain.ErrMalformedID):
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid article ID format."})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Authorization denied."})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"msg": "Access denied."})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"msg": "Article not found."})
	default:
		h.logger.Errorf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error."})
	}
}

type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

type ArticleResponse struct {
	ID            string `json:"id"`
	Owner         string `json:"owner"`
	Author        string `json:"author"`
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Content       string `json:"content"`
	Category      string `json:"category"`
	ImageURL      string `json:"imageUrl"`
	PublishedDate string `json:"publishedDate"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func articleToResponse(article domain.Article) ArticleResponse {
	return ArticleResponse{
		ID:            article.ID,
		Owner:         article.OwnerID,
		Author:        article.Author,
		Title:         article.Title,
		Slug:          article.Slug,
		Content:       article.Content,
		Category:      article.Category,
		ImageURL:      article.ImageURL,
		PublishedDate: article.PublishedDate.Format(time.RFC3339),
		CreatedAt:     article.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     article.UpdatedAt.Format(time.RFC3339),
	}
}
