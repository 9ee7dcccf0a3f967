package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/parolevive/backend/internal/middleware"
	"github.com/parolevive/backend/internal/models"
	"github.com/parolevive/backend/internal/services"
	"github.com/parolevive/backend/internal/storage"
	"github.com/parolevive/backend/pkg/logger"
	"github.com/parolevive/backend/pkg/utils"
	"gorm.io/gorm"
)

type PostsHandler struct {
	DB      *gorm.DB
	Storage storage.ObjectStore
	Push    *services.PushService
}

func NewPostsHandler(db *gorm.DB, store storage.ObjectStore, push *services.PushService) *PostsHandler {
	return &PostsHandler{DB: db, Storage: store, Push: push}
}

func (h *PostsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	postType := strings.TrimSpace(c.FormValue("type"))
	if !models.ValidPostType(postType) {
		return utils.Error(c, fiber.StatusBadRequest, "type must be image or video")
	}
	category := strings.TrimSpace(c.FormValue("category"))
	if !models.ValidPostCategory(category) {
		return utils.Error(c, fiber.StatusBadRequest, "category must be pensee, pasteur or media")
	}

	mediaHeader, err := c.FormFile("media")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "media file is required")
	}

	maxSize := int64(maxImageSize)
	allowed := []string{"image/"}
	if models.PostType(postType) == models.PostTypeVideo {
		maxSize = maxVideoSize
		allowed = []string{"video/"}
	}

	mediaFile, ferr := storeUpload(c, h.Storage, mediaHeader, "posts", maxSize, allowed)
	if ferr != nil {
		return utils.Error(c, ferr.Code, ferr.Message)
	}

	post := models.Post{
		Type:      models.PostType(postType),
		Category:  models.PostCategory(category),
		Content:   strings.TrimSpace(c.FormValue("content")),
		MediaURL:  mediaFile.URL,
		MediaPath: mediaFile.Path,
		AuthorID:  currentUser.ID,
	}
	if err := h.DB.Create(&post).Error; err != nil {
		_ = h.Storage.Delete(c.Context(), mediaFile.Path)
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating post")
	}

	logger.InfoWithUser(currentUser.ID.String(), "post_created", map[string]interface{}{
		"post_id":  post.ID.String(),
		"type":     post.Type,
		"category": post.Category,
	})

	h.Push.BroadcastAsync(services.Broadcast{
		Title: "Nouvelle publication",
		Body:  post.Content,
		Data:  map[string]string{"type": "post", "id": post.ID.String()},
	})

	return utils.Success(c, fiber.StatusCreated, post)
}

func (h *PostsHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.Post{})
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		if !models.ValidPostCategory(category) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid category filter")
		}
		query = query.Where("category = ?", category)
	}
	if postType := strings.TrimSpace(c.Query("type")); postType != "" {
		if !models.ValidPostType(postType) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid type filter")
		}
		query = query.Where("type = ?", postType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting posts")
	}

	var posts []models.Post
	if err := utils.ApplyPagination(query.Preload("Author").Order("created_at DESC"), p).Find(&posts).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing posts")
	}

	return utils.Paginated(c, posts, p.Page, p.Limit, total)
}

func (h *PostsHandler) Get(c *fiber.Ctx) error {
	postID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var post models.Post
	if err := h.DB.Preload("Author").First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}

	return utils.Success(c, fiber.StatusOK, post)
}

func (h *PostsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	postID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}

	if !canMutate(currentUser, post.AuthorID) {
		logger.WarnWithUser(currentUser.ID.String(), "permission_denied", map[string]interface{}{
			"action":    "post_update",
			"target_id": post.ID.String(),
		})
		return utils.Error(c, fiber.StatusForbidden, "only the author or an admin can modify this post")
	}

	updates := map[string]interface{}{}
	if content := c.FormValue("content"); content != "" {
		updates["content"] = strings.TrimSpace(content)
	}
	if category := strings.TrimSpace(c.FormValue("category")); category != "" {
		if !models.ValidPostCategory(category) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid category")
		}
		updates["category"] = category
	}

	var replacedPath string
	if mediaHeader, err := c.FormFile("media"); err == nil {
		maxSize := int64(maxImageSize)
		allowed := []string{"image/"}
		if post.Type == models.PostTypeVideo {
			maxSize = maxVideoSize
			allowed = []string{"video/"}
		}
		mediaFile, ferr := storeUpload(c, h.Storage, mediaHeader, "posts", maxSize, allowed)
		if ferr != nil {
			return utils.Error(c, ferr.Code, ferr.Message)
		}
		replacedPath = post.MediaPath
		updates["media_url"] = mediaFile.URL
		updates["media_path"] = mediaFile.Path
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating post")
	}

	if replacedPath != "" {
		_ = h.Storage.Delete(c.Context(), replacedPath)
	}

	var updated models.Post
	if err := h.DB.Preload("Author").First(&updated, "id = ?", post.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading updated post")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *PostsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	postID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}

	if !canMutate(currentUser, post.AuthorID) {
		logger.WarnWithUser(currentUser.ID.String(), "permission_denied", map[string]interface{}{
			"action":    "post_delete",
			"target_id": post.ID.String(),
		})
		return utils.Error(c, fiber.StatusForbidden, "only the author or an admin can delete this post")
	}

	if err := h.DB.Delete(&models.Post{}, "id = ?", post.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting post")
	}

	_ = h.Storage.Delete(c.Context(), post.MediaPath)

	logger.InfoWithUser(currentUser.ID.String(), "post_deleted", map[string]interface{}{
		"post_id": post.ID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "post deleted"})
}

func (h *PostsHandler) IncrementLikes(c *fiber.Ctx) error {
	return h.incrementCounter(c, "likes")
}

func (h *PostsHandler) IncrementViews(c *fiber.Ctx) error {
	return h.incrementCounter(c, "views")
}

func (h *PostsHandler) incrementCounter(c *fiber.Ctx, column string) error {
	postID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	result := h.DB.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating counter")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "post not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": column + " incremented"})
}
