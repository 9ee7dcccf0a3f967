package handlers

import (
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/parolevive/backend/internal/models"
	"github.com/parolevive/backend/internal/storage"
)

const (
	maxImageSize = 10 << 20  // 10MB
	maxVideoSize = 50 << 20  // 50MB
	maxAudioSize = 100 << 20 // 100MB
	maxPDFSize   = 50 << 20  // 50MB
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// canMutate implements the ownership rule: mutation is allowed for the
// resource owner and for admins.
func canMutate(user *models.User, ownerID uuid.UUID) bool {
	return user.ID == ownerID || user.Role == models.UserRoleAdmin
}

type uploadedFile struct {
	Path string
	URL  string
}

// storeUpload buffers a multipart file into object storage under a
// random key and returns the stored path plus its public URL. The
// allowed list holds content-type prefixes ("image/") or exact types
// ("application/pdf").
func storeUpload(c *fiber.Ctx, store storage.ObjectStore, fileHeader *multipart.FileHeader, keyPrefix string, maxSize int64, allowed []string) (*uploadedFile, *fiber.Error) {
	if fileHeader.Size > maxSize {
		return nil, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("%s exceeds the %dMB size limit", fileHeader.Filename, maxSize>>20))
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(fileHeader.Filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !contentTypeAllowed(contentType, allowed) {
		return nil, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("unsupported content type %s", contentType))
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	objectName := fmt.Sprintf("%s/%s%s", keyPrefix, uuid.New().String(), strings.ToLower(filepath.Ext(fileHeader.Filename)))
	if err := store.Upload(c.Context(), objectName, stream, fileHeader.Size, contentType); err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "failed uploading file")
	}

	return &uploadedFile{Path: objectName, URL: store.PublicURL(objectName)}, nil
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, entry := range allowed {
		if strings.HasSuffix(entry, "/") {
			if strings.HasPrefix(base, entry) {
				return true
			}
		} else if base == entry {
			return true
		}
	}
	return false
}
