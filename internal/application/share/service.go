package share

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/share-gate-api/internal/domain"
)

// MaterialStore and FolderStore are read-only collaborators; the share gate
// only needs to resolve what a verified grant points at.
type MaterialStore interface {
	Get(ctx context.Context, materialID string) (*domain.Material, error)
	ListPublicByFolder(ctx context.Context, folderID string) ([]domain.Material, error)
}

type FolderStore interface {
	Get(ctx context.Context, folderID string) (*domain.Folder, error)
}

// ObjectStore hands out time-limited download URLs for material objects.
type ObjectStore interface {
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MaterialView is a material as shown through a share: public metadata plus a
// short-lived download URL instead of the raw object key.
type MaterialView struct {
	MaterialID  string `json:"material_id"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	DownloadURL string `json:"download_url"`
}

// Resource is the resolved target of a share link.
type Resource struct {
	Type      domain.ShareType `json:"share_type"`
	Material  *MaterialView    `json:"material,omitempty"`
	Folder    *domain.Folder   `json:"folder,omitempty"`
	Materials []MaterialView   `json:"materials,omitempty"`
}

type Service interface {
	Resolve(ctx context.Context, shareType domain.ShareType, shareID string) (*Resource, error)
}

type service struct {
	materials   MaterialStore
	folders     FolderStore
	objects     ObjectStore
	downloadTTL time.Duration
}

func NewService(materials MaterialStore, folders FolderStore, objects ObjectStore) Service {
	return &service{
		materials:   materials,
		folders:     folders,
		objects:     objects,
		downloadTTL: 15 * time.Minute,
	}
}

func (s *service) Resolve(ctx context.Context, shareType domain.ShareType, shareID string) (*Resource, error) {
	switch shareType {
	case domain.ShareTypeFile:
		return s.resolveFile(ctx, shareID)
	case domain.ShareTypeFolder:
		return s.resolveFolder(ctx, shareID)
	default:
		return nil, fmt.Errorf("unknown share type %q: %w", shareType, domain.ErrValidation)
	}
}

func (s *service) resolveFile(ctx context.Context, materialID string) (*Resource, error) {
	m, err := s.materials.Get(ctx, materialID)
	if err != nil {
		return nil, err
	}
	// Non-public materials are invisible through shares, same as missing ones.
	if !m.IsPublic {
		return nil, fmt.Errorf("material %s is not shared: %w", materialID, domain.ErrNotFound)
	}
	view, err := s.view(ctx, m)
	if err != nil {
		return nil, err
	}
	return &Resource{Type: domain.ShareTypeFile, Material: view}, nil
}

func (s *service) resolveFolder(ctx context.Context, folderID string) (*Resource, error) {
	f, err := s.folders.Get(ctx, folderID)
	if err != nil {
		return nil, err
	}
	ms, err := s.materials.ListPublicByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	views := make([]MaterialView, 0, len(ms))
	for i := range ms {
		v, err := s.view(ctx, &ms[i])
		if err != nil {
			// One broken object should not hide the rest of the folder.
			slog.Warn("could not presign shared material", "material_id", ms[i].MaterialID, "err", err)
			continue
		}
		views = append(views, *v)
	}
	return &Resource{Type: domain.ShareTypeFolder, Folder: f, Materials: views}, nil
}

func (s *service) view(ctx context.Context, m *domain.Material) (*MaterialView, error) {
	url, err := s.objects.PresignedURL(ctx, m.FileKey, s.downloadTTL)
	if err != nil {
		return nil, fmt.Errorf("presign material %s: %w", m.MaterialID, err)
	}
	return &MaterialView{
		MaterialID:  m.MaterialID,
		Title:       m.Title,
		ContentType: m.ContentType,
		DownloadURL: url,
	}, nil
}
