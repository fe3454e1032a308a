package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ledgerpay/user-service/internal/domain/entity"
	"github.com/ledgerpay/user-service/internal/domain/repository"
	"github.com/ledgerpay/user-service/pkg/helpers"
)

var ErrInvalidEmail = errors.New("invalid email")

// UserService carries the HTTP-facing CRUD operations: list, partial update,
// profile-picture upload and search. Reads go through the LookupService so
// they share the cache-aside path with the queue handlers.
type UserService struct {
	Repo         repository.UserRepository
	Cache        repository.UserCache
	Lookup       *LookupService
	GCS          *storage.Client
	GCSBucket    string
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string
}

func NewUserService(repo repository.UserRepository, cache repository.UserCache, lookup *LookupService, gcs *storage.Client, gcsBucket string, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string) *UserService {
	return &UserService{
		Repo:         repo,
		Cache:        cache,
		Lookup:       lookup,
		GCS:          gcs,
		GCSBucket:    gcsBucket,
		Logger:       logger,
		ES:           es,
		ESUsersIndex: esUsersIndex,
	}
}

func (s *UserService) FindUser(ctx context.Context, id string) (*entity.User, error) {
	return s.Lookup.FindUser(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, limit int) ([]*entity.User, error) {
	return s.Repo.List(ctx, limit)
}

// UpdateUserInput carries the partial-update fields. Balance is present only
// so an attempt to set it can be rejected before reaching the store.
type UpdateUserInput struct {
	Name              *string
	Email             *string
	Address           *string
	ProfilePictureURL *string
	Agency            *string
	AccountNumber     *string
	Balance           *float64
}

// UpdateUser applies a partial update, invalidates the cache entry and
// re-indexes the user. Setting the balance through this path is an invariant
// violation.
func (s *UserService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*entity.User, error) {
	if in.Balance != nil {
		return nil, repository.ErrBalanceNotUpdatable
	}
	if in.Email != nil && !strings.Contains(*in.Email, "@") {
		return nil, ErrInvalidEmail
	}
	if _, err := s.Lookup.FindUser(ctx, id); err != nil {
		return nil, err
	}

	u, err := s.Repo.UpdatePartial(ctx, id, repository.UserUpdates{
		Name:              in.Name,
		Email:             in.Email,
		Address:           in.Address,
		ProfilePictureURL: in.ProfilePictureURL,
		Agency:            in.Agency,
		AccountNumber:     in.AccountNumber,
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	_ = s.indexUser(ctx, u)
	return u, nil
}

// UploadProfilePicture stores the image in GCS and persists the public URL.
func (s *UserService) UploadProfilePicture(ctx context.Context, id string, r io.Reader, filename, contentType string) (*entity.User, error) {
	if _, err := s.Lookup.FindUser(ctx, id); err != nil {
		return nil, err
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return nil, errors.New("object storage not configured")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("profile-pictures", id, uuid.NewString()+ext))
	url, err := helpers.UploadImageToGCS(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}

	u, err := s.Repo.UpdateProfilePicture(ctx, id, url)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	_ = s.indexUser(ctx, u)
	return u, nil
}

func (s *UserService) invalidate(ctx context.Context, id string) {
	if err := s.Cache.Invalidate(ctx, id); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", id).Error("cache invalidation failed")
	}
}

func (s *UserService) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":                  u.ID,
		"email":               u.Email,
		"name":                u.Name,
		"address":             u.Address,
		"profile_picture_url": u.ProfilePictureURL,
		"updated_at":          u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
	return nil
}

// IndexUser exposes indexing for the registration flow.
func (s *UserService) IndexUser(ctx context.Context, u *entity.User) {
	_ = s.indexUser(ctx, u)
}

// SearchUsers runs a multi_match query on name and email.
func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
