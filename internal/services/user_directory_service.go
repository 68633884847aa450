package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"peakform/amsbridge/internal/common"
	"peakform/amsbridge/internal/constants"
	"peakform/amsbridge/internal/logging"
	"peakform/amsbridge/internal/models/dtos"
)

// directoryFetcher is the client call the service depends on
type directoryFetcher interface {
	FetchCached(ctx context.Context, endpoint, method string, payload any, out any, apiVersion string) error
}

// UserDirectoryService fetches and caches the site's user directory. The
// directory rarely changes within an import session, so one usersearch
// call serves the whole batch; concurrent batches share the in-flight
// fetch instead of stampeding the server.
type UserDirectoryService struct {
	client directoryFetcher
	cache  common.CacheInterface
	group  singleflight.Group
}

func NewUserDirectoryService(client directoryFetcher, cache common.CacheInterface) *UserDirectoryService {
	return &UserDirectoryService{
		client: client,
		cache:  cache,
	}
}

// Users returns every user visible to the authenticated account.
func (s *UserDirectoryService) Users(ctx context.Context) ([]dtos.UserItem, error) {
	key := string(constants.CachePrefixUserDirectory)

	if s.cache != nil {
		if cached, found := s.cache.Get(key); found {
			if users, ok := cached.([]dtos.UserItem); ok {
				return users, nil
			}
			s.cache.Delete(key)
		}
	}

	result, err, shared := s.group.Do(key, func() (any, error) {
		users, err := s.fetchDirectory(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Set(key, users, constants.UserDirectoryCacheTTL)
		}
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.Debug("User directory fetch shared with concurrent caller")
	}
	return result.([]dtos.UserItem), nil
}

// Invalidate drops the cached directory, forcing the next Users call to
// hit the server.
func (s *UserDirectoryService) Invalidate() {
	if s.cache != nil {
		s.cache.Delete(string(constants.CachePrefixUserDirectory))
	}
}

func (s *UserDirectoryService) fetchDirectory(ctx context.Context) ([]dtos.UserItem, error) {
	// An empty identification list asks the server for everyone visible
	// to the session.
	payload := dtos.UserSearchRequest{Identification: []map[string]string{}}

	var resp dtos.UserSearchResponse
	if err := s.client.FetchCached(ctx, constants.EndpointUserSearch, "POST", payload, &resp, constants.APIVersionV1); err != nil {
		return nil, fmt.Errorf("usersearch failed: %w", err)
	}

	var users []dtos.UserItem
	for _, group := range resp.Results {
		users = append(users, group.Results...)
	}

	logging.Info("User directory loaded", "users", len(users))
	return users, nil
}
