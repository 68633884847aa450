package api

import (
	"os"

	"peakform/amsbridge/internal/client"
	"peakform/amsbridge/internal/common"
	"peakform/amsbridge/internal/constants"
	"peakform/amsbridge/internal/db"
	"peakform/amsbridge/internal/db/repositories"
	"peakform/amsbridge/internal/importer"
	"peakform/amsbridge/internal/logging"
	"peakform/amsbridge/internal/metrics"
	"peakform/amsbridge/internal/services"
)

type Repositories struct {
	Keys       *repositories.KeysRepo
	ImportRuns *repositories.ImportRunRepo
}

type Services struct {
	Cache     common.CacheInterface
	Client    *client.AMSClient
	Directory *services.UserDirectoryService
	Imports   *services.ImportService
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
}

// InitDependencies wires the cache, AMS client, directory, and import
// pipeline. REDIS_HOST selects the Redis cache backend; otherwise an
// in-process cache is used.
func InitDependencies(metricsReg *metrics.MetricsRegistry) (*Dependencies, error) {

	repos := &Repositories{}
	if db.DB != nil {
		repos.Keys = repositories.NewApiKeysRepo(db.DB)
	}
	if db.PgDB != nil {
		repos.ImportRuns = repositories.NewImportRunRepo(db.PgDB)
	}

	var cache common.CacheInterface
	if os.Getenv("REDIS_HOST") != "" {
		redisCache, err := common.NewRedisCacheService()
		if err != nil {
			return nil, err
		}
		cache = redisCache
		logging.Info("Using Redis cache backend")
	} else {
		cache = common.NewCacheService(constants.ResponseCacheTTL, 2*constants.ResponseCacheTTL)
		logging.Info("Using in-memory cache backend")
	}

	amsClient, err := client.NewAMSClient(os.Getenv("AMS_URL"), os.Getenv("AMS_USERNAME"), os.Getenv("AMS_PASSWORD"), cache)
	if err != nil {
		return nil, err
	}

	directory := services.NewUserDirectoryService(amsClient, cache)
	imp := importer.New(amsClient, directory)

	return &Dependencies{
		Repo: repos,
		Services: &Services{
			Cache:     cache,
			Client:    amsClient,
			Directory: directory,
			Imports:   services.NewImportService(imp, repos.ImportRuns, metricsReg),
		},
	}, nil
}
