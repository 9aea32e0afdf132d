package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/fadedpez/pitbot/internal/logging"
	"github.com/fadedpez/pitbot/pkg/entities"
)

// ElasticsearchConfig holds configuration options for the Elasticsearch mirror
type ElasticsearchConfig struct {
	URL         string
	Username    string
	Password    string
	IndexPrefix string
}

// DefaultElasticsearchConfig returns a default configuration for Elasticsearch
func DefaultElasticsearchConfig() *ElasticsearchConfig {
	return &ElasticsearchConfig{
		URL:         "http://localhost:9200",
		IndexPrefix: "pitbot",
	}
}

// ElasticsearchRepository mirrors ledger writes into monthly Elasticsearch indices.
// The base repository stays the source of truth and serves every read.
type ElasticsearchRepository struct {
	baseRepo    Repository
	client      *elasticsearch.Client
	indexPrefix string
	logger      *logging.Logger

	mu      sync.Mutex
	ensured map[string]bool
}

// NewElasticsearchRepository wraps baseRepo with an Elasticsearch mirror
func NewElasticsearchRepository(baseRepo Repository, config *ElasticsearchConfig, logger *logging.Logger) (*ElasticsearchRepository, error) {
	if config == nil {
		config = DefaultElasticsearchConfig()
	}
	if logger == nil {
		logger = logging.Default
	}

	cfg := elasticsearch.Config{
		Addresses: []string{config.URL},
	}
	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	prefix := config.IndexPrefix
	if prefix == "" {
		prefix = "pitbot"
	}

	return &ElasticsearchRepository{
		baseRepo:    baseRepo,
		client:      client,
		indexPrefix: prefix,
		logger:      logger.With("elasticsearch"),
		ensured:     make(map[string]bool),
	}, nil
}

// RollsIndex returns the roll index holding month, e.g. pitbot_rolls_2024-03
func (r *ElasticsearchRepository) RollsIndex(month string) string {
	return r.indexPrefix + "_rolls_" + month
}

// DuplicatesIndex returns the duplicate attempt index holding month
func (r *ElasticsearchRepository) DuplicatesIndex(month string) string {
	return r.indexPrefix + "_doublerolls_" + month
}

// EnsureIndices creates the roll and duplicate indices for the month containing now
func (r *ElasticsearchRepository) EnsureIndices(ctx context.Context, now time.Time) error {
	month := now.Format("2006-01")
	if err := r.ensureIndex(ctx, r.RollsIndex(month), rollsMapping); err != nil {
		return err
	}
	return r.ensureIndex(ctx, r.DuplicatesIndex(month), duplicatesMapping)
}

func (r *ElasticsearchRepository) ensureIndex(ctx context.Context, index, mapping string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ensured[index] {
		return nil
	}

	res, err := r.client.Indices.Exists([]string{index}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error checking if index %s exists: %w", index, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		req := esapi.IndicesCreateRequest{
			Index: index,
			Body:  strings.NewReader(mapping),
		}

		res, err := req.Do(ctx, r.client)
		if err != nil {
			return fmt.Errorf("error creating index %s: %w", index, err)
		}
		defer res.Body.Close()

		if res.IsError() {
			// Another process may have created it between the check and the create
			if body := res.String(); !strings.Contains(body, "resource_already_exists_exception") {
				return fmt.Errorf("error creating index %s: %s", index, body)
			}
		} else {
			r.logger.Info("Created index %s", index)
		}
	}

	r.ensured[index] = true
	return nil
}

// monthOf returns the YYYY-MM part of a stored Day
func monthOf(day string, fallback time.Time) string {
	if len(day) >= 7 {
		return day[:7]
	}
	return fallback.UTC().Format("2006-01")
}

func (r *ElasticsearchRepository) indexDocument(ctx context.Context, index, mapping, id string, doc any) error {
	if err := r.ensureIndex(ctx, index, mapping); err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling document: %w", err)
	}

	res, err := r.client.Index(
		index,
		bytes.NewReader(body),
		r.client.Index.WithDocumentID(id),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("error indexing document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}
	return nil
}

// IndexRoll writes roll into its monthly index
func (r *ElasticsearchRepository) IndexRoll(ctx context.Context, roll *entities.RollRecord) error {
	index := r.RollsIndex(monthOf(roll.Day, roll.OccurredAt))
	return r.indexDocument(ctx, index, rollsMapping, roll.ID, newESRoll(roll))
}

// IndexDuplicate writes attempt into its monthly index
func (r *ElasticsearchRepository) IndexDuplicate(ctx context.Context, attempt *entities.DuplicateAttempt) error {
	index := r.DuplicatesIndex(monthOf(attempt.Day, attempt.AttemptedAt))
	return r.indexDocument(ctx, index, duplicatesMapping, attempt.ID, newESDuplicate(attempt))
}

// MarkRemoved flags the mirrored roll as removed in whichever monthly index holds it
func (r *ElasticsearchRepository) MarkRemoved(ctx context.Context, user entities.UserID, occurredAt time.Time, removedBy entities.UserID) error {
	update := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id": user.String()}},
					map[string]any{"term": map[string]any{"occurred_at_us": occurredAt.UnixMicro()}},
				},
			},
		},
		"script": map[string]any{
			"source": "ctx._source.removed = true; ctx._source.removed_by = params.removed_by",
			"lang":   "painless",
			"params": map[string]any{"removed_by": removedBy.String()},
		},
	}

	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("error marshaling update: %w", err)
	}

	res, err := r.client.UpdateByQuery(
		[]string{r.indexPrefix + "_rolls_*"},
		r.client.UpdateByQuery.WithBody(bytes.NewReader(body)),
		r.client.UpdateByQuery.WithContext(ctx),
		r.client.UpdateByQuery.WithRefresh(true),
		r.client.UpdateByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return fmt.Errorf("error updating removed roll: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error updating removed roll: %s", res.String())
	}
	return nil
}

func (r *ElasticsearchRepository) MostRecentRoll(ctx context.Context, user entities.UserID) (*entities.RollRecord, error) {
	return r.baseRepo.MostRecentRoll(ctx, user)
}

// AppendRoll saves to the base repository, then mirrors the roll
func (r *ElasticsearchRepository) AppendRoll(ctx context.Context, roll *entities.RollRecord) error {
	if err := r.baseRepo.AppendRoll(ctx, roll); err != nil {
		return err
	}

	if err := r.IndexRoll(ctx, roll); err != nil {
		r.logger.Warn("Failed to mirror roll %s: %v", roll.ID, err)
	}
	return nil
}

func (r *ElasticsearchRepository) AppendDuplicate(ctx context.Context, attempt *entities.DuplicateAttempt) error {
	if err := r.baseRepo.AppendDuplicate(ctx, attempt); err != nil {
		return err
	}

	if err := r.IndexDuplicate(ctx, attempt); err != nil {
		r.logger.Warn("Failed to mirror duplicate attempt %s: %v", attempt.ID, err)
	}
	return nil
}

func (r *ElasticsearchRepository) Invalidate(ctx context.Context, user entities.UserID, occurredAt time.Time, removedBy entities.UserID) error {
	if err := r.baseRepo.Invalidate(ctx, user, occurredAt, removedBy); err != nil {
		return err
	}

	if err := r.MarkRemoved(ctx, user, occurredAt, removedBy); err != nil {
		r.logger.Warn("Failed to mirror invalidation for user %s: %v", user, err)
	}
	return nil
}

func (r *ElasticsearchRepository) QueryByUserAndMonth(ctx context.Context, user entities.UserID, month time.Month, year int) ([]*entities.RollRecord, error) {
	return r.baseRepo.QueryByUserAndMonth(ctx, user, month, year)
}

func (r *ElasticsearchRepository) QueryByMonth(ctx context.Context, month time.Month, year int) ([]*entities.RollRecord, error) {
	return r.baseRepo.QueryByMonth(ctx, month, year)
}

func (r *ElasticsearchRepository) QueryDuplicatesByMonth(ctx context.Context, month time.Month, year int) ([]*entities.DuplicateAttempt, error) {
	return r.baseRepo.QueryDuplicatesByMonth(ctx, month, year)
}

func (r *ElasticsearchRepository) SaveUser(ctx context.Context, user *entities.User) error {
	return r.baseRepo.SaveUser(ctx, user)
}

func (r *ElasticsearchRepository) Close() error {
	return r.baseRepo.Close()
}
