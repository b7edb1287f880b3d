// Package cosmos reads ice readings from an Azure Cosmos DB container.
package cosmos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/canalwatch/icewatch/internal/constants"
	"github.com/canalwatch/icewatch/internal/log"
	"github.com/canalwatch/icewatch/internal/storage"
	"github.com/canalwatch/icewatch/internal/types"
	"github.com/canalwatch/icewatch/pkg/config"
)

// Storage queries a single Cosmos DB container. The container client is
// created once and shared by every request.
type Storage struct {
	container      *azcosmos.ContainerClient
	crossPartition bool
}

// document is the shape the upstream aggregation job writes
type document struct {
	ID                    string   `json:"id"`
	Location              string   `json:"location"`
	WindowEndTime         string   `json:"windowEndTime"`
	AvgIceThickness       float64  `json:"avgIceThickness"`
	AvgSurfaceTemperature float64  `json:"avgSurfaceTemperature"`
	AvgSnowAccumulation   *float64 `json:"avgSnowAccumulation"`
	MaxSnowAccumulation   *float64 `json:"maxSnowAccumulation"`
	SafetyStatus          string   `json:"safetyStatus"`
	ReadingCount          int      `json:"readingCount"`
}

// New connects to the configured account with its primary key
func New(cfg config.CosmosData) (*Storage, error) {
	cred, err := azcosmos.NewKeyCredential(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("invalid Cosmos DB key: %w", err)
	}

	client, err := azcosmos.NewClientWithKey(cfg.Endpoint, cred, clientOptions())
	if err != nil {
		return nil, fmt.Errorf("could not create Cosmos DB client for %s: %w", cfg.Endpoint, err)
	}

	container, err := client.NewContainer(cfg.Database, cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("could not open container %s/%s: %w", cfg.Database, cfg.Container, err)
	}

	log.Infof("using Cosmos DB container %s/%s", cfg.Database, cfg.Container)

	crossPartition := cfg.CrossPartition
	if !crossPartition {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		crossPartition = detectCrossPartition(ctx, container)
		cancel()
	}

	return &Storage{
		container:      container,
		crossPartition: crossPartition,
	}, nil
}

// locationPartitionPath is the only partition key a query can be scoped by
const locationPartitionPath = "/location"

// containerReader is the part of *azcosmos.ContainerClient that exposes the
// container's partition key definition
type containerReader interface {
	Read(ctx context.Context, o *azcosmos.ReadContainerOptions) (azcosmos.ContainerResponse, error)
}

// detectCrossPartition reports whether single-location queries must scan
// every partition. A container that cannot be read is scanned.
func detectCrossPartition(ctx context.Context, c containerReader) bool {
	resp, err := c.Read(ctx, nil)
	if err != nil {
		log.Warnf("could not read partition key, using cross-partition queries: %v", describe(err))
		return true
	}

	var paths []string
	if resp.ContainerProperties != nil {
		paths = resp.ContainerProperties.PartitionKeyDefinition.Paths
	}
	if !partitionedByLocation(paths) {
		log.Warnf("container partition key is %v, not [%s]; using cross-partition queries", paths, locationPartitionPath)
		return true
	}

	log.Debugf("container is partitioned on %s", locationPartitionPath)
	return false
}

func partitionedByLocation(paths []string) bool {
	return len(paths) == 1 && paths[0] == locationPartitionPath
}

func clientOptions() *azcosmos.ClientOptions {
	return &azcosmos.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			// single attempt; a failed query surfaces as a 500 right away
			Retry: policy.RetryOptions{
				MaxRetries: -1,
				TryTimeout: 15 * time.Second,
			},
			Telemetry: policy.TelemetryOptions{
				ApplicationID: "icewatch/" + constants.Version,
			},
		},
	}
}

// Query runs q against the container. Single-location queries are scoped to
// the location's partition so ORDER BY and TOP run server side; everything
// else is a gateway-served cross-partition scan ordered in memory.
func (s *Storage) Query(ctx context.Context, q storage.Query) ([]types.Reading, error) {
	sql, params, pushedDown := BuildQuery(q, s.crossPartition)

	pk := azcosmos.NewPartitionKey()
	if pushedDown {
		pk = azcosmos.NewPartitionKeyString(q.Location)
	}

	pager := s.container.NewQueryItemsPager(sql, pk, &azcosmos.QueryOptions{
		QueryParameters: params,
	})

	var readings []types.Reading
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("cosmos query %q failed: %w", sql, err)
		}
		for _, item := range page.Items {
			r, err := decode(item)
			if err != nil {
				return nil, err
			}
			readings = append(readings, r)
		}
	}

	if !pushedDown {
		readings = storage.Apply(readings, q)
	}
	return readings, nil
}

// Ping reads the container properties
func (s *Storage) Ping(ctx context.Context) error {
	if _, err := s.container.Read(ctx, nil); err != nil {
		return describe(err)
	}
	return nil
}

// Backend returns "cosmos"
func (s *Storage) Backend() string {
	return config.BackendCosmos
}

// Close is a no-op; the SDK client holds no resources that need releasing
func (s *Storage) Close() error {
	return nil
}

// describe turns service errors into something an operator can act on
func describe(err error) error {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return fmt.Errorf("could not read container properties: %w", err)
	}

	switch respErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("database or container does not exist: %w", err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("key was rejected: %w", err)
	default:
		return fmt.Errorf("container read failed with status %d (%s): %w", respErr.StatusCode, respErr.ErrorCode, err)
	}
}

func decode(item []byte) (types.Reading, error) {
	var doc document
	if err := json.Unmarshal(item, &doc); err != nil {
		return types.Reading{}, fmt.Errorf("could not decode reading document: %w", err)
	}

	ts, err := storage.ParseWindowEnd(doc.WindowEndTime)
	if err != nil {
		return types.Reading{}, fmt.Errorf("document %s: %w", doc.ID, err)
	}

	return types.Reading{
		ID:                    doc.ID,
		Location:              doc.Location,
		AvgIceThickness:       doc.AvgIceThickness,
		AvgSurfaceTemperature: doc.AvgSurfaceTemperature,
		AvgSnowAccumulation:   storage.SnowValue(doc.AvgSnowAccumulation, doc.MaxSnowAccumulation),
		SafetyStatus:          types.SafetyStatus(doc.SafetyStatus),
		WindowEndTime:         ts,
		ReadingCount:          doc.ReadingCount,
	}, nil
}
