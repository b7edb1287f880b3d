package cosmos

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"github.com/canalwatch/icewatch/internal/storage"
	"github.com/canalwatch/icewatch/internal/types"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name           string
		q              storage.Query
		crossPartition bool
		wantSQL        string
		wantParams     map[string]interface{}
		wantPushed     bool
	}{
		{
			name:       "latest for a location",
			q:          storage.Query{Location: "DowsLake", Limit: 1, Descending: true},
			wantSQL:    "SELECT TOP @limit * FROM c WHERE c.location = @location ORDER BY c.windowEndTime DESC",
			wantParams: map[string]interface{}{"@limit": 1, "@location": "DowsLake"},
			wantPushed: true,
		},
		{
			name:       "status projection without limit",
			q:          storage.Query{Location: "NAC", StatusOnly: true, Descending: true},
			wantSQL:    "SELECT c.id, c.location, c.safetyStatus, c.windowEndTime FROM c WHERE c.location = @location ORDER BY c.windowEndTime DESC",
			wantParams: map[string]interface{}{"@location": "NAC"},
			wantPushed: true,
		},
		{
			name:       "every reading",
			q:          storage.Query{Limit: 5000, Descending: true},
			wantSQL:    "SELECT * FROM c",
			wantParams: map[string]interface{}{},
			wantPushed: false,
		},
		{
			name:           "cross partition container",
			q:              storage.Query{Location: "FifthAvenue", Limit: 12, Descending: true},
			crossPartition: true,
			wantSQL:        "SELECT * FROM c WHERE c.location = @location",
			wantParams:     map[string]interface{}{"@location": "FifthAvenue"},
			wantPushed:     false,
		},
		{
			name:       "location is never interpolated",
			q:          storage.Query{Location: "x' OR 1=1 --", Limit: 1, Descending: true},
			wantSQL:    "SELECT TOP @limit * FROM c WHERE c.location = @location ORDER BY c.windowEndTime DESC",
			wantParams: map[string]interface{}{"@limit": 1, "@location": "x' OR 1=1 --"},
			wantPushed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, pushed := BuildQuery(tt.q, tt.crossPartition)
			if sql != tt.wantSQL {
				t.Errorf("sql = %q\nexpected %q", sql, tt.wantSQL)
			}
			if pushed != tt.wantPushed {
				t.Errorf("pushedDown = %v, expected %v", pushed, tt.wantPushed)
			}
			if len(params) != len(tt.wantParams) {
				t.Fatalf("got %d params, expected %d", len(params), len(tt.wantParams))
			}
			for _, p := range params {
				if want, ok := tt.wantParams[p.Name]; !ok || want != p.Value {
					t.Errorf("param %s = %v, expected %v", p.Name, p.Value, want)
				}
			}
		})
	}
}

func TestDecode(t *testing.T) {
	doc := []byte(`{
		"id": "b7e1",
		"location": "DowsLake",
		"windowEndTime": "2025-01-15T14:35:00.0000000Z",
		"avgIceThickness": 32.4,
		"avgSurfaceTemperature": -6.1,
		"maxSnowAccumulation": 4.2,
		"safetyStatus": "Safe",
		"readingCount": 30
	}`)

	r, err := decode(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if r.Location != "DowsLake" || r.SafetyStatus != types.StatusSafe || r.ReadingCount != 30 {
		t.Errorf("unexpected reading: %+v", r)
	}
	if r.AvgSnowAccumulation != 4.2 {
		t.Errorf("expected snow fallback to maxSnowAccumulation, got %v", r.AvgSnowAccumulation)
	}
	if !r.WindowEndTime.Equal(time.Date(2025, 1, 15, 14, 35, 0, 0, time.UTC)) {
		t.Errorf("unexpected windowEndTime %v", r.WindowEndTime)
	}

	if _, err := decode([]byte(`{"id":"x","windowEndTime":"soon"}`)); err == nil {
		t.Error("expected error for unparseable windowEndTime")
	}
}

func TestDescribe(t *testing.T) {
	respErr := func(status int, code string) error {
		return &azcore.ResponseError{
			ErrorCode:  code,
			StatusCode: status,
			RawResponse: &http.Response{
				StatusCode: status,
				Status:     http.StatusText(status),
				Body:       http.NoBody,
				Request:    httptest.NewRequest(http.MethodGet, "https://example.documents.azure.com/dbs/db/colls/c", nil),
			},
		}
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", respErr(http.StatusNotFound, "NotFound"), "does not exist"},
		{"bad key", respErr(http.StatusUnauthorized, "Unauthorized"), "key was rejected"},
		{"throttled", respErr(http.StatusTooManyRequests, "TooManyRequests"), "status 429"},
		{"transport", errors.New("dial tcp: no such host"), "could not read container properties"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describe(tt.err)
			if !errors.Is(got, tt.err) {
				t.Errorf("describe dropped the wrapped error")
			}
			if !strings.Contains(got.Error(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, got.Error())
			}
		})
	}
}

type fakeContainer struct {
	props *azcosmos.ContainerProperties
	err   error
}

func (f fakeContainer) Read(context.Context, *azcosmos.ReadContainerOptions) (azcosmos.ContainerResponse, error) {
	if f.err != nil {
		return azcosmos.ContainerResponse{}, f.err
	}
	return azcosmos.ContainerResponse{ContainerProperties: f.props}, nil
}

func partitionedOn(paths ...string) *azcosmos.ContainerProperties {
	return &azcosmos.ContainerProperties{
		ID:                     "SensorAggregations",
		PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{Paths: paths},
	}
}

func TestDetectCrossPartition(t *testing.T) {
	tests := []struct {
		name      string
		container fakeContainer
		want      bool
	}{
		{"partitioned on location", fakeContainer{props: partitionedOn("/location")}, false},
		{"partitioned on id", fakeContainer{props: partitionedOn("/id")}, true},
		{"partitioned on a nested location", fakeContainer{props: partitionedOn("/site/location")}, true},
		{"hierarchical key", fakeContainer{props: partitionedOn("/location", "/windowEndTime")}, true},
		{"no partition key", fakeContainer{props: partitionedOn()}, true},
		{"no properties", fakeContainer{}, true},
		{"read failure", fakeContainer{err: &azcore.ResponseError{StatusCode: http.StatusForbidden}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectCrossPartition(context.Background(), tt.container); got != tt.want {
				t.Errorf("expected crossPartition=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestDetectedPartitionModeShapesQuery(t *testing.T) {
	q := storage.Query{Location: "DowsLake", Limit: 1, Descending: true}

	for _, tt := range []struct {
		paths      []string
		wantPushed bool
	}{
		{[]string{"/location"}, true},
		{[]string{"/deviceId"}, false},
	} {
		cross := detectCrossPartition(context.Background(), fakeContainer{props: partitionedOn(tt.paths...)})
		sql, _, pushed := BuildQuery(q, cross)
		if pushed != tt.wantPushed {
			t.Errorf("%v: expected pushedDown=%v, got %v (%s)", tt.paths, tt.wantPushed, pushed, sql)
		}
	}
}
