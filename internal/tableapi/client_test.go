package tableapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"silkstaff/internal/services"
	"silkstaff/internal/tableapi"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

type fakeTable struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, req recordedRequest)
}

func (f *fakeTable) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	f.handler(w, rec)
}

func newClient(t *testing.T, handler func(w http.ResponseWriter, req recordedRequest)) (*tableapi.Client, *fakeTable) {
	t.Helper()
	fake := &fakeTable{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return tableapi.New(srv.URL+"/", "space-1", "Bearer secret", tableapi.WithHTTPClient(srv.Client())), fake
}

func TestRowsSendsQueryAndDecodesOwners(t *testing.T) {
	client, fake := newClient(t, func(w http.ResponseWriter, req recordedRequest) {
		_, _ = io.WriteString(w, `{"data":[
			{"_id":"r1","user":{"_id":"u1","name":"x"},"data":{"status":"new","name":"One"}},
			{"_id":"r2","user":"u2","data":{"status":"new"}}
		]}`)
	})

	filter := tableapi.And(tableapi.Eq("user", "u1"), tableapi.Eq("data.status", "new"))
	rows, err := client.Rows(context.Background(), "releases", tableapi.Query{Page: 2, Limit: 100, Filter: filter})
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 || rows[0].User != "u1" || rows[1].User != "u2" || rows[0].Name() != "One" || rows[1].Status() != "new" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	req := fake.requests[0]
	if req.Method != http.MethodPost || req.Path != "/space-1/database/releases/row" {
		t.Fatalf("unexpected request: %s %s", req.Method, req.Path)
	}
	if req.Auth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %q", req.Auth)
	}
	if req.Body["page"] != float64(2) || req.Body["limit"] != float64(100) {
		t.Fatalf("unexpected paging body: %v", req.Body)
	}
	query, _ := json.Marshal(req.Body["query"])
	if !strings.Contains(string(query), `"$and"`) || !strings.Contains(string(query), `"data.status":{"$eq":"new"}`) {
		t.Fatalf("unexpected query: %s", query)
	}

	backup, err := json.Marshal(rows[0])
	if err != nil {
		t.Fatalf("marshal row: %v", err)
	}
	if !strings.Contains(string(backup), `"name":"x"`) {
		t.Fatalf("expected the raw row to be preserved, got %s", backup)
	}
}

func TestCountAndUpsert(t *testing.T) {
	client, fake := newClient(t, func(w http.ResponseWriter, req recordedRequest) {
		switch req.Path {
		case "/space-1/database/releases/row/count":
			_, _ = io.WriteString(w, `{"count":7}`)
		default:
			_, _ = io.WriteString(w, `{"ok":true}`)
		}
	})

	count, err := client.Count(context.Background(), "releases", tableapi.Eq("data.status", "new"))
	if err != nil || count != 7 {
		t.Fatalf("Count = %d, %v", count, err)
	}

	resp, err := client.Upsert(context.Background(), "releases", tableapi.Upsert{
		ID:      "r1",
		Payload: map[string]any{"status": "moderation"},
		Notice:  "automated generate silk",
		User:    "u1",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if string(resp) != `{"ok":true}` {
		t.Fatalf("unexpected upsert response: %s", resp)
	}
	req := fake.requests[1]
	if req.Method != http.MethodPut || req.Body["_id"] != "r1" || req.Body["user"] != "u1" || req.Body["notice"] != "automated generate silk" {
		t.Fatalf("unexpected upsert request: %+v", req)
	}
	if data, ok := req.Body["data"].(map[string]any); !ok || data["status"] != "moderation" {
		t.Fatalf("unexpected upsert data: %v", req.Body["data"])
	}

	if _, err := client.Upsert(context.Background(), "releases", tableapi.Upsert{Payload: map[string]any{}}); err != nil {
		t.Fatalf("Upsert without id: %v", err)
	}
	if _, ok := fake.requests[2].Body["_id"]; ok {
		t.Fatal("expected _id to be omitted for inserts")
	}
	if _, ok := fake.requests[2].Body["user"]; ok {
		t.Fatal("expected user to be omitted when empty")
	}
}

func TestStatusErrorsCarryMarkers(t *testing.T) {
	tests := []struct {
		code   int
		marker error
	}{
		{http.StatusUnauthorized, services.ErrConfiguration},
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusUnprocessableEntity, services.ErrValidation},
		{http.StatusBadGateway, services.ErrTransient},
	}
	for _, tt := range tests {
		client, _ := newClient(t, func(w http.ResponseWriter, req recordedRequest) {
			http.Error(w, "nope", tt.code)
		})
		_, err := client.Count(context.Background(), "releases", nil)
		if !errors.Is(err, tt.marker) {
			t.Fatalf("status %d: expected %v, got %v", tt.code, tt.marker, err)
		}
		if !tableapi.IsStatus(err, tt.code) {
			t.Fatalf("status %d: expected StatusError, got %v", tt.code, err)
		}
		if !strings.Contains(err.Error(), "nope") {
			t.Fatalf("expected body snippet in error: %v", err)
		}
	}
}

func TestColumnsAndDelete(t *testing.T) {
	client, fake := newClient(t, func(w http.ResponseWriter, req recordedRequest) {
		_, _ = io.WriteString(w, `[{"name":"status"}]`)
	})
	cols, err := client.Columns(context.Background(), "releases")
	if err != nil || !strings.Contains(string(cols), "status") {
		t.Fatalf("Columns = %s, %v", cols, err)
	}
	if err := client.Delete(context.Background(), "releases", "r9"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if fake.requests[0].Method != http.MethodGet || fake.requests[0].Path != "/space-1/database/releases/column" {
		t.Fatalf("unexpected columns request: %+v", fake.requests[0])
	}
	if fake.requests[1].Method != http.MethodDelete || fake.requests[1].Body["_id"] != "r9" {
		t.Fatalf("unexpected delete request: %+v", fake.requests[1])
	}
	if err := client.Delete(context.Background(), "releases", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty id, got %v", err)
	}
}

func TestValuesFollowsPages(t *testing.T) {
	client, fake := newClient(t, func(w http.ResponseWriter, req recordedRequest) {
		page := int(req.Body["page"].(float64))
		rows := make([]map[string]any, 0, 100)
		n := 100
		if page == 1 {
			n = 2
		}
		for i := 0; i < n; i++ {
			rows = append(rows, map[string]any{"_id": fmt.Sprintf("p%d-%d", page, i), "data": map[string]any{"value": "P"}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": rows})
	})
	values, err := client.Values(context.Background(), "audioPlatformsOptions", "value")
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if len(values) != 102 || len(fake.requests) != 2 {
		t.Fatalf("expected 102 values over 2 pages, got %d values, %d requests", len(values), len(fake.requests))
	}
}

func TestValuesStopsWhenServerIgnoresPage(t *testing.T) {
	client, fake := newClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		rows := make([]map[string]any, 0, 100)
		for i := 0; i < 100; i++ {
			rows = append(rows, map[string]any{"_id": fmt.Sprintf("row-%d", i), "data": map[string]any{"value": "Spotify"}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": rows})
	})
	values, err := client.Values(context.Background(), "audioPlatformsOptions", "value")
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if len(values) != 100 || len(fake.requests) != 2 {
		t.Fatalf("expected 100 values after 2 requests, got %d values, %d requests", len(values), len(fake.requests))
	}
}

func TestMissingSpaceIsConfigurationError(t *testing.T) {
	client := tableapi.New("https://api.example.com", "", "Bearer x")
	if _, err := client.Count(context.Background(), "releases", nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
