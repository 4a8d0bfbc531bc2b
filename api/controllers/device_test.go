package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/cuzonet/cuzonet-backend/internal/devicestatus"
	"github.com/cuzonet/cuzonet-backend/internal/importer"
	"github.com/cuzonet/cuzonet-backend/pkg/routeros"
)

type stubProber struct {
	identity string
	err      error
	queues   int
}

func (p *stubProber) TestConnectivity(ctx context.Context) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.identity, nil
}

func (p *stubProber) ListQueues(ctx context.Context) ([]routeros.Queue, error) {
	return make([]routeros.Queue, p.queues), nil
}

func TestDeviceStatus(t *testing.T) {
	t.Run("no device configured", func(t *testing.T) {
		cache := devicestatus.New(nil, 0)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/device/status", nil)
		rec := httptest.NewRecorder()
		DeviceStatus(cache, testLogger()).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var envelope struct {
			Data devicestatus.Status `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if envelope.Data.Connected {
			t.Fatalf("expected disconnected status")
		}
	})

	t.Run("connected", func(t *testing.T) {
		cache := devicestatus.New(&stubProber{identity: "router-core", queues: 3}, 0)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/device/status", nil)
		rec := httptest.NewRecorder()
		DeviceStatus(cache, testLogger()).ServeHTTP(rec, req)

		var envelope struct {
			Data devicestatus.Status `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if !envelope.Data.Connected || envelope.Data.QueueCount != 3 {
			t.Fatalf("unexpected status: %+v", envelope.Data)
		}
	})
}

func TestDeviceTest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/system/identity" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"name":"router-lab"}`)
	}))
	defer srv.Close()

	parsed, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing test server url: %v", err)
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		t.Fatalf("parsing port: %v", err)
	}

	t.Run("success", func(t *testing.T) {
		body := fmt.Sprintf(`{"host":%q,"port":%d,"username":"admin","password":"secret"}`, parsed.Hostname(), port)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/device/test", strings.NewReader(body))
		rec := httptest.NewRecorder()
		DeviceTest(testLogger()).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var envelope struct {
			Data struct {
				Connected bool   `json:"connected"`
				Identity  string `json:"identity"`
			} `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if !envelope.Data.Connected || envelope.Data.Identity != "router-lab" {
			t.Fatalf("unexpected response: %+v", envelope.Data)
		}
	})

	t.Run("missing host", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/device/test", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		DeviceTest(testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

type stubImportRunner struct {
	result importer.Result
	err    error
	runs   int
}

func (s *stubImportRunner) Run(ctx context.Context) (importer.Result, error) {
	s.runs++
	if s.err != nil {
		return importer.Result{}, s.err
	}
	return s.result, nil
}

func TestDeviceImport(t *testing.T) {
	t.Run("no device configured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/device/import", nil)
		rec := httptest.NewRecorder()
		DeviceImport(nil, nil, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("success invalidates cache", func(t *testing.T) {
		job := &stubImportRunner{result: importer.Result{Imported: 4, Skipped: 2}}
		cache := devicestatus.New(nil, 0)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/device/import", nil)
		rec := httptest.NewRecorder()
		DeviceImport(job, cache, testLogger()).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if job.runs != 1 {
			t.Fatalf("expected one import run, got %d", job.runs)
		}
		var envelope struct {
			Data importer.Result `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if envelope.Data.Imported != 4 || envelope.Data.Skipped != 2 {
			t.Fatalf("unexpected result: %+v", envelope.Data)
		}
	})
}
