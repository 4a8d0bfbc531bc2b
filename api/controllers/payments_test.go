package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cuzonet/cuzonet-backend/internal/payments"
)

func TestPaymentRecord(t *testing.T) {
	repo := newStubSubscriberRepo()
	paymentRepo := newStubPaymentRepo()
	svc := newTestSubscriberService(t, repo, paymentRepo)
	logg := testLogger()

	body := `{"name":"Luis","ip_address":"10.0.0.3","download_rate":"10M","upload_rate":"5M","price":25}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribers", strings.NewReader(body))
	rec := httptest.NewRecorder()
	SubscriberRegister(svc, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed register failed: %d", rec.Code)
	}

	t.Run("success", func(t *testing.T) {
		body := `{"amount":25,"method":"transferencia"}`
		req := withIDParam(httptest.NewRequest(http.MethodPost, "/api/v1/subscribers/1/payments", strings.NewReader(body)), "1")
		rec := httptest.NewRecorder()
		PaymentRecord(svc, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var envelope struct {
			Data struct {
				ID     uint   `json:"id"`
				Method string `json:"method"`
			} `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if envelope.Data.ID == 0 {
			t.Fatalf("expected assigned payment id")
		}
		if envelope.Data.Method != "transferencia" {
			t.Fatalf("expected method kept, got %q", envelope.Data.Method)
		}
	})

	t.Run("non-positive amount", func(t *testing.T) {
		body := `{"amount":0}`
		req := withIDParam(httptest.NewRequest(http.MethodPost, "/api/v1/subscribers/1/payments", strings.NewReader(body)), "1")
		rec := httptest.NewRecorder()
		PaymentRecord(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown subscriber", func(t *testing.T) {
		body := `{"amount":25}`
		req := withIDParam(httptest.NewRequest(http.MethodPost, "/api/v1/subscribers/77/payments", strings.NewReader(body)), "77")
		rec := httptest.NewRecorder()
		PaymentRecord(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestPaymentListAndDelete(t *testing.T) {
	repo := newStubSubscriberRepo()
	paymentRepo := newStubPaymentRepo()
	svc := newTestSubscriberService(t, repo, paymentRepo)
	logg := testLogger()

	listSvc, err := payments.NewService(payments.ServiceParams{Repo: paymentRepo})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	seed := httptest.NewRequest(http.MethodPost, "/api/v1/subscribers", strings.NewReader(`{"name":"Ana","ip_address":"10.0.0.4","download_rate":"10M","upload_rate":"5M"}`))
	rec := httptest.NewRecorder()
	SubscriberRegister(svc, logg).ServeHTTP(rec, seed)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed register failed: %d", rec.Code)
	}

	pay := withIDParam(httptest.NewRequest(http.MethodPost, "/api/v1/subscribers/1/payments", strings.NewReader(`{"amount":10}`)), "1")
	rec = httptest.NewRecorder()
	PaymentRecord(svc, logg).ServeHTTP(rec, pay)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed payment failed: %d", rec.Code)
	}

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
		rec := httptest.NewRecorder()
		PaymentList(listSvc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("list by subscriber", func(t *testing.T) {
		req := withIDParam(httptest.NewRequest(http.MethodGet, "/api/v1/subscribers/1/payments", nil), "1")
		rec := httptest.NewRecorder()
		PaymentListBySubscriber(listSvc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var envelope struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(envelope.Data) != 1 {
			t.Fatalf("expected 1 payment, got %d", len(envelope.Data))
		}
	})

	t.Run("delete restores balance", func(t *testing.T) {
		req := withIDParam(httptest.NewRequest(http.MethodDelete, "/api/v1/payments/1", nil), "1")
		rec := httptest.NewRecorder()
		PaymentDelete(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if _, ok := paymentRepo.byID[1]; ok {
			t.Fatalf("expected payment removed")
		}
	})

	t.Run("delete unknown payment", func(t *testing.T) {
		req := withIDParam(httptest.NewRequest(http.MethodDelete, "/api/v1/payments/42", nil), "42")
		rec := httptest.NewRecorder()
		PaymentDelete(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
