package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miralcamp/camposync/internal/models"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestHTTPClient_FetchReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/parcelas", r.URL.Path)
		assert.Equal(t, "Bearer secreto", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"parcelas":[{"_id":"par-001","nombre":"Les Planes"},{"_id":"par-002"}]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, staticToken("secreto"))
	records, err := client.FetchReference(context.Background(), models.CollectionParcelas)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "par-001", records[0].ID)
	assert.Equal(t, "par-002", records[1].ID)
}

func TestHTTPClient_FetchReferenceMissingEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"otra":[]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, staticToken(""))
	_, err := client.FetchReference(context.Background(), models.CollectionParcelas)
	assert.Error(t, err)
}

func TestHTTPClient_NoAuthHeaderWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"cultivos":[]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, staticToken(""))
	_, err := client.FetchReference(context.Background(), models.CollectionCultivos)
	require.NoError(t, err)
}

func TestHTTPClient_CreateRecord(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/visitas", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "ref-123", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, staticToken("secreto"))
	err := client.CreateRecord(context.Background(), models.RecordVisita,
		json.RawMessage(`{"parcela":"par-001"}`), "ref-123")
	require.NoError(t, err)
	assert.Equal(t, "par-001", gotBody["parcela"])
}

func TestHTTPClient_CreateRecordUnknownType(t *testing.T) {
	client := NewHTTPClient("http://localhost:0", staticToken(""))
	err := client.CreateRecord(context.Background(), models.RecordType("cosecha"),
		json.RawMessage(`{}`), "")
	assert.Error(t, err)
}

func TestHTTPClient_ErrorDetailDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"parcela desconocida"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, staticToken(""))
	err := client.CreateRecord(context.Background(), models.RecordVisita,
		json.RawMessage(`{}`), "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "parcela desconocida", apiErr.Detail)
}

func TestHTTPClient_ErrorWithoutBodyFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, staticToken(""))
	err := client.Health(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "HTTP 502", apiErr.Detail)
}

func TestHTTPClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, staticToken(""))
	assert.NoError(t, client.Health(context.Background()))
}
