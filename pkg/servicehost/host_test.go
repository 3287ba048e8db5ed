package servicehost_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-presence/pkg/presence"
	"github.com/illmade-knight/go-presence/pkg/servicehost"
)

func TestHost_Healthz(t *testing.T) {
	core := presence.NewCore(nil, nil, zerolog.Nop())
	t.Cleanup(func() { _ = core.Close() })
	host := servicehost.NewHost(core, zerolog.Nop(), ":0")

	rec := httptest.NewRecorder()
	host.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHost_Servicez(t *testing.T) {
	core := presence.NewCore(nil, nil, zerolog.Nop())
	t.Cleanup(func() { _ = core.Close() })
	host := servicehost.NewHost(core, zerolog.Nop(), ":0")

	rec := httptest.NewRecorder()
	host.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/servicez", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Stats       presence.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, presence.ServiceName, status.Name)
	assert.NotEmpty(t, status.Description)
	assert.Equal(t, core.Stats(), status.Stats)
}
