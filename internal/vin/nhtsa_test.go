package vin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const civicDecode = `{
  "Count": 9,
  "Message": "Results returned successfully",
  "Results": [
    {"Variable": "Make", "Value": "HONDA"},
    {"Variable": "Model", "Value": "Civic"},
    {"Variable": "Model Year", "Value": "2003"},
    {"Variable": "Engine Model", "Value": "D17A2"},
    {"Variable": "Body Class", "Value": "Sedan/Saloon"},
    {"Variable": "Drive Type", "Value": "FWD/Front-Wheel Drive"},
    {"Variable": "Anti-lock Braking System (ABS)", "Value": "Standard"},
    {"Variable": "Traction Control", "Value": null},
    {"Variable": "Backup Camera", "Value": "Not Applicable"},
    {"Variable": "Trim", "Value": ""}
  ]
}`

func newNHTSA(t *testing.T, h http.HandlerFunc) *NHTSA {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewNHTSA(srv.URL+"/", 2*time.Second, nil)
}

func TestNHTSA_Decode(t *testing.T) {
	var gotPath, gotFormat string
	n := newNHTSA(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFormat = r.URL.Query().Get("format")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(civicDecode))
	})

	d, err := n.Decode(context.Background(), "1HGEM21533L123456")
	require.NoError(t, err)

	assert.Equal(t, "/vehicles/DecodeVin/1HGEM21533L123456", gotPath)
	assert.Equal(t, "json", gotFormat)
	assert.Equal(t, Decoded{
		Make:           "HONDA",
		Model:          "Civic",
		ModelYear:      2003,
		EngineModel:    "D17A2",
		BodyStyle:      "Sedan/Saloon",
		DriveType:      "FWD/Front-Wheel Drive",
		SafetyFeatures: []string{"ABS"},
	}, d)
}

func TestNHTSA_NotFound(t *testing.T) {
	tests := map[string]string{
		"zero count": `{"Count": 0, "Results": []}`,
		"no make":    `{"Count": 1, "Results": [{"Variable": "Error Code", "Value": "11"}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			n := newNHTSA(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := n.Decode(context.Background(), "1HGEM21533L123456")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestNHTSA_Unavailable(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		n := newNHTSA(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		})
		_, err := n.Decode(context.Background(), "1HGEM21533L123456")
		assert.ErrorIs(t, err, ErrDecodeUnavailable)
	})

	t.Run("bad json", func(t *testing.T) {
		n := newNHTSA(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		})
		_, err := n.Decode(context.Background(), "1HGEM21533L123456")
		assert.ErrorIs(t, err, ErrDecodeUnavailable)
	})

	t.Run("transport", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		n := NewNHTSA(srv.URL, time.Second, nil)
		_, err := n.Decode(context.Background(), "1HGEM21533L123456")
		assert.ErrorIs(t, err, ErrDecodeUnavailable)
	})
}
