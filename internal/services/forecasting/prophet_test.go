package forecasting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
)

func TestProphetClient_PredictAndDecompose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, prophetPath, r.URL.Path)
		var req prophetReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.History, 2)
		assert.Equal(t, 0.8, req.IntervalWidth)

		resp := prophetResp{}
		for i, ds := range req.DS {
			v := float64(i)
			resp.Forecast = append(resp.Forecast, prophetPoint{
				DS: ds, YHat: v, YHatLower: v - 1, YHatUpper: v + 1, Trend: v, Weekly: 0.1, Yearly: 0.2,
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewProphetClient(srv.URL, time.Second, 0.8)
	fm, err := client.Fit(context.Background(), []models.TrainingPoint{
		{Timestamp: t0, Value: 1}, {Timestamp: t0.AddDate(0, 0, 1), Value: 2},
	})
	require.NoError(t, err)

	at := dates(t0, 3)
	out, err := fm.Predict(context.Background(), at)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, at[2], out[2].Timestamp)
	assert.Equal(t, 1.0, out[2].Upper-out[2].Estimate)

	comps, err := fm.Decompose(context.Background(), at)
	require.NoError(t, err)
	assert.Equal(t, 0.2, comps[0].Yearly)
}

func TestProphetClient_RowMismatchFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"forecast": []}`))
	}))
	defer srv.Close()

	fm, err := NewProphetClient(srv.URL, time.Second, 0.8).Fit(context.Background(), []models.TrainingPoint{
		{Timestamp: t0, Value: 1}, {Timestamp: t0.AddDate(0, 0, 1), Value: 2},
	})
	require.NoError(t, err)

	_, err = fm.Predict(context.Background(), dates(t0, 2))
	assert.Error(t, err)
}

func TestProphetClient_SidecarError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fm, err := NewProphetClient(srv.URL, time.Second, 0.8).Fit(context.Background(), []models.TrainingPoint{
		{Timestamp: t0, Value: 1}, {Timestamp: t0.AddDate(0, 0, 1), Value: 2},
	})
	require.NoError(t, err)

	_, err = fm.Decompose(context.Background(), dates(t0, 1))
	assert.ErrorContains(t, err, "model crashed")
}
