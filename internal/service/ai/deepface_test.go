package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeepFaceClient_Analyze(t *testing.T) {
	var got analyzeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/analyze", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"age":31.6,"dominant_gender":"Man","dominant_race":"middle eastern","region":{"x":4,"y":5,"w":10,"h":12}},
			{"dominant_gender":"Woman","dominant_race":"black","region":{"x":0,"y":0,"w":1,"h":1}}
		]}`))
	}))
	defer server.Close()

	client := NewDeepFaceClient(server.URL+"/", "mtcnn", time.Second)
	attrs, err := client.Analyze(context.Background(), []byte{0xff, 0xd8})
	require.NoError(t, err)

	require.Equal(t, []string{"age", "gender", "race"}, got.Actions)
	require.Equal(t, "mtcnn", got.DetectorBackend)
	require.False(t, got.EnforceDetection)
	require.True(t, strings.HasPrefix(got.Img, "data:image/jpeg;base64,"))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got.Img, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8}, decoded)

	require.Len(t, attrs, 2)
	require.Equal(t, 32, *attrs[0].Age)
	require.Equal(t, "Man", attrs[0].DominantGender)
	require.Equal(t, "middle eastern", attrs[0].DominantRace)
	require.Equal(t, image.Rect(4, 5, 14, 17), attrs[0].Region)
	require.Nil(t, attrs[1].Age)
}

func TestDeepFaceClient_NoFaceIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Exception while analyzing: Face could not be detected in numpy array."}`))
	}))
	defer server.Close()

	client := NewDeepFaceClient(server.URL, "mtcnn", time.Second, WithEnforceDetection(true))
	attrs, err := client.Analyze(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.NotNil(t, attrs)
	require.Empty(t, attrs)
}

func TestDeepFaceClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewDeepFaceClient(server.URL, "mtcnn", time.Second)
	_, err := client.Analyze(context.Background(), []byte("img"))
	require.ErrorContains(t, err, "500")
	require.ErrorContains(t, err, "model exploded")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Analyze(ctx, []byte("img"))
	require.Error(t, err)
}
